package http

// this is entry point of the ops http endpoints

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.com/sysmon-2025.net/internal/core/ports/primary"
	"gitlab.com/sysmon-2025.net/internal/core/services/telemetry"
	"gitlab.com/sysmon-2025.net/internal/handlers/collectors"
	"gitlab.com/sysmon-2025.net/internal/handlers/health"
)

type ServiceProvider struct {
	telemetryService telemetry.ITelemetryService
	connections      health.ConnectionCounter
	gatherer         prometheus.Gatherer
}

func NewServiceProvider(
	telemetryService telemetry.ITelemetryService,
	connections health.ConnectionCounter,
	gatherer prometheus.Gatherer,
) *ServiceProvider {
	return &ServiceProvider{
		telemetryService: telemetryService,
		connections:      connections,
		gatherer:         gatherer,
	}
}

type Server struct {
	router          *mux.Router
	Port            string
	ServiceName     string
	ServiceProvider ServiceProvider
	logger          primary.Logger
	srv             *http.Server
	listener        net.Listener
}

func NewServer(port string, serviceName string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	if s.ServiceProvider.telemetryService == nil {
		return errors.New("telemetry service is required")
	}

	r := mux.NewRouter()
	health.NewHandler(s.ServiceProvider.telemetryService, s.ServiceProvider.connections, s.logger).Register(r)
	collectors.NewHandler(s.ServiceProvider.telemetryService, s.logger).Register(r)

	gatherer := s.ServiceProvider.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	s.router = r
	return nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the port and serves in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	// Set up server
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}
	s.listener = ln

	// Start the server in a goroutine
	go func() {
		s.logger.Info("Server listening", "service", s.ServiceName, "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
