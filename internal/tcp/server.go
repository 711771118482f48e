// Package tcp accepts collector connections and dispatches their commands.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"gitlab.com/sysmon-2025.net/internal/adapter/metrics"
	"gitlab.com/sysmon-2025.net/internal/core/ports/primary"
	"gitlab.com/sysmon-2025.net/internal/core/services/telemetry"
	"gitlab.com/sysmon-2025.net/internal/tcp/connectionmanager"
	"gitlab.com/sysmon-2025.net/internal/tcp/defs"
	"gitlab.com/sysmon-2025.net/internal/tcp/handlers"
	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

// TCPServer handles TCP connections from collectors
type TCPServer struct {
	address          string
	readTimeout      time.Duration
	maxPayload       uint32
	telemetryService telemetry.ITelemetryService
	logger           primary.Logger
	metrics          *metrics.ServerMetrics
	listener         net.Listener
	connectionMgr    *connectionmanager.ConnectionManager
	handlers         map[uint32]primary.CommandHandler
	stopCh           chan struct{}
	stopOnce         sync.Once
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
}

// TCPServerOption configures a TCPServer
type TCPServerOption func(*TCPServer)

// WithAddress sets the server address
func WithAddress(address string) TCPServerOption {
	return func(s *TCPServer) {
		s.address = address
	}
}

// WithReadTimeout sets how long a connection may stay idle between frames.
// Zero disables the deadline.
func WithReadTimeout(timeout time.Duration) TCPServerOption {
	return func(s *TCPServer) {
		s.readTimeout = timeout
	}
}

// WithMaxPayload caps the payload_size a frame may announce
func WithMaxPayload(size uint32) TCPServerOption {
	return func(s *TCPServer) {
		s.maxPayload = size
	}
}

// WithMetrics sets the Prometheus instruments the server updates
func WithMetrics(m *metrics.ServerMetrics) TCPServerOption {
	return func(s *TCPServer) {
		s.metrics = m
	}
}

// NewTCPServer creates a new TCP server
func NewTCPServer(
	telemetryService telemetry.ITelemetryService,
	logger primary.Logger,
	options ...TCPServerOption,
) *TCPServer {
	server := &TCPServer{
		address:          defs.DefaultCollectorAddress,
		readTimeout:      defs.DefaultReadTimeout,
		maxPayload:       defs.MaxPayloadSize,
		telemetryService: telemetryService,
		logger:           logger,
		stopCh:           make(chan struct{}),
	}

	// Apply options
	for _, option := range options {
		option(server)
	}

	if server.metrics == nil {
		server.metrics = metrics.NewServerMetrics(nil)
	}
	server.connectionMgr = connectionmanager.NewConnectionManager(logger, server.metrics)
	server.ctx, server.cancel = context.WithCancel(context.Background())

	// Register command handlers
	server.setupCommandHandlers()

	return server
}

// setupCommandHandlers registers all command handlers
func (s *TCPServer) setupCommandHandlers() {
	s.handlers = map[uint32]primary.CommandHandler{
		defs.CmdSubmitData: handlers.NewSubmitDataHandler(s.telemetryService, s.connectionMgr, s.metrics, s.logger),
	}
}

// Start starts the TCP server
func (s *TCPServer) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}

	s.logger.Info("TCP server listening", "address", s.listener.Addr().String())

	// Accept connections in a goroutine
	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Addr returns the bound listener address, or nil before Start
func (s *TCPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of open collector connections
func (s *TCPServer) ConnectionCount() int {
	return s.connectionMgr.Count()
}

// Stop stops accepting, closes open connections and waits for handlers
// to return or ctx to expire.
func (s *TCPServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.cancel()

		// Close listener
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				s.logger.Error("Failed to close listener", "error", err)
			}
		}

		// Close all connections
		s.connectionMgr.CloseAll()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("TCP server stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop TCP server: %w", ctx.Err())
	}
}

// acceptConnections accepts incoming connections
func (s *TCPServer) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				s.logger.Error("Failed to accept connection", "error", err)
				time.Sleep(defs.ConnectionRetryDelay) // Avoid tight loop on error
				continue
			}
		}

		// Handle connection in a goroutine
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection serves one collector until it disconnects or sends
// something that leaves the stream unusable
func (s *TCPServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	remoteAddr := conn.RemoteAddr().String()

	s.connectionMgr.AddConnection(conn)
	defer s.connectionMgr.RemoveConnection(conn)

	// registered after Stop's CloseAll
	select {
	case <-s.stopCh:
		return
	default:
	}

	s.logger.Debug("Collector connected", "remoteAddr", remoteAddr)

	for {
		if s.readTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
				s.logger.Error("Failed to set read deadline", "remoteAddr", remoteAddr, "error", err)
				return
			}
		}

		frame, err := wire.ReadFrame(conn, s.maxPayload)
		if err != nil {
			s.logReadError(remoteAddr, err)
			return
		}

		timestamp, cmd, err := wire.Decode(frame)
		if err != nil {
			if !wire.IsFrameIntact(err) {
				s.metrics.Frames.WithLabelValues(metrics.ResultRejected).Inc()
				s.logger.Warn("Rejected frame, closing connection", "remoteAddr", remoteAddr, "error", err)
				return
			}

			s.metrics.Frames.WithLabelValues(metrics.ResultUnsupported).Inc()
			s.logger.Warn("Unsupported command", "remoteAddr", remoteAddr, "error", err)
			if err := s.connectionMgr.SendAck(conn, defs.AckUnsupportedCommand); err != nil {
				s.logger.Error("Failed to send ack", "remoteAddr", remoteAddr, "error", err)
				return
			}
			continue
		}

		// Find handler for command
		handler, exists := s.handlers[wire.Tag(cmd)]
		if !exists {
			s.metrics.Frames.WithLabelValues(metrics.ResultUnsupported).Inc()
			s.logger.Warn("No handler for command", "remoteAddr", remoteAddr, "tag", wire.Tag(cmd))
			if err := s.connectionMgr.SendAck(conn, defs.AckUnsupportedCommand); err != nil {
				return
			}
			continue
		}

		if err := handler.HandleCommand(s.ctx, conn, timestamp, cmd); err != nil {
			s.logger.Error("Error handling command", "remoteAddr", remoteAddr, "tag", wire.Tag(cmd), "error", err)
			return
		}
	}
}

func (s *TCPServer) logReadError(remoteAddr string, err error) {
	var netErr net.Error

	switch {
	case err == io.EOF:
		s.logger.Debug("Collector disconnected", "remoteAddr", remoteAddr)
	case errors.As(err, &netErr) && netErr.Timeout():
		s.logger.Info("Closing idle connection", "remoteAddr", remoteAddr)
	case errors.Is(err, net.ErrClosed):
		s.logger.Debug("Connection closed", "remoteAddr", remoteAddr)
	default:
		s.metrics.Frames.WithLabelValues(metrics.ResultRejected).Inc()
		s.logger.Warn("Failed to read frame, closing connection", "remoteAddr", remoteAddr, "error", err)
	}
}
