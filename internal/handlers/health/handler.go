package health

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/sysmon-2025.net/internal/core/ports/primary"
	"gitlab.com/sysmon-2025.net/internal/core/services/telemetry"
	"gitlab.com/sysmon-2025.net/internal/handlers"
)

// ConnectionCounter reports open collector connections.
type ConnectionCounter interface {
	ConnectionCount() int
}

type Status struct {
	Status           string `json:"status"`
	Database         string `json:"database"`
	ActiveCollectors int    `json:"active_collectors"`
	Connections      int    `json:"connections"`
}

type ApiHandler struct {
	TelemetryService telemetry.ITelemetryService
	Connections      ConnectionCounter
	logger           primary.Logger
}

// NewHandler creates the health handler. connections may be nil.
func NewHandler(telemetryService telemetry.ITelemetryService, connections ConnectionCounter, logger primary.Logger) *ApiHandler {
	return &ApiHandler{
		TelemetryService: telemetryService,
		Connections:      connections,
		logger:           logger,
	}
}

func (api *ApiHandler) Register(r *mux.Router) {
	r.HandleFunc("/healthz", api.Health).Methods("GET")
}

// Health reports 200 when the metrics store answers, 503 otherwise.
// Registry errors only zero the collector count.
func (api *ApiHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := Status{Status: "ok", Database: "ok"}

	if api.Connections != nil {
		status.Connections = api.Connections.ConnectionCount()
	}

	if collectors, err := api.TelemetryService.ActiveCollectors(r.Context()); err != nil {
		api.logger.Warn("Failed to count active collectors", "error", err)
	} else {
		status.ActiveCollectors = len(collectors)
	}

	if err := api.TelemetryService.Ping(r.Context()); err != nil {
		api.logger.Error("Database health check failed", "error", err)
		status.Status = "unavailable"
		status.Database = err.Error()
		handlers.ResponseWithJson(w, http.StatusServiceUnavailable, status)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, status)
}
