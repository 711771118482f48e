package collectors

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/sysmon-2025.net/internal/core/ports/primary"
	"gitlab.com/sysmon-2025.net/internal/core/services/telemetry"
	"gitlab.com/sysmon-2025.net/internal/handlers"
)

type ApiHandler struct {
	TelemetryService telemetry.ITelemetryService
	logger           primary.Logger
}

func NewHandler(telemetryService telemetry.ITelemetryService, logger primary.Logger) *ApiHandler {
	return &ApiHandler{
		TelemetryService: telemetryService,
		logger:           logger,
	}
}

func (api *ApiHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/collectors", api.GetCollectors).Methods("GET")
}

// GetCollectors lists collectors that reported within the registry TTL
func (api *ApiHandler) GetCollectors(w http.ResponseWriter, r *http.Request) {
	collectors, err := api.TelemetryService.ActiveCollectors(r.Context())
	if err != nil {
		api.logger.Error("Failed to get collectors", "error", err)
		handlers.ResponseError(w, "Failed to get collectors", http.StatusInternalServerError)
		return
	}

	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{"collectors": collectors})
}
