package handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"gitlab.com/sysmon-2025.net/internal/adapter/metrics"
	"gitlab.com/sysmon-2025.net/internal/core/ports/primary"
	"gitlab.com/sysmon-2025.net/internal/core/services/telemetry"
	"gitlab.com/sysmon-2025.net/internal/tcp/connectionmanager"
	"gitlab.com/sysmon-2025.net/internal/tcp/defs"
	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

var _ primary.CommandHandler = (*SubmitDataHandler)(nil)

// SubmitDataHandler persists SubmitData samples and acknowledges them
type SubmitDataHandler struct {
	TelemetryService telemetry.ITelemetryService
	ConnectionMgr    *connectionmanager.ConnectionManager
	Metrics          *metrics.ServerMetrics
	Logger           primary.Logger
}

func NewSubmitDataHandler(
	telemetryService telemetry.ITelemetryService,
	connectionMgr *connectionmanager.ConnectionManager,
	m *metrics.ServerMetrics,
	logger primary.Logger,
) *SubmitDataHandler {
	return &SubmitDataHandler{
		TelemetryService: telemetryService,
		ConnectionMgr:    connectionMgr,
		Metrics:          m,
		Logger:           logger,
	}
}

// HandleCommand implements the CommandHandler interface
func (h *SubmitDataHandler) HandleCommand(ctx context.Context, conn net.Conn, timestamp uint32, cmd wire.Command) error {
	var data wire.SubmitData
	switch c := cmd.(type) {
	case wire.SubmitData:
		data = c
	case *wire.SubmitData:
		data = *c
	default:
		return fmt.Errorf("unexpected command %T", cmd)
	}

	remoteAddr := conn.RemoteAddr().String()

	start := time.Now()
	err := h.TelemetryService.SubmitData(ctx, timestamp, data, remoteAddr)
	h.Metrics.InsertDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if !errors.Is(err, telemetry.ErrStoreFailed) {
			return err
		}
		// no Ack(0): the collector keeps the message and resends it
		h.Metrics.Frames.WithLabelValues(metrics.ResultStoreFailed).Inc()
		if sendErr := h.ConnectionMgr.SendAck(conn, defs.AckStorageFailure); sendErr != nil {
			return sendErr
		}
		return nil
	}

	h.Metrics.Frames.WithLabelValues(metrics.ResultAccepted).Inc()
	h.Logger.Debug("Sample accepted", "collectorId", data.CollectorID.String(), "remoteAddr", remoteAddr)

	return h.ConnectionMgr.SendAck(conn, defs.AckOK)
}
