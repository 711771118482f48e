package telemetry

import (
	"context"
	"errors"

	"gitlab.com/sysmon-2025.net/internal/domain"
	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

// ErrStoreFailed is returned when a sample could not be persisted
var ErrStoreFailed = errors.New("failed to store sample")

// ITelemetryService defines the interface for ingesting collector samples
type ITelemetryService interface {
	// SubmitData validates and persists one sample received at the given envelope timestamp
	SubmitData(ctx context.Context, received uint32, cmd wire.SubmitData, remoteAddr string) error

	// ActiveCollectors returns the collectors that reported recently
	ActiveCollectors(ctx context.Context) ([]*domain.CollectorStatus, error)

	// Ping checks the metrics store
	Ping(ctx context.Context) error
}
