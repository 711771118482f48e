package telemetry

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/sysmon-2025.net/internal/core/ports/primary"
	"gitlab.com/sysmon-2025.net/internal/core/ports/secondary"
	"gitlab.com/sysmon-2025.net/internal/domain"
	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

var _ ITelemetryService = &TelemetryService{}

// TelemetryService implements the ITelemetryService interface
type TelemetryService struct {
	timeseriesRepo secondary.TimeseriesRepository
	registry       secondary.CollectorRegistry
	logger         primary.Logger
	now            func() time.Time
}

// NewTelemetryService creates a new telemetry service. registry may be nil.
func NewTelemetryService(timeseriesRepo secondary.TimeseriesRepository, registry secondary.CollectorRegistry, logger primary.Logger) *TelemetryService {
	return &TelemetryService{
		timeseriesRepo: timeseriesRepo,
		registry:       registry,
		logger:         logger,
		now:            time.Now,
	}
}

// SubmitData persists a sample and records the collector as active
func (s *TelemetryService) SubmitData(ctx context.Context, received uint32, cmd wire.SubmitData, remoteAddr string) error {
	collectorID := cmd.CollectorID.String()

	if cmd.AverageCPUUsage < 0 || cmd.AverageCPUUsage > 1 {
		s.logger.Warn("Average CPU usage out of range", "collectorId", collectorID, "averageCpu", cmd.AverageCPUUsage)
	}
	if cmd.UsedMemory > cmd.TotalMemory {
		s.logger.Warn("Used memory exceeds total memory", "collectorId", collectorID, "used", cmd.UsedMemory, "total", cmd.TotalMemory)
	}

	// u64 values above MaxInt64 wrap, as the store only has signed 64-bit columns
	point := &domain.DataPoint{
		CollectorID: collectorID,
		Received:    int64(received),
		TotalMemory: int64(cmd.TotalMemory),
		UsedMemory:  int64(cmd.UsedMemory),
		AverageCPU:  cmd.AverageCPUUsage,
	}

	if err := s.timeseriesRepo.Insert(ctx, point); err != nil {
		s.logger.Error("Failed to persist sample", "collectorId", collectorID, "received", received, "error", err)
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}

	s.logger.Debug("Sample persisted", "collectorId", collectorID, "received", received)

	if s.registry == nil {
		return nil
	}

	status := &domain.CollectorStatus{
		ID:          collectorID,
		RemoteAddr:  remoteAddr,
		LastSeen:    s.now(),
		Received:    point.Received,
		TotalMemory: point.TotalMemory,
		UsedMemory:  point.UsedMemory,
		AverageCPU:  point.AverageCPU,
	}
	// the sample is already durable; a registry outage must not trigger a client retry
	if err := s.registry.Touch(ctx, status); err != nil {
		s.logger.Warn("Failed to update collector registry", "collectorId", collectorID, "error", err)
	}

	return nil
}

// ActiveCollectors lists collectors from the registry
func (s *TelemetryService) ActiveCollectors(ctx context.Context) ([]*domain.CollectorStatus, error) {
	if s.registry == nil {
		return []*domain.CollectorStatus{}, nil
	}

	collectors, err := s.registry.ListActive(ctx)
	if err != nil {
		s.logger.Error("Failed to list active collectors", "error", err)
		return nil, fmt.Errorf("failed to list active collectors: %w", err)
	}

	return collectors, nil
}

// Ping checks the metrics store
func (s *TelemetryService) Ping(ctx context.Context) error {
	return s.timeseriesRepo.Ping(ctx)
}
