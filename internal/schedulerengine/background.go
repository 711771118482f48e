package schedulerengine

import (
	"context"
	"sync"
	"time"

	"gitlab.com/sysmon-2025.net/internal/adapter/metrics"
	"gitlab.com/sysmon-2025.net/internal/config"
	"gitlab.com/sysmon-2025.net/internal/core/ports/primary"
	"gitlab.com/sysmon-2025.net/internal/core/services/telemetry"
)

// SchedulerEngine runs the server's periodic background tasks
type SchedulerEngine struct {
	SchedulerCfg     *config.ScheduleSvcCfg
	telemetryService telemetry.ITelemetryService
	metrics          *metrics.ServerMetrics
	logger           primary.Logger
	wg               sync.WaitGroup
}

func NewSchedulerEngine(
	SchedulerCfg *config.ScheduleSvcCfg,
	telemetryService telemetry.ITelemetryService,
	m *metrics.ServerMetrics,
	logger primary.Logger,
) *SchedulerEngine {
	return &SchedulerEngine{
		SchedulerCfg:     SchedulerCfg,
		telemetryService: telemetryService,
		metrics:          m,
		logger:           logger,
	}
}

// StartStatsEngine refreshes the active collector gauge until ctx is done
func (s *SchedulerEngine) StartStatsEngine(ctx context.Context) {
	ticker := time.NewTicker(s.SchedulerCfg.ActiveCollectorsInterval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()

		s.RefreshActiveCollectors(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RefreshActiveCollectors(ctx)
			}
		}
	}()
}

// Wait blocks until the background tasks have returned
func (s *SchedulerEngine) Wait() {
	s.wg.Wait()
}

func (s *SchedulerEngine) RefreshActiveCollectors(ctx context.Context) {
	collectors, err := s.telemetryService.ActiveCollectors(ctx)
	if err != nil {
		s.logger.Error("Failed to refresh active collectors", "error", err)
		return
	}

	s.metrics.ActiveCollectors.Set(float64(len(collectors)))
	s.logger.Debug("Active collectors refreshed", "count", len(collectors))
}
