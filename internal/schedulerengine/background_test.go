package schedulerengine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"gitlab.com/sysmon-2025.net/internal/adapter/logging"
	"gitlab.com/sysmon-2025.net/internal/adapter/metrics"
	"gitlab.com/sysmon-2025.net/internal/config"
	"gitlab.com/sysmon-2025.net/internal/domain"
	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

type fakeTelemetryService struct {
	mu         sync.Mutex
	collectors []*domain.CollectorStatus
	err        error
	calls      int
}

func (f *fakeTelemetryService) SubmitData(context.Context, uint32, wire.SubmitData, string) error {
	return nil
}

func (f *fakeTelemetryService) ActiveCollectors(context.Context) ([]*domain.CollectorStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.collectors, f.err
}

func (f *fakeTelemetryService) Ping(context.Context) error { return nil }

func (f *fakeTelemetryService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRefreshActiveCollectors(t *testing.T) {
	svc := &fakeTelemetryService{collectors: []*domain.CollectorStatus{{ID: "a"}, {ID: "b"}}}
	m := metrics.NewServerMetrics(nil)
	engine := NewSchedulerEngine(&config.ScheduleSvcCfg{ActiveCollectorsInterval: time.Minute}, svc, m, logging.NewNopLogger())

	engine.RefreshActiveCollectors(context.Background())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ActiveCollectors))

	// a failed refresh keeps the last value
	svc.err = errors.New("redis down")
	engine.RefreshActiveCollectors(context.Background())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ActiveCollectors))
}

func TestStartStatsEngine_StopsWithContext(t *testing.T) {
	svc := &fakeTelemetryService{}
	engine := NewSchedulerEngine(&config.ScheduleSvcCfg{ActiveCollectorsInterval: 10 * time.Millisecond}, svc, metrics.NewServerMetrics(nil), logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	engine.StartStatsEngine(ctx)

	assert.Eventually(t, func() bool { return svc.callCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		engine.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}
