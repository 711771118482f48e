package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/sysmon-2025.net/internal/adapter/logging"
	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

type fakeSampler struct {
	mu     sync.Mutex
	sample Sample
	err    error
	calls  int
}

func (f *fakeSampler) Sample(context.Context) (*Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s := f.sample
	return &s, nil
}

func (f *fakeSampler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestAgent(sampler Sampler, transport Transport, config Config) *Agent {
	return New(wire.NewCollectorID(42), sampler, transport, NewQueue(QueueConfig{}), logging.NewNopLogger(), config)
}

func TestNextDelay(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		period  time.Duration
		want    time.Duration
	}{
		{name: "instant cycle", elapsed: 0, period: time.Second, want: time.Second},
		{name: "partial cycle", elapsed: 300 * time.Millisecond, period: time.Second, want: 700 * time.Millisecond},
		{name: "exact period", elapsed: time.Second, period: time.Second, want: time.Second},
		{name: "overrun", elapsed: 3 * time.Second, period: time.Second, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextDelay(tt.elapsed, tt.period))
		})
	}
}

func TestAverageCPU(t *testing.T) {
	assert.Equal(t, float32(0), averageCPU(nil))
	assert.Equal(t, float32(0.5), averageCPU([]float64{25, 75}))
	assert.Equal(t, float32(1), averageCPU([]float64{100, 100, 100, 100}))
}

func TestAgent_RunOnceDeliversSample(t *testing.T) {
	sampler := &fakeSampler{sample: Sample{TotalMemory: 1000, UsedMemory: 250, CPUPercents: []float64{10, 30}}}
	transport := &fakeTransport{}
	a := newTestAgent(sampler, transport, DefaultConfig())

	a.RunOnce(context.Background())

	require.Len(t, transport.acked, 1)
	_, cmd, err := wire.Decode(transport.acked[0])
	require.NoError(t, err)
	assert.Equal(t, wire.SubmitData{
		CollectorID:     wire.NewCollectorID(42),
		TotalMemory:     1000,
		UsedMemory:      250,
		AverageCPUUsage: 0.2,
	}, cmd)
	assert.Equal(t, 0, a.Queue().Len())
}

func TestAgent_SamplerFailureSkipsCycle(t *testing.T) {
	sampler := &fakeSampler{err: errors.New("procfs unavailable")}
	transport := &fakeTransport{}
	a := newTestAgent(sampler, transport, DefaultConfig())

	a.RunOnce(context.Background())

	assert.Equal(t, uint64(0), a.Queue().Stats().Enqueued)
	assert.Equal(t, 0, transport.dialCount())
}

func TestAgent_BackoffDefersDrain(t *testing.T) {
	sampler := &fakeSampler{sample: Sample{TotalMemory: 1, UsedMemory: 1}}
	transport := &fakeTransport{dialErr: errors.New("connection refused")}
	a := newTestAgent(sampler, transport, Config{
		SampleInterval: time.Second,
		BackoffInitial: time.Second,
		BackoffMax:     time.Minute,
	})

	now := time.Unix(1700000000, 0)
	a.now = func() time.Time { return now }

	a.RunOnce(context.Background())
	a.RunOnce(context.Background())
	assert.Equal(t, 1, transport.dialCount(), "second drain should wait for the backoff")
	assert.Equal(t, 2, a.Queue().Len(), "sampling continues while backing off")

	now = now.Add(time.Hour)
	transport.mu.Lock()
	transport.dialErr = nil
	transport.mu.Unlock()

	a.RunOnce(context.Background())
	assert.Equal(t, 2, transport.dialCount())
	assert.Equal(t, 0, a.Queue().Len())
	assert.True(t, a.retryAt.IsZero(), "success resets the backoff")
}

func TestAgent_NoBackoffRetriesEveryCycle(t *testing.T) {
	transport := &fakeTransport{dialErr: errors.New("connection refused")}
	a := newTestAgent(&fakeSampler{}, transport, Config{SampleInterval: time.Second})

	a.RunOnce(context.Background())
	a.RunOnce(context.Background())
	assert.Equal(t, 2, transport.dialCount())
}

func TestAgent_FlushIgnoresBackoff(t *testing.T) {
	transport := &fakeTransport{dialErr: errors.New("connection refused")}
	a := newTestAgent(&fakeSampler{}, transport, DefaultConfig())

	a.RunOnce(context.Background())
	require.Equal(t, 1, a.Queue().Len())

	transport.mu.Lock()
	transport.dialErr = nil
	transport.mu.Unlock()

	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, 0, a.Queue().Len())
}

func TestAgent_RunStopsOnCancel(t *testing.T) {
	sampler := &fakeSampler{sample: Sample{TotalMemory: 1}}
	transport := &fakeTransport{}
	a := newTestAgent(sampler, transport, Config{SampleInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return sampler.callCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
