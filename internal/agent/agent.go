package agent

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"gitlab.com/sysmon-2025.net/internal/core/ports/primary"
	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

// Sample is one reading of the host.
type Sample struct {
	TotalMemory uint64
	UsedMemory  uint64
	// CPUPercents holds one 0-100 value per core.
	CPUPercents []float64
}

// Sampler reads host metrics.
type Sampler interface {
	Sample(ctx context.Context) (*Sample, error)
}

// Config holds the agent loop settings.
type Config struct {
	SampleInterval time.Duration
	// BackoffInitial is the first pause after a failed drain. Zero retries
	// on every cycle.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// DefaultConfig samples once per second.
func DefaultConfig() Config {
	return Config{
		SampleInterval: time.Second,
		BackoffInitial: time.Second,
		BackoffMax:     time.Minute,
	}
}

// Agent samples the host on a fixed period and delivers every sample to
// the server at least once.
type Agent struct {
	id        wire.CollectorID
	sampler   Sampler
	transport Transport
	queue     *Queue
	logger    primary.Logger
	config    Config

	backoff backoff.BackOff
	retryAt time.Time
	now     func() time.Time
}

// New creates an agent reporting as id.
func New(id wire.CollectorID, sampler Sampler, transport Transport, queue *Queue, logger primary.Logger, config Config) *Agent {
	if config.SampleInterval <= 0 {
		config.SampleInterval = DefaultConfig().SampleInterval
	}

	a := &Agent{
		id:        id,
		sampler:   sampler,
		transport: transport,
		queue:     queue,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}

	if config.BackoffInitial > 0 {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = config.BackoffInitial
		if config.BackoffMax > 0 {
			b.MaxInterval = config.BackoffMax
		}
		b.MaxElapsedTime = 0
		b.Reset()
		a.backoff = b
	}

	return a
}

// Queue returns the agent's delivery queue.
func (a *Agent) Queue() *Queue {
	return a.queue
}

// Run samples and drains every SampleInterval until ctx is cancelled.
// A slow cycle shortens the following wait; an overrun does not cause a
// burst of catch-up samples.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("Collector started", "collectorId", a.id.String(), "interval", a.config.SampleInterval.String())

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Collector stopping", "pending", a.queue.Len())
			return nil
		case <-timer.C:
			start := time.Now()
			a.RunOnce(ctx)
			timer.Reset(nextDelay(time.Since(start), a.config.SampleInterval))
		}
	}
}

// RunOnce performs a single sample-enqueue-drain cycle.
func (a *Agent) RunOnce(ctx context.Context) {
	if cmd, err := a.collect(ctx); err != nil {
		a.logger.Error("Failed to sample host", "error", err)
	} else if err := a.queue.Enqueue(cmd); err != nil {
		a.logger.Warn("Sample dropped", "error", err, "pending", a.queue.Len())
	}

	if a.now().Before(a.retryAt) {
		a.logger.Debug("Drain deferred", "retryAt", a.retryAt, "pending", a.queue.Len())
		return
	}

	a.drain(ctx)
}

// Flush makes one last delivery attempt regardless of backoff.
func (a *Agent) Flush(ctx context.Context) error {
	return a.queue.Drain(ctx, a.transport)
}

func (a *Agent) drain(ctx context.Context) {
	err := a.queue.Drain(ctx, a.transport)
	if err == nil {
		if a.backoff != nil {
			a.backoff.Reset()
		}
		a.retryAt = time.Time{}
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}

	if a.backoff != nil {
		a.retryAt = a.now().Add(a.backoff.NextBackOff())
	}
	a.logger.Warn("Failed to deliver samples", "error", err, "pending", a.queue.Len())
}

func (a *Agent) collect(ctx context.Context) (wire.SubmitData, error) {
	sample, err := a.sampler.Sample(ctx)
	if err != nil {
		return wire.SubmitData{}, err
	}

	return wire.SubmitData{
		CollectorID:     a.id,
		TotalMemory:     sample.TotalMemory,
		UsedMemory:      sample.UsedMemory,
		AverageCPUUsage: averageCPU(sample.CPUPercents),
	}, nil
}

// averageCPU returns the mean of per-core percentages as a 0-1 fraction.
func averageCPU(percents []float64) float32 {
	if len(percents) == 0 {
		return 0
	}

	var sum float64
	for _, p := range percents {
		sum += p
	}
	return float32(sum / float64(len(percents)) / 100)
}

// nextDelay returns the wait before the next cycle.
func nextDelay(elapsed, period time.Duration) time.Duration {
	if elapsed < period {
		return period - elapsed
	}
	return period
}
