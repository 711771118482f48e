// Package agent implements the collector side: sampling, the delivery
// queue and the at-least-once drain to the server.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

var (
	ErrUnableToConnect = errors.New("unable to connect to server")
	ErrUnableToSend    = errors.New("unable to send message")
	ErrUnableToReceive = errors.New("unable to receive acknowledgement")
	ErrQueueFull       = errors.New("delivery queue is full")
	ErrInvalidPolicy   = errors.New("invalid overflow policy")
)

// OverflowPolicy decides what Enqueue does once MaxPending is reached.
type OverflowPolicy string

const (
	// OverflowDropOldest evicts the head to make room.
	OverflowDropOldest OverflowPolicy = "drop-oldest"
	// OverflowDropNewest rejects the incoming message.
	OverflowDropNewest OverflowPolicy = "drop-newest"
)

// Validate reports whether p is a known policy.
func (p OverflowPolicy) Validate() error {
	switch p {
	case OverflowDropOldest, OverflowDropNewest:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, string(p))
	}
}

// QueueConfig holds configuration for the delivery queue.
type QueueConfig struct {
	// MaxPending bounds the number of unacknowledged messages. 0 is unbounded.
	MaxPending     int            `yaml:"max_pending"`
	OverflowPolicy OverflowPolicy `yaml:"overflow_policy"`
}

// DefaultQueueConfig keeps a day of one-second samples.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		MaxPending:     86400,
		OverflowPolicy: OverflowDropOldest,
	}
}

// QueueStats are running counters since the queue was created.
type QueueStats struct {
	Enqueued     uint64
	Acked        uint64
	Dropped      uint64
	FailedDrains uint64
}

// Queue is a FIFO of encoded envelopes awaiting Ack(0). A message leaves
// the queue only when the server acknowledges it with code 0.
type Queue struct {
	mu      sync.Mutex
	pending [][]byte
	config  QueueConfig
	stats   QueueStats
	now     func() time.Time
}

// NewQueue creates an empty queue.
func NewQueue(config QueueConfig) *Queue {
	if config.OverflowPolicy == "" {
		config.OverflowPolicy = OverflowDropOldest
	}
	return &Queue{
		config: config,
		now:    time.Now,
	}
}

// Enqueue encodes cmd with the current time and appends it. The timestamp
// is fixed here, so retransmissions carry the original value.
func (q *Queue) Enqueue(cmd wire.Command) error {
	frame, err := wire.EncodeAt(cmd, q.now())
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}
	return q.EnqueueFrame(frame)
}

// EnqueueFrame appends an already encoded envelope.
func (q *Queue) EnqueueFrame(frame []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.config.MaxPending > 0 && len(q.pending) >= q.config.MaxPending {
		if q.config.OverflowPolicy == OverflowDropNewest {
			q.stats.Dropped++
			return ErrQueueFull
		}
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.stats.Dropped++
	}

	q.pending = append(q.pending, frame)
	q.stats.Enqueued++
	return nil
}

// Len returns the number of unacknowledged messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Snapshot returns a copy of the pending envelopes, head first.
func (q *Queue) Snapshot() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([][]byte, len(q.pending))
	for i, frame := range q.pending {
		out[i] = append([]byte(nil), frame...)
	}
	return out
}

// Stats returns the running counters.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

func (q *Queue) popFront() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, false
	}
	frame := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return frame, true
}

// pushFront restores a message that was not acknowledged. It is never
// subject to the overflow policy.
func (q *Queue) pushFront(frame []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append([][]byte{frame}, q.pending...)
	q.stats.FailedDrains++
}

func (q *Queue) markAcked() {
	q.mu.Lock()
	q.stats.Acked++
	q.mu.Unlock()
}

// Drain opens one session and sends queued messages head first, one at a
// time, until the queue is empty or a message is not acknowledged with
// code 0. The failed message goes back to the head. The lock is never held
// while talking to the server.
func (q *Queue) Drain(ctx context.Context, transport Transport) error {
	if q.Len() == 0 {
		return nil
	}

	session, err := transport.Dial(ctx)
	if err != nil {
		q.mu.Lock()
		q.stats.FailedDrains++
		q.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrUnableToConnect, err)
	}
	defer session.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, ok := q.popFront()
		if !ok {
			return nil
		}

		if err := session.Send(frame); err != nil {
			q.pushFront(frame)
			return fmt.Errorf("%w: %w", ErrUnableToSend, err)
		}

		resp, err := session.Receive()
		if err != nil {
			q.pushFront(frame)
			return fmt.Errorf("%w: %w", ErrUnableToReceive, err)
		}

		ack, ok := resp.(wire.Ack)
		if !ok {
			q.pushFront(frame)
			return fmt.Errorf("%w: unexpected response %T", ErrUnableToReceive, resp)
		}
		if !ack.OK() {
			q.pushFront(frame)
			return fmt.Errorf("%w: server replied with code %d", ErrUnableToReceive, ack.Code)
		}

		q.markAcked()
	}
}
