package agent

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/sysmon-2025.net/internal/adapter/logging"
	"gitlab.com/sysmon-2025.net/internal/adapter/sqldb"
	"gitlab.com/sysmon-2025.net/internal/adapter/sqldb/timeseriesrepository"
	"gitlab.com/sysmon-2025.net/internal/core/services/telemetry"
	"gitlab.com/sysmon-2025.net/internal/tcp"
	"gitlab.com/sysmon-2025.net/internal/tcp/defs"
	"gitlab.com/sysmon-2025.net/internal/tcp/wire"
)

// serveOnce accepts one connection and answers each frame with the next code.
func serveOnce(t *testing.T, codes ...uint32) (string, <-chan [][]byte) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	received := make(chan [][]byte, 1)
	go func() {
		var frames [][]byte
		defer func() { received <- frames }()

		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		for _, code := range codes {
			frame, err := wire.ReadFrame(conn, defs.MaxPayloadSize)
			if err != nil {
				return
			}
			frames = append(frames, frame)
			if _, err := conn.Write(wire.EncodeResponse(wire.Ack{Code: code})); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String(), received
}

func TestTCPTransport_Drain(t *testing.T) {
	addr, received := serveOnce(t, 0, 0)
	q := newFilledQueue(t, QueueConfig{}, 1, 2)

	require.NoError(t, q.Drain(context.Background(), NewTCPTransport(addr, time.Second, time.Second)))
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, []uint64{1, 2}, decodeIDs(t, <-received))
}

func TestTCPTransport_ServerClosesWithoutAck(t *testing.T) {
	// one ack, then the server hangs up on the second frame
	addr, _ := serveOnce(t, 0)
	q := newFilledQueue(t, QueueConfig{}, 1, 2)

	err := q.Drain(context.Background(), NewTCPTransport(addr, time.Second, time.Second))
	require.ErrorIs(t, err, ErrUnableToReceive)
	assert.Equal(t, []uint64{2}, decodeIDs(t, q.Snapshot()))
}

func TestTCPTransport_NonZeroAck(t *testing.T) {
	addr, _ := serveOnce(t, 1)
	q := newFilledQueue(t, QueueConfig{}, 1)

	err := q.Drain(context.Background(), NewTCPTransport(addr, time.Second, time.Second))
	require.ErrorIs(t, err, ErrUnableToReceive)
	assert.Equal(t, 1, q.Len())
}

func TestTCPTransport_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	q := newFilledQueue(t, QueueConfig{}, 1)
	err = q.Drain(context.Background(), NewTCPTransport(addr, time.Second, time.Second))
	require.ErrorIs(t, err, ErrUnableToConnect)
	assert.Equal(t, 1, q.Len())
}

func TestAgent_EndToEnd(t *testing.T) {
	ctx := context.Background()
	db, err := sqldb.Open(ctx, sqldb.DriverSQLite, filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := timeseriesrepository.NewTimeseriesRepository(db, logging.NewNopLogger())
	require.NoError(t, repo.EnsureSchema(ctx))

	server := tcp.NewTCPServer(
		telemetry.NewTelemetryService(repo, nil, logging.NewNopLogger()),
		logging.NewNopLogger(),
		tcp.WithAddress("127.0.0.1:0"),
	)
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(stopCtx)
	})

	sampler := &fakeSampler{sample: Sample{TotalMemory: 4096, UsedMemory: 1024, CPUPercents: []float64{50}}}
	a := New(wire.NewCollectorID(1234), sampler,
		NewTCPTransport(server.Addr().String(), time.Second, time.Second),
		NewQueue(QueueConfig{}), logging.NewNopLogger(), DefaultConfig())

	// one sample per second of envelope time
	clock := time.Unix(1700000000, 0)
	a.queue.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for i := 0; i < 3; i++ {
		a.RunOnce(ctx)
	}

	assert.Equal(t, 0, a.Queue().Len())
	n, err := repo.Count(ctx, wire.NewCollectorID(1234).String())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	points, err := repo.ListByCollector(ctx, wire.NewCollectorID(1234).String())
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, int64(1024), points[0].UsedMemory)
	assert.InDelta(t, 0.5, points[0].AverageCPU, 1e-6)
}
