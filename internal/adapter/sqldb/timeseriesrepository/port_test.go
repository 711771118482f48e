package timeseriesrepository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/sysmon-2025.net/internal/adapter/logging"
	"gitlab.com/sysmon-2025.net/internal/adapter/sqldb"
	"gitlab.com/sysmon-2025.net/internal/domain"
)

func newTestRepository(t *testing.T) *TimeseriesRepository {
	t.Helper()

	ctx := context.Background()
	db, err := sqldb.Open(ctx, sqldb.DriverSQLite, filepath.Join(t.TempDir(), "timeseries.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewTimeseriesRepository(db, logging.NewNopLogger())
	require.NoError(t, repo.EnsureSchema(ctx))
	// second call must be harmless
	require.NoError(t, repo.EnsureSchema(ctx))

	return repo
}

func TestTimeseriesRepository_InsertAndList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	const id = "00000000-0000-0000-0000-0000000004d2"
	points := []*domain.DataPoint{
		{CollectorID: id, Received: 200, TotalMemory: 100, UsedMemory: 50, AverageCPU: 0.5},
		{CollectorID: id, Received: 100, TotalMemory: 100, UsedMemory: 60, AverageCPU: 0.25},
		{CollectorID: "other", Received: 100, TotalMemory: 1, UsedMemory: 1, AverageCPU: 1},
	}
	for _, p := range points {
		require.NoError(t, repo.Insert(ctx, p))
	}

	got, err := repo.ListByCollector(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(100), got[0].Received)
	assert.Equal(t, int64(60), got[0].UsedMemory)
	assert.Equal(t, float32(0.25), got[0].AverageCPU)
	assert.Equal(t, int64(200), got[1].Received)
	assert.Equal(t, id, got[1].CollectorID)
	assert.NotZero(t, got[1].ID)

	count, err := repo.Count(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTimeseriesRepository_InsertIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	point := &domain.DataPoint{CollectorID: "c1", Received: 42, TotalMemory: 8, UsedMemory: 4, AverageCPU: 0.5}
	require.NoError(t, repo.Insert(ctx, point))
	require.NoError(t, repo.Insert(ctx, point))

	count, err := repo.Count(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// same collector, next second: a new row
	next := *point
	next.Received++
	require.NoError(t, repo.Insert(ctx, &next))

	count, err = repo.Count(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTimeseriesRepository_ConcurrentInserts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Insert(ctx, &domain.DataPoint{CollectorID: "c", Received: int64(i), TotalMemory: 1, UsedMemory: 1})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, err := repo.Count(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}

func TestTimeseriesRepository_InsertFailsWithoutSchema(t *testing.T) {
	ctx := context.Background()
	db, err := sqldb.Open(ctx, sqldb.DriverSQLite, filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer db.Close()

	repo := NewTimeseriesRepository(db, logging.NewNopLogger())
	err = repo.Insert(ctx, &domain.DataPoint{CollectorID: "c"})
	assert.Error(t, err)
	assert.NoError(t, repo.Ping(ctx))
}
