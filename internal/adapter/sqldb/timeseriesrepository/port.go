// Package timeseriesrepository persists collector samples with sqlx.
package timeseriesrepository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gitlab.com/sysmon-2025.net/internal/adapter/sqldb"
	"gitlab.com/sysmon-2025.net/internal/core/ports/primary"
	"gitlab.com/sysmon-2025.net/internal/core/ports/secondary"
	"gitlab.com/sysmon-2025.net/internal/domain"
)

var _ secondary.TimeseriesRepository = (*TimeseriesRepository)(nil)

var schemas = map[string]string{
	sqldb.DriverPostgres: `
		CREATE TABLE IF NOT EXISTS timeseries (
			id BIGSERIAL PRIMARY KEY,
			collector_id VARCHAR(36) NOT NULL,
			received BIGINT NOT NULL,
			total_memory BIGINT NOT NULL,
			used_memory BIGINT NOT NULL,
			average_cpu REAL NOT NULL,
			UNIQUE (collector_id, received)
		)`,
	sqldb.DriverSQLite: `
		CREATE TABLE IF NOT EXISTS timeseries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			collector_id TEXT NOT NULL,
			received INTEGER NOT NULL,
			total_memory INTEGER NOT NULL,
			used_memory INTEGER NOT NULL,
			average_cpu REAL NOT NULL,
			UNIQUE (collector_id, received)
		)`,
}

// TimeseriesRepository implements the TimeseriesRepository interface with sqlx
type TimeseriesRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// NewTimeseriesRepository creates a new timeseries repository
func NewTimeseriesRepository(db *sqlx.DB, logger primary.Logger) *TimeseriesRepository {
	return &TimeseriesRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the timeseries table when it does not exist yet
func (r *TimeseriesRepository) EnsureSchema(ctx context.Context) error {
	ddl, ok := schemas[r.db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", r.db.DriverName())
	}

	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		r.logger.Error("Failed to create timeseries table", "error", err)
		return fmt.Errorf("failed to create timeseries table: %w", err)
	}

	return nil
}

// Insert saves a sample. A retried sample carries the timestamp of its first
// encoding, so the unique key turns the retry into a no-op.
func (r *TimeseriesRepository) Insert(ctx context.Context, point *domain.DataPoint) error {
	query := r.db.Rebind(`
		INSERT INTO timeseries (collector_id, received, total_memory, used_memory, average_cpu)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collector_id, received) DO NOTHING
	`)

	res, err := r.db.ExecContext(
		ctx,
		query,
		point.CollectorID,
		point.Received,
		point.TotalMemory,
		point.UsedMemory,
		point.AverageCPU,
	)
	if err != nil {
		r.logger.Error("Failed to insert data point", "collectorId", point.CollectorID, "error", err)
		return fmt.Errorf("failed to insert data point: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		r.logger.Debug("Duplicate data point ignored", "collectorId", point.CollectorID, "received", point.Received)
	}

	return nil
}

// ListByCollector retrieves all samples for a collector ordered by received time
func (r *TimeseriesRepository) ListByCollector(ctx context.Context, collectorID string) ([]*domain.DataPoint, error) {
	query := r.db.Rebind(`
		SELECT id, collector_id, received, total_memory, used_memory, average_cpu
		FROM timeseries
		WHERE collector_id = ?
		ORDER BY received
	`)

	points := make([]*domain.DataPoint, 0)
	if err := r.db.SelectContext(ctx, &points, query, collectorID); err != nil {
		r.logger.Error("Failed to list data points", "collectorId", collectorID, "error", err)
		return nil, fmt.Errorf("failed to list data points: %w", err)
	}

	return points, nil
}

// Count returns the number of samples stored for a collector
func (r *TimeseriesRepository) Count(ctx context.Context, collectorID string) (int, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM timeseries WHERE collector_id = ?`)

	var count int
	if err := r.db.GetContext(ctx, &count, query, collectorID); err != nil {
		return 0, fmt.Errorf("failed to count data points: %w", err)
	}

	return count, nil
}

// Ping checks the database connection
func (r *TimeseriesRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
