package secondary

import (
	"context"

	"gitlab.com/sysmon-2025.net/internal/domain"
)

type TimeseriesRepository interface {
	// Insert stores one sample. Inserting the same (collector, received) pair twice is a no-op.
	Insert(ctx context.Context, point *domain.DataPoint) error

	// ListByCollector returns a collector's samples ordered by received time
	ListByCollector(ctx context.Context, collectorID string) ([]*domain.DataPoint, error)

	// Count returns the number of samples stored for a collector
	Count(ctx context.Context, collectorID string) (int, error)

	// Ping checks the store is reachable
	Ping(ctx context.Context) error
}
