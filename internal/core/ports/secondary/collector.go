package secondary

import (
	"context"

	"gitlab.com/sysmon-2025.net/internal/domain"
)

type CollectorRegistry interface {
	// Touch records that a collector just reported
	Touch(ctx context.Context, status *domain.CollectorStatus) error

	// GetCollector returns the last known status, or nil when the entry expired
	GetCollector(ctx context.Context, collectorID string) (*domain.CollectorStatus, error)

	// ListActive returns every collector seen within the registry TTL
	ListActive(ctx context.Context) ([]*domain.CollectorStatus, error)
}
