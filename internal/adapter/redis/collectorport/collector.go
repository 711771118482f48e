package collectorport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vmihailenco/msgpack/v5"

	"gitlab.com/sysmon-2025.net/internal/core/ports/primary"
	"gitlab.com/sysmon-2025.net/internal/core/ports/secondary"
	"gitlab.com/sysmon-2025.net/internal/domain"
)

const (
	collectorKeyPrefix  = "collector:"
	DefaultCollectorTTL = 5 * time.Minute
)

var _ secondary.CollectorRegistry = (*CollectorRepository)(nil)

// CollectorRepository implements the CollectorRegistry interface with Redis
type CollectorRepository struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      primary.Logger
}

// NewCollectorRepository creates a new Redis collector registry
func NewCollectorRepository(redisClient *redis.Client, ttl time.Duration, logger primary.Logger) *CollectorRepository {
	if ttl <= 0 {
		ttl = DefaultCollectorTTL
	}
	return &CollectorRepository{
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

func collectorKey(collectorID string) string {
	return fmt.Sprintf("%s%s", collectorKeyPrefix, collectorID)
}

// Touch saves the collector status with expiration
func (r *CollectorRepository) Touch(ctx context.Context, status *domain.CollectorStatus) error {
	data, err := msgpack.Marshal(status)
	if err != nil {
		r.logger.Error("Failed to marshal collector status", "error", err)
		return fmt.Errorf("failed to marshal collector status: %w", err)
	}

	if err := r.redisClient.Set(ctx, collectorKey(status.ID), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save collector status", "collectorId", status.ID, "error", err)
		return fmt.Errorf("failed to save collector status: %w", err)
	}

	return nil
}

// GetCollector retrieves collector status from Redis by ID
func (r *CollectorRepository) GetCollector(ctx context.Context, collectorID string) (*domain.CollectorStatus, error) {
	data, err := r.redisClient.Get(ctx, collectorKey(collectorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Failed to get collector status", "collectorId", collectorID, "error", err)
		return nil, fmt.Errorf("failed to get collector status: %w", err)
	}

	var status domain.CollectorStatus
	if err := msgpack.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collector status: %w", err)
	}

	return &status, nil
}

// ListActive retrieves every collector whose entry has not expired yet
func (r *CollectorRepository) ListActive(ctx context.Context) ([]*domain.CollectorStatus, error) {
	var cursor uint64
	var keys []string

	// Use SCAN to iterate over keys with the collector prefix
	for {
		var batch []string
		var err error
		batch, cursor, err = r.redisClient.Scan(ctx, cursor, collectorKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan collector keys: %w", err)
		}
		keys = append(keys, batch...)
		if cursor == 0 {
			break
		}
	}

	collectors := make([]*domain.CollectorStatus, 0, len(keys))
	if len(keys) == 0 {
		return collectors, nil
	}

	values, err := r.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve collector data: %w", err)
	}

	for i, value := range values {
		// expired between SCAN and MGET
		if value == nil {
			continue
		}
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var status domain.CollectorStatus
		if err := msgpack.Unmarshal([]byte(raw), &status); err != nil {
			r.logger.Warn("Skipping unreadable collector entry", "key", keys[i], "error", err)
			continue
		}
		collectors = append(collectors, &status)
	}

	return collectors, nil
}
