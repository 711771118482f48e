package config

import (
	"os"
	"strconv"
	"time"
)

// RedisConfig configures the collector registry. An empty Url disables it.
type RedisConfig struct {
	DB           int
	Url          string
	Password     string
	CollectorTTL time.Duration
}

func NewRedisConfig() *RedisConfig {
	db, err := strconv.Atoi(os.Getenv("REDIS_DB"))
	if err != nil {
		db = 0
	}
	ttlSec, err := strconv.Atoi(os.Getenv("COLLECTOR_TTL_SEC"))
	if err != nil || ttlSec <= 0 {
		ttlSec = 300
	}

	return &RedisConfig{
		DB:           db,
		Url:          os.Getenv("REDIS_ADDR"),
		Password:     os.Getenv("REDIS_PASSWORD"),
		CollectorTTL: time.Duration(ttlSec) * time.Second,
	}
}

func (c *RedisConfig) Enabled() bool {
	return c.Url != ""
}
