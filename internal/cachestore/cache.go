package cachestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ndajr/tinyurl-go/internal/config"
	"github.com/ndajr/tinyurl-go/internal/core"
	"github.com/ndajr/tinyurl-go/internal/datastore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// cacheConnectTimeout is the timeout for establishing redis connection.
const cacheConnectTimeout = 15 * time.Second

// Cache is the redis backed code store. Entries never expire: a code, once
// reserved, keeps its payload for as long as the key space lives.
type Cache struct {
	rdb     *redis.Client
	metrics Metrics
	logger  *slog.Logger
	cfg     config.Redis
}

func NewCache(ctx context.Context, logger *slog.Logger, cfg config.Redis, reg prometheus.Registerer) (*Cache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	ctx, cancel := context.WithTimeout(ctx, cacheConnectTimeout)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		PoolSize: cfg.PoolSize,
	})

	metrics, err := NewMetrics(reg)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: failed to register metrics: %w", err)
	}

	c := &Cache{
		rdb:     rdb,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}

	if err := datastore.Ping(ctx, c, logger); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: failed to ping redis: %w", err)
	}
	logger.Info("successfully connected to redis", "addr", cfg.Addr)

	return c, nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SetIfAbsent stores payload under code only if the code is free. It returns
// true iff this call established the mapping.
func (c *Cache) SetIfAbsent(ctx context.Context, code string, payload string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, c.toInternalKey(code), payload, 0).Result()
	if err != nil {
		c.metrics.Reservations.WithLabelValues(c.cfg.CodePrefix, StatusError).Inc()
		return false, fmt.Errorf("cache: SetIfAbsent: %w: %w", core.ErrStorageFailure, err)
	}
	if ok {
		c.metrics.Reservations.WithLabelValues(c.cfg.CodePrefix, StatusAccepted).Inc()
	} else {
		c.metrics.Reservations.WithLabelValues(c.cfg.CodePrefix, StatusRejected).Inc()
	}
	return ok, nil
}

// Get returns the payload stored under code, or core.ErrNotFound.
func (c *Cache) Get(ctx context.Context, code string) (string, error) {
	val, err := c.rdb.Get(ctx, c.toInternalKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.metrics.Misses.WithLabelValues(c.cfg.CodePrefix).Inc()
			return "", core.ErrNotFound
		}
		return "", fmt.Errorf("cache: Get: %w: %w", core.ErrStorageFailure, err)
	}
	c.metrics.Hits.WithLabelValues(c.cfg.CodePrefix).Inc()
	return val, nil
}

func (c *Cache) toInternalKey(s string) string {
	return fmt.Sprintf("%s:%s", c.cfg.CodePrefix, s)
}

func (c *Cache) Close() {
	_ = c.rdb.Close()
}
