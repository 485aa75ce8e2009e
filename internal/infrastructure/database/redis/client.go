// Package redis wraps the go-redis client for citekeep's read-through
// content cache.
package redis

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/citekeep/citekeep/internal/config"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

// Client owns a redis connection and tracks its lifecycle.
type Client struct {
	rdb    *redis.Client
	log    logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects to redis and verifies the connection with a ping.
func NewClient(ctx context.Context, cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, appErrors.Wrap(err, appErrors.ErrCodeCacheError, "redis unreachable")
	}

	log.Info("redis client ready",
		logging.String("addr", cfg.Addr),
		logging.Int("db", cfg.DB),
	)
	return &Client{rdb: rdb, log: log.Named("redis")}, nil
}

// Raw exposes the underlying go-redis client.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return appErrors.New(appErrors.ErrCodeCacheError, "redis client is closed")
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeCacheError, "redis ping failed")
	}
	return nil
}

// Close releases the connection pool. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rdb.Close()
}
