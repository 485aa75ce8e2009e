package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/citekeep/citekeep/internal/config"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

// errCacheMiss signals a key with no value. Internal to this package;
// callers only ever see loader results or ErrCodeCacheError.
var errCacheMiss = appErrors.New(appErrors.ErrCodeNotFound, "cache miss")

// store is the minimal command surface the cache needs. Satisfied by
// redisStore in production and by in-memory fakes in tests.
type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type redisStore struct {
	rdb *redis.Client
}

func (s redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errCacheMiss
		}
		return "", appErrors.Wrap(err, appErrors.ErrCodeCacheError, "redis GET failed")
	}
	return val, nil
}

func (s redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeCacheError, "redis SET failed")
	}
	return nil
}

// Observer receives cache hit/miss notifications, typically backed by
// prometheus counters. Implementations must be safe for concurrent use.
type Observer interface {
	CacheHit()
	CacheMiss()
}

// ContentCache is a read-through string cache with request coalescing.
// Concurrent loads of the same key share one loader call.
type ContentCache struct {
	store      store
	log        logging.Logger
	prefix     string
	defaultTTL time.Duration
	observer   Observer
	group      singleflight.Group
}

// CacheOption customizes a ContentCache.
type CacheOption func(*ContentCache)

// WithObserver attaches hit/miss instrumentation.
func WithObserver(o Observer) CacheOption {
	return func(c *ContentCache) { c.observer = o }
}

// NewContentCache builds the cache on top of an established client.
func NewContentCache(client *Client, cfg config.RedisConfig, log logging.Logger, opts ...CacheOption) *ContentCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &ContentCache{
		store:      redisStore{rdb: client.Raw()},
		log:        log.Named("content_cache"),
		prefix:     cfg.KeyPrefix,
		defaultTTL: cfg.DefaultTTL,
	}
	if c.prefix == "" {
		c.prefix = "citekeep:"
	}
	if c.defaultTTL <= 0 {
		c.defaultTTL = 15 * time.Minute
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ContentCache) fullKey(key string) string {
	return c.prefix + key
}

// GetOrSet returns the cached value for key, invoking loader on a miss and
// storing its result. A ttl of zero falls back to the configured default.
// Store failures after a successful load are logged, not returned; the
// loaded value is always handed back.
func (c *ContentCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (string, error)) (string, error) {
	full := c.fullKey(key)

	val, err := c.store.Get(ctx, full)
	if err == nil {
		c.hit()
		return val, nil
	}
	if !appErrors.IsCode(err, appErrors.ErrCodeNotFound) {
		return "", err
	}
	c.miss()

	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	v, err, _ := c.group.Do(full, func() (interface{}, error) {
		// Another goroutine may have populated the key while we queued.
		if cached, getErr := c.store.Get(ctx, full); getErr == nil {
			return cached, nil
		}

		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return "", loadErr
		}
		if setErr := c.store.Set(ctx, full, loaded, ttl); setErr != nil {
			c.log.Warn("failed to populate cache",
				logging.String("key", full),
				logging.Err(setErr),
			)
		}
		return loaded, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *ContentCache) hit() {
	if c.observer != nil {
		c.observer.CacheHit()
	}
}

func (c *ContentCache) miss() {
	if c.observer != nil {
		c.observer.CacheMiss()
	}
}
