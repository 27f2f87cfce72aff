// Package cache stores JSON-encoded values in redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"portal/internal/obs"
	"portal/internal/utils/logger"
)

type Cache struct {
	rdb    redis.UniversalClient
	prefix string
	log    *logger.Logger
}

func New(rdb redis.UniversalClient, prefix string) *Cache {
	return &Cache{rdb: rdb, prefix: prefix, log: logger.New("cache")}
}

func (c *Cache) key(k string) string {
	return c.prefix + ":" + k
}

// Get decodes the value at key into dst and reports whether it was there.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

// Remember returns the cached value for key or loads, stores and returns
// it. A nil cache always loads. Redis failures degrade to loading.
func Remember[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}
	var cached T
	hit, err := c.Get(ctx, key, &cached)
	if err != nil {
		c.log.Warn("cache read failed, loading %s: %v", key, err)
	}
	if hit {
		obs.CacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	obs.CacheLookups.WithLabelValues("miss").Inc()

	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		c.log.Warn("cache write failed for %s: %v", key, err)
	}
	return value, nil
}

// Refresh loads and stores key unconditionally.
func Refresh[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) error {
	value, err := load(ctx)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	return c.Set(ctx, key, value, ttl)
}
