package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// CacheConfig pairs a key prefix with the TTL for one data domain.
type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Exam catalog content rarely changes once published.
	ExamCacheConfig = CacheConfig{TTL: 10 * time.Minute, Prefix: "exam:"}

	// Session records change on every answer submission; keep short.
	SessionCacheConfig = CacheConfig{TTL: 1 * time.Minute, Prefix: "session:"}

	// Graded results are effectively immutable between re-grades.
	ResultCacheConfig = CacheConfig{TTL: 5 * time.Minute, Prefix: "result:"}

	// Aggregate statistics are expensive to recompute.
	StatsCacheConfig = CacheConfig{TTL: 5 * time.Minute, Prefix: "stats:"}
)

// CacheHelper provides JSON caching for one key prefix. A nil client
// degrades gracefully: reads miss, writes are dropped.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{client: client, prefix: prefix}
}

// GetCacheKey prepends the helper's prefix to key.
func (c *CacheHelper) GetCacheKey(key string) string {
	return c.prefix + key
}

// Get reads and unmarshals a cached value into dest.
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return ErrCacheNotAvailable
	}

	data, err := c.client.Get(ctx, c.GetCacheKey(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return ErrCacheNotFound
	case err != nil:
		return fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

// Set marshals value and stores it under key for ttl. A missing cache is
// not an error.
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	return c.client.Set(ctx, c.GetCacheKey(key), data, ttl).Err()
}

// Delete removes one or more keys.
func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = c.GetCacheKey(key)
	}
	return c.client.Del(ctx, prefixed...).Err()
}

// InvalidatePattern removes every key matching pattern, scanning in batches
// so large keyspaces never block Redis.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	const scanBatch = 100
	fullPattern := c.GetCacheKey(pattern)

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, fullPattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("cache scan pattern error: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache pattern delete error: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// CacheOrExecute implements the cache-aside pattern: serve from cache when
// possible, otherwise call fetchFunc and populate the cache in the
// background so the caller never waits on the write.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetchFunc func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		slog.InfoContext(ctx, "Cache read failed, falling back to source", "error", err, "key", key)
	}

	value, err := fetchFunc()
	if err != nil {
		return err
	}

	go func(parent context.Context) {
		writeCtx, cancel := context.WithTimeout(parent, 5*time.Second)
		defer cancel()
		if err := c.Set(writeCtx, key, value, ttl); err != nil {
			slog.Error("Cache set error", "error", err, "key", key)
		}
	}(context.WithoutCancel(ctx))

	// Round-trip through JSON so dest gets the same shape a cache hit gives.
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal result error: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// CacheManager holds one helper per data domain.
type CacheManager struct {
	Exam    *CacheHelper
	Session *CacheHelper
	Result  *CacheHelper
	Stats   *CacheHelper
	User    *CacheHelper
}

// NewCacheManager builds helpers for every domain. A nil client yields a
// manager whose helpers all no-op.
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		Exam:    NewCacheHelper(client, ExamCacheConfig.Prefix),
		Session: NewCacheHelper(client, SessionCacheConfig.Prefix),
		Result:  NewCacheHelper(client, ResultCacheConfig.Prefix),
		Stats:   NewCacheHelper(client, StatsCacheConfig.Prefix),
		User:    NewCacheHelper(client, "user:"),
	}
}

// HealthCheck verifies cache connectivity.
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.Session.client == nil {
		return ErrCacheNotAvailable
	}
	if _, err := cm.Session.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}
