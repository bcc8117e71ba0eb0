package directory

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheTTL bounds how long the directory listing is served from Redis
// before a fresh walk of the department tree.
const CacheTTL = 2 * time.Hour

const cacheKey = "dingtalk:users"

// Cache wraps a Searcher with a Redis-backed listing cache. Redis
// failures fall through to the inner searcher; a cold or broken cache
// only costs latency.
type Cache struct {
	inner Searcher
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching layer over the given searcher.
func NewCache(inner Searcher, rdb *redis.Client) *Cache {
	return &Cache{inner: inner, rdb: rdb, ttl: CacheTTL}
}

// ListUsers serves the directory listing from Redis when fresh,
// otherwise from the inner searcher, repopulating the cache on the way
// out.
func (c *Cache) ListUsers(ctx context.Context) ([]User, error) {
	if cached, ok := c.lookup(ctx); ok {
		return cached, nil
	}

	users, err := c.inner.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, users)
	return users, nil
}

// Invalidate drops the cached listing. Best-effort.
func (c *Cache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, cacheKey).Err(); err != nil {
		slog.WarnContext(ctx, "failed to invalidate directory cache", "error", err)
	}
}

func (c *Cache) lookup(ctx context.Context) ([]User, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.WarnContext(ctx, "directory cache read failed", "error", err)
		return nil, false
	}

	var users []User
	if err := json.Unmarshal(raw, &users); err != nil {
		slog.WarnContext(ctx, "directory cache entry corrupt, dropping", "error", err)
		_ = c.rdb.Del(ctx, cacheKey).Err()
		return nil, false
	}
	return users, true
}

func (c *Cache) store(ctx context.Context, users []User) {
	raw, err := json.Marshal(users)
	if err != nil {
		slog.WarnContext(ctx, "failed to marshal directory listing for cache", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, cacheKey, raw, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "directory cache write failed", "error", err)
	}
}
