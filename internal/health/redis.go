package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker probes the cache/rate-limit Redis. Redis is optional for
// serving traffic, so callers treat its failures as degradation rather
// than unreadiness.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a checker for the given client.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// HealthCheck sends a PING, bounded by the probe timeout.
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}
