package health

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisChecker_New(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	checker := NewRedisChecker(client)
	if checker == nil {
		t.Fatal("expected checker to be non-nil")
	}
	if checker.client != client {
		t.Error("expected checker to hold the provided client")
	}
}

func TestRedisChecker_FailsFastWhenUnreachable(t *testing.T) {
	// Port 1 is never a Redis; the probe must error within its timeout
	// instead of hanging the readiness endpoint.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 500 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	start := time.Now()
	if err := NewRedisChecker(client).HealthCheck(context.Background()); err == nil {
		t.Error("expected error for unreachable redis")
	}
	if elapsed := time.Since(start); elapsed > probeTimeout+time.Second {
		t.Errorf("probe took %v, expected it bounded by the probe timeout", elapsed)
	}
}
