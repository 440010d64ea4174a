package gateway

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	srv, err := miniredis.Run()
	if err != nil {
		t.Fatalf("starting miniredis: %v", err)
	}
	t.Cleanup(srv.Close)

	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := slog.Default()
	return NewRateLimiter(rdb, limit, logger), srv
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result := limiter.Allow(ctx, "ip:127.0.0.1")
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if result := limiter.Allow(ctx, "ip:127.0.0.1"); !result.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	result := limiter.Allow(ctx, "ip:127.0.0.1")
	if result.Allowed {
		t.Fatal("third request should be rejected at limit 2")
	}
	if result.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %d, want > 0", result.RetryAfter)
	}
}

func TestRateLimiterRemainingNeverNegative(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	limiter.Allow(ctx, "ip:127.0.0.1")
	result := limiter.Allow(ctx, "ip:127.0.0.1")
	if result.Remaining < 0 {
		t.Errorf("Remaining = %d, want >= 0", result.Remaining)
	}
}

func TestRateLimiterDistinctKeysIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	if result := limiter.Allow(ctx, "ip:1.1.1.1"); !result.Allowed {
		t.Fatal("first key's first request should be allowed")
	}
	if result := limiter.Allow(ctx, "ip:2.2.2.2"); !result.Allowed {
		t.Fatal("second key's first request should be allowed independently")
	}
}

func TestRateLimiterNilClientFailsOpen(t *testing.T) {
	limiter := NewRateLimiter(nil, 1, slog.Default())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if result := limiter.Allow(ctx, "ip:127.0.0.1"); !result.Allowed {
			t.Fatalf("request %d should be allowed with a nil redis client", i)
		}
	}
}

func TestRateLimiterRedisDownFailsOpen(t *testing.T) {
	limiter, srv := newTestLimiter(t, 1)
	srv.Close()

	result := limiter.Allow(context.Background(), "ip:127.0.0.1")
	if !result.Allowed {
		t.Fatal("request should fail open when redis is unreachable")
	}
}
