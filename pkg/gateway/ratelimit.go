package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a fixed 60-second counter window per principal (§4.1
// "Rate limiter contract"), grounded on the original gateway's
// middleware/rate_limit.py GET-then-SETEX-or-INCR sequence.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewRateLimiter creates a RateLimiter backed by rdb, which may be nil to
// disable limiting entirely (every request is then allowed).
func NewRateLimiter(rdb *redis.Client, limit int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{rdb: rdb, limit: limit, window: 60 * time.Second, logger: logger}
}

// Result reports the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int // seconds, only meaningful when !Allowed
}

// Allow increments the counter for key and reports whether the request may
// proceed. Counter-store failure fails open: the request is allowed and the
// error is logged, never surfaced to the client (§4.1).
func (l *RateLimiter) Allow(ctx context.Context, key string) Result {
	if l.rdb == nil {
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit}
	}

	redisKey := fmt.Sprintf("rate_limit:%s", key)

	current, err := l.rdb.Get(ctx, redisKey).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Warn("rate limiter counter read failed, failing open", "error", err)
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit}
	}

	if errors.Is(err, redis.Nil) {
		if err := l.rdb.SetEx(ctx, redisKey, 1, l.window).Err(); err != nil {
			l.logger.Warn("rate limiter counter init failed, failing open", "error", err)
		}
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit - 1}
	}

	if current >= l.limit {
		ttl, err := l.rdb.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = l.window
		}
		return Result{Allowed: false, Limit: l.limit, Remaining: 0, RetryAfter: int(ttl.Seconds())}
	}

	if err := l.rdb.Incr(ctx, redisKey).Err(); err != nil {
		l.logger.Warn("rate limiter counter increment failed, failing open", "error", err)
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit - current}
	}

	remaining := l.limit - current - 1
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Limit: l.limit, Remaining: remaining}
}
