package recommendation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ResponseCache caches ranked recommendations per (pet, limit, min_score)
// for a short TTL, grounded on internal/platform/redis.go's client and the
// teacher's use of Redis as a request-scoped cache elsewhere in the pack.
// A nil client makes every Get a miss and every Set a no-op, so the cache
// is optional infrastructure rather than a hard dependency.
type ResponseCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewResponseCache creates a ResponseCache. rdb may be nil to disable caching.
func NewResponseCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *ResponseCache {
	return &ResponseCache{rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(petID uuid.UUID, limit int, minScore float64) string {
	return fmt.Sprintf("recommendation:food:%s:%d:%.2f", petID, limit, minScore)
}

// Get returns a cached response, if present and unexpired.
func (c *ResponseCache) Get(ctx context.Context, petID uuid.UUID, limit int, minScore float64) (RecommendationsResponse, bool) {
	if c.rdb == nil {
		return RecommendationsResponse{}, false
	}

	raw, err := c.rdb.Get(ctx, cacheKey(petID, limit, minScore)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("recommendation cache get", "error", err)
		}
		return RecommendationsResponse{}, false
	}

	var resp RecommendationsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Warn("recommendation cache decode", "error", err)
		return RecommendationsResponse{}, false
	}
	return resp, true
}

// Set stores a response under the given key, best-effort.
func (c *ResponseCache) Set(ctx context.Context, petID uuid.UUID, limit int, minScore float64, resp RecommendationsResponse) {
	if c.rdb == nil {
		return
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("recommendation cache encode", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(petID, limit, minScore), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("recommendation cache set", "error", err)
	}
}
