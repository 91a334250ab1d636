package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimiter is a sliding-window limiter over a sorted set per client.
type RateLimiter struct {
	client      goredis.UniversalClient
	maxRequests int
	window      time.Duration
}

func NewRateLimiter(client goredis.UniversalClient, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, maxRequests: maxRequests, window: window}
}

// Window is the sliding window length, reported to throttled clients.
func (r *RateLimiter) Window() time.Duration { return r.window }

func (r *RateLimiter) Allow(ctx context.Context, client string) (bool, error) {
	key := "ratelimit:" + client
	now := time.Now()
	windowStart := now.Add(-r.window)

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixMilli(), 10))
	countCmd := pipe.ZCard(ctx, key)
	// members must be unique or requests in the same instant collapse
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
	pipe.Expire(ctx, key, r.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limiter pipeline: %w", err)
	}
	return countCmd.Val() < int64(r.maxRequests), nil
}
