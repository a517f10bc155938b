package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter caps per-tenant request frequency with an hourly counter in
// redis. It is independent of the token budgets enforced by the quota
// guard: this limits attempts, the guard limits consumption.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(redisURL string) (*RateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{client: redis.NewClient(opt)}, nil
}

// Allow increments the tenant's counter for the current hour and compares
// it against the limit. The key expires an hour after first use.
func (rl *RateLimiter) Allow(ctx context.Context, tenantID string, limit int) (bool, error) {
	key := fmt.Sprintf("ratelimit:tenant:%s:%s", tenantID, time.Now().UTC().Format("2006-01-02-15"))

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		rl.client.Expire(ctx, key, time.Hour)
	}

	return count <= int64(limit), nil
}

func (rl *RateLimiter) Close() error {
	return rl.client.Close()
}
