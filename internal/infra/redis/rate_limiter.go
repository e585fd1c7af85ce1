package redis

import (
	"context"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window limiter over Redis. Attempts are counted
// with INCR under a windowed key; breaching the limit sets a lock key whose
// TTL is the absolute cooldown, so the retry-after seconds read on later
// calls always come from Redis's own clock and cannot go negative.
type RateLimiter struct {
	client   *redis.Client
	max      int
	window   time.Duration
	cooldown time.Duration
}

func NewRateLimiter(client *redis.Client, max int, window, cooldown time.Duration) *RateLimiter {
	return &RateLimiter{
		client:   client,
		max:      max,
		window:   window,
		cooldown: cooldown,
	}
}

func (l *RateLimiter) Reserve(ctx context.Context, key string) (int, bool, error) {
	lockKey := "ratelimit:lock:" + key

	ttl, err := l.client.TTL(ctx, lockKey).Result()
	if err != nil {
		return 0, false, err
	}
	if ttl > 0 {
		return ceilSeconds(ttl), true, nil
	}

	countKey := "ratelimit:count:" + key
	count, err := l.client.Incr(ctx, countKey).Result()
	if err != nil {
		return 0, false, err
	}
	if count == 1 {
		_ = l.client.Expire(ctx, countKey, l.window).Err()
	}
	if int(count) > l.max {
		if err := l.client.Set(ctx, lockKey, "1", l.cooldown).Err(); err != nil {
			return 0, false, err
		}
		_ = l.client.Del(ctx, countKey).Err()
		return ceilSeconds(l.cooldown), true, nil
	}
	return 0, false, nil
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
