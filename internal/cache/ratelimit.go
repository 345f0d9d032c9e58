package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	RetryAfter time.Duration
	Remaining  int
	Allowed    bool
}

// RateLimiter counts hits per key in fixed windows.
type RateLimiter struct {
	client *redis.Client
	prefix string
	window time.Duration
	limit  int
}

// NewRateLimiter allows limit hits per key within window.
func NewRateLimiter(client *redis.Client, name string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: keyPrefix + "ratelimit:" + name + ":",
		window: window,
		limit:  limit,
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	fullKey := l.prefix + key

	count, err := l.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to increment rate counter: %w", err)
	}

	// TTL is set only on the first hit of a window
	if count == 1 {
		if err := l.client.Expire(ctx, fullKey, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("failed to set rate window: %w", err)
		}
	}

	if count > int64(l.limit) {
		ttl, err := l.client.TTL(ctx, fullKey).Result()
		if err != nil {
			return Decision{}, fmt.Errorf("failed to read rate window: %w", err)
		}
		if ttl < 0 {
			// Counter lost its expiry; restart the window.
			_ = l.client.Expire(ctx, fullKey, l.window).Err()
			ttl = l.window
		}
		return Decision{Allowed: false, RetryAfter: ttl}, nil
	}

	return Decision{Allowed: true, Remaining: l.limit - int(count)}, nil
}

// Limit returns the configured hits per window.
func (l *RateLimiter) Limit() int {
	return l.limit
}
