package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "vidtube:ratelimit:"

// RateLimiter is a fixed-window counter per key. A window allows Limit requests plus Burst.
type RateLimiter struct {
	client redis.Cmdable
	limit  int
	burst  int
	window time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int // requests per window, burst included
	Remaining  int
	RetryAfter time.Duration
}

// NewRateLimiter creates a limiter of perMinute requests (plus burst) per minute.
func NewRateLimiter(client redis.Cmdable, perMinute, burst int) *RateLimiter {
	return &RateLimiter{client: client, limit: perMinute, burst: burst, window: time.Minute}
}

// Allow counts one request for key.
func (l *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := rateLimitPrefix + key

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit counter for %s: %w", key, err)
	}

	// Only a fresh counter gets an expiry so the window does not slide.
	window := ttl.Val()
	if window < 0 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expiry for %s: %w", key, err)
		}
		window = l.window
	}

	count := int(incr.Val())
	allowed := l.limit + l.burst
	remaining := allowed - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    count <= allowed,
		Limit:      allowed,
		Remaining:  remaining,
		RetryAfter: window,
	}, nil
}
