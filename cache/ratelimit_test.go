package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRateLimiterAllow(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewRateLimiter(client, 2, 1)
	ctx := context.Background()

	var decisions []Decision
	for i := 0; i < 4; i++ {
		d, err := limiter.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		decisions = append(decisions, d)
	}

	// the burst counts towards the advertised limit
	assert.True(t, decisions[0].Allowed)
	assert.Equal(t, 3, decisions[0].Limit)
	assert.Equal(t, 2, decisions[0].Remaining)
	assert.True(t, decisions[1].Allowed)
	assert.Equal(t, 1, decisions[1].Remaining)
	assert.True(t, decisions[2].Allowed, "burst")
	assert.Equal(t, 0, decisions[2].Remaining)
	assert.False(t, decisions[3].Allowed)
	assert.Equal(t, 0, decisions[3].Remaining)
	assert.Equal(t, 3, decisions[3].Limit)

	// other clients have their own window
	d, err := limiter.Allow(ctx, "ip:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// the window does not slide with each request
	ttl := mr.TTL(rateLimitPrefix + "ip:1.2.3.4")
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	mr.FastForward(time.Minute + time.Second)
	d, err = limiter.Allow(ctx, "ip:1.2.3.4")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestRateLimiterRedisDown(t *testing.T) {
	mr, client := newTestRedis(t)
	limiter := NewRateLimiter(client, 2, 0)
	mr.Close()

	_, err := limiter.Allow(context.Background(), "ip:1.2.3.4")
	assert.Error(t, err)
}
