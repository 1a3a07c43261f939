package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisFixture(t *testing.T, cfg Config) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLimiter(rdb, cfg), mr
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	limit := 3
	window := time.Minute
	l, mr := newRedisFixture(t, Config{Limit: limit, Window: window})
	ctx := context.Background()

	for i := 1; i <= limit; i++ {
		res, err := l.Check(ctx, "k1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d", i)
		assert.Equal(t, limit-i, res.Remaining)
	}

	res, err := l.Check(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	// Advance past the window; the key expires and the counter restarts.
	mr.FastForward(window + time.Second)
	res, err = l.Check(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, limit-1, res.Remaining)
}

func TestRedisLimiter_KeyIsolation(t *testing.T) {
	l, _ := newRedisFixture(t, Config{Limit: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := l.Check(ctx, "b")
		require.NoError(t, err)
	}

	res, err := l.Check(ctx, "a")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	l := NewRedisLimiter(rdb, Config{Limit: 3, Window: time.Minute})

	mr.Close()

	_, err := l.Check(context.Background(), "k1")
	assert.Error(t, err)
}
