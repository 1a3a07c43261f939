package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter backed by Redis, for deployments
// running more than one gateway instance. INCR is atomic on the server, so
// check-and-increment stays a single logical operation across instances.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: cfg.Limit, window: cfg.Window}
}

func (l *RedisLimiter) Check(ctx context.Context, agentKey string) (Result, error) {
	key := fmt.Sprintf("ratelimit:agent:%s", agentKey)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// Only the first request of a window sets the expiry; later requests must
	// not slide it.
	pipe.ExpireNX(ctx, key, l.window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit check: %w", err)
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	resetAt := time.Now().Add(l.window)
	if d := ttl.Val(); d > 0 {
		resetAt = time.Now().Add(d)
	}
	return Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
