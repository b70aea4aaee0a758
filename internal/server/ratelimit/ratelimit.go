// Package ratelimit counts failed login attempts per account in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "docuvault:login:"

// Limiter blocks an identity after Limit failures inside Window. The window
// starts at the first failure and is not extended by later ones.
type Limiter struct {
	rdb    redis.Cmdable
	limit  int64
	window time.Duration
}

func NewLimiter(rdb redis.Cmdable, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, limit: int64(limit), window: window}
}

func key(identity string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(identity))
}

// Allowed reports whether identity may try again.
func (l *Limiter) Allowed(ctx context.Context, identity string) (bool, error) {
	n, err := l.rdb.Get(ctx, key(identity)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, fmt.Errorf("redis get: %w", err)
	}
	return n < l.limit, nil
}

// Fail records one failed attempt.
func (l *Limiter) Fail(ctx context.Context, identity string) error {
	k := key(identity)
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("redis incr: %w", err)
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}
	return nil
}

// Reset clears the counter after a successful login.
func (l *Limiter) Reset(ctx context.Context, identity string) error {
	if err := l.rdb.Del(ctx, key(identity)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
