// Package onetime keeps single-use tokens (email verification, password
// reset) in Redis. A token maps to a user id and disappears when consumed
// or when its TTL runs out.
package onetime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docuvault/internal/common"
	"github.com/redis/go-redis/v9"
)

// Purpose namespaces tokens so a reset token cannot verify an email.
type Purpose string

const (
	PurposeVerifyEmail   Purpose = "verify"
	PurposeResetPassword Purpose = "reset"
)

const keyPrefix = "docuvault:onetime:"

const tokenBytes = 32

// Store is the contract services depend on.
type Store interface {
	Issue(ctx context.Context, purpose Purpose, userID string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, purpose Purpose, token string) (string, error)
}

type RedisStore struct {
	rdb      redis.Cmdable
	newToken func() (string, error)
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{
		rdb:      rdb,
		newToken: func() (string, error) { return common.MakeURLToken(tokenBytes) },
	}
}

func key(purpose Purpose, token string) string {
	return keyPrefix + string(purpose) + ":" + token
}

// Issue stores a fresh token for userID and returns it.
func (s *RedisStore) Issue(ctx context.Context, purpose Purpose, userID string, ttl time.Duration) (string, error) {
	token, err := s.newToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	if err := s.rdb.Set(ctx, key(purpose, token), userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set: %w", err)
	}
	return token, nil
}

// Consume atomically reads and deletes the token. Unknown, used or expired
// tokens yield common.ErrInvalidToken.
func (s *RedisStore) Consume(ctx context.Context, purpose Purpose, token string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, key(purpose, token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrInvalidToken
		}
		return "", fmt.Errorf("redis getdel: %w", err)
	}
	return userID, nil
}
