package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const ForgetPasswordPrefix = "forgot-password:"

// RedisResetTokens stores single-use password reset tokens.
type RedisResetTokens struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisResetTokens(rdb redis.Cmdable, ttl time.Duration) *RedisResetTokens {
	return &RedisResetTokens{rdb: rdb, ttl: ttl}
}

// Issue creates a token for userID that expires after the configured TTL.
func (s *RedisResetTokens) Issue(ctx context.Context, userID uint) (string, error) {
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, ForgetPasswordPrefix+token, userID, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Consume reads and deletes token in one MULTI block, so a token can be
// redeemed at most once.
func (s *RedisResetTokens) Consume(ctx context.Context, token string) (uint, bool, error) {
	key := ForgetPasswordPrefix + token
	var get *redis.StringCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(get.Val(), 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return uint(id), true, nil
}
