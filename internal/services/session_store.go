package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionPrefix = "sess:"

// RedisSessionStore maps session ids to user ids.
type RedisSessionStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionStore(rdb redis.Cmdable, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

// Get returns the user bound to sid. ok is false when the session is
// unknown or expired.
func (s *RedisSessionStore) Get(ctx context.Context, sid string) (uint, bool, error) {
	val, err := s.rdb.Get(ctx, sessionPrefix+sid).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return uint(id), true, nil
}

func (s *RedisSessionStore) Set(ctx context.Context, sid string, userID uint) error {
	return s.rdb.Set(ctx, sessionPrefix+sid, userID, s.ttl).Err()
}

func (s *RedisSessionStore) Destroy(ctx context.Context, sid string) error {
	return s.rdb.Del(ctx, sessionPrefix+sid).Err()
}
