package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptStore counts attempts per key and locks the key out once a limit
// is reached.
type AttemptStore interface {
	// Cooldown returns the remaining lock time, zero when not locked.
	Cooldown(ctx context.Context, key string) (time.Duration, error)
	// Hit records one attempt. When the count reaches max the key is locked
	// for window. It returns how many attempts remain.
	Hit(ctx context.Context, key string, max int, window time.Duration) (int, error)
	Reset(ctx context.Context, key string) error
}

type RedisAttempts struct {
	rdb *redis.Client
}

func NewRedisAttempts(rdb *redis.Client) *RedisAttempts {
	return &RedisAttempts{rdb: rdb}
}

func countKey(key string) string { return key + ":attempts" }
func lockKey(key string) string  { return key + ":cooldown" }

func (s *RedisAttempts) Cooldown(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.rdb.TTL(ctx, lockKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("cooldown ttl: %w", err)
	}
	// -2: no key, -1: no expiry (never set by Hit).
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *RedisAttempts) Hit(ctx context.Context, key string, max int, window time.Duration) (int, error) {
	n, err := s.rdb.Incr(ctx, countKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("count attempt: %w", err)
	}
	if n == 1 {
		s.rdb.Expire(ctx, countKey(key), window)
	}
	if int(n) >= max {
		_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, lockKey(key), "1", window)
			pipe.Del(ctx, countKey(key))
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("lock key: %w", err)
		}
		return 0, nil
	}
	return max - int(n), nil
}

func (s *RedisAttempts) Reset(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, countKey(key), lockKey(key)).Err()
}
