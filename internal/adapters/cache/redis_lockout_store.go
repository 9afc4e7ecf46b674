package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/reqquli/reqquli/internal/ports"
)

// RedisLockoutStore implements brute-force lockout storage in Redis.
// Each account key is a hash of failed_count and locked_until.
type RedisLockoutStore struct {
	client *redis.Client
}

// NewRedisLockoutStore creates a lockout store backed by Redis hashes.
func NewRedisLockoutStore(client *redis.Client) *RedisLockoutStore {
	return &RedisLockoutStore{client: client}
}

func lockoutKey(key string) string {
	return "reqquli:lockout:" + key
}

func parseLockoutHash(data map[string]string) ports.LockoutState {
	var state ports.LockoutState
	if n, err := strconv.Atoi(data["failed_count"]); err == nil {
		state.FailedCount = n
	}
	if unix, err := strconv.ParseInt(data["locked_until"], 10, 64); err == nil && unix > 0 {
		t := time.Unix(unix, 0).UTC()
		state.LockedUntil = &t
	}
	return state
}

func (s *RedisLockoutStore) Get(ctx context.Context, key string) (ports.LockoutState, error) {
	data, err := s.client.HGetAll(ctx, lockoutKey(key)).Result()
	if err != nil {
		return ports.LockoutState{}, err
	}
	if len(data) == 0 {
		return ports.LockoutState{}, nil
	}
	return parseLockoutHash(data), nil
}

func (s *RedisLockoutStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	redisKey := lockoutKey(key)

	count, err := s.client.HIncrBy(ctx, redisKey, "failed_count", 1).Result()
	if err != nil {
		return ports.LockoutState{}, err
	}
	state := ports.LockoutState{FailedCount: int(count)}

	if int(count) < threshold {
		// Counters expire on their own; a day of quiet resets the slate.
		_ = s.client.Expire(ctx, redisKey, 24*time.Hour).Err()
		return state, nil
	}

	lockedUntil := now.Add(lockoutWindow).UTC()
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, redisKey, "locked_until", lockedUntil.Unix())
		p.Expire(ctx, redisKey, lockoutWindow+30*time.Minute)
		return nil
	})
	if err != nil {
		return ports.LockoutState{}, err
	}
	state.LockedUntil = &lockedUntil
	return state, nil
}

func (s *RedisLockoutStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, lockoutKey(key)).Err()
}
