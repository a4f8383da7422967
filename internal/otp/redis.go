package otp

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each entry in a hash with fields "hash" and "attempts",
// so HINCRBY can count attempts without rewriting the code hash.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Put(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "hash", e.Hash, "attempts", e.Attempts)
		p.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, error) {
	vals, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return Entry{}, err
	}
	h, ok := vals["hash"]
	if !ok || h == "" {
		return Entry{}, ErrNoCode
	}
	attempts, _ := strconv.Atoi(vals["attempts"])
	return Entry{Hash: h, Attempts: attempts}, nil
}

func (s *RedisStore) IncrAttempts(ctx context.Context, key string) (int, error) {
	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, ErrNoCode
	}
	n, err := s.rdb.HIncrBy(ctx, key, "attempts", 1).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoCode
	}
	return int(n), err
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
