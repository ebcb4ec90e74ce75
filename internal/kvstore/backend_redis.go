package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisTimeout = 2 * time.Second

type RedisBackend struct {
	client *redis.Client
}

func OpenRedis(ctx context.Context, url string) (*RedisBackend, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	b := NewRedisBackend(redis.NewClient(opt))
	if err := b.Ping(ctx); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("redis: unavailable: %w", err)
	}
	return b, nil
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := withTimeout(ctx, redisTimeout, func(ctx context.Context) error {
		var err error
		v, err = b.client.Get(ctx, key).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b *RedisBackend) Write(ctx context.Context, key string, val []byte) error {
	return withTimeout(ctx, redisTimeout, func(ctx context.Context) error {
		return b.client.Set(ctx, key, val, 0).Err()
	})
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return withTimeout(ctx, redisTimeout, func(ctx context.Context) error {
		return b.client.Del(ctx, key).Err()
	})
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return withTimeout(ctx, redisTimeout, func(ctx context.Context) error {
		return b.client.Ping(ctx).Err()
	})
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
