package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "buebu:"

// RedisBackend keeps the snapshot in a Redis server. It can stand in for the
// SQLite tier when the data directory lives on a machine without local disk.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a backend for the server at addr.
func NewRedisBackend(addr string) *RedisBackend {
	return NewRedisBackendWithClient(redis.NewClient(&redis.Options{Addr: addr}))
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := b.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *RedisBackend) Put(ctx context.Context, key string, value []byte) error {
	return b.client.Set(ctx, redisKeyPrefix+key, value, 0).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, redisKeyPrefix+key).Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
