package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	redisWriteErrorTemplateConstant = "failed to write key %q to redis: %w"
	redisPingErrorTemplateConstant  = "failed to reach redis at %s: %w"
)

// RedisOptions configures the Redis backend.
type RedisOptions struct {
	Address   string
	Password  string
	Database  int
	KeyPrefix string
}

// RedisStore persists values as plain Redis strings.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// OpenRedisStore connects to Redis and verifies the connection.
func OpenRedisStore(executionContext context.Context, options RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     options.Address,
		Password: options.Password,
		DB:       options.Database,
	})

	if pingError := client.Ping(executionContext).Err(); pingError != nil {
		_ = client.Close()
		return nil, fmt.Errorf(redisPingErrorTemplateConstant, options.Address, pingError)
	}

	return NewRedisStore(client, options.KeyPrefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

// Get returns the value stored under the prefixed key.
func (store *RedisStore) Get(executionContext context.Context, key string) ([]byte, bool, error) {
	if keyError := validateKey(key); keyError != nil {
		return nil, false, keyError
	}

	value, getError := store.client.Get(executionContext, store.keyPrefix+key).Bytes()
	switch {
	case errors.Is(getError, redis.Nil):
		return nil, false, nil
	case getError != nil:
		return nil, false, getError
	default:
		return value, true, nil
	}
}

// Set stores value under the prefixed key without expiration.
func (store *RedisStore) Set(executionContext context.Context, key string, value []byte) error {
	if keyError := validateKey(key); keyError != nil {
		return keyError
	}

	if setError := store.client.Set(executionContext, store.keyPrefix+key, value, 0).Err(); setError != nil {
		return fmt.Errorf(redisWriteErrorTemplateConstant, key, setError)
	}
	return nil
}

// Close closes the underlying client.
func (store *RedisStore) Close() error {
	return store.client.Close()
}
