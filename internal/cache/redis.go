package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each namespace in one Redis hash so a namespace can be
// cleared with a single DEL. Entries never expire.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a store writing under prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "webchat:cache"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) hashKey(namespace string) string {
	return fmt.Sprintf("%s:%s", s.prefix, namespace)
}

// Get reads the field for key from the namespace hash.
func (s *RedisStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	value, err := s.client.HGet(ctx, s.hashKey(namespace), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Set writes the field for key into the namespace hash.
func (s *RedisStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	return s.client.HSet(ctx, s.hashKey(namespace), key, value).Err()
}

// Delete removes the field for key.
func (s *RedisStore) Delete(ctx context.Context, namespace, key string) error {
	return s.client.HDel(ctx, s.hashKey(namespace), key).Err()
}

// Clear drops the namespace hash.
func (s *RedisStore) Clear(ctx context.Context, namespace string) error {
	return s.client.Del(ctx, s.hashKey(namespace)).Err()
}
