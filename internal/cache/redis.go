package cache

import (
	"context"

	"github.com/wonny/marketlens/pkg/redis"
)

// RedisStore keeps entries in Redis
type RedisStore struct {
	cache *redis.Cache
}

// NewRedisStore wraps a redis cache helper
func NewRedisStore(c *redis.Cache) *RedisStore {
	return &RedisStore{cache: c}
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	payload, writtenAt, ok, err := s.cache.Get(ctx, key)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	return Entry{Payload: payload, WrittenAt: writtenAt}, true, nil
}

// Put implements Store
func (s *RedisStore) Put(ctx context.Context, key string, entry Entry) error {
	return s.cache.Set(ctx, key, entry.Payload, entry.WrittenAt)
}
