package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores whole payloads together with their write timestamp.
// Freshness is decided by the caller; Redis expiry only bounds storage.
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client    *Client
	prefix    string
	retention time.Duration
}

// envelope is the stored value layout
type envelope struct {
	Payload   json.RawMessage `json:"payload"`
	WrittenAt time.Time       `json:"written_at"`
}

// DefaultRetention keeps keys long enough for the longest freshness policy
// plus a stale-fallback window.
const DefaultRetention = 72 * time.Hour

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client:    client,
		prefix:    prefix,
		retention: DefaultRetention,
	}
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a payload and its write time
func (c *Cache) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	if !c.client.Enabled() {
		return nil, time.Time{}, false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("cache get failed: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return env.Payload, env.WrittenAt, true, nil
}

// Set replaces the payload stored under key
func (c *Cache) Set(ctx context.Context, key string, payload []byte, writtenAt time.Time) error {
	if !c.client.Enabled() {
		return nil
	}

	if !json.Valid(payload) {
		return fmt.Errorf("cache payload for %s is not valid JSON", key)
	}

	data, err := json.Marshal(envelope{Payload: payload, WrittenAt: writtenAt})
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, c.retention).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}
