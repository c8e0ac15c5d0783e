// Package cache keeps the last good upstream payload per key and decides
// whether it is still fresh enough to serve.
//
// Entries are never deleted on expiry: a stale entry remains available as a
// fallback when every provider fails.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wonny/marketlens/pkg/logger"
)

// Entry is one stored payload and the time it was written
type Entry struct {
	Payload   []byte
	WrittenAt time.Time
}

// Store persists entries by key
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, entry Entry) error
}

// Clock returns the current time
type Clock func() time.Time

// State classifies a lookup
type State int

const (
	Miss State = iota
	Fresh
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "miss"
	}
}

// Cache evaluates freshness policies over a Store
// ⭐ SSOT: 캐시 신선도 판정은 여기서만
type Cache struct {
	store  Store
	clock  Clock
	logger *logger.Logger
}

// New creates a cache over store. A nil clock means time.Now.
func New(store Store, clock Clock, log *logger.Logger) *Cache {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Cache{
		store:  store,
		clock:  clock,
		logger: log.Component("cache"),
	}
}

// Now returns the cache clock's current time
func (c *Cache) Now() time.Time {
	return c.clock()
}

// lookup fetches an entry and classifies it under policy
func (c *Cache) lookup(ctx context.Context, key string, policy Policy) (Entry, State, error) {
	entry, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return Entry{}, Miss, fmt.Errorf("cache get %s: %w", key, err)
	}
	if !ok {
		return Entry{}, Miss, nil
	}
	if policy.Fresh(entry.WrittenAt, c.clock()) {
		return entry, Fresh, nil
	}
	return entry, Stale, nil
}

// Load decodes the entry stored under key.
// A stale entry is returned with state Stale so callers can keep it as a
// last-resort fallback. A payload that fails to decode counts as a miss.
func Load[T any](ctx context.Context, c *Cache, key string, policy Policy) (T, State, error) {
	var zero T

	entry, state, err := c.lookup(ctx, key, policy)
	if err != nil || state == Miss {
		return zero, Miss, err
	}

	var v T
	if err := json.Unmarshal(entry.Payload, &v); err != nil {
		c.logger.WithFields(map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		}).Warn("Discarding undecodable cache entry")
		return zero, Miss, nil
	}

	c.logger.WithFields(map[string]interface{}{
		"key":   key,
		"state": state.String(),
		"age":   c.clock().Sub(entry.WrittenAt).String(),
	}).Debug("Cache lookup")

	return v, state, nil
}

// Save replaces the entry under key with v, stamped with the cache clock
func Save[T any](ctx context.Context, c *Cache, key string, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	if err := c.store.Put(ctx, key, Entry{Payload: payload, WrittenAt: c.clock()}); err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}
