package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get implements Store
func (s *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	// Callers must not alias stored bytes
	payload := make([]byte, len(e.Payload))
	copy(payload, e.Payload)
	return Entry{Payload: payload, WrittenAt: e.WrittenAt}, true, nil
}

// Put implements Store
func (s *MemoryStore) Put(_ context.Context, key string, entry Entry) error {
	payload := make([]byte, len(entry.Payload))
	copy(payload, entry.Payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{Payload: payload, WrittenAt: entry.WrittenAt}
	return nil
}

// Len returns the number of entries
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
