package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	payload  []byte
	cachedAt time.Time
}

// MemoryStore is a mutex-guarded in-process Store. Snapshots cached here are
// per-instance; the single-flight sync lock does not rely on it (that lives in
// the repository), so running several instances with independent memory caches
// remains correct, just less warm.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory cache store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Get returns the payload and stamp for key; ok=false on a miss
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	return entry.payload, entry.cachedAt, true, nil
}

// Set stores the payload unless a fresher stamp is already recorded for the
// key (last-writer-by-time-wins)
func (s *MemoryStore) Set(ctx context.Context, key string, payload []byte, cachedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok && existing.cachedAt.After(cachedAt) {
		// Stale write from a slow attempt; ignore
		return nil
	}
	s.entries[key] = memoryEntry{payload: payload, cachedAt: cachedAt}
	return nil
}

// Invalidate removes a single key
func (s *MemoryStore) Invalidate(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// InvalidatePrefix removes every key under the given prefix
func (s *MemoryStore) InvalidatePrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
		}
	}
	return nil
}
