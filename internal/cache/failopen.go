package cache

import (
	"context"
	"log/slog"
	"time"
)

// FailOpenStore wraps a Store so that backend errors degrade to cache misses
// and dropped writes instead of propagating. Cache unavailability must never
// make the system unavailable: reads fall back to the repository and writes
// are logged and skipped.
type FailOpenStore struct {
	inner  Store
	logger *slog.Logger
}

// NewFailOpen wraps inner with fail-open semantics
func NewFailOpen(inner Store, logger *slog.Logger) *FailOpenStore {
	return &FailOpenStore{inner: inner, logger: logger}
}

// Get returns a miss when the backend errors
func (s *FailOpenStore) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	payload, cachedAt, ok, err := s.inner.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		return nil, time.Time{}, false, nil
	}
	return payload, cachedAt, ok, nil
}

// Set logs and drops the write when the backend errors
func (s *FailOpenStore) Set(ctx context.Context, key string, payload []byte, cachedAt time.Time) error {
	if err := s.inner.Set(ctx, key, payload, cachedAt); err != nil {
		s.logger.Warn("cache write failed, skipping", "key", key, "error", err)
	}
	return nil
}

// Invalidate logs and swallows backend errors
func (s *FailOpenStore) Invalidate(ctx context.Context, key string) error {
	if err := s.inner.Invalidate(ctx, key); err != nil {
		s.logger.Warn("cache invalidation failed", "key", key, "error", err)
	}
	return nil
}

// InvalidatePrefix logs and swallows backend errors
func (s *FailOpenStore) InvalidatePrefix(ctx context.Context, prefix string) error {
	if err := s.inner.InvalidatePrefix(ctx, prefix); err != nil {
		s.logger.Warn("cache prefix invalidation failed", "prefix", prefix, "error", err)
	}
	return nil
}
