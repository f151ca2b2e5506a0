// Package cache provides the timestamped snapshot store used to serve
// account/transaction/status reads without touching the repository or a
// provider. The store never expires entries on its own: every payload carries
// a CachedAt stamp and consumers judge staleness themselves, which is what
// lets the system serve slightly stale data while a sync refreshes it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

// Store is the cache contract. Implementations must apply
// last-writer-by-time-wins semantics: a Set whose cachedAt is older than the
// stamp already recorded for the key is silently ignored, so a slow sync
// attempt finishing late cannot overwrite fresher data.
type Store interface {
	// Get returns the payload and its stamp; ok=false on a miss
	Get(ctx context.Context, key string) (payload []byte, cachedAt time.Time, ok bool, err error)

	// Set stores the payload stamped with cachedAt
	Set(ctx context.Context, key string, payload []byte, cachedAt time.Time) error

	// Invalidate removes a single key
	Invalidate(ctx context.Context, key string) error

	// InvalidatePrefix removes every key under the given namespace prefix
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// Keys are namespaced by entity kind and owning identity so that a
// disconnect can invalidate everything under one connection with a single
// prefix sweep.

// ConnectionPrefix namespaces every cache entry belonging to one connection
func ConnectionPrefix(connectionID uuid.UUID) string {
	return fmt.Sprintf("connection:%s:", connectionID)
}

// AccountsKey is the cache key for a connection's account snapshot
func AccountsKey(connectionID uuid.UUID) string {
	return ConnectionPrefix(connectionID) + "accounts"
}

// TransactionsKey is the cache key for a connection's transaction snapshot
func TransactionsKey(connectionID uuid.UUID) string {
	return ConnectionPrefix(connectionID) + "transactions"
}

// SyncStatusKey is the cache key for a connection's sync status
func SyncStatusKey(connectionID uuid.UUID) string {
	return ConnectionPrefix(connectionID) + "sync_status"
}

// CachedBankAccounts pairs a connection's account snapshot with its stamp
type CachedBankAccounts struct {
	Accounts []domain.Account `json:"accounts"`
	CachedAt time.Time        `json:"cached_at"`
}

// CachedTransactions pairs a transaction snapshot with its stamp. WindowStart
// records how far back the snapshot reaches; consumers needing earlier data
// must fall back to the repository.
type CachedTransactions struct {
	Transactions []domain.Transaction `json:"transactions"`
	WindowStart  time.Time            `json:"window_start"`
	CachedAt     time.Time            `json:"cached_at"`
}

// CachedSyncStatus pairs a sync status with its stamp
type CachedSyncStatus struct {
	Status   domain.BankConnectionSyncStatus `json:"status"`
	CachedAt time.Time                       `json:"cached_at"`
}

// GetJSON reads and unmarshals a typed payload. ok=false on a miss; a payload
// that fails to unmarshal is treated as an error, not a miss, so callers fall
// back to the repository.
func GetJSON[T any](ctx context.Context, s Store, key string) (*T, bool, error) {
	payload, _, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return &v, true, nil
}

// SetJSON marshals and stores a typed payload stamped with cachedAt
func SetJSON(ctx context.Context, s Store, key string, v any, cachedAt time.Time) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	return s.Set(ctx, key, payload, cachedAt)
}
