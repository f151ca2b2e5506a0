package domain

import "errors"

// Error kinds shared across the provider, cache, and sync layers.
// Callers classify with errors.Is; provider adapters wrap these with
// provider-specific detail via fmt.Errorf("...: %w", ...).
var (
	// ErrProviderUnavailable marks a transient provider failure. The caller
	// may retry later; the orchestrator records it and returns to Idle.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderAuth marks rejected API credentials (our keys, not the
	// user's). Not retried automatically.
	ErrProviderAuth = errors.New("provider authentication failed")

	// ErrCredentialsExpired means the user's link is no longer valid and the
	// user must re-link the connection.
	ErrCredentialsExpired = errors.New("connection credentials expired")

	// ErrInvalidToken marks an expired or already-consumed public token
	// during link exchange. Surfaced to the client as-is.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrSyncAlreadyInProgress is the expected outcome of a concurrent
	// start_sync call losing the single-flight race. Not a failure.
	ErrSyncAlreadyInProgress = errors.New("sync already in progress")

	// ErrCacheUnavailable marks an unreachable cache backend. Never surfaced
	// to end users; every read path falls back to the repository.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrNotFound marks a missing entity in the repository.
	ErrNotFound = errors.New("not found")
)
