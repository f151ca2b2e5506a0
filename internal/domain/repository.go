package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	// UpsertAccounts inserts or updates accounts by provider-assigned ID.
	// Balance, name, subtype, and closed flags are overwritten; accounts
	// absent from the slice are left untouched.
	UpsertAccounts(ctx context.Context, accounts []Account) error

	// ListByUser retrieves all accounts owned by a user
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Account, error)

	// ListByConnection retrieves all accounts under a connection
	ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]Account, error)
}

// TransactionRepository defines the interface for transaction persistence operations
type TransactionRepository interface {
	// UpsertTransactions inserts or updates transactions by provider-assigned
	// ID, making repeated merges of overlapping fetch ranges idempotent.
	UpsertTransactions(ctx context.Context, transactions []Transaction) error

	// ListByUser retrieves a user's transactions with dates in [from, to]
	ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Transaction, error)

	// ListByConnection retrieves a connection's transactions with dates in [from, to]
	ListByConnection(ctx context.Context, connectionID uuid.UUID, from, to time.Time) ([]Transaction, error)
}

// ConnectionRepository defines the interface for bank connection persistence,
// including the shared sync-status record that backs the single-flight lock.
type ConnectionRepository interface {
	// Create persists a new connection together with its initial (idle)
	// sync-status row.
	Create(ctx context.Context, conn *BankConnection) error

	// GetByID retrieves a connection by its ID; ErrNotFound if absent
	GetByID(ctx context.Context, id uuid.UUID) (*BankConnection, error)

	// ListByUser retrieves all connections owned by a user
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*BankConnection, error)

	// UpdateInstitution overwrites the connection's institution metadata
	UpdateInstitution(ctx context.Context, id uuid.UUID, info InstitutionInfo) error

	// GetSyncStatus retrieves the connection's sync status; ErrNotFound if absent
	GetSyncStatus(ctx context.Context, id uuid.UUID) (*BankConnectionSyncStatus, error)

	// ClaimSync atomically sets in_progress = true for the connection and
	// returns the claimed status (with the prior last_sync_at preserved).
	// The claim succeeds when the status is idle, or when it is in progress
	// but was started before staleBefore (abandoned lock recovery).
	// Returns ErrSyncAlreadyInProgress when a live sync holds the lock.
	// Must be a single atomic operation in shared storage: this is the
	// system-wide single-flight guarantee.
	ClaimSync(ctx context.Context, id uuid.UUID, startedAt, staleBefore time.Time) (*BankConnectionSyncStatus, error)

	// FinishSync releases a claim taken at startedAt. With errMsg == "" the
	// sync succeeded: last_sync_at is set to finishedAt and the error message
	// cleared. Otherwise last_sync_at is retained and errMsg recorded.
	// A finish whose startedAt no longer matches the current claim is ignored
	// and reported as applied=false (a newer attempt recovered the lock);
	// stale attempts must not overwrite fresher state.
	FinishSync(ctx context.Context, id uuid.UUID, startedAt, finishedAt time.Time, errMsg string) (applied bool, err error)

	// DeleteCascade removes the connection and every row referencing it
	// (accounts, transactions, sync status) in one atomic operation.
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

// BudgetRepository defines the interface for budget persistence operations
type BudgetRepository interface {
	// Create creates a new budget
	Create(ctx context.Context, budget *Budget) error

	// Update overwrites the budget's category and target amount
	Update(ctx context.Context, budget *Budget) error

	// Delete removes a budget by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByUser retrieves all budgets owned by a user
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Budget, error)
}
