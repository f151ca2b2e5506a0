// Package sync drives the fetch-merge-persist-cache cycle for bank
// connections. At most one sync runs per connection system-wide: the lock is
// the connection's sync-status record in shared storage, claimed with an
// atomic compare-and-set, never an in-process mutex, so the guarantee holds
// across concurrently running service instances.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink-backend/internal/cache"
	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
	"github.com/ledgerlink/ledgerlink-backend/internal/provider"
)

const (
	// StaleLockThreshold bounds how long an in-progress claim is honored.
	// A claim older than this belongs to a crashed or hung attempt and may be
	// recovered by the next caller.
	StaleLockThreshold = 5 * time.Minute

	// InitialLookback is the transaction fetch window for a connection's
	// first sync.
	InitialLookback = 30 * 24 * time.Hour

	// IncrementalOverlap widens incremental fetch windows behind last_sync_at
	// to catch late-posting transactions. Overlap is harmless: merges upsert
	// by provider-assigned identity.
	IncrementalOverlap = 7 * 24 * time.Hour
)

// Orchestrator coordinates sync cycles across connections
type Orchestrator struct {
	ConnectionRepo  domain.ConnectionRepository
	AccountRepo     domain.AccountRepository
	TransactionRepo domain.TransactionRepository
	Providers       *provider.Registry

	cache  cache.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewOrchestrator creates a new Orchestrator instance
func NewOrchestrator(
	connectionRepo domain.ConnectionRepository,
	accountRepo domain.AccountRepository,
	transactionRepo domain.TransactionRepository,
	providers *provider.Registry,
	cacheStore cache.Store,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		ConnectionRepo:  connectionRepo,
		AccountRepo:     accountRepo,
		TransactionRepo: transactionRepo,
		Providers:       providers,
		cache:           cacheStore,
		logger:          logger,
		now:             time.Now,
	}
}

// StartSync claims the connection's sync lock and runs one full
// fetch-merge-persist-cache cycle before returning. Concurrent callers lose
// the claim race with ErrSyncAlreadyInProgress. A cycle failure is recorded
// on the status record and returned; the connection is back to idle either
// way, so a later call can retry.
func (o *Orchestrator) StartSync(ctx context.Context, connectionID uuid.UUID) error {
	conn, status, err := o.claim(ctx, connectionID)
	if err != nil {
		return err
	}
	return o.run(ctx, conn, status)
}

// StartSyncAsync claims the connection's sync lock synchronously, then runs
// the cycle in the background. Returns nil when the sync was accepted,
// ErrSyncAlreadyInProgress when a live sync holds the lock. Callers observe
// completion through GetStatus; there is no mid-flight cancellation, so the
// background cycle runs on a context detached from the caller's.
func (o *Orchestrator) StartSyncAsync(ctx context.Context, connectionID uuid.UUID) error {
	conn, status, err := o.claim(ctx, connectionID)
	if err != nil {
		return err
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), StaleLockThreshold)
		defer cancel()

		if err := o.run(bgCtx, conn, status); err != nil {
			o.logger.Error("background sync failed",
				"connection_id", conn.ID, "error", err)
		}
	}()
	return nil
}

// GetStatus returns the connection's sync status, cache-first with repository
// fallback, so status stays observable while the cache or a provider is down
func (o *Orchestrator) GetStatus(ctx context.Context, connectionID uuid.UUID) (*domain.BankConnectionSyncStatus, error) {
	cached, ok, err := cache.GetJSON[cache.CachedSyncStatus](ctx, o.cache, cache.SyncStatusKey(connectionID))
	if err != nil {
		o.logger.Warn("sync status cache read failed, falling back to repository",
			"connection_id", connectionID, "error", err)
	}
	if ok {
		return &cached.Status, nil
	}

	status, err := o.ConnectionRepo.GetSyncStatus(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	o.cacheStatus(ctx, status, o.now())
	return status, nil
}

// claim performs step one of the cycle: atomically set in_progress = true or
// bail out. The returned status carries the attempt's start stamp and the
// prior last_sync_at, which decides the fetch window.
func (o *Orchestrator) claim(ctx context.Context, connectionID uuid.UUID) (*domain.BankConnection, *domain.BankConnectionSyncStatus, error) {
	conn, err := o.ConnectionRepo.GetByID(ctx, connectionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load connection: %w", err)
	}

	startedAt := o.now().UTC()
	status, err := o.ConnectionRepo.ClaimSync(ctx, connectionID, startedAt, startedAt.Add(-StaleLockThreshold))
	if err != nil {
		return nil, nil, err
	}

	o.logger.Info("sync started", "connection_id", connectionID, "provider", conn.Provider)
	o.cacheStatus(ctx, status, startedAt)
	return conn, status, nil
}

// run executes steps two through six of a claimed cycle: fetch accounts, then
// transactions, merge both into the repository (accounts first, since
// transactions reference them), refresh the cache, release the lock.
func (o *Orchestrator) run(ctx context.Context, conn *domain.BankConnection, status *domain.BankConnectionSyncStatus) error {
	startedAt := status.StartedAt

	p, err := o.Providers.Lookup(conn.Provider)
	if err != nil {
		return o.fail(ctx, conn.ID, startedAt, "provider not available", err)
	}

	accounts, err := p.GetAccounts(ctx, conn.Credentials)
	if err != nil {
		return o.fail(ctx, conn.ID, startedAt, "fetching accounts failed", err)
	}
	for i := range accounts {
		accounts[i].ConnectionID = conn.ID
		accounts[i].UserID = conn.UserID
	}

	windowStart := startedAt.Add(-InitialLookback)
	if status.LastSyncAt != nil {
		windowStart = status.LastSyncAt.Add(-IncrementalOverlap)
	}

	transactions, err := p.GetTransactions(ctx, conn.Credentials, windowStart, startedAt)
	if err != nil {
		return o.fail(ctx, conn.ID, startedAt, "fetching transactions failed", err)
	}
	for i := range transactions {
		transactions[i].UserID = conn.UserID
	}

	// Accounts before transactions: upserted transactions reference them
	if err := o.AccountRepo.UpsertAccounts(ctx, accounts); err != nil {
		return o.fail(ctx, conn.ID, startedAt, "merging accounts failed", err)
	}
	if err := o.TransactionRepo.UpsertTransactions(ctx, transactions); err != nil {
		return o.fail(ctx, conn.ID, startedAt, "merging transactions failed", err)
	}

	// Institution metadata is cosmetic; a failure here never aborts the sync
	if info, err := p.GetInstitution(ctx, conn.Credentials); err != nil {
		o.logger.Warn("fetching institution info failed",
			"connection_id", conn.ID, "error", err)
	} else if err := o.ConnectionRepo.UpdateInstitution(ctx, conn.ID, *info); err != nil {
		o.logger.Warn("storing institution info failed",
			"connection_id", conn.ID, "error", err)
	}

	o.refreshCache(ctx, conn.ID, accounts, transactions, windowStart, startedAt)

	finishedAt := o.now().UTC()
	applied, err := o.ConnectionRepo.FinishSync(ctx, conn.ID, startedAt, finishedAt, "")
	if err != nil {
		return fmt.Errorf("failed to record sync completion: %w", err)
	}
	if !applied {
		// A newer attempt recovered our lock mid-flight; its state wins
		o.logger.Warn("sync finished after its lock was recovered, result superseded",
			"connection_id", conn.ID, "started_at", startedAt)
		return nil
	}

	o.cacheStatus(ctx, &domain.BankConnectionSyncStatus{
		ConnectionID: conn.ID,
		InProgress:   false,
		StartedAt:    startedAt,
		LastSyncAt:   &finishedAt,
	}, finishedAt)

	o.logger.Info("sync finished",
		"connection_id", conn.ID,
		"accounts", len(accounts),
		"transactions", len(transactions),
		"duration", finishedAt.Sub(startedAt))
	return nil
}

// fail releases the lock with a recorded, human-readable error and returns
// the underlying failure. Previously stored data stays intact; the connection
// is idle again and a later sync may retry.
func (o *Orchestrator) fail(ctx context.Context, connectionID uuid.UUID, startedAt time.Time, summary string, cause error) error {
	errMsg := fmt.Sprintf("%s: %v", summary, cause)
	finishedAt := o.now().UTC()

	applied, finishErr := o.ConnectionRepo.FinishSync(ctx, connectionID, startedAt, finishedAt, errMsg)
	if finishErr != nil {
		o.logger.Error("failed to record sync failure",
			"connection_id", connectionID, "error", finishErr)
	} else if applied {
		status, statusErr := o.ConnectionRepo.GetSyncStatus(ctx, connectionID)
		if statusErr == nil {
			o.cacheStatus(ctx, status, finishedAt)
		}
	}

	o.logger.Error("sync failed", "connection_id", connectionID, "error", cause)
	return fmt.Errorf("%s: %w", summary, cause)
}

// refreshCache rewrites the connection's account and transaction snapshots,
// stamped with the attempt's start time so a slower concurrent attempt cannot
// clobber fresher entries. Cache failures are logged and swallowed: the
// repository already holds the merged data.
func (o *Orchestrator) refreshCache(ctx context.Context, connectionID uuid.UUID, accounts []domain.Account, transactions []domain.Transaction, windowStart, stamp time.Time) {
	err := cache.SetJSON(ctx, o.cache, cache.AccountsKey(connectionID), cache.CachedBankAccounts{
		Accounts: accounts,
		CachedAt: stamp,
	}, stamp)
	if err != nil {
		o.logger.Warn("caching accounts failed", "connection_id", connectionID, "error", err)
	}

	err = cache.SetJSON(ctx, o.cache, cache.TransactionsKey(connectionID), cache.CachedTransactions{
		Transactions: transactions,
		WindowStart:  windowStart,
		CachedAt:     stamp,
	}, stamp)
	if err != nil {
		o.logger.Warn("caching transactions failed", "connection_id", connectionID, "error", err)
	}
}

func (o *Orchestrator) cacheStatus(ctx context.Context, status *domain.BankConnectionSyncStatus, stamp time.Time) {
	err := cache.SetJSON(ctx, o.cache, cache.SyncStatusKey(status.ConnectionID), cache.CachedSyncStatus{
		Status:   *status,
		CachedAt: stamp,
	}, stamp)
	if err != nil {
		o.logger.Warn("caching sync status failed", "connection_id", status.ConnectionID, "error", err)
	}
}
