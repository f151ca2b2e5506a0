package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink-backend/internal/cache"
	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

// DefaultMaxSnapshotAge bounds how stale a cached snapshot may be before the
// service re-reads the repository. The cache itself never expires entries;
// acceptable staleness is this consumer's call.
const DefaultMaxSnapshotAge = 15 * time.Minute

// Service loads account/transaction snapshots (cache preferred, repository
// fallback, never the network) and evaluates the pure computations over them
type Service struct {
	ConnectionRepo  domain.ConnectionRepository
	AccountRepo     domain.AccountRepository
	TransactionRepo domain.TransactionRepository

	cache          cache.Store
	logger         *slog.Logger
	maxSnapshotAge time.Duration
	now            func() time.Time
}

// NewService creates a new analytics Service instance
func NewService(
	connectionRepo domain.ConnectionRepository,
	accountRepo domain.AccountRepository,
	transactionRepo domain.TransactionRepository,
	cacheStore cache.Store,
	logger *slog.Logger,
) *Service {
	return &Service{
		ConnectionRepo:  connectionRepo,
		AccountRepo:     accountRepo,
		TransactionRepo: transactionRepo,
		cache:           cacheStore,
		logger:          logger,
		maxSnapshotAge:  DefaultMaxSnapshotAge,
		now:             time.Now,
	}
}

// GetBalanceBreakdown returns the user's current balances summed per balance
// category, dense across all categories
func (s *Service) GetBalanceBreakdown(ctx context.Context, userID uuid.UUID) (map[domain.BalanceCategory]decimal.Decimal, error) {
	accounts, err := s.loadAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return BalanceBreakdown(accounts), nil
}

// GetPositiveNegativeRatio returns the inflow/outflow ratio for the user's
// transactions dated within [from, to]. ok=false when the ratio is undefined
// (no outflow in range).
func (s *Service) GetPositiveNegativeRatio(ctx context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, bool, error) {
	transactions, err := s.loadTransactions(ctx, userID, from, to)
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	positives, negatives := SumSigned(transactions)
	ratio, ok := PositiveNegativeRatio(positives, negatives)
	return ratio, ok, nil
}

// GetMonthlyTotals returns signed totals for the trailing `months` calendar
// months, ending with the current month, dense
func (s *Service) GetMonthlyTotals(ctx context.Context, userID uuid.UUID, months int) ([]MonthTotal, error) {
	if months <= 0 {
		return []MonthTotal{}, nil
	}

	now := s.now().UTC()
	firstMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	transactions, err := s.loadTransactions(ctx, userID, firstMonth, now)
	if err != nil {
		return nil, err
	}
	return MonthlyTotals(transactions, firstMonth, months), nil
}

// GetDailyTotals returns signed totals per day over [from, to], dense
func (s *Service) GetDailyTotals(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]DayTotal, error) {
	transactions, err := s.loadTransactions(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	return DailyTotals(transactions, from, to), nil
}

// loadAccounts assembles the user's account snapshot from per-connection
// cache entries; any miss or stale entry falls back to one repository read
func (s *Service) loadAccounts(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	connections, err := s.ConnectionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	freshCutoff := s.now().Add(-s.maxSnapshotAge)
	var accounts []domain.Account
	for _, conn := range connections {
		snapshot, ok, err := cache.GetJSON[cache.CachedBankAccounts](ctx, s.cache, cache.AccountsKey(conn.ID))
		if err != nil {
			s.logger.Warn("account cache read failed, falling back to repository",
				"connection_id", conn.ID, "error", err)
		}
		if !ok || err != nil || snapshot.CachedAt.Before(freshCutoff) {
			return s.AccountRepo.ListByUser(ctx, userID)
		}
		accounts = append(accounts, snapshot.Accounts...)
	}
	return accounts, nil
}

// loadTransactions assembles the user's transactions dated within [from, to].
// A cached snapshot serves a connection only when it is fresh and its fetch
// window covers the requested range start; otherwise the repository serves
// the whole user in one read.
func (s *Service) loadTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	connections, err := s.ConnectionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	freshCutoff := s.now().Add(-s.maxSnapshotAge)
	var transactions []domain.Transaction
	for _, conn := range connections {
		snapshot, ok, err := cache.GetJSON[cache.CachedTransactions](ctx, s.cache, cache.TransactionsKey(conn.ID))
		if err != nil {
			s.logger.Warn("transaction cache read failed, falling back to repository",
				"connection_id", conn.ID, "error", err)
		}
		if !ok || err != nil || snapshot.CachedAt.Before(freshCutoff) || snapshot.WindowStart.After(from) {
			return s.TransactionRepo.ListByUser(ctx, userID, from, to)
		}
		for _, tx := range snapshot.Transactions {
			if tx.Date.Before(from) || tx.Date.After(to) {
				continue
			}
			transactions = append(transactions, tx)
		}
	}
	return transactions, nil
}
