package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

// UpsertTransactions inserts or updates transactions by provider-assigned ID
// within one database transaction, so re-merging overlapping fetch ranges is
// idempotent and creates no duplicates
func (r *transactionRepository) UpsertTransactions(ctx context.Context, transactions []domain.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	upsertQuery := `
		INSERT INTO transactions (id, account_id, user_id, amount, date, description, category, pending)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			date = EXCLUDED.date,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			pending = EXCLUDED.pending
	`

	for _, tx := range transactions {
		_, err = dbTx.ExecContext(ctx, upsertQuery,
			tx.ID,
			tx.AccountID,
			tx.UserID,
			tx.Amount.String(),
			tx.Date,
			tx.Description,
			tx.Category,
			tx.Pending,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert transaction %s: %w", tx.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByUser retrieves a user's transactions with dates in [from, to]
func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	query := `
		SELECT id, account_id, user_id, amount, date, description, category, pending
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC, id
	`
	return r.list(ctx, query, userID, from, to)
}

// ListByConnection retrieves a connection's transactions with dates in [from, to]
func (r *transactionRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	query := `
		SELECT t.id, t.account_id, t.user_id, t.amount, t.date, t.description, t.category, t.pending
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.connection_id = $1 AND t.date >= $2 AND t.date <= $3
		ORDER BY t.date DESC, t.id
	`
	return r.list(ctx, query, connectionID, from, to)
}

func (r *transactionRepository) list(ctx context.Context, query string, owner uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, owner, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.AccountID,
			&tx.UserID,
			&tx.Amount,
			&tx.Date,
			&tx.Description,
			&tx.Category,
			&tx.Pending,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
