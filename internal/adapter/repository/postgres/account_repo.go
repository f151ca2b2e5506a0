package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) domain.AccountRepository {
	return &accountRepository{db: db}
}

// UpsertAccounts inserts or updates accounts by provider-assigned ID within
// one database transaction. Mutable fields are overwritten; accounts not in
// the slice are untouched, so a partial provider fetch never deletes.
func (r *accountRepository) UpsertAccounts(ctx context.Context, accounts []domain.Account) error {
	if len(accounts) == 0 {
		return nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	upsertQuery := `
		INSERT INTO accounts (id, connection_id, user_id, type, subtype, name, current_balance, currency, closed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			subtype = EXCLUDED.subtype,
			name = EXCLUDED.name,
			current_balance = EXCLUDED.current_balance,
			currency = EXCLUDED.currency,
			closed = EXCLUDED.closed
	`

	for _, account := range accounts {
		_, err = dbTx.ExecContext(ctx, upsertQuery,
			account.ID,
			account.ConnectionID,
			account.UserID,
			string(account.Type),
			account.Subtype,
			account.Name,
			account.CurrentBalance.String(),
			account.Currency,
			account.Closed,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert account %s: %w", account.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByUser retrieves all accounts owned by a user
func (r *accountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	return r.list(ctx, "user_id", userID)
}

// ListByConnection retrieves all accounts under a connection
func (r *accountRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]domain.Account, error) {
	return r.list(ctx, "connection_id", connectionID)
}

func (r *accountRepository) list(ctx context.Context, column string, owner uuid.UUID) ([]domain.Account, error) {
	query := fmt.Sprintf(`
		SELECT id, connection_id, user_id, type, subtype, name, current_balance, currency, closed
		FROM accounts
		WHERE %s = $1
		ORDER BY name, id
	`, column)

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		var accountType string
		if err := rows.Scan(
			&account.ID,
			&account.ConnectionID,
			&account.UserID,
			&accountType,
			&account.Subtype,
			&account.Name,
			&account.CurrentBalance,
			&account.Currency,
			&account.Closed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		account.Type = domain.AccountType(accountType)
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
