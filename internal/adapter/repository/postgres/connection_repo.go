package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

// connectionRepository implements domain.ConnectionRepository. The sync-status
// row it manages doubles as the cross-instance single-flight lock: claims and
// releases are single conditional UPDATE statements whose row-count reveals
// whether the compare-and-set won.
type connectionRepository struct {
	db *DB
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *DB) domain.ConnectionRepository {
	return &connectionRepository{db: db}
}

// Create persists a new connection and its initial idle sync-status row in
// one database transaction
func (r *connectionRepository) Create(ctx context.Context, conn *domain.BankConnection) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	insertConnQuery := `
		INSERT INTO bank_connections (
			id, user_id, provider, access_token, item_id,
			certificate_pem, private_key_pem,
			institution_name, institution_logo_url, institution_brand_color,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = dbTx.ExecContext(ctx, insertConnQuery,
		conn.ID,
		conn.UserID,
		conn.Provider,
		conn.Credentials.AccessToken,
		conn.Credentials.ItemID,
		conn.Credentials.Certificate,
		conn.Credentials.PrivateKey,
		conn.Institution.Name,
		conn.Institution.LogoURL,
		conn.Institution.BrandColor,
		conn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert connection: %w", err)
	}

	insertStatusQuery := `
		INSERT INTO bank_connection_sync_status (connection_id, in_progress)
		VALUES ($1, FALSE)
	`
	if _, err = dbTx.ExecContext(ctx, insertStatusQuery, conn.ID); err != nil {
		return fmt.Errorf("failed to insert sync status: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const connectionColumns = `
	id, user_id, provider, access_token, item_id,
	certificate_pem, private_key_pem,
	institution_name, institution_logo_url, institution_brand_color,
	created_at
`

// GetByID retrieves a connection by its ID
func (r *connectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BankConnection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM bank_connections WHERE id = $1`, id)

	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("connection %s: %w", id, domain.ErrNotFound)
	}
	return conn, err
}

// ListByUser retrieves all connections owned by a user
func (r *connectionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.BankConnection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM bank_connections WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var connections []*domain.BankConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		connections = append(connections, conn)
	}
	return connections, rows.Err()
}

// UpdateInstitution overwrites the connection's institution metadata
func (r *connectionRepository) UpdateInstitution(ctx context.Context, id uuid.UUID, info domain.InstitutionInfo) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE bank_connections
		SET institution_name = $2, institution_logo_url = $3, institution_brand_color = $4
		WHERE id = $1
	`, id, info.Name, info.LogoURL, info.BrandColor)
	if err != nil {
		return fmt.Errorf("failed to update institution info: %w", err)
	}
	return nil
}

// GetSyncStatus retrieves the connection's sync status
func (r *connectionRepository) GetSyncStatus(ctx context.Context, id uuid.UUID) (*domain.BankConnectionSyncStatus, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT connection_id, in_progress, started_at, last_sync_at, error_message
		FROM bank_connection_sync_status
		WHERE connection_id = $1
	`, id)

	status, err := scanSyncStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync status for connection %s: %w", id, domain.ErrNotFound)
	}
	return status, err
}

// ClaimSync atomically takes the sync lock. A single conditional UPDATE wins
// against an idle status or an abandoned in-progress claim older than
// staleBefore; zero rows means a live sync holds the lock.
func (r *connectionRepository) ClaimSync(ctx context.Context, id uuid.UUID, startedAt, staleBefore time.Time) (*domain.BankConnectionSyncStatus, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE bank_connection_sync_status
		SET in_progress = TRUE, started_at = $2
		WHERE connection_id = $1 AND (in_progress = FALSE OR started_at < $3)
		RETURNING last_sync_at, error_message
	`, id, startedAt, staleBefore)

	var lastSyncAt sql.NullTime
	var errorMessage string
	err := row.Scan(&lastSyncAt, &errorMessage)
	if errors.Is(err, sql.ErrNoRows) {
		// Either a live sync holds the lock, or the status row is missing
		// (connection created before status bookkeeping existed)
		return r.claimMissingStatus(ctx, id, startedAt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim sync lock: %w", err)
	}

	status := &domain.BankConnectionSyncStatus{
		ConnectionID: id,
		InProgress:   true,
		StartedAt:    startedAt,
		ErrorMessage: errorMessage,
	}
	if lastSyncAt.Valid {
		t := lastSyncAt.Time
		status.LastSyncAt = &t
	}
	return status, nil
}

// claimMissingStatus inserts a pre-claimed status row; losing the insert race
// means another sync is live
func (r *connectionRepository) claimMissingStatus(ctx context.Context, id uuid.UUID, startedAt time.Time) (*domain.BankConnectionSyncStatus, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO bank_connection_sync_status (connection_id, in_progress, started_at)
		VALUES ($1, TRUE, $2)
		ON CONFLICT (connection_id) DO NOTHING
	`, id, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to claim sync lock: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to claim sync lock: %w", err)
	}
	if inserted == 0 {
		return nil, domain.ErrSyncAlreadyInProgress
	}
	return &domain.BankConnectionSyncStatus{
		ConnectionID: id,
		InProgress:   true,
		StartedAt:    startedAt,
	}, nil
}

// FinishSync releases a claim taken at startedAt. The started_at guard makes
// late finishes from recovered (stale) attempts no-ops so they cannot
// overwrite a newer attempt's state.
func (r *connectionRepository) FinishSync(ctx context.Context, id uuid.UUID, startedAt, finishedAt time.Time, errMsg string) (bool, error) {
	var result sql.Result
	var err error
	if errMsg == "" {
		result, err = r.db.ExecContext(ctx, `
			UPDATE bank_connection_sync_status
			SET in_progress = FALSE, last_sync_at = $3, error_message = ''
			WHERE connection_id = $1 AND started_at = $2 AND in_progress = TRUE
		`, id, startedAt, finishedAt)
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE bank_connection_sync_status
			SET in_progress = FALSE, error_message = $3
			WHERE connection_id = $1 AND started_at = $2 AND in_progress = TRUE
		`, id, startedAt, errMsg)
	}
	if err != nil {
		return false, fmt.Errorf("failed to finish sync: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to finish sync: %w", err)
	}
	return affected == 1, nil
}

// DeleteCascade removes the connection and every row referencing it in one
// database transaction
func (r *connectionRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	statements := []string{
		`DELETE FROM transactions WHERE account_id IN (SELECT id FROM accounts WHERE connection_id = $1)`,
		`DELETE FROM accounts WHERE connection_id = $1`,
		`DELETE FROM bank_connection_sync_status WHERE connection_id = $1`,
		`DELETE FROM bank_connections WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := dbTx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("failed to cascade delete connection: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*domain.BankConnection, error) {
	var conn domain.BankConnection
	err := row.Scan(
		&conn.ID,
		&conn.UserID,
		&conn.Provider,
		&conn.Credentials.AccessToken,
		&conn.Credentials.ItemID,
		&conn.Credentials.Certificate,
		&conn.Credentials.PrivateKey,
		&conn.Institution.Name,
		&conn.Institution.LogoURL,
		&conn.Institution.BrandColor,
		&conn.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}
	return &conn, nil
}

func scanSyncStatus(row rowScanner) (*domain.BankConnectionSyncStatus, error) {
	var status domain.BankConnectionSyncStatus
	var lastSyncAt sql.NullTime
	err := row.Scan(
		&status.ConnectionID,
		&status.InProgress,
		&status.StartedAt,
		&lastSyncAt,
		&status.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan sync status: %w", err)
	}
	if lastSyncAt.Valid {
		t := lastSyncAt.Time
		status.LastSyncAt = &t
	}
	return &status, nil
}
