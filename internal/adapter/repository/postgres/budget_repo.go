package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

// budgetRepository implements domain.BudgetRepository
type budgetRepository struct {
	db *DB
}

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(db *DB) domain.BudgetRepository {
	return &budgetRepository{db: db}
}

// Create creates a new budget
func (r *budgetRepository) Create(ctx context.Context, budget *domain.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (id, user_id, category, target_amount)
		VALUES ($1, $2, $3, $4)
	`, budget.ID, budget.UserID, budget.Category, budget.TargetAmount.String())
	if err != nil {
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	return nil
}

// Update overwrites the budget's category and target amount
func (r *budgetRepository) Update(ctx context.Context, budget *domain.Budget) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE budgets SET category = $2, target_amount = $3 WHERE id = $1
	`, budget.ID, budget.Category, budget.TargetAmount.String())
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("budget %s: %w", budget.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a budget by ID
func (r *budgetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return nil
}

// ListByUser retrieves all budgets owned by a user
func (r *budgetRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, category, target_amount
		FROM budgets
		WHERE user_id = $1
		ORDER BY category
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*domain.Budget
	for rows.Next() {
		var budget domain.Budget
		if err := rows.Scan(&budget.ID, &budget.UserID, &budget.Category, &budget.TargetAmount); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, &budget)
	}
	return budgets, rows.Err()
}
