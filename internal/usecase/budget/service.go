// Package budget tracks monthly spending targets per transaction category.
// Budgets sit downstream of sync: they only consume the category strings the
// merges attach to transactions.
package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

// Progress reports one budget's standing for a month
type Progress struct {
	BudgetID  uuid.UUID       `json:"budget_id"`
	Category  string          `json:"category"`
	Target    decimal.Decimal `json:"target"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Service handles budget operations
type Service struct {
	BudgetRepo      domain.BudgetRepository
	TransactionRepo domain.TransactionRepository
}

// NewService creates a new budget Service instance
func NewService(budgetRepo domain.BudgetRepository, transactionRepo domain.TransactionRepository) *Service {
	return &Service{BudgetRepo: budgetRepo, TransactionRepo: transactionRepo}
}

// Create validates and persists a new budget
func (s *Service) Create(ctx context.Context, userID uuid.UUID, category string, target decimal.Decimal) (*domain.Budget, error) {
	budget := &domain.Budget{
		ID:           uuid.New(),
		UserID:       userID,
		Category:     category,
		TargetAmount: target,
	}
	if err := budget.Validate(); err != nil {
		return nil, err
	}
	if err := s.BudgetRepo.Create(ctx, budget); err != nil {
		return nil, fmt.Errorf("failed to persist budget: %w", err)
	}
	return budget, nil
}

// Update validates and overwrites an existing budget
func (s *Service) Update(ctx context.Context, budget *domain.Budget) error {
	if err := budget.Validate(); err != nil {
		return err
	}
	return s.BudgetRepo.Update(ctx, budget)
}

// Delete removes a budget
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.BudgetRepo.Delete(ctx, id)
}

// List returns the user's budgets
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*domain.Budget, error) {
	return s.BudgetRepo.ListByUser(ctx, userID)
}

// GetProgress reports spending against every budget of the user for the
// calendar month containing `month` (UTC). Spending is the magnitude of
// outflows in the budget's category; inflows do not offset it.
func (s *Service) GetProgress(ctx context.Context, userID uuid.UUID, month time.Time) ([]Progress, error) {
	budgets, err := s.BudgetRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}

	monthStart := time.Date(month.UTC().Year(), month.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)

	transactions, err := s.TransactionRepo.ListByUser(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	spentByCategory := make(map[string]decimal.Decimal)
	for _, tx := range transactions {
		if tx.Amount.IsNegative() {
			spentByCategory[tx.Category] = spentByCategory[tx.Category].Add(tx.Amount.Neg())
		}
	}

	progress := make([]Progress, 0, len(budgets))
	for _, b := range budgets {
		spent := spentByCategory[b.Category].Round(2)
		progress = append(progress, Progress{
			BudgetID:  b.ID,
			Category:  b.Category,
			Target:    b.TargetAmount,
			Spent:     spent,
			Remaining: b.TargetAmount.Sub(spent),
		})
	}
	return progress, nil
}
