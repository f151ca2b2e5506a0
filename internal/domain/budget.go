package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget represents a monthly spending target for one transaction category.
// Budgets are independent of sync state; they only consume the category
// strings that sync merges attach to transactions.
type Budget struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Category     string
	TargetAmount decimal.Decimal
}

// Validate ensures the budget adheres to domain rules
func (b *Budget) Validate() error {
	if b.UserID == uuid.Nil {
		return errors.New("budget must belong to a user")
	}
	if b.Category == "" {
		return errors.New("budget category cannot be empty")
	}
	if b.TargetAmount.LessThanOrEqual(decimal.Zero) {
		return errors.New("budget target amount must be positive")
	}
	return nil
}
