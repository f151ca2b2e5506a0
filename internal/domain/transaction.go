package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction represents a bank transaction in its canonical shape.
// Sign convention: negative amount = outflow (money leaving the account),
// positive amount = inflow. Provider adapters convert provider-native sign
// conventions before a transaction enters the system.
//
// Transactions are created and updated only by sync merges, keyed by the
// provider-assigned ID, so repeated fetches of overlapping date ranges are
// idempotent.
type Transaction struct {
	ID          string // provider-assigned
	AccountID   string
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	Category    string
	Pending     bool
}

// Validate ensures the transaction adheres to domain rules
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return errors.New("transaction ID cannot be empty")
	}
	if t.AccountID == "" {
		return errors.New("transaction must reference an account")
	}
	if t.UserID == uuid.Nil {
		return errors.New("transaction must belong to a user")
	}
	if t.Date.IsZero() {
		return errors.New("transaction date cannot be zero")
	}
	return nil
}
