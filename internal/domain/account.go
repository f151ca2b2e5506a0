package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType represents the provider-reported account type
type AccountType string

const (
	AccountTypeDepository AccountType = "depository"
	AccountTypeCredit     AccountType = "credit"
	AccountTypeLoan       AccountType = "loan"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeOther      AccountType = "other"
)

// BalanceCategory is the coarse classification used for portfolio breakdowns.
// It is derived from AccountType/subtype and never persisted.
type BalanceCategory string

const (
	BalanceCategoryCash        BalanceCategory = "CASH"
	BalanceCategoryCredit      BalanceCategory = "CREDIT"
	BalanceCategoryLoan        BalanceCategory = "LOAN"
	BalanceCategoryInvestments BalanceCategory = "INVESTMENTS"
	BalanceCategoryOther       BalanceCategory = "OTHER"
)

// BalanceCategories lists every category, in display order.
// Breakdown consumers rely on this for dense (zero-filled) output.
var BalanceCategories = []BalanceCategory{
	BalanceCategoryCash,
	BalanceCategoryCredit,
	BalanceCategoryLoan,
	BalanceCategoryInvestments,
	BalanceCategoryOther,
}

// Account represents a bank account in its canonical, provider-independent shape.
// Identity is the provider-assigned account ID and is immutable; balance and
// name are overwritten by sync merges only.
type Account struct {
	ID             string // provider-assigned, unique across providers in practice
	ConnectionID   uuid.UUID
	UserID         uuid.UUID
	Type           AccountType
	Subtype        string // optional, provider taxonomy varies
	Name           string
	CurrentBalance decimal.Decimal
	Currency       string
	Closed         bool // set only when the provider explicitly reports closure
}

// Validate ensures the account adheres to domain rules
func (a *Account) Validate() error {
	if a.ID == "" {
		return errors.New("account ID cannot be empty")
	}
	if a.ConnectionID == uuid.Nil {
		return errors.New("account must belong to a connection")
	}
	if a.UserID == uuid.Nil {
		return errors.New("account must belong to a user")
	}
	if a.Name == "" {
		return errors.New("account name cannot be empty")
	}
	return nil
}
