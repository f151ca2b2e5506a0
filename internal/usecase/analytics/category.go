package analytics

import (
	"strings"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

// BalanceCategoryFor maps a provider-reported account type and subtype to a
// balance category. Dispatch is two-tier because provider type taxonomies are
// inconsistent across institutions: the type decides when it is recognized,
// otherwise keyword heuristics on the subtype decide, otherwise Other.
func BalanceCategoryFor(accountType domain.AccountType, subtype string) domain.BalanceCategory {
	switch accountType {
	case domain.AccountTypeDepository:
		return domain.BalanceCategoryCash
	case domain.AccountTypeCredit:
		return domain.BalanceCategoryCredit
	case domain.AccountTypeLoan:
		return domain.BalanceCategoryLoan
	case domain.AccountTypeInvestment:
		return domain.BalanceCategoryInvestments
	}

	subtype = strings.ToLower(subtype)
	switch {
	case strings.Contains(subtype, "checking"),
		strings.Contains(subtype, "savings"),
		strings.Contains(subtype, "cash management"),
		strings.Contains(subtype, "money market"),
		strings.Contains(subtype, "prepaid"):
		return domain.BalanceCategoryCash
	case strings.Contains(subtype, "credit"):
		return domain.BalanceCategoryCredit
	case strings.Contains(subtype, "loan"), strings.Contains(subtype, "mortgage"):
		return domain.BalanceCategoryLoan
	case strings.Contains(subtype, "brokerage"),
		strings.Contains(subtype, "401k"),
		strings.Contains(subtype, "ira"),
		strings.Contains(subtype, "retirement"):
		return domain.BalanceCategoryInvestments
	}
	return domain.BalanceCategoryOther
}
