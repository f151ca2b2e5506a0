// Package analytics derives balance breakdowns and spending statistics from
// snapshots of accounts and transactions. The computation layer in this file
// is pure: no I/O, no clock, no side effects. Internal accumulation never
// rounds; display rounding to 2 decimal places (half away from zero) happens
// once, at the output boundary.
package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

// displayScale is the rounding applied to output-facing totals
const displayScale = 2

// MonthTotal is one bucket of a dense monthly series
type MonthTotal struct {
	Month time.Time       `json:"month"` // first instant of the month, UTC
	Total decimal.Decimal `json:"total"`
}

// DayTotal is one bucket of a dense daily series
type DayTotal struct {
	Day   time.Time       `json:"day"` // midnight UTC
	Total decimal.Decimal `json:"total"`
}

// PositiveNegativeRatio returns the ratio of total inflow to the magnitude of
// total outflow, rounded to 2 decimal places. negativesTotal is the sum of
// outflow amounts and therefore non-positive. ok=false when negativesTotal is
// zero: the ratio is undefined and rendering is the caller's decision.
//
// The denominator magnitude is floored at 1 before dividing. This clamp is
// deliberate: an outflow of a fraction of a currency unit would otherwise
// magnify the ratio into noise.
func PositiveNegativeRatio(positivesTotal, negativesTotal decimal.Decimal) (decimal.Decimal, bool) {
	if negativesTotal.IsZero() {
		return decimal.Decimal{}, false
	}

	denominator := negativesTotal.Neg()
	one := decimal.NewFromInt(1)
	if denominator.LessThan(one) {
		denominator = one
	}
	return positivesTotal.Div(denominator).Round(displayScale), true
}

// SumSigned splits transactions into inflow and outflow totals. Both sums are
// exact; positives is non-negative and negatives non-positive.
func SumSigned(transactions []domain.Transaction) (positives, negatives decimal.Decimal) {
	for _, tx := range transactions {
		if tx.Amount.IsNegative() {
			negatives = negatives.Add(tx.Amount)
		} else {
			positives = positives.Add(tx.Amount)
		}
	}
	return positives, negatives
}

// BalanceBreakdown sums current balances per balance category. The result is
// dense: every category appears, zero when no account maps to it. Accounts
// the provider reported as closed are excluded.
func BalanceBreakdown(accounts []domain.Account) map[domain.BalanceCategory]decimal.Decimal {
	breakdown := make(map[domain.BalanceCategory]decimal.Decimal, len(domain.BalanceCategories))
	for _, category := range domain.BalanceCategories {
		breakdown[category] = decimal.Zero
	}

	for _, account := range accounts {
		if account.Closed {
			continue
		}
		category := BalanceCategoryFor(account.Type, account.Subtype)
		breakdown[category] = breakdown[category].Add(account.CurrentBalance)
	}

	for category, total := range breakdown {
		breakdown[category] = total.Round(displayScale)
	}
	return breakdown
}

// MonthlyTotals sums signed transaction amounts per calendar month (UTC),
// over `months` consecutive months starting at firstMonth's month. The series
// is dense: months without transactions report a zero total, so charting
// downstream never infers missing points.
func MonthlyTotals(transactions []domain.Transaction, firstMonth time.Time, months int) []MonthTotal {
	if months <= 0 {
		return []MonthTotal{}
	}

	first := time.Date(firstMonth.UTC().Year(), firstMonth.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	totals := make([]MonthTotal, months)
	for i := range totals {
		totals[i] = MonthTotal{Month: first.AddDate(0, i, 0), Total: decimal.Zero}
	}

	for _, tx := range transactions {
		date := tx.Date.UTC()
		idx := (date.Year()-first.Year())*12 + int(date.Month()) - int(first.Month())
		if idx < 0 || idx >= months {
			continue
		}
		totals[idx].Total = totals[idx].Total.Add(tx.Amount)
	}

	for i := range totals {
		totals[i].Total = totals[i].Total.Round(displayScale)
	}
	return totals
}

// DailyTotals sums signed transaction amounts per calendar day (UTC) over
// [from, to] inclusive. Dense like MonthlyTotals: silent days report zero.
func DailyTotals(transactions []domain.Transaction, from, to time.Time) []DayTotal {
	first := truncateDay(from)
	last := truncateDay(to)
	if last.Before(first) {
		return []DayTotal{}
	}

	days := int(last.Sub(first).Hours()/24) + 1
	totals := make([]DayTotal, days)
	for i := range totals {
		totals[i] = DayTotal{Day: first.AddDate(0, 0, i), Total: decimal.Zero}
	}

	for _, tx := range transactions {
		day := truncateDay(tx.Date)
		idx := int(day.Sub(first).Hours() / 24)
		if idx < 0 || idx >= days {
			continue
		}
		totals[idx].Total = totals[idx].Total.Add(tx.Amount)
	}

	for i := range totals {
		totals[i].Total = totals[i].Total.Round(displayScale)
	}
	return totals
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
