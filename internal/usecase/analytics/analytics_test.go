package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/ledgerlink-backend/internal/domain"
)

func TestBalanceCategoryFor(t *testing.T) {
	tests := []struct {
		name        string
		accountType domain.AccountType
		subtype     string
		expected    domain.BalanceCategory
	}{
		{"depository is cash", domain.AccountTypeDepository, "", domain.BalanceCategoryCash},
		{"depository ignores subtype", domain.AccountTypeDepository, "credit_card", domain.BalanceCategoryCash},
		{"credit", domain.AccountTypeCredit, "", domain.BalanceCategoryCredit},
		{"loan", domain.AccountTypeLoan, "", domain.BalanceCategoryLoan},
		{"investment", domain.AccountTypeInvestment, "", domain.BalanceCategoryInvestments},
		{"other with checking subtype", domain.AccountTypeOther, "checking", domain.BalanceCategoryCash},
		{"other with savings subtype", domain.AccountTypeOther, "savings", domain.BalanceCategoryCash},
		{"other with credit card subtype", domain.AccountTypeOther, "credit_card", domain.BalanceCategoryCredit},
		{"other with student loan subtype", domain.AccountTypeOther, "student_loan", domain.BalanceCategoryLoan},
		{"other with mortgage subtype", domain.AccountTypeOther, "mortgage", domain.BalanceCategoryLoan},
		{"other with brokerage subtype", domain.AccountTypeOther, "brokerage", domain.BalanceCategoryInvestments},
		{"unrecognized type and subtype", domain.AccountTypeOther, "mystery", domain.BalanceCategoryOther},
		{"empty subtype", domain.AccountTypeOther, "", domain.BalanceCategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BalanceCategoryFor(tt.accountType, tt.subtype))
		})
	}
}

func TestPositiveNegativeRatio(t *testing.T) {
	t.Run("standard ratio", func(t *testing.T) {
		ratio, ok := PositiveNegativeRatio(decimal.NewFromInt(600), decimal.NewFromInt(-200))
		require.True(t, ok)
		assert.True(t, ratio.Equal(decimal.RequireFromString("3")), "got %s", ratio)
		assert.Equal(t, "3.00", ratio.StringFixed(2))
	})

	t.Run("zero outflow is undefined", func(t *testing.T) {
		_, ok := PositiveNegativeRatio(decimal.RequireFromString("1234.56"), decimal.Zero)
		assert.False(t, ok)
	})

	t.Run("denominator already at clamp boundary", func(t *testing.T) {
		ratio, ok := PositiveNegativeRatio(decimal.NewFromInt(10), decimal.NewFromInt(-1))
		require.True(t, ok)
		assert.Equal(t, "10.00", ratio.StringFixed(2))
	})

	t.Run("sub-unit outflow is clamped to one", func(t *testing.T) {
		ratio, ok := PositiveNegativeRatio(decimal.NewFromInt(10), decimal.RequireFromString("-0.5"))
		require.True(t, ok)
		assert.Equal(t, "10.00", ratio.StringFixed(2))
	})

	t.Run("rounds half away from zero", func(t *testing.T) {
		// 100 / 32 = 3.125 -> 3.13
		ratio, ok := PositiveNegativeRatio(decimal.NewFromInt(100), decimal.NewFromInt(-32))
		require.True(t, ok)
		assert.Equal(t, "3.13", ratio.StringFixed(2))
	})
}

func TestSumSigned(t *testing.T) {
	transactions := []domain.Transaction{
		{Amount: decimal.RequireFromString("100.25")},
		{Amount: decimal.RequireFromString("-40.10")},
		{Amount: decimal.RequireFromString("0.75")},
		{Amount: decimal.RequireFromString("-9.90")},
		{Amount: decimal.Zero},
	}

	positives, negatives := SumSigned(transactions)
	assert.Equal(t, "101.00", positives.StringFixed(2))
	assert.Equal(t, "-50.00", negatives.StringFixed(2))
}

func TestBalanceBreakdown(t *testing.T) {
	accounts := []domain.Account{
		{Type: domain.AccountTypeDepository, CurrentBalance: decimal.RequireFromString("1500.50")},
		{Type: domain.AccountTypeDepository, CurrentBalance: decimal.RequireFromString("499.50")},
		{Type: domain.AccountTypeCredit, CurrentBalance: decimal.RequireFromString("-320.00")},
		{Type: domain.AccountTypeOther, Subtype: "student_loan", CurrentBalance: decimal.NewFromInt(12000)},
		{Type: domain.AccountTypeDepository, CurrentBalance: decimal.NewFromInt(999), Closed: true},
	}

	breakdown := BalanceBreakdown(accounts)

	// Dense output: every category present, zero when unused
	require.Len(t, breakdown, len(domain.BalanceCategories))
	assert.Equal(t, "2000.00", breakdown[domain.BalanceCategoryCash].StringFixed(2))
	assert.Equal(t, "-320.00", breakdown[domain.BalanceCategoryCredit].StringFixed(2))
	assert.Equal(t, "12000.00", breakdown[domain.BalanceCategoryLoan].StringFixed(2))
	assert.Equal(t, "0.00", breakdown[domain.BalanceCategoryInvestments].StringFixed(2))
	assert.Equal(t, "0.00", breakdown[domain.BalanceCategoryOther].StringFixed(2))
}

func TestMonthlyTotals_DenseSeries(t *testing.T) {
	first := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC) // any time in the month works
	transactions := []domain.Transaction{
		{Amount: decimal.NewFromInt(100), Date: time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC)},
		{Amount: decimal.NewFromInt(-30), Date: time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC)},
		// February has no transactions
		{Amount: decimal.NewFromInt(-25), Date: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)},
		// Outside the window, ignored
		{Amount: decimal.NewFromInt(999), Date: time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)},
		{Amount: decimal.NewFromInt(999), Date: time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)},
	}

	totals := MonthlyTotals(transactions, first, 3)

	require.Len(t, totals, 3)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), totals[0].Month)
	assert.Equal(t, "70.00", totals[0].Total.StringFixed(2))
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), totals[1].Month)
	assert.Equal(t, "0.00", totals[1].Total.StringFixed(2), "empty month must report a zero bucket, not be absent")
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), totals[2].Month)
	assert.Equal(t, "-25.00", totals[2].Total.StringFixed(2))
}

func TestMonthlyTotals_YearBoundary(t *testing.T) {
	first := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)
	transactions := []domain.Transaction{
		{Amount: decimal.NewFromInt(10), Date: time.Date(2025, time.December, 12, 0, 0, 0, 0, time.UTC)},
		{Amount: decimal.NewFromInt(20), Date: time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)},
	}

	totals := MonthlyTotals(transactions, first, 3)

	require.Len(t, totals, 3)
	assert.Equal(t, "0.00", totals[0].Total.StringFixed(2))
	assert.Equal(t, "10.00", totals[1].Total.StringFixed(2))
	assert.Equal(t, "20.00", totals[2].Total.StringFixed(2))
}

func TestMonthlyTotals_NoMonths(t *testing.T) {
	assert.Empty(t, MonthlyTotals(nil, time.Now(), 0))
}

func TestDailyTotals_DenseSeries(t *testing.T) {
	from := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.August, 4, 0, 0, 0, 0, time.UTC)
	transactions := []domain.Transaction{
		{Amount: decimal.RequireFromString("-12.34"), Date: time.Date(2026, time.August, 1, 8, 30, 0, 0, time.UTC)},
		{Amount: decimal.RequireFromString("-7.66"), Date: time.Date(2026, time.August, 1, 19, 0, 0, 0, time.UTC)},
		{Amount: decimal.NewFromInt(50), Date: time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)},
	}

	totals := DailyTotals(transactions, from, to)

	require.Len(t, totals, 4)
	assert.Equal(t, "-20.00", totals[0].Total.StringFixed(2))
	assert.Equal(t, "0.00", totals[1].Total.StringFixed(2))
	assert.Equal(t, "50.00", totals[2].Total.StringFixed(2))
	assert.Equal(t, "0.00", totals[3].Total.StringFixed(2))
}

func TestDailyTotals_InvertedRange(t *testing.T) {
	from := time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	assert.Empty(t, DailyTotals(nil, from, to))
}
