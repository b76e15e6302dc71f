package services

import (
	"context"
	"testing"
	"time"

	"spendsmart/internal/models"
	"spendsmart/internal/period"
	"spendsmart/internal/testutil"
)

func TestSumExpenses(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	agg := NewSpendAggregator(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	food := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)
	rent := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

	expense := models.TransactionTypeExpense
	start := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	end := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	testutil.CreateTestTransaction(t, db, user.ID, &food.ID, expense, "0.10", start)
	testutil.CreateTestTransaction(t, db, user.ID, &food.ID, expense, "0.20", end.Add(-time.Second))
	testutil.CreateTestTransaction(t, db, user.ID, &food.ID, expense, "1000", start.Add(-time.Second))
	testutil.CreateTestTransaction(t, db, user.ID, &food.ID, expense, "1000", end)
	testutil.CreateTestTransaction(t, db, user.ID, &rent.ID, expense, "1000", start)
	testutil.CreateTestTransaction(t, db, other.ID, &food.ID, expense, "1000", start)
	testutil.CreateTestTransaction(t, db, user.ID, &food.ID, models.TransactionTypeIncome, "1000", start)

	sum, err := agg.SumExpenses(ctx, user.ID, food.ID, period.Window{Start: start, End: end})
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, sum, "0.3")

	empty, err := agg.SumExpenses(ctx, user.ID, food.ID, period.Window{Start: end.AddDate(0, 1, 0), End: end.AddDate(0, 2, 0)})
	testutil.AssertNoError(t, err)
	if !empty.IsZero() {
		t.Errorf("expected zero for empty window, got %s", empty)
	}
}

func TestSumByType(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	agg := NewSpendAggregator(db)
	user := testutil.CreateTestUser(t, db)

	income := models.TransactionTypeIncome
	testutil.CreateTestTransaction(t, db, user.ID, nil, income, "100", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	testutil.CreateTestTransaction(t, db, user.ID, nil, income, "50.5", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	all, err := agg.SumByType(ctx, user.ID, income, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, all, "150.50")

	w := period.NewCalculator(time.UTC).MonthWindow(period.Month{Year: 2024, Month: time.June})
	june, err := agg.SumByType(ctx, user.ID, income, &w)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, june, "50.5")
}
