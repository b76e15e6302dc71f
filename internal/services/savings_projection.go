package services

import (
	"time"

	"github.com/shopspring/decimal"

	"spendsmart/internal/money"
)

// Goal statuses.
const (
	GoalStatusActive  = "active"
	GoalStatusOverdue = "overdue"
)

// MonthlyQuota is the amount to save each month, including the current one, to
// reach target by due. Both dates are compared by calendar month only.
func MonthlyQuota(target, current decimal.Decimal, due, now time.Time) decimal.Decimal {
	remaining := target.Sub(current)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	diff := (due.Year()-now.Year())*12 + int(due.Month()) - int(now.Month())
	if diff <= 0 {
		return remaining.Round(2)
	}
	return remaining.Div(decimal.NewFromInt(int64(diff + 1))).Round(2)
}

// GoalProgress is current/target as a percentage capped at 100.
func GoalProgress(target, current decimal.Decimal) decimal.Decimal {
	return money.CappedPercent(current, target).Round(2)
}

// GoalStatus reports "overdue" once today's date is past the due date. due is a
// civil date; today is read as a calendar date in its own location.
func GoalStatus(due, today time.Time) string {
	if civilDate(today).After(civilDate(due)) {
		return GoalStatusOverdue
	}
	return GoalStatusActive
}

// civilDate drops the clock part of t, keeping its calendar date.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
