package services

import (
	"github.com/shopspring/decimal"

	"spendsmart/internal/models"
	"spendsmart/internal/money"
)

// EvaluateBudget derives the display figures for budget given its spend.
// percent_used is rounded to one decimal and alert compares against that value.
func EvaluateBudget(budget *models.Budget, categoryName string, spent decimal.Decimal) BudgetView {
	percent := money.Percent(spent, budget.Limit).Round(1)
	threshold := decimal.NewFromInt(int64(budget.Threshold))

	return BudgetView{
		ID:          budget.ID,
		CategoryID:  budget.CategoryID,
		Category:    categoryName,
		Month:       budget.Month,
		Limit:       money.ToFloat(budget.Limit),
		Threshold:   budget.Threshold,
		IsActive:    budget.IsActive,
		Spent:       money.ToFloat(spent),
		Available:   money.ToFloat(budget.Limit.Sub(spent)),
		PercentUsed: money.ToFloat(percent),
		Alert:       budget.IsActive && threshold.LessThanOrEqual(percent),
	}
}
