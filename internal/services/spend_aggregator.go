package services

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "spendsmart/internal/errors"
	"spendsmart/internal/models"
	"spendsmart/internal/money"
	"spendsmart/internal/period"
)

// spendAggregator sums transaction amounts in Go rather than with SQL SUM:
// SQLite's SUM over NUMERIC columns returns a float, postgres returns numeric,
// and plucking decimals keeps both exact.
type spendAggregator struct {
	db *gorm.DB
}

// NewSpendAggregator creates a new SpendAggregator.
func NewSpendAggregator(db *gorm.DB) SpendAggregator {
	return &spendAggregator{db: db}
}

// SumExpenses totals expense transactions of categoryID with start <= date < end.
func (a *spendAggregator) SumExpenses(ctx context.Context, userID, categoryID string, w period.Window) (decimal.Decimal, error) {
	query := a.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND category_id = ? AND type = ?", userID, categoryID, models.TransactionTypeExpense).
		Where("date >= ? AND date < ?", w.Start.UTC(), w.End.UTC())
	return a.sum(query)
}

// SumByType totals transactions of type t for the user, all-time when w is nil.
func (a *spendAggregator) SumByType(ctx context.Context, userID string, t models.TransactionType, w *period.Window) (decimal.Decimal, error) {
	query := a.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("user_id = ? AND type = ?", userID, t)
	if w != nil {
		query = query.Where("date >= ? AND date < ?", w.Start.UTC(), w.End.UTC())
	}
	return a.sum(query)
}

func (a *spendAggregator) sum(query *gorm.DB) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	if err := query.Pluck("amount", &amounts).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return money.Sum(amounts), nil
}
