package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "spendsmart/internal/errors"
	"spendsmart/internal/logger"
	"spendsmart/internal/mailer"
	"spendsmart/internal/models"
	"spendsmart/internal/money"
	"spendsmart/internal/period"
)

const fallbackCategoryName = "Category"

// budgetAlertService re-evaluates a budget after a transaction write.
type budgetAlertService struct {
	db      *gorm.DB
	spend   SpendAggregator
	periods *period.Calculator
	sender  mailer.Sender
}

// NewBudgetAlertService creates a new BudgetAlerter.
func NewBudgetAlertService(db *gorm.DB, spend SpendAggregator, periods *period.Calculator, sender mailer.Sender) BudgetAlerter {
	return &budgetAlertService{
		db:      db,
		spend:   spend,
		periods: periods,
		sender:  sender,
	}
}

// CheckBudgetAlert emails the budget owner when spend for month has reached the
// threshold. A missing budget, a missing address or an opted-out user is not an
// error. Delivery failures are logged and dropped.
func (s *budgetAlertService) CheckBudgetAlert(ctx context.Context, userID, categoryID, month string) error {
	m, err := period.ParseMonth(month)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidMonth, err)
	}

	db := s.db.WithContext(ctx)

	var budget models.Budget
	err = db.Preload("Category").
		Where("user_id = ? AND category_id = ? AND month = ? AND is_active = ? AND is_deleted = ?",
			userID, categoryID, month, true, false).
		First(&budget).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	anchor := budget.CreatedAt
	spent, err := s.spend.SumExpenses(ctx, userID, categoryID, s.periods.Window(m, &anchor))
	if err != nil {
		return err
	}

	percent := money.Percent(spent, budget.Limit)
	if percent.LessThan(decimal.NewFromInt(int64(budget.Threshold))) {
		return nil
	}

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if user.Email == "" || !user.AlertsEnabled {
		return nil
	}

	categoryName := fallbackCategoryName
	if budget.Category != nil && budget.Category.Name != "" {
		categoryName = budget.Category.Name
	}

	msg, err := mailer.RenderBudgetAlert(user.Email, mailer.BudgetAlert{
		CategoryName: categoryName,
		Month:        month,
		Percent:      money.Format(percent, 1),
		Limit:        money.Format(budget.Limit, 2),
		Spent:        money.Format(spent, 2),
	})
	if err != nil {
		logger.Get().Errorw("failed to render budget alert", "error", err, "budget_id", budget.ID)
		return nil
	}

	receipt, err := s.sender.Send(ctx, msg)
	if err != nil {
		logger.Get().Errorw("failed to send budget alert",
			"error", err,
			"user_id", userID,
			"budget_id", budget.ID,
			"month", month,
		)
		return nil
	}

	accepted := 0
	if receipt != nil {
		accepted = len(receipt.Accepted)
	}
	logger.Get().Infow("budget alert sent",
		"user_id", userID,
		"budget_id", budget.ID,
		"month", month,
		"percent", money.Format(percent, 1),
		"accepted", accepted,
	)
	return nil
}
