package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "spendsmart/internal/errors"
	"spendsmart/internal/lock"
	"spendsmart/internal/models"
	"spendsmart/internal/period"
)

const (
	budgetListLimit       = models.MaxActiveBudgets
	budgetEnrichmentLimit = 4
)

var minBudgetLimit = decimal.RequireFromString("0.01")

// budgetService handles budget-related business logic.
type budgetService struct {
	db         *gorm.DB
	categories CategoryServicer
	spend      SpendAggregator
	periods    *period.Calculator
	locker     lock.Locker
}

// NewBudgetService creates a new BudgetServicer. The locker serializes the
// active-budget cap check with the upsert that follows it.
func NewBudgetService(db *gorm.DB, categories CategoryServicer, spend SpendAggregator, periods *period.Calculator, locker lock.Locker) BudgetServicer {
	return &budgetService{
		db:         db,
		categories: categories,
		spend:      spend,
		periods:    periods,
		locker:     locker,
	}
}

func budgetCapKey(userID string) string {
	return "budget-cap:" + userID
}

// CreateBudget upserts the budget for (user, category, month). An existing row,
// even a deleted or inactive one, is overwritten and reactivated and keeps its
// original creation time.
func (s *budgetService) CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error) {
	if _, err := period.ParseMonth(in.Month); err != nil {
		return nil, apperrors.WithFields(apperrors.ErrInvalidMonth, map[string]string{"month": apperrors.ErrInvalidMonth.Message})
	}
	if in.Limit.LessThan(minBudgetLimit) {
		return nil, apperrors.InvalidField("limit", "limit must be at least 0.01")
	}
	if in.Threshold < 0 || in.Threshold > 100 {
		return nil, apperrors.InvalidField("threshold", "threshold must be between 0 and 100")
	}
	if _, err := s.categories.GetCategoryByID(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	var budget models.Budget
	err := s.locker.WithLock(ctx, budgetCapKey(userID), func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := checkBudgetCap(tx, userID); err != nil {
				return err
			}

			candidate := models.Budget{
				UserID:     userID,
				CategoryID: in.CategoryID,
				Month:      in.Month,
				Limit:      in.Limit.Round(2),
				Threshold:  in.Threshold,
				IsActive:   true,
				IsDeleted:  false,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "category_id"}, {Name: "month"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"limit_amount", "threshold", "is_active", "is_deleted", "updated_at",
				}),
			}).Create(&candidate).Error
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}

			if err := tx.Where("user_id = ? AND category_id = ? AND month = ?", userID, in.CategoryID, in.Month).
				First(&budget).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, lockError(err)
	}

	return &budget, nil
}

func checkBudgetCap(tx *gorm.DB, userID string) error {
	var active int64
	if err := tx.Model(&models.Budget{}).
		Where("user_id = ? AND is_active = ? AND is_deleted = ?", userID, true, false).
		Count(&active).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if active >= models.MaxActiveBudgets {
		return apperrors.ErrBudgetLimitReached
	}
	return nil
}

func lockError(err error) error {
	if errors.Is(err, lock.ErrNotObtained) {
		return apperrors.Wrap(apperrors.ErrBudgetBusy, err)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// ListBudgets returns the newest active budgets enriched with their spend.
// Each budget's window is anchored at its own creation time.
func (s *budgetService) ListBudgets(ctx context.Context, userID string) ([]BudgetView, error) {
	var budgets []models.Budget
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ? AND is_active = ? AND is_deleted = ?", userID, true, false).
		Order("created_at DESC, id DESC").
		Limit(budgetListLimit).
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for i := range budgets {
		if budgets[i].Category == nil {
			return nil, apperrors.Wrap(apperrors.ErrInvalidCategoryRef,
				fmt.Errorf("budget %s references missing category %s", budgets[i].ID, budgets[i].CategoryID))
		}
	}

	views := make([]BudgetView, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(budgetEnrichmentLimit)
	for i := range budgets {
		i := i
		b := &budgets[i]
		g.Go(func() error {
			month, err := period.ParseMonth(b.Month)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, fmt.Errorf("budget %s has invalid month %q", b.ID, b.Month))
			}
			anchor := b.CreatedAt
			spent, err := s.spend.SumExpenses(gctx, userID, b.CategoryID, s.periods.Window(month, &anchor))
			if err != nil {
				return err
			}
			views[i] = EvaluateBudget(b, b.Category.Name, spent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return views, nil
}

// ToggleBudget flips the active flag. Activation counts against the active cap.
func (s *budgetService) ToggleBudget(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	err := s.locker.WithLock(ctx, budgetCapKey(userID), func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := findLiveBudget(tx, userID, budgetID, &budget); err != nil {
				return err
			}
			if !budget.IsActive {
				if err := checkBudgetCap(tx, userID); err != nil {
					return err
				}
			}
			budget.IsActive = !budget.IsActive
			if err := tx.Model(&budget).Update("is_active", budget.IsActive).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, lockError(err)
	}
	return &budget, nil
}

// DeleteBudget soft-deletes a budget and forces it inactive.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	var budget models.Budget
	db := s.db.WithContext(ctx)
	if err := findLiveBudget(db, userID, budgetID, &budget); err != nil {
		return err
	}
	if err := db.Model(&budget).Updates(map[string]any{"is_deleted": true, "is_active": false}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func findLiveBudget(db *gorm.DB, userID, budgetID string, dest *models.Budget) error {
	err := db.Where("id = ? AND user_id = ? AND is_deleted = ?", budgetID, userID, false).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrBudgetNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
