package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "spendsmart/internal/errors"
	"spendsmart/internal/models"
	"spendsmart/internal/money"
	"spendsmart/internal/period"
)

const (
	recentTransactionsLimit = 10
	uncategorizedName       = "Uncategorized"
	noActiveGoalsName       = "No active goals"
)

// RecentTransaction is one row of the summary's latest-activity list.
type RecentTransaction struct {
	ID        string                 `json:"id"`
	Type      models.TransactionType `json:"type"`
	Amount    float64                `json:"amount"`
	Name      string                 `json:"name"`
	Date      time.Time              `json:"date"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// ClosestGoal is the most advanced goal still open. Only Name is set when the
// user has none.
type ClosestGoal struct {
	ID            string     `json:"id,omitempty"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	TargetAmount  *float64   `json:"target_amount,omitempty"`
	CurrentAmount *float64   `json:"current_amount,omitempty"`
	Progress      *float64   `json:"progress,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
}

// MonthlySummary is the dashboard payload for one month.
type MonthlySummary struct {
	Month              string              `json:"month"`
	TotalBalance       float64             `json:"totalBalance"`
	MonthlyIncome      float64             `json:"monthlyIncome"`
	MonthlyExpense     float64             `json:"monthlyExpense"`
	MonthlySavings     float64             `json:"monthlySavings"`
	TotalSaved         float64             `json:"totalSaved"`
	RecentTransactions []RecentTransaction `json:"recentTransactions"`
	ClosestGoal        ClosestGoal         `json:"closestGoal"`
}

// summaryService aggregates transactions and goals for the dashboard.
type summaryService struct {
	db      *gorm.DB
	spend   SpendAggregator
	periods *period.Calculator
	now     func() time.Time
}

// NewSummaryService creates a new SummaryServicer.
func NewSummaryService(db *gorm.DB, spend SpendAggregator, periods *period.Calculator) SummaryServicer {
	return &summaryService{db: db, spend: spend, periods: periods, now: time.Now}
}

// MonthlySummary builds the summary for month ("YYYY-MM").
func (s *summaryService) MonthlySummary(ctx context.Context, userID, month string) (*MonthlySummary, error) {
	m, err := period.ParseMonth(month)
	if err != nil {
		return nil, apperrors.WithFields(apperrors.ErrInvalidMonth, map[string]string{"month": apperrors.ErrInvalidMonth.Message})
	}
	window := s.periods.MonthWindow(m)

	var (
		monthlyIncome, monthlyExpense decimal.Decimal
		totalIncome, totalExpense     decimal.Decimal
		recent                        []RecentTransaction
		goals                         []models.SavingsGoal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		monthlyIncome, err = s.spend.SumByType(gctx, userID, models.TransactionTypeIncome, &window)
		return err
	})
	g.Go(func() (err error) {
		monthlyExpense, err = s.spend.SumByType(gctx, userID, models.TransactionTypeExpense, &window)
		return err
	})
	g.Go(func() (err error) {
		totalIncome, err = s.spend.SumByType(gctx, userID, models.TransactionTypeIncome, nil)
		return err
	})
	g.Go(func() (err error) {
		totalExpense, err = s.spend.SumByType(gctx, userID, models.TransactionTypeExpense, nil)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.recentTransactions(gctx, userID)
		return err
	})
	g.Go(func() error {
		if err := s.db.WithContext(gctx).
			Where("user_id = ? AND is_deleted = ?", userID, false).
			Order("due_date ASC, created_at ASC").
			Find(&goals).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	saved := decimal.Zero
	for i := range goals {
		saved = saved.Add(goals[i].CurrentAmount)
	}

	return &MonthlySummary{
		Month:              m.String(),
		TotalBalance:       money.ToFloat(totalIncome.Sub(totalExpense)),
		MonthlyIncome:      money.ToFloat(monthlyIncome),
		MonthlyExpense:     money.ToFloat(monthlyExpense),
		MonthlySavings:     money.ToFloat(monthlyIncome.Sub(monthlyExpense)),
		TotalSaved:         money.ToFloat(saved),
		RecentTransactions: recent,
		ClosestGoal:        closestGoal(goals, civilDate(s.now().In(s.periods.Location()))),
	}, nil
}

func (s *summaryService) recentTransactions(ctx context.Context, userID string) ([]RecentTransaction, error) {
	var transactions []models.Transaction
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(recentTransactionsLimit).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	recent := make([]RecentTransaction, 0, len(transactions))
	for _, t := range transactions {
		name := uncategorizedName
		if t.Category != nil {
			name = t.Category.Name
		}
		recent = append(recent, RecentTransaction{
			ID:        t.ID,
			Type:      t.Type,
			Amount:    money.ToFloat(t.Amount),
			Name:      name,
			Date:      t.Date,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		})
	}
	return recent, nil
}

// closestGoal picks the goal due today or later with the highest progress.
// goals must be ordered by due date so ties go to the earliest deadline.
func closestGoal(goals []models.SavingsGoal, today time.Time) ClosestGoal {
	var (
		best         *models.SavingsGoal
		bestProgress decimal.Decimal
	)
	for i := range goals {
		g := &goals[i]
		if g.DueDate.Before(today) {
			continue
		}
		p := money.Percent(g.CurrentAmount, g.TargetAmount)
		if best == nil || p.GreaterThan(bestProgress) {
			best, bestProgress = g, p
		}
	}
	if best == nil {
		return ClosestGoal{Name: noActiveGoalsName}
	}

	target := money.ToFloat(best.TargetAmount)
	current := money.ToFloat(best.CurrentAmount)
	progress := money.Round(bestProgress, 2)
	due := best.DueDate
	return ClosestGoal{
		ID:            best.ID,
		Name:          best.Name,
		Description:   best.Description,
		TargetAmount:  &target,
		CurrentAmount: &current,
		Progress:      &progress,
		DueDate:       &due,
	}
}
