package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "spendsmart/internal/errors"
	"spendsmart/internal/models"
	"spendsmart/internal/money"
)

const (
	minGoalNameLength = 3
	maxGoalNameLength = 60

	// SavingsContributionDescription labels the expense recorded for each contribution.
	SavingsContributionDescription = "savings goal contribution"
)

var goalNamePattern = regexp.MustCompile(`^[a-zA-Z0-9áéíóúüñÑ\s'-]+$`)

// savingsGoalService handles savings goal business logic.
type savingsGoalService struct {
	db           *gorm.DB
	categories   CategoryServicer
	transactions TransactionServicer
	loc          *time.Location
	now          func() time.Time
}

// NewSavingsGoalService creates a new SavingsGoalServicer. Due dates are
// compared against today's date in loc.
func NewSavingsGoalService(db *gorm.DB, categories CategoryServicer, transactions TransactionServicer, loc *time.Location) SavingsGoalServicer {
	if loc == nil {
		loc = time.UTC
	}
	return &savingsGoalService{
		db:           db,
		categories:   categories,
		transactions: transactions,
		loc:          loc,
		now:          time.Now,
	}
}

func (s *savingsGoalService) today() time.Time {
	return s.now().In(s.loc)
}

// CreateGoal creates a goal with nothing saved yet.
func (s *savingsGoalService) CreateGoal(ctx context.Context, userID string, in SavingsGoalInput) (*models.SavingsGoal, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)

	fields := map[string]string{}
	validateGoalName(name, fields)
	validateGoalDescription(description, fields)
	validateGoalTarget(in.TargetAmount, fields)
	if len(fields) > 0 {
		return nil, apperrors.WithFields(apperrors.ErrInvalidInput, fields)
	}
	due := civilDate(in.DueDate)
	if err := s.validateDueDate(due); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := ensureUniqueGoalName(db, userID, name, ""); err != nil {
		return nil, err
	}

	goal := &models.SavingsGoal{
		UserID:        userID,
		Name:          name,
		Description:   description,
		TargetAmount:  in.TargetAmount.Round(2),
		CurrentAmount: decimal.Zero,
		DueDate:       due,
	}
	if err := db.Create(goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

func validateGoalName(name string, fields map[string]string) {
	n := utf8.RuneCountInString(name)
	switch {
	case n < minGoalNameLength:
		fields["name"] = "must be at least 3 characters"
	case n > maxGoalNameLength:
		fields["name"] = "must be at most 60 characters"
	case !goalNamePattern.MatchString(name):
		fields["name"] = "contains invalid characters"
	}
}

func validateGoalDescription(description string, fields map[string]string) {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		fields["description"] = "must be at most 250 characters"
	}
}

func validateGoalTarget(target decimal.Decimal, fields map[string]string) {
	if target.LessThan(minTransactionAmount) {
		fields["target_amount"] = "must be greater than 0"
	}
}

func (s *savingsGoalService) validateDueDate(due time.Time) error {
	if !due.After(civilDate(s.today())) {
		return apperrors.WithFields(apperrors.ErrInvalidDueDate, map[string]string{"due_date": "must be after today"})
	}
	return nil
}

func ensureUniqueGoalName(db *gorm.DB, userID, name, excludeID string) error {
	query := db.Model(&models.SavingsGoal{}).
		Where("user_id = ? AND name = ? AND is_deleted = ?", userID, name, false)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateGoalName
	}
	return nil
}

// ListGoals returns the user's goals with status, progress and monthly quota.
func (s *savingsGoalService) ListGoals(ctx context.Context, userID string) ([]SavingsGoalView, error) {
	var goals []models.SavingsGoal
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Order("due_date ASC, created_at ASC").
		Find(&goals).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	today := s.today()
	views := make([]SavingsGoalView, 0, len(goals))
	for i := range goals {
		views = append(views, goalView(&goals[i], today))
	}
	return views, nil
}

func goalView(g *models.SavingsGoal, today time.Time) SavingsGoalView {
	return SavingsGoalView{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		TargetAmount:  money.ToFloat(g.TargetAmount),
		CurrentAmount: money.ToFloat(g.CurrentAmount),
		DueDate:       g.DueDate,
		Status:        GoalStatus(g.DueDate, today),
		Progress:      money.ToFloat(GoalProgress(g.TargetAmount, g.CurrentAmount)),
		MonthlyQuota:  money.ToFloat(MonthlyQuota(g.TargetAmount, g.CurrentAmount, g.DueDate, today)),
		CreatedAt:     g.CreatedAt,
	}
}

// UpdateGoal applies upd under the same rules as CreateGoal. Lowering the target
// below the saved amount caps the saved amount at the new target.
func (s *savingsGoalService) UpdateGoal(ctx context.Context, userID, goalID string, upd SavingsGoalUpdate) (*models.SavingsGoal, error) {
	db := s.db.WithContext(ctx)

	var goal models.SavingsGoal
	if err := findLiveGoal(db, userID, goalID, &goal); err != nil {
		return nil, err
	}

	fields := map[string]string{}
	if upd.Name != nil {
		goal.Name = strings.TrimSpace(*upd.Name)
		validateGoalName(goal.Name, fields)
	}
	if upd.Description != nil {
		goal.Description = strings.TrimSpace(*upd.Description)
		validateGoalDescription(goal.Description, fields)
	}
	if upd.TargetAmount != nil {
		goal.TargetAmount = upd.TargetAmount.Round(2)
		validateGoalTarget(goal.TargetAmount, fields)
	}
	if len(fields) > 0 {
		return nil, apperrors.WithFields(apperrors.ErrInvalidInput, fields)
	}
	if upd.DueDate != nil {
		goal.DueDate = civilDate(*upd.DueDate)
		if err := s.validateDueDate(goal.DueDate); err != nil {
			return nil, err
		}
	}
	if upd.Name != nil {
		if err := ensureUniqueGoalName(db, userID, goal.Name, goal.ID); err != nil {
			return nil, err
		}
	}
	if goal.CurrentAmount.GreaterThan(goal.TargetAmount) {
		goal.CurrentAmount = goal.TargetAmount
	}

	err := db.Model(&goal).
		Select("name", "description", "target_amount", "current_amount", "due_date", "updated_at").
		Updates(&goal).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &goal, nil
}

// DeleteGoal soft-deletes a goal.
func (s *savingsGoalService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	result := s.db.WithContext(ctx).Model(&models.SavingsGoal{}).
		Where("id = ? AND user_id = ? AND is_deleted = ?", goalID, userID, false).
		Update("is_deleted", true)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrGoalNotFound
	}
	return nil
}

// AddMoney records amount as an expense in the "Other" category and credits it
// to the goal, never past the target. When the expense cannot be recorded the
// goal is left untouched and the transaction error is returned as is.
func (s *savingsGoalService) AddMoney(ctx context.Context, userID, goalID string, amount decimal.Decimal) (*AddMoneyResult, error) {
	if !amount.IsPositive() {
		return nil, apperrors.WithFields(apperrors.ErrInvalidAmount, map[string]string{"amount": "must be greater than zero"})
	}

	db := s.db.WithContext(ctx)

	var goal models.SavingsGoal
	if err := findLiveGoal(db, userID, goalID, &goal); err != nil {
		return nil, err
	}

	category, err := s.categories.GetOrCreateCategory(ctx, OtherExpenseCategory, models.CategoryTypeExpense)
	if err != nil {
		return nil, err
	}

	if _, err := s.transactions.CreateTransaction(ctx, userID, TransactionInput{
		Type:        models.TransactionTypeExpense,
		Amount:      amount,
		Date:        s.now(),
		CategoryID:  &category.ID,
		Description: SavingsContributionDescription,
	}); err != nil {
		return nil, err
	}

	amount = amount.Round(2)
	err = db.Model(&models.SavingsGoal{}).
		Where("id = ? AND user_id = ?", goal.ID, userID).
		Update("current_amount", gorm.Expr(
			"CASE WHEN current_amount + ? > target_amount THEN target_amount ELSE current_amount + ? END",
			amount, amount,
		)).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := db.Where("id = ?", goal.ID).First(&goal).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	goal.CurrentAmount = goal.CurrentAmount.Round(2)

	return &AddMoneyResult{
		ID:            goal.ID,
		Name:          goal.Name,
		CurrentAmount: money.ToFloat(goal.CurrentAmount),
		TargetAmount:  money.ToFloat(goal.TargetAmount),
		Completed:     goal.CurrentAmount.GreaterThanOrEqual(goal.TargetAmount),
	}, nil
}

func findLiveGoal(db *gorm.DB, userID, goalID string, dest *models.SavingsGoal) error {
	err := db.Where("id = ? AND user_id = ? AND is_deleted = ?", goalID, userID, false).First(dest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrGoalNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
