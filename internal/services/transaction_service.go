package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"spendsmart/internal/alerts"
	apperrors "spendsmart/internal/errors"
	"spendsmart/internal/models"
	"spendsmart/internal/pagination"
	"spendsmart/internal/period"
)

const maxDescriptionLength = 250

var minTransactionAmount = decimal.RequireFromString("0.01")

// transactionService handles transaction-related business logic.
type transactionService struct {
	db         *gorm.DB
	categories CategoryServicer
	dispatcher alerts.Dispatcher
	periods    *period.Calculator
	now        func() time.Time
}

// NewTransactionService creates a new TransactionServicer. Committed expense
// writes with a category are handed to dispatcher for a budget check.
func NewTransactionService(db *gorm.DB, categories CategoryServicer, dispatcher alerts.Dispatcher, periods *period.Calculator) TransactionServicer {
	return &transactionService{
		db:         db,
		categories: categories,
		dispatcher: dispatcher,
		periods:    periods,
		now:        time.Now,
	}
}

// CreateTransaction records a new income or expense.
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error) {
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	if err := s.validate(in.Type, in.Amount, in.Date, in.Description); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID, in.Type); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		UserID:      userID,
		Type:        in.Type,
		Amount:      in.Amount.Round(2),
		Date:        in.Date.UTC(),
		CategoryID:  in.CategoryID,
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.dispatchBudgetCheck(ctx, transaction)
	return transaction, nil
}

// UpdateTransaction applies upd to an existing transaction.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, upd TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	if upd.Type != nil {
		transaction.Type = *upd.Type
	}
	if upd.Amount != nil {
		transaction.Amount = *upd.Amount
	}
	if upd.Date != nil {
		transaction.Date = *upd.Date
	}
	if upd.Description != nil {
		transaction.Description = strings.TrimSpace(*upd.Description)
	}
	switch {
	case upd.ClearCategory:
		transaction.CategoryID = nil
	case upd.CategoryID != nil:
		transaction.CategoryID = upd.CategoryID
	}

	if err := s.validate(transaction.Type, transaction.Amount, transaction.Date, transaction.Description); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, transaction.CategoryID, transaction.Type); err != nil {
		return nil, err
	}

	transaction.Amount = transaction.Amount.Round(2)
	transaction.Date = transaction.Date.UTC()
	transaction.Category = nil

	err = s.db.WithContext(ctx).Model(transaction).Select("type", "amount", "date", "category_id", "description", "updated_at").
		Updates(transaction).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.dispatchBudgetCheck(ctx, transaction)
	return transaction, nil
}

func (s *transactionService) validate(t models.TransactionType, amount decimal.Decimal, date time.Time, description string) error {
	fields := map[string]string{}
	if t != models.TransactionTypeIncome && t != models.TransactionTypeExpense {
		return apperrors.WithFields(apperrors.ErrInvalidTransactionType, map[string]string{"type": "must be income or expense"})
	}
	if amount.LessThan(minTransactionAmount) {
		fields["amount"] = "must be at least 0.01"
	}
	if utf8.RuneCountInString(strings.TrimSpace(description)) > maxDescriptionLength {
		fields["description"] = "must be at most 250 characters"
	}
	if len(fields) > 0 {
		return apperrors.WithFields(apperrors.ErrInvalidInput, fields)
	}
	if date.After(s.now()) {
		return apperrors.WithFields(apperrors.ErrFutureTransactionDate, map[string]string{"date": "cannot be in the future"})
	}
	return nil
}

func (s *transactionService) checkCategory(ctx context.Context, categoryID *string, t models.TransactionType) error {
	if categoryID == nil {
		return nil
	}
	category, err := s.categories.GetCategoryByID(ctx, *categoryID)
	if err != nil {
		return err
	}
	if string(category.AppliesTo) != string(t) {
		return apperrors.ErrCategoryTypeMismatch
	}
	return nil
}

func (s *transactionService) dispatchBudgetCheck(ctx context.Context, transaction *models.Transaction) {
	if transaction.Type != models.TransactionTypeExpense || transaction.CategoryID == nil {
		return
	}
	s.dispatcher.Dispatch(ctx, alerts.Request{
		UserID:        transaction.UserID,
		CategoryID:    *transaction.CategoryID,
		Month:         s.periods.MonthOf(transaction.Date).String(),
		TransactionID: transaction.ID,
	})
}

// GetUserTransactions retrieves a paginated, filtered list of the user's transactions.
func (s *transactionService) GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Preload("Category").
		Scopes(pagination.Paginate(page)).
		Order("date DESC, created_at DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", f.ToDate.UTC())
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.WithContext(ctx).Preload("Category").
		Where("id = ? AND user_id = ?", transactionID, userID).
		First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// DeleteTransaction permanently removes a transaction.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", transactionID, userID).Delete(&models.Transaction{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}
