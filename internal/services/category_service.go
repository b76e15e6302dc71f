package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "spendsmart/internal/errors"
	"spendsmart/internal/logger"
	"spendsmart/internal/models"
)

// OtherExpenseCategory receives synthetic savings contributions.
const OtherExpenseCategory = "Other"

// DefaultCategories is the registry bootstrapped into an empty database.
var DefaultCategories = []models.Category{
	{Name: "Food", AppliesTo: models.CategoryTypeExpense},
	{Name: "Entertainment", AppliesTo: models.CategoryTypeExpense},
	{Name: "Dining Out", AppliesTo: models.CategoryTypeExpense},
	{Name: "Housing", AppliesTo: models.CategoryTypeExpense},
	{Name: "Transport", AppliesTo: models.CategoryTypeExpense},
	{Name: "Health", AppliesTo: models.CategoryTypeExpense},
	{Name: "Education", AppliesTo: models.CategoryTypeExpense},
	{Name: OtherExpenseCategory, AppliesTo: models.CategoryTypeExpense},
	{Name: "Salary", AppliesTo: models.CategoryTypeIncome},
	{Name: "Freelance", AppliesTo: models.CategoryTypeIncome},
	{Name: "Investments", AppliesTo: models.CategoryTypeIncome},
	{Name: "Sales", AppliesTo: models.CategoryTypeIncome},
	{Name: "Other Income", AppliesTo: models.CategoryTypeIncome},
}

// categoryService handles the global category registry.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// ListCategories returns categories sorted by name, optionally filtered by type.
func (s *categoryService) ListCategories(ctx context.Context, appliesTo *models.CategoryType) ([]models.Category, error) {
	query := s.db.WithContext(ctx).Model(&models.Category{})
	if appliesTo != nil {
		query = query.Where("applies_to = ?", *appliesTo)
	}

	var categories []models.Category
	if err := query.Order("name ASC").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategoryByID resolves a category id.
func (s *categoryService) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// GetOrCreateCategory returns the category with name, creating it when missing.
// Concurrent creators converge on the same row through the unique name index.
func (s *categoryService) GetOrCreateCategory(ctx context.Context, name string, appliesTo models.CategoryType) (*models.Category, error) {
	db := s.db.WithContext(ctx)

	var category models.Category
	err := db.Where("name = ?", name).First(&category).Error
	if err == nil {
		return &category, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	category = models.Category{Name: name, AppliesTo: appliesTo}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := db.Where("name = ?", name).First(&category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// EnsureDefaultCategories seeds DefaultCategories when the table is empty, or
// upserts every default when force is set. It returns the number of rows written.
func (s *categoryService) EnsureDefaultCategories(ctx context.Context, force bool) (int, error) {
	db := s.db.WithContext(ctx)

	if !force {
		var count int64
		if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
			return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return 0, nil
		}
	}

	seed := make([]models.Category, len(DefaultCategories))
	copy(seed, DefaultCategories)

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"applies_to", "updated_at"}),
	}).Create(&seed)
	if result.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}

	logger.Get().Infow("default categories seeded", "count", result.RowsAffected, "forced", force)
	return int(result.RowsAffected), nil
}
