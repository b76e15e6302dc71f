package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"spendsmart/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Dec parses a decimal literal and fails the test when it is malformed.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email and alerts enabled.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:         email,
		Password:      string(hash),
		FullName:      "Test User",
		IsActive:      true,
		AlertsEnabled: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCategory creates a uniquely named category of the given type.
func CreateTestCategory(t *testing.T, db *gorm.DB, appliesTo models.CategoryType) *models.Category {
	t.Helper()
	return CreateTestCategoryNamed(t, db, fmt.Sprintf("Test Category %d", nextID()), appliesTo)
}

// CreateTestCategoryNamed creates a category with the given name.
func CreateTestCategoryNamed(t *testing.T, db *gorm.DB, name string, appliesTo models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{Name: name, AppliesTo: appliesTo}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction inserts a transaction directly, bypassing validation and alert dispatch.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, categoryID *string, txType models.TransactionType, amount string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:     userID,
		Type:       txType,
		Amount:     Dec(t, amount),
		Date:       date.UTC(),
		CategoryID: categoryID,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates an active budget. A non-zero createdAt overrides the creation time.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID, categoryID, month, limit string, threshold int, createdAt time.Time) *models.Budget {
	t.Helper()

	budget := &models.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Month:      month,
		Limit:      Dec(t, limit),
		Threshold:  threshold,
		IsActive:   true,
	}
	if !createdAt.IsZero() {
		budget.CreatedAt = createdAt.UTC()
		budget.UpdatedAt = createdAt.UTC()
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestGoal creates a savings goal with the given amounts and due date.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID, target, current string, due time.Time) *models.SavingsGoal {
	t.Helper()

	goal := &models.SavingsGoal{
		UserID:        userID,
		Name:          fmt.Sprintf("Goal %d", nextID()),
		TargetAmount:  Dec(t, target),
		CurrentAmount: Dec(t, current),
		DueDate:       time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(goal).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return goal
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
