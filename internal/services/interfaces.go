package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"spendsmart/internal/models"
	"spendsmart/internal/pagination"
	"spendsmart/internal/period"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, fullName string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
	StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error
	GetRefreshTokenHash(ctx context.Context, userID string) (string, error)
	UpdateAlertSettings(ctx context.Context, userID string, enabled bool) (*models.User, error)
}

// CategoryServicer resolves and bootstraps the global category registry.
type CategoryServicer interface {
	ListCategories(ctx context.Context, appliesTo *models.CategoryType) ([]models.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*models.Category, error)
	GetOrCreateCategory(ctx context.Context, name string, appliesTo models.CategoryType) (*models.Category, error)
	EnsureDefaultCategories(ctx context.Context, force bool) (int, error)
}

// SpendAggregator sums transaction amounts exactly.
type SpendAggregator interface {
	// SumExpenses totals expense transactions of one category inside w.
	SumExpenses(ctx context.Context, userID, categoryID string, w period.Window) (decimal.Decimal, error)
	// SumByType totals all transactions of type t, inside w when w is non-nil.
	SumByType(ctx context.Context, userID string, t models.TransactionType, w *period.Window) (decimal.Decimal, error)
}

// TransactionInput holds the fields of a new transaction. A zero Date means now.
type TransactionInput struct {
	Type        models.TransactionType
	Amount      decimal.Decimal
	Date        time.Time
	CategoryID  *string
	Description string
}

// TransactionUpdate holds optional changes to a transaction.
type TransactionUpdate struct {
	Type          *models.TransactionType
	Amount        *decimal.Decimal
	Date          *time.Time
	CategoryID    *string
	ClearCategory bool
	Description   *string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.TransactionType
	CategoryID *string
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, upd TransactionUpdate) (*models.Transaction, error)
	GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
}

// BudgetInput holds the fields of a budget upsert.
type BudgetInput struct {
	CategoryID string
	Month      string
	Limit      decimal.Decimal
	Threshold  int
}

// BudgetView is a budget enriched with its spend for the current window.
type BudgetView struct {
	ID          string  `json:"id"`
	CategoryID  string  `json:"category_id"`
	Category    string  `json:"category"`
	Month       string  `json:"month"`
	Limit       float64 `json:"limit"`
	Threshold   int     `json:"threshold"`
	IsActive    bool    `json:"is_active"`
	Spent       float64 `json:"spent"`
	Available   float64 `json:"available"`
	PercentUsed float64 `json:"percent_used"`
	Alert       bool    `json:"alert"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error)
	ListBudgets(ctx context.Context, userID string) ([]BudgetView, error)
	ToggleBudget(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
}

// BudgetAlerter re-evaluates a budget and emails its owner when the threshold is reached.
type BudgetAlerter interface {
	CheckBudgetAlert(ctx context.Context, userID, categoryID, month string) error
}

// SavingsGoalInput holds the fields of a new savings goal. DueDate is a calendar date.
type SavingsGoalInput struct {
	Name         string
	Description  string
	TargetAmount decimal.Decimal
	DueDate      time.Time
}

// SavingsGoalUpdate holds optional changes to a savings goal.
type SavingsGoalUpdate struct {
	Name         *string
	Description  *string
	TargetAmount *decimal.Decimal
	DueDate      *time.Time
}

// SavingsGoalView is a savings goal enriched with progress figures.
type SavingsGoalView struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	TargetAmount  float64   `json:"target_amount"`
	CurrentAmount float64   `json:"current_amount"`
	DueDate       time.Time `json:"due_date"`
	Status        string    `json:"status"`
	Progress      float64   `json:"progress"`
	MonthlyQuota  float64   `json:"monthly_quota"`
	CreatedAt     time.Time `json:"created_at"`
}

// AddMoneyResult is the outcome of a contribution to a goal.
type AddMoneyResult struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	CurrentAmount float64 `json:"current_amount"`
	TargetAmount  float64 `json:"target_amount"`
	Completed     bool    `json:"completed"`
}

// SavingsGoalServicer defines the contract for savings goal business logic.
type SavingsGoalServicer interface {
	CreateGoal(ctx context.Context, userID string, in SavingsGoalInput) (*models.SavingsGoal, error)
	ListGoals(ctx context.Context, userID string) ([]SavingsGoalView, error)
	UpdateGoal(ctx context.Context, userID, goalID string, upd SavingsGoalUpdate) (*models.SavingsGoal, error)
	DeleteGoal(ctx context.Context, userID, goalID string) error
	AddMoney(ctx context.Context, userID, goalID string, amount decimal.Decimal) (*AddMoneyResult, error)
}

// SummaryServicer builds the dashboard summary.
type SummaryServicer interface {
	MonthlySummary(ctx context.Context, userID, month string) (*MonthlySummary, error)
}

// AuditEntry describes one audited operation.
type AuditEntry struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	Changes      map[string]any
}

// AuditServicer records audit entries on a best-effort basis.
type AuditServicer interface {
	Log(ctx context.Context, entry AuditEntry)
}
