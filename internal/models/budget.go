package models

import "github.com/shopspring/decimal"

// MaxActiveBudgets caps the active, non-deleted budgets a user may hold.
const MaxActiveBudgets = 10

// Budget is a monthly spending limit for one category. Budgets are never hard-deleted.
type Budget struct {
	Base
	UserID     string          `gorm:"type:uuid;not null;uniqueIndex:idx_budget_owner_category_month,priority:1" json:"user_id"`
	CategoryID string          `gorm:"type:uuid;not null;uniqueIndex:idx_budget_owner_category_month,priority:2" json:"category_id"`
	Month      string          `gorm:"size:7;not null;uniqueIndex:idx_budget_owner_category_month,priority:3" json:"month"`
	Limit      decimal.Decimal `gorm:"column:limit_amount;type:decimal(20,2);not null" json:"limit"`
	Threshold  int             `gorm:"not null" json:"threshold"`
	IsActive   bool            `gorm:"not null;default:true" json:"is_active"`
	IsDeleted  bool            `gorm:"not null;default:false;index" json:"is_deleted"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
