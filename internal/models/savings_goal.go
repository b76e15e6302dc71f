package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavingsGoal tracks progress towards a target amount by a due date.
type SavingsGoal struct {
	Base
	UserID        string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Name          string          `gorm:"size:60;not null" json:"name"`
	Description   string          `gorm:"size:250" json:"description"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"target_amount"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"current_amount"`
	DueDate       time.Time       `gorm:"not null" json:"due_date"`
	IsDeleted     bool            `gorm:"not null;default:false;index" json:"is_deleted"`
}
