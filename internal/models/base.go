package models

import (
	"time"

	"spendsmart/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for all tables. Budgets and savings goals carry
// their own is_deleted flag, so there is no gorm soft-delete column here.
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}
