package models

import "time"

// User represents the user model in the database
type User struct {
	Base
	Email               string     `gorm:"uniqueIndex;not null;size:120" json:"email"`
	Password            string     `gorm:"not null" json:"-"`
	FullName            string     `gorm:"size:60" json:"full_name"`
	IsActive            bool       `gorm:"default:true" json:"is_active"`
	AlertsEnabled       bool       `gorm:"not null;default:true" json:"alerts_enabled"`
	RefreshTokenHash    string     `gorm:"size:64" json:"-"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
}
