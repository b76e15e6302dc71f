package services

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"spendsmart/internal/logger"
	"spendsmart/internal/models"
)

// auditService persists audit entries to the audit_logs table.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log never fails the caller; write errors only reach the log.
func (s *auditService) Log(ctx context.Context, entry AuditEntry) {
	row := &models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
	}
	if entry.Changes != nil {
		data, err := json.Marshal(entry.Changes)
		if err != nil {
			logger.Get().Warnw("audit changes not serializable", "error", err, "action", entry.Action)
			data = []byte("{}")
		}
		row.Changes = string(data)
	}

	// The request may already be finished; the entry should still land.
	if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(row).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", entry.UserID,
			"action", entry.Action,
			"resource", entry.ResourceType+"/"+entry.ResourceID,
		)
	}
}
