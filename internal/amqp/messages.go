package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"spendsmart/internal/alerts"
)

// BudgetCheckMessage asks the worker to re-evaluate one budget.
type BudgetCheckMessage struct {
	UserID        string    `json:"user_id"`
	CategoryID    string    `json:"category_id"`
	Month         string    `json:"month"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewBudgetCheckMessage stamps req with the current time.
func NewBudgetCheckMessage(req alerts.Request) *BudgetCheckMessage {
	return &BudgetCheckMessage{
		UserID:        req.UserID,
		CategoryID:    req.CategoryID,
		Month:         req.Month,
		TransactionID: req.TransactionID,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetCheckMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Request converts the message back into a dispatch request.
func (m *BudgetCheckMessage) Request() alerts.Request {
	return alerts.Request{
		UserID:        m.UserID,
		CategoryID:    m.CategoryID,
		Month:         m.Month,
		TransactionID: m.TransactionID,
	}
}

// BudgetCheckMessageFromJSON decodes and validates a message body.
func BudgetCheckMessageFromJSON(data []byte) (*BudgetCheckMessage, error) {
	var msg BudgetCheckMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.CategoryID == "" || msg.Month == "" {
		return nil, errors.New("budget check message missing user_id, category_id or month")
	}
	return &msg, nil
}
