package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WebhookSource string

const (
	WebhookSourceWhatsApp WebhookSource = "whatsapp"
	WebhookSourcePayrant  WebhookSource = "payrant"
)

// WebhookLog is an append-only record of an inbound webhook call.
type WebhookLog struct {
	ID          int64         `json:"id"`
	Source      WebhookSource `json:"source"`
	EventType   string        `json:"event_type,omitempty"`
	Method      string        `json:"method"`
	Headers     string        `json:"headers,omitempty"`
	Payload     string        `json:"payload"`
	Processed   bool          `json:"processed"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
}

type AdminAction string

const (
	AdminActionCredit     AdminAction = "credit"
	AdminActionDebit      AdminAction = "debit"
	AdminActionRefund     AdminAction = "refund"
	AdminActionDeactivate AdminAction = "deactivate"
)

type AdminLog struct {
	ID           int64           `json:"id"`
	AdminUser    string          `json:"admin_user"`
	Action       AdminAction     `json:"action"`
	TargetUserID int64           `json:"target_user_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
