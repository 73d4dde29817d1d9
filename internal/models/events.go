package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicUsers        = "users"
	TopicTransactions = "transactions"
)

// UserRegisteredEvent is published when a phone number sends its first
// greeting.
type UserRegisteredEvent struct {
	UserID    int64     `json:"user_id"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerEvent is published after every balance-affecting ledger change.
type LedgerEvent struct {
	TransactionID int64           `json:"transaction_id"`
	UserID        int64           `json:"user_id"`
	Reference     string          `json:"reference"`
	Type          TransactionType `json:"type"`
	Status        StatusType      `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
