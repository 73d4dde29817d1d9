package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID                int64               `json:"id"`
	UserID            int64               `json:"user_id"`
	Reference         string              `json:"reference"`
	Type              TransactionType     `json:"type"`
	Status            StatusType          `json:"status"`
	Amount            decimal.Decimal     `json:"amount"`
	PreviousBalance   decimal.NullDecimal `json:"previous_balance"`
	NewBalance        decimal.NullDecimal `json:"new_balance"`
	Description       string              `json:"description,omitempty"`
	ServiceProvider   string              `json:"service_provider,omitempty"`
	Network           string              `json:"network,omitempty"`
	RecipientPhone    string              `json:"recipient_phone,omitempty"`
	PlanID            string              `json:"plan_id,omitempty"`
	PlanName          string              `json:"plan_name,omitempty"`
	MeterNumber       string              `json:"meter_number,omitempty"`
	SmartcardNumber   string              `json:"smartcard_number,omitempty"`
	ProviderReference string              `json:"provider_reference,omitempty"`
	ProviderResponse  string              `json:"provider_response,omitempty"`
	Token             string              `json:"token,omitempty"`
	Units             string              `json:"units,omitempty"`
	IdempotencyKey    string              `json:"idempotency_key,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
}

type TransactionType string

const (
	TypeAirtime        TransactionType = "airtime"
	TypeData           TransactionType = "data"
	TypeElectricity    TransactionType = "electricity"
	TypeCableTV        TransactionType = "cable_tv"
	TypeExamPin        TransactionType = "exam_pin"
	TypeWalletFunding  TransactionType = "wallet_funding"
	TypeWalletTransfer TransactionType = "wallet_transfer"
	TypeReferralBonus  TransactionType = "referral_bonus"
	TypeAdminCredit    TransactionType = "admin_credit"
	TypeAdminDebit     TransactionType = "admin_debit"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeAirtime, TypeData, TypeElectricity, TypeCableTV, TypeExamPin,
		TypeWalletFunding, TypeWalletTransfer, TypeReferralBonus, TypeAdminCredit, TypeAdminDebit:
		return true
	}
	return false
}

// IsCredit reports whether the type adds money to the owning wallet.
func (t TransactionType) IsCredit() bool {
	switch t {
	case TypeWalletFunding, TypeReferralBonus, TypeAdminCredit:
		return true
	}
	return false
}

// ReferencePrefix is the prefix of auto-generated references.
func (t TransactionType) ReferencePrefix() string {
	switch t {
	case TypeAirtime:
		return "AIRTIME"
	case TypeData:
		return "DATA"
	case TypeElectricity:
		return "ELECTRICITY"
	case TypeCableTV:
		return "CABLE"
	case TypeExamPin:
		return "EXAMPIN"
	case TypeWalletFunding:
		return "CREDIT"
	case TypeWalletTransfer:
		return "TRANSFER"
	case TypeReferralBonus:
		return "REFBONUS"
	case TypeAdminCredit:
		return "ADMINCR"
	case TypeAdminDebit:
		return "ADMINDR"
	}
	return "FB"
}

func (t TransactionType) Label() string {
	switch t {
	case TypeAirtime:
		return "Airtime"
	case TypeData:
		return "Data"
	case TypeElectricity:
		return "Electricity"
	case TypeCableTV:
		return "Cable TV"
	case TypeExamPin:
		return "Exam PIN"
	case TypeWalletFunding:
		return "Wallet funding"
	case TypeWalletTransfer:
		return "Transfer"
	case TypeReferralBonus:
		return "Referral bonus"
	case TypeAdminCredit:
		return "Credit adjustment"
	case TypeAdminDebit:
		return "Debit adjustment"
	}
	return string(t)
}

type StatusType string

const (
	StatusPending    StatusType = "pending"
	StatusProcessing StatusType = "processing"
	StatusCompleted  StatusType = "completed"
	StatusFailed     StatusType = "failed"
	StatusReversed   StatusType = "reversed"
)

func (s StatusType) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusReversed:
		return true
	}
	return false
}

// Terminal statuses accept no further transition.
func (s StatusType) Terminal() bool {
	return s == StatusCompleted || s == StatusReversed
}

// CanTransitionTo encodes the ledger state machine:
// pending -> processing|completed|failed|reversed,
// processing -> completed|failed|reversed, failed -> reversed.
func (s StatusType) CanTransitionTo(next StatusType) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusCompleted || next == StatusFailed || next == StatusReversed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed || next == StatusReversed
	case StatusFailed:
		return next == StatusReversed
	case StatusCompleted, StatusReversed:
		return false
	}
	return false
}

// StatusUpdate carries the vendor outcome stamped on a transaction.
type StatusUpdate struct {
	ProviderResponse  string
	ProviderReference string
	Token             string
	Units             string
}

type BalanceCheck struct {
	Sufficient bool            `json:"sufficient"`
	Current    decimal.Decimal `json:"current"`
	Required   decimal.Decimal `json:"required"`
	Shortfall  decimal.Decimal `json:"shortfall"`
}

type WalletSummary struct {
	UserID                int64           `json:"user_id"`
	CurrentBalance        decimal.Decimal `json:"current_balance"`
	TotalTransactions     int             `json:"total_transactions"`
	CompletedTransactions int             `json:"completed_transactions"`
	PendingTransactions   int             `json:"pending_transactions"`
	FailedTransactions    int             `json:"failed_transactions"`
	TotalSpent            decimal.Decimal `json:"total_spent"`
	TotalFunded           decimal.Decimal `json:"total_funded"`
}
