package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID                   int64           `json:"id"`
	PhoneNumber          string          `json:"phone_number"`
	Name                 string          `json:"name,omitempty"`
	Email                string          `json:"email,omitempty"`
	Balance              decimal.Decimal `json:"balance"`
	ReferralCode         string          `json:"referral_code"`
	ReferredBy           string          `json:"referred_by,omitempty"` // referrer's code, not an id
	ReferralBonusClaimed bool            `json:"referral_bonus_claimed"`
	IsActive             bool            `json:"is_active"`
	IsBlocked            bool            `json:"is_blocked"`
	VirtualAccountNumber string          `json:"virtual_account_number,omitempty"`
	VirtualAccountName   string          `json:"virtual_account_name,omitempty"`
	VirtualAccountBank   string          `json:"virtual_account_bank,omitempty"`
	AccountReference     string          `json:"account_reference,omitempty"`
	LastActivity         *time.Time      `json:"last_activity,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// CanTransact reports whether the account may move money.
func (u *User) CanTransact() bool {
	return u.IsActive && !u.IsBlocked
}

func (u *User) HasVirtualAccount() bool {
	return u.VirtualAccountNumber != ""
}

type VirtualAccount struct {
	AccountNumber    string `json:"account_number"`
	AccountName      string `json:"account_name"`
	BankName         string `json:"bank_name"`
	AccountReference string `json:"account_reference"`
}

type UserPreference struct {
	UserID                   int64  `json:"user_id"`
	DefaultNetwork           string `json:"default_network,omitempty"`
	LastNetwork              string `json:"last_network,omitempty"`
	LastAirtimeAmount        int64  `json:"last_airtime_amount,omitempty"`
	SavedSmartcard           string `json:"saved_smartcard,omitempty"`
	SavedCableProvider       string `json:"saved_cable_provider,omitempty"`
	SavedMeterNumber         string `json:"saved_meter_number,omitempty"`
	SavedMeterType           string `json:"saved_meter_type,omitempty"`
	SavedElectricityProvider string `json:"saved_electricity_provider,omitempty"`
	NotifyOnTransaction      bool   `json:"notify_on_transaction"`
	NotifyOnLowBalance       bool   `json:"notify_on_low_balance"`
	LowBalanceThreshold      int64  `json:"low_balance_threshold"`
}

func DefaultPreference(userID int64) *UserPreference {
	return &UserPreference{
		UserID:              userID,
		NotifyOnTransaction: true,
		NotifyOnLowBalance:  true,
		LowBalanceThreshold: 500,
	}
}
