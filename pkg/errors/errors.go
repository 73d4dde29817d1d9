package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound               = errors.New("user not found")
	ErrUserAlreadyExists          = errors.New("user already exists")
	ErrNilUser                    = errors.New("user is nil")
	ErrUserInactive               = errors.New("user is inactive or blocked")
	ErrInsufficientFunds          = errors.New("insufficient funds")
	ErrInvalidAmount              = errors.New("amount must be positive")
	ErrNilTransaction             = errors.New("transaction is nil")
	ErrInvalidTransactionType     = errors.New("invalid transaction type")
	ErrInvalidTransactionStatus   = errors.New("invalid transaction status")
	ErrInvalidStatusTransition    = errors.New("invalid transaction status transition")
	ErrTransactionStatusConflict  = errors.New("transaction status changed concurrently")
	ErrTransactionNotFound        = errors.New("transaction not found")
	ErrTransactionAlreadyReversed = errors.New("transaction already reversed")
	ErrDuplicateReference         = errors.New("transaction reference already exists")
	ErrReferralCodeExhausted      = errors.New("unable to generate unique referral code")
	ErrReferralCodeTaken          = errors.New("referral code already taken")
	ErrInvalidPhone               = errors.New("invalid phone number")
	ErrInvalidAccountReference    = errors.New("invalid account reference")
	ErrVirtualAccountExists       = errors.New("virtual account already provisioned")
	ErrPendingActionNotFound      = errors.New("no pending action")
	ErrPendingActionExpired       = errors.New("pending action expired")
	ErrVendorFailed               = errors.New("vendor request failed")
	ErrInvalidSelection           = errors.New("selection out of range")
	ErrInternal                   = errors.New("internal error")
	ErrInvalidCredentials         = fmt.Errorf("invalid credentials")
	ErrInvalidInput               = fmt.Errorf("ErrInvalidInput")
)

// InsufficientBalanceError carries the numbers behind a rejected debit.
type InsufficientBalanceError struct {
	Current   decimal.Decimal
	Required  decimal.Decimal
	Shortfall decimal.Decimal
}

func NewInsufficientBalanceError(current, required decimal.Decimal) *InsufficientBalanceError {
	return &InsufficientBalanceError{
		Current:   current,
		Required:  required,
		Shortfall: required.Sub(current),
	}
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, required %s, shortfall %s",
		e.Current.StringFixed(2), e.Required.StringFixed(2), e.Shortfall.StringFixed(2))
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientFunds
}
