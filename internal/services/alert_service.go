package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/pkg/money"
	"github.com/shopspring/decimal"
)

// AlertService reacts to ledger events published on the transactions topic.
type AlertService interface {
	HandleLedgerEvent(ctx context.Context, ev models.LedgerEvent) error
}

type alertService struct {
	users     UserService
	messenger Messenger
}

func NewAlertService(users UserService, messenger Messenger) *alertService {
	return &alertService{users: users, messenger: messenger}
}

// HandleLedgerEvent warns the owner when a debit leaves the balance below
// their configured threshold.
func (s *alertService) HandleLedgerEvent(ctx context.Context, ev models.LedgerEvent) error {
	if ev.Type.IsCredit() || ev.Status == models.StatusReversed {
		return nil
	}

	pref, err := s.users.Preferences(ctx, ev.UserID)
	if err != nil {
		slog.Warn("preferences unavailable for low balance check", "user_id", ev.UserID, "error", err)
		return nil
	}
	if !pref.NotifyOnLowBalance || pref.LowBalanceThreshold <= 0 {
		return nil
	}
	threshold := decimal.NewFromInt(pref.LowBalanceThreshold)
	if !ev.Balance.LessThan(threshold) {
		return nil
	}

	user, err := s.users.GetByID(ctx, ev.UserID)
	if err != nil {
		return err
	}
	slog.Info("low balance alert", "user_id", ev.UserID, "balance", ev.Balance.StringFixed(2))
	notify(ctx, s.messenger, user.PhoneNumber, "low_balance", fmt.Sprintf(
		"⚠️ Low balance: your wallet has %s left, below your %s alert level.\n\nSend *balance* to see your funding account.",
		money.Format(ev.Balance), money.FormatWhole(pref.LowBalanceThreshold)))
	return nil
}
