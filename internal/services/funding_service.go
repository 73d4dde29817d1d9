package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/internal/repository"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/forbill/whatsapp-vtu/pkg/money"
	"github.com/forbill/whatsapp-vtu/pkg/phone"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	successEvents = map[string]bool{"payment.success": true, "transaction.success": true, "credit": true}
	failureEvents = map[string]bool{"payment.failed": true, "transaction.failed": true}
)

type FundingService interface {
	HandlePaymentEvent(ctx context.Context, ev models.PaymentEvent) error
	ProvisionVirtualAccount(ctx context.Context, userID int64) error
	// HandleUserRegistered consumes the users topic.
	HandleUserRegistered(ctx context.Context, ev models.UserRegisteredEvent) error
}

type fundingService struct {
	userRepo      repository.UserRepository
	users         UserService
	wallet        WalletService
	gateway       PaymentGateway
	messenger     Messenger
	accountPrefix string
	referralBonus decimal.Decimal
}

func NewFundingService(
	userRepo repository.UserRepository,
	users UserService,
	wallet WalletService,
	gateway PaymentGateway,
	messenger Messenger,
	accountPrefix string,
	referralBonus decimal.Decimal,
) *fundingService {
	if accountPrefix == "" {
		accountPrefix = "FORBILL"
	}
	return &fundingService{
		userRepo:      userRepo,
		users:         users,
		wallet:        wallet,
		gateway:       gateway,
		messenger:     messenger,
		accountPrefix: accountPrefix,
		referralBonus: referralBonus,
	}
}

// ParseAccountReference splits PREFIX-{user_id}-{last4}.
func ParseAccountReference(prefix, ref string) (userID int64, last4 string, err error) {
	rest, ok := strings.CutPrefix(ref, prefix+"-")
	if !ok {
		return 0, "", pkgerrors.ErrInvalidAccountReference
	}
	idPart, last4, ok := strings.Cut(rest, "-")
	if !ok || len(last4) != 4 {
		return 0, "", pkgerrors.ErrInvalidAccountReference
	}
	userID, err = strconv.ParseInt(idPart, 10, 64)
	if err != nil || userID <= 0 {
		return 0, "", pkgerrors.ErrInvalidAccountReference
	}
	return userID, last4, nil
}

func (s *fundingService) HandlePaymentEvent(ctx context.Context, ev models.PaymentEvent) error {
	ctx, span := tracer.Start(ctx, "FundingService.HandlePaymentEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event", ev.Event), attribute.String("reference", ev.Reference))

	event := strings.ToLower(ev.Event)
	switch {
	case successEvents[event]:
		err := s.creditFunding(ctx, ev)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "funding failed")
		}
		return err
	case failureEvents[event]:
		return s.markFailed(ctx, ev)
	}
	slog.Info("ignoring payment event", "event", ev.Event, "reference", ev.Reference)
	return nil
}

func (s *fundingService) creditFunding(ctx context.Context, ev models.PaymentEvent) error {
	if ev.Reference == "" {
		return fmt.Errorf("%w: payment reference is required", pkgerrors.ErrInvalidInput)
	}
	if !ev.Amount.IsPositive() {
		return pkgerrors.ErrInvalidAmount
	}

	userID, last4, err := ParseAccountReference(s.accountPrefix, ev.AccountReference)
	if err != nil {
		slog.Warn("payment with unroutable account reference",
			"account_reference", ev.AccountReference,
			"reference", ev.Reference)
		return err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if phone.Last4(user.PhoneNumber) != last4 {
		slog.Warn("account reference does not match user",
			"account_reference", ev.AccountReference,
			"user_id", userID)
		return pkgerrors.ErrInvalidAccountReference
	}

	if _, err := s.wallet.GetTransactionByReference(ctx, ev.Reference); err == nil {
		slog.Info("duplicate payment reference ignored", "reference", ev.Reference, "user_id", userID)
		return nil
	} else if !stderrors.Is(err, pkgerrors.ErrTransactionNotFound) {
		return err
	}

	description := "Wallet funding via bank transfer"
	if ev.Narration != "" {
		description = ev.Narration
	}
	tx, err := s.wallet.Credit(ctx, CreditRequest{
		UserID:            user.ID,
		Amount:            ev.Amount,
		Type:              models.TypeWalletFunding,
		Reference:         ev.Reference,
		Description:       description,
		ProviderReference: ev.Reference,
	})
	if stderrors.Is(err, pkgerrors.ErrDuplicateReference) {
		slog.Info("duplicate payment reference ignored", "reference", ev.Reference, "user_id", userID)
		return nil
	}
	if err != nil {
		return err
	}

	if s.wantsNotifications(ctx, user.ID) {
		notify(ctx, s.messenger, user.PhoneNumber, "funding", fmt.Sprintf(
			"✅ Your wallet has been funded with %s.\n\nRef: %s\nNew balance: %s",
			money.Format(tx.Amount), tx.Reference, money.Format(tx.NewBalance.Decimal)))
	}

	s.payReferralBonus(ctx, user)
	return nil
}

func (s *fundingService) wantsNotifications(ctx context.Context, userID int64) bool {
	pref, err := s.users.Preferences(ctx, userID)
	if err != nil {
		return true
	}
	return pref.NotifyOnTransaction
}

// payReferralBonus credits the referrer once per referee. The claim flag is
// flipped first and the REFBONUS_<referee> reference keeps the credit
// idempotent.
func (s *fundingService) payReferralBonus(ctx context.Context, referee *models.User) {
	if referee.ReferredBy == "" || referee.ReferralBonusClaimed || !s.referralBonus.IsPositive() {
		return
	}
	referrer, err := s.userRepo.GetByReferralCode(ctx, referee.ReferredBy)
	if err != nil {
		slog.Warn("referrer not found", "code", referee.ReferredBy, "referee_id", referee.ID, "error", err)
		return
	}
	claimed, err := s.userRepo.ClaimReferralBonus(ctx, referee.ID)
	if err != nil {
		slog.Error("failed to claim referral bonus", "referee_id", referee.ID, "error", err)
		return
	}
	if !claimed {
		return
	}

	tx, err := s.wallet.Credit(ctx, CreditRequest{
		UserID:      referrer.ID,
		Amount:      s.referralBonus,
		Type:        models.TypeReferralBonus,
		Reference:   fmt.Sprintf("%s_%d", models.TypeReferralBonus.ReferencePrefix(), referee.ID),
		Description: fmt.Sprintf("Referral bonus for %s", phone.Local(referee.PhoneNumber)),
	})
	if err != nil {
		if !stderrors.Is(err, pkgerrors.ErrDuplicateReference) {
			slog.Error("failed to pay referral bonus", "referrer_id", referrer.ID, "referee_id", referee.ID, "error", err)
		}
		return
	}
	slog.Info("referral bonus paid", "referrer_id", referrer.ID, "referee_id", referee.ID)
	notify(ctx, s.messenger, referrer.PhoneNumber, "referral_bonus", fmt.Sprintf(
		"🎉 You earned a %s referral bonus! A friend you invited just funded their wallet.\n\nNew balance: %s",
		money.Format(tx.Amount), money.Format(tx.NewBalance.Decimal)))
}

func (s *fundingService) markFailed(ctx context.Context, ev models.PaymentEvent) error {
	tx, err := s.wallet.GetTransactionByReference(ctx, ev.Reference)
	if stderrors.Is(err, pkgerrors.ErrTransactionNotFound) {
		slog.Info("failed payment has no matching transaction", "reference", ev.Reference)
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.wallet.UpdateStatus(ctx, tx.ID, models.StatusFailed, models.StatusUpdate{ProviderResponse: ev.Narration})
	if stderrors.Is(err, pkgerrors.ErrInvalidStatusTransition) {
		slog.Warn("payment failure for settled transaction ignored",
			"reference", ev.Reference,
			"status", tx.Status)
		return nil
	}
	return err
}

func (s *fundingService) ProvisionVirtualAccount(ctx context.Context, userID int64) error {
	ctx, span := tracer.Start(ctx, "FundingService.ProvisionVirtualAccount")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID))

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if user.HasVirtualAccount() {
		slog.Info("virtual account already provisioned", "user_id", userID)
		return nil
	}

	account, err := s.gateway.CreateVirtualAccount(ctx, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway failed")
		slog.Error("failed to create virtual account", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %v", pkgerrors.ErrVendorFailed, err)
	}
	if err := s.userRepo.SetVirtualAccount(ctx, userID, *account); err != nil {
		span.RecordError(err)
		slog.Error("failed to save virtual account", "user_id", userID, "error", err)
		return err
	}

	slog.Info("virtual account provisioned", "user_id", userID, "bank", account.BankName)
	notify(ctx, s.messenger, user.PhoneNumber, "virtual_account", fmt.Sprintf(
		"🏦 Your ForBill funding account is ready!\n\nAccount number: *%s*\nBank: %s\nName: %s\n\nTransfers to this account fund your wallet automatically.",
		account.AccountNumber, account.BankName, account.AccountName))
	return nil
}

func (s *fundingService) HandleUserRegistered(ctx context.Context, ev models.UserRegisteredEvent) error {
	return s.ProvisionVirtualAccount(ctx, ev.UserID)
}
