package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/commands"
	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/forbill/whatsapp-vtu/pkg/money"
	"github.com/forbill/whatsapp-vtu/pkg/phone"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PurchaseService runs a purchase end to end and talks to the user along the
// way. A nil transaction with a nil error means the user was asked for more
// input and nothing was charged.
type PurchaseService interface {
	BuyAirtime(ctx context.Context, phone string, cmd commands.Command) (*models.Transaction, error)
	BuyData(ctx context.Context, phone string, cmd commands.Command) (*models.Transaction, error)
	BuyElectricity(ctx context.Context, phone string, cmd commands.Command) (*models.Transaction, error)
	StartCableSubscription(ctx context.Context, phone string, cmd commands.Command) error
	// CompleteCableSelection returns ErrPendingActionNotFound without
	// messaging the user when no selection is waiting.
	CompleteCableSelection(ctx context.Context, phone string, choice int) (*models.Transaction, error)
}

// PendingActions stores the one open question per phone.
type PendingActions interface {
	Save(ctx context.Context, phone string, action *models.PendingAction) error
	Load(ctx context.Context, phone string) (*models.PendingAction, error)
	Clear(ctx context.Context, phone string) error
}

type PurchaseLimits struct {
	MinAirtime     int64
	MaxAirtime     int64
	MinElectricity int64
	MaxElectricity int64
}

func DefaultPurchaseLimits() PurchaseLimits {
	return PurchaseLimits{
		MinAirtime:     commands.DefaultMinAirtime,
		MaxAirtime:     commands.DefaultMaxAirtime,
		MinElectricity: 1000,
		MaxElectricity: 100000,
	}
}

type purchaseService struct {
	users     UserService
	wallet    WalletService
	vtu       VTUProvider
	messenger Messenger
	pending   PendingActions
	limits    PurchaseLimits
	now       func() time.Time
}

func NewPurchaseService(
	users UserService,
	wallet WalletService,
	vtu VTUProvider,
	messenger Messenger,
	pending PendingActions,
	limits PurchaseLimits,
) *purchaseService {
	return &purchaseService{
		users:     users,
		wallet:    wallet,
		vtu:       vtu,
		messenger: messenger,
		pending:   pending,
		limits:    limits,
		now:       time.Now,
	}
}

// networkPrefixes maps the first four digits of a local number to its
// network.
var networkPrefixes = map[string]models.Network{
	"0703": models.NetworkMTN, "0706": models.NetworkMTN, "0803": models.NetworkMTN,
	"0806": models.NetworkMTN, "0810": models.NetworkMTN, "0813": models.NetworkMTN,
	"0814": models.NetworkMTN, "0816": models.NetworkMTN, "0903": models.NetworkMTN,
	"0906": models.NetworkMTN, "0913": models.NetworkMTN, "0916": models.NetworkMTN,
	"0704": models.NetworkMTN,

	"0705": models.NetworkGLO, "0805": models.NetworkGLO, "0807": models.NetworkGLO,
	"0811": models.NetworkGLO, "0815": models.NetworkGLO, "0905": models.NetworkGLO,
	"0915": models.NetworkGLO,

	"0701": models.NetworkAirtel, "0708": models.NetworkAirtel, "0802": models.NetworkAirtel,
	"0808": models.NetworkAirtel, "0812": models.NetworkAirtel, "0901": models.NetworkAirtel,
	"0902": models.NetworkAirtel, "0904": models.NetworkAirtel, "0907": models.NetworkAirtel,
	"0912": models.NetworkAirtel,

	"0809": models.Network9Mobile, "0817": models.Network9Mobile, "0818": models.Network9Mobile,
	"0908": models.Network9Mobile, "0909": models.Network9Mobile,
}

// DetectNetwork guesses the network from the local prefix, falling back to
// MTN.
func DetectNetwork(canonical string) models.Network {
	local := phone.Local(canonical)
	if len(local) >= 4 {
		if n, ok := networkPrefixes[local[:4]]; ok {
			return n
		}
	}
	return models.NetworkMTN
}

// MatchPlan picks the plan whose size equals sizeMB, else the closest one.
// Ties keep catalog order.
func MatchPlan(plans []models.DataPlan, sizeMB int) (models.DataPlan, bool) {
	if len(plans) == 0 {
		return models.DataPlan{}, false
	}
	best := 0
	bestDiff := absDiff(plans[0].SizeMB, sizeMB)
	for i := 1; i < len(plans); i++ {
		if d := absDiff(plans[i].SizeMB, sizeMB); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return plans[best], true
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func resolveUser(ctx context.Context, users UserService, m Messenger, sender string) (*models.User, error) {
	user, err := users.GetByPhone(ctx, sender)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ErrUserNotFound) {
			notify(ctx, m, sender, "onboarding", msgSendHi)
		}
		return nil, err
	}
	if !user.CanTransact() {
		notify(ctx, m, user.PhoneNumber, "suspended", msgSuspended)
		return nil, pkgerrors.ErrUserInactive
	}
	return user, nil
}

// order describes one purchase for execute.
type order struct {
	user       *models.User
	debit      DebitRequest
	naturalKey string
	// what names the purchase in user messages, e.g. "₦500 MTN airtime".
	what     string
	vend     func(ctx context.Context, idempotencyKey string) (*models.VendResult, error)
	receipt  func(res *models.VendResult) string
	remember func(pref *models.UserPreference)
}

// execute checks the balance, debits, calls the vendor and settles the
// transaction as completed or refunded.
func (s *purchaseService) execute(ctx context.Context, o order) (*models.Transaction, error) {
	ctx, span := tracer.Start(ctx, "PurchaseService.execute")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user_id", o.user.ID),
		attribute.String("type", string(o.debit.Type)),
	)
	to := o.user.PhoneNumber

	check, err := s.wallet.CheckSufficientBalance(ctx, o.user.ID, o.debit.Amount)
	if err != nil {
		span.RecordError(err)
		notify(ctx, s.messenger, to, "error", msgTryAgain)
		return nil, err
	}
	if !check.Sufficient {
		span.SetStatus(codes.Error, "insufficient balance")
		notify(ctx, s.messenger, to, "insufficient", insufficientMessage(o.user, check.Current, check.Required))
		return nil, pkgerrors.NewInsufficientBalanceError(check.Current, check.Required)
	}

	notify(ctx, s.messenger, to, "processing", fmt.Sprintf("⏳ Processing your %s...", o.what))

	o.debit.UserID = o.user.ID
	o.debit.Reference = GenerateReference(o.debit.Type, s.now())
	o.debit.IdempotencyKey = fmt.Sprintf("%s_%s_%s", strings.ToUpper(string(o.debit.Type)), o.naturalKey, o.debit.Reference)

	tx, err := s.wallet.Debit(ctx, o.debit)
	if err != nil {
		span.RecordError(err)
		var insufficient *pkgerrors.InsufficientBalanceError
		if stderrors.As(err, &insufficient) {
			notify(ctx, s.messenger, to, "insufficient", insufficientMessage(o.user, insufficient.Current, insufficient.Required))
			return nil, err
		}
		notify(ctx, s.messenger, to, "error", msgTryAgain)
		return nil, err
	}

	// The debit happened; nothing below may be cut short by the caller.
	ctx = context.WithoutCancel(ctx)

	res, vendErr := o.vend(ctx, tx.IdempotencyKey)
	if vendErr != nil {
		span.RecordError(vendErr)
		span.SetStatus(codes.Error, "vendor failed")
		slog.Warn("vendor purchase failed, refunding",
			"user_id", o.user.ID,
			"reference", tx.Reference,
			"error", vendErr)

		reversed, err := s.wallet.Refund(ctx, tx.ID, vendErr.Error())
		if err != nil {
			slog.Error("refund after vendor failure failed",
				"user_id", o.user.ID,
				"reference", tx.Reference,
				"error", err)
			notify(ctx, s.messenger, to, "failure", fmt.Sprintf(
				"❌ Your %s failed and we could not refund it automatically.\nRef: %s\nOur team has been alerted.",
				o.what, tx.Reference))
			return tx, fmt.Errorf("refund after vendor failure: %w", err)
		}

		balance, _ := s.wallet.GetBalance(ctx, o.user.ID)
		notify(ctx, s.messenger, to, "failure", fmt.Sprintf(
			"❌ Your %s failed.\n\n%s has been refunded to your wallet.\nRef: %s\nBalance: %s",
			o.what, money.Format(tx.Amount), tx.Reference, money.Format(balance)))
		return reversed, fmt.Errorf("%w: %v", pkgerrors.ErrVendorFailed, vendErr)
	}

	upd := models.StatusUpdate{
		ProviderResponse:  res.Message,
		ProviderReference: res.Reference,
		Token:             res.Token,
		Units:             res.Units,
	}
	if upd.ProviderResponse == "" {
		upd.ProviderResponse = res.Raw
	}
	completed, err := s.wallet.UpdateStatus(ctx, tx.ID, models.StatusCompleted, upd)
	if err != nil {
		// The vendor delivered, so the user is told; the row stays pending
		// for reconciliation.
		slog.Error("failed to complete transaction after vendor success",
			"user_id", o.user.ID,
			"reference", tx.Reference,
			"error", err)
		completed = tx
	}

	if o.remember != nil {
		s.rememberPreferences(ctx, o.user.ID, o.remember)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s successful!\n\n", capitalize(o.what))
	if o.receipt != nil {
		if extra := o.receipt(res); extra != "" {
			b.WriteString(extra)
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "Ref: %s\nNew balance: %s", tx.Reference, money.Format(tx.NewBalance.Decimal))
	notify(ctx, s.messenger, to, "receipt", b.String())

	slog.Info("purchase completed",
		"user_id", o.user.ID,
		"reference", tx.Reference,
		"type", tx.Type,
		"amount", tx.Amount.StringFixed(2))
	return completed, nil
}

func (s *purchaseService) rememberPreferences(ctx context.Context, userID int64, fn func(pref *models.UserPreference)) {
	pref, err := s.users.Preferences(ctx, userID)
	if err != nil {
		slog.Warn("failed to load preferences", "user_id", userID, "error", err)
		return
	}
	fn(pref)
	if err := s.users.UpdatePreferences(ctx, pref); err != nil {
		slog.Warn("failed to save preferences", "user_id", userID, "error", err)
	}
}

func (s *purchaseService) preferences(ctx context.Context, userID int64) *models.UserPreference {
	pref, err := s.users.Preferences(ctx, userID)
	if err != nil {
		slog.Warn("failed to load preferences", "user_id", userID, "error", err)
		return models.DefaultPreference(userID)
	}
	return pref
}

// recipient resolves the destination phone of a purchase; an explicit one in
// the command wins over the sender.
func recipient(user *models.User, cmd commands.Command) string {
	if cmd.Phone != "" {
		if canonical, err := phone.Normalize(cmd.Phone); err == nil {
			return canonical
		}
	}
	return user.PhoneNumber
}

func insufficientMessage(user *models.User, current, required decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ Insufficient balance\n\nRequired: %s\nAvailable: %s\nShortfall: %s\n\n",
		money.Format(required), money.Format(current), money.Format(required.Sub(current)))
	if user.HasVirtualAccount() {
		fmt.Fprintf(&b, "Fund your wallet by transfer to:\n%s\n%s\n%s",
			user.VirtualAccountNumber, user.VirtualAccountBank, user.VirtualAccountName)
	} else {
		b.WriteString("Fund your wallet and try again.")
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] -= 'a' - 'A'
	}
	return string(r)
}
