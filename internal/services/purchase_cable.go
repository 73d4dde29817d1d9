package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forbill/whatsapp-vtu/internal/commands"
	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/forbill/whatsapp-vtu/pkg/money"
)

// maxListedPackages bounds the numbered list sent to the user.
const maxListedPackages = 10

var cableButtons = []models.Button{
	{ID: "dstv", Title: "DSTV"},
	{ID: "gotv", Title: "GOTV"},
	{ID: "startimes", Title: "STARTIMES"},
}

// StartCableSubscription verifies the smartcard, offers the provider's
// packages and waits for a numbered reply.
func (s *purchaseService) StartCableSubscription(ctx context.Context, sender string, cmd commands.Command) error {
	user, err := resolveUser(ctx, s.users, s.messenger, sender)
	if err != nil {
		return err
	}
	to := user.PhoneNumber
	pref := s.preferences(ctx, user.ID)

	provider := models.CableProvider(firstNonEmpty(cmd.Provider, pref.SavedCableProvider))
	if !provider.Valid() {
		notifyButtons(ctx, s.messenger, to, "prompt", "Which cable TV provider would you like to pay?", cableButtons)
		return nil
	}

	smartcard := cmd.Smartcard
	if smartcard == "" && string(provider) == pref.SavedCableProvider {
		smartcard = pref.SavedSmartcard
	}
	if smartcard == "" {
		notify(ctx, s.messenger, to, "prompt", fmt.Sprintf(
			"Please send your %s smartcard number.\n\nExample: *pay %s 1234567890*", provider.Label(), provider))
		return nil
	}

	info, err := s.vtu.VerifySmartcard(ctx, smartcard, provider)
	if err != nil {
		slog.Warn("smartcard verification failed", "user_id", user.ID, "provider", provider, "error", err)
		notify(ctx, s.messenger, to, "prompt", fmt.Sprintf(
			"❌ We couldn't verify %s smartcard %s. Please check the number and try again.", provider.Label(), smartcard))
		return fmt.Errorf("%w: %v", pkgerrors.ErrVendorFailed, err)
	}

	packages, err := s.vtu.GetCablePackages(ctx, provider)
	if err != nil {
		slog.Error("failed to fetch cable packages", "provider", provider, "error", err)
		notify(ctx, s.messenger, to, "error", "❌ We couldn't load packages right now. Please try again shortly.")
		return fmt.Errorf("%w: %v", pkgerrors.ErrVendorFailed, err)
	}
	if len(packages) == 0 {
		notify(ctx, s.messenger, to, "prompt", fmt.Sprintf("❌ No %s packages are available right now.", provider.Label()))
		return nil
	}
	if len(packages) > maxListedPackages {
		packages = packages[:maxListedPackages]
	}

	action := &models.PendingAction{
		Kind:         models.PendingCablePackage,
		Provider:     provider,
		Smartcard:    smartcard,
		CustomerName: info.Name,
		Packages:     packages,
	}
	if err := s.pending.Save(ctx, to, action); err != nil {
		slog.Error("failed to save pending cable selection", "user_id", user.ID, "error", err)
		notify(ctx, s.messenger, to, "error", msgTryAgain)
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📺 %s smartcard %s", provider.Label(), smartcard)
	if info.Name != "" {
		fmt.Fprintf(&b, " (%s)", info.Name)
	}
	b.WriteString("\n\nChoose a package:\n")
	for i, p := range packages {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, p.Name, money.Format(p.Price))
	}
	b.WriteString("\nReply with the package number.")
	notify(ctx, s.messenger, to, "prompt", b.String())
	return nil
}

func (s *purchaseService) CompleteCableSelection(ctx context.Context, sender string, choice int) (*models.Transaction, error) {
	user, err := resolveUser(ctx, s.users, s.messenger, sender)
	if err != nil {
		return nil, err
	}
	to := user.PhoneNumber

	action, err := s.pending.Load(ctx, to)
	switch {
	case stderrors.Is(err, pkgerrors.ErrPendingActionNotFound):
		return nil, err
	case stderrors.Is(err, pkgerrors.ErrPendingActionExpired):
		if clearErr := s.pending.Clear(ctx, to); clearErr != nil {
			slog.Warn("failed to clear expired selection", "user_id", user.ID, "error", clearErr)
		}
		notify(ctx, s.messenger, to, "prompt", fmt.Sprintf(
			"⌛ Your package selection expired. Send *pay %s* to start again.", action.Provider))
		return nil, err
	case err != nil:
		notify(ctx, s.messenger, to, "error", msgTryAgain)
		return nil, err
	}
	if action.Kind != models.PendingCablePackage {
		return nil, pkgerrors.ErrPendingActionNotFound
	}

	if choice < 1 || choice > len(action.Packages) {
		notify(ctx, s.messenger, to, "prompt", fmt.Sprintf(
			"Please reply with a number between 1 and %d.", len(action.Packages)))
		return nil, pkgerrors.ErrInvalidSelection
	}
	if err := s.pending.Clear(ctx, to); err != nil {
		slog.Warn("failed to clear pending selection", "user_id", user.ID, "error", err)
	}

	pkg := action.Packages[choice-1]
	provider := action.Provider
	smartcard := action.Smartcard

	return s.execute(ctx, order{
		user: user,
		debit: DebitRequest{
			Type:            models.TypeCableTV,
			Amount:          pkg.Price,
			Description:     fmt.Sprintf("%s %s subscription", provider.Label(), pkg.Name),
			ServiceProvider: string(provider),
			SmartcardNumber: smartcard,
			PlanID:          pkg.Code,
			PlanName:        pkg.Name,
			RecipientPhone:  user.PhoneNumber,
		},
		naturalKey: smartcard,
		what:       fmt.Sprintf("%s %s subscription for %s", provider.Label(), pkg.Name, smartcard),
		vend: func(ctx context.Context, key string) (*models.VendResult, error) {
			return s.vtu.BuyCableTV(ctx, models.CableOrder{
				Smartcard:      smartcard,
				PackageCode:    pkg.Code,
				Provider:       provider,
				Phone:          user.PhoneNumber,
				IdempotencyKey: key,
			})
		},
		receipt: func(*models.VendResult) string {
			return fmt.Sprintf("Amount: %s", money.Format(pkg.Price))
		},
		remember: func(pref *models.UserPreference) {
			pref.SavedSmartcard = smartcard
			pref.SavedCableProvider = string(provider)
		},
	})
}
