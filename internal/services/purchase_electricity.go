package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forbill/whatsapp-vtu/internal/commands"
	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/forbill/whatsapp-vtu/pkg/money"
	"github.com/shopspring/decimal"
)

func (s *purchaseService) BuyElectricity(ctx context.Context, sender string, cmd commands.Command) (*models.Transaction, error) {
	user, err := resolveUser(ctx, s.users, s.messenger, sender)
	if err != nil {
		return nil, err
	}
	to := user.PhoneNumber
	pref := s.preferences(ctx, user.ID)

	if !cmd.HasAmount() {
		notify(ctx, s.messenger, to, "prompt",
			"How much electricity would you like to buy?\n\nExample: *pay 5000 electricity 45123456789 ikedc*")
		return nil, nil
	}
	if cmd.Amount < s.limits.MinElectricity || cmd.Amount > s.limits.MaxElectricity {
		notify(ctx, s.messenger, to, "prompt", fmt.Sprintf("❌ Electricity amount must be between %s and %s.",
			money.FormatWhole(s.limits.MinElectricity), money.FormatWhole(s.limits.MaxElectricity)))
		return nil, nil
	}

	meter := firstNonEmpty(cmd.MeterNumber, pref.SavedMeterNumber)
	disco := strings.ToLower(firstNonEmpty(cmd.Disco, pref.SavedElectricityProvider))
	if meter == "" || disco == "" {
		notify(ctx, s.messenger, to, "prompt", fmt.Sprintf(
			"Please include your meter number and distribution company.\n\nExample: *pay %d electricity 45123456789 ikedc*",
			cmd.Amount))
		return nil, nil
	}
	meterType := firstNonEmpty(pref.SavedMeterType, models.MeterPrepaid)

	info, err := s.vtu.VerifyMeter(ctx, meter, disco, meterType)
	if err != nil {
		slog.Warn("meter verification failed", "user_id", user.ID, "meter", meter, "disco", disco, "error", err)
		notify(ctx, s.messenger, to, "prompt", fmt.Sprintf(
			"❌ We couldn't verify meter %s on %s. Please check the number and try again.", meter, strings.ToUpper(disco)))
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrVendorFailed, err)
	}

	amount := decimal.NewFromInt(cmd.Amount)
	what := fmt.Sprintf("%s %s electricity for meter %s", money.Format(amount), strings.ToUpper(disco), meter)
	if info.Name != "" {
		what += " (" + info.Name + ")"
	}

	return s.execute(ctx, order{
		user: user,
		debit: DebitRequest{
			Type:            models.TypeElectricity,
			Amount:          amount,
			Description:     fmt.Sprintf("%s %s electricity", money.Format(amount), strings.ToUpper(disco)),
			ServiceProvider: disco,
			MeterNumber:     meter,
			RecipientPhone:  user.PhoneNumber,
		},
		naturalKey: meter,
		what:       what,
		vend: func(ctx context.Context, key string) (*models.VendResult, error) {
			return s.vtu.BuyElectricity(ctx, models.ElectricityOrder{
				MeterNumber:    meter,
				Amount:         amount,
				Disco:          disco,
				MeterType:      meterType,
				Phone:          user.PhoneNumber,
				IdempotencyKey: key,
			})
		},
		receipt: func(res *models.VendResult) string {
			var b strings.Builder
			if res.Token != "" {
				fmt.Fprintf(&b, "Token: *%s*\n", res.Token)
			}
			if res.Units != "" {
				fmt.Fprintf(&b, "Units: %s\n", res.Units)
			}
			return strings.TrimSuffix(b.String(), "\n")
		},
		remember: func(pref *models.UserPreference) {
			pref.SavedMeterNumber = meter
			pref.SavedMeterType = meterType
			pref.SavedElectricityProvider = disco
		},
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
