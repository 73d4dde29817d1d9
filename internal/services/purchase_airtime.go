package service

import (
	"context"
	"fmt"

	"github.com/forbill/whatsapp-vtu/internal/commands"
	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/pkg/money"
	"github.com/forbill/whatsapp-vtu/pkg/phone"
	"github.com/shopspring/decimal"
)

func (s *purchaseService) BuyAirtime(ctx context.Context, sender string, cmd commands.Command) (*models.Transaction, error) {
	user, err := resolveUser(ctx, s.users, s.messenger, sender)
	if err != nil {
		return nil, err
	}
	to := user.PhoneNumber

	if cmd.Error != "" {
		notify(ctx, s.messenger, to, "prompt", "❌ "+cmd.Error)
		return nil, nil
	}
	if !cmd.HasAmount() {
		prompt := "How much airtime would you like?\n\nExample: *buy 500 airtime*"
		if pref := s.preferences(ctx, user.ID); pref.LastAirtimeAmount > 0 {
			prompt += fmt.Sprintf("\n\nLast time you bought %s.", money.FormatWhole(pref.LastAirtimeAmount))
		}
		notify(ctx, s.messenger, to, "prompt", prompt)
		return nil, nil
	}
	if cmd.Amount < s.limits.MinAirtime || cmd.Amount > s.limits.MaxAirtime {
		notify(ctx, s.messenger, to, "prompt", fmt.Sprintf("❌ Airtime amount must be between %s and %s.",
			money.FormatWhole(s.limits.MinAirtime), money.FormatWhole(s.limits.MaxAirtime)))
		return nil, nil
	}

	dest := recipient(user, cmd)
	network, ok := models.ParseNetwork(cmd.Network)
	if !ok {
		network = DetectNetwork(dest)
	}
	amount := decimal.NewFromInt(cmd.Amount)
	local := phone.Local(dest)

	return s.execute(ctx, order{
		user: user,
		debit: DebitRequest{
			Type:            models.TypeAirtime,
			Amount:          amount,
			Description:     fmt.Sprintf("%s %s airtime for %s", money.Format(amount), network.Label(), local),
			ServiceProvider: string(network),
			Network:         string(network),
			RecipientPhone:  dest,
		},
		naturalKey: local,
		what:       fmt.Sprintf("%s %s airtime for %s", money.Format(amount), network.Label(), local),
		vend: func(ctx context.Context, key string) (*models.VendResult, error) {
			return s.vtu.BuyAirtime(ctx, models.AirtimeOrder{
				Phone:          local,
				Amount:         amount,
				Network:        network,
				IdempotencyKey: key,
			})
		},
		remember: func(pref *models.UserPreference) {
			pref.LastNetwork = string(network)
			pref.LastAirtimeAmount = cmd.Amount
		},
	})
}
