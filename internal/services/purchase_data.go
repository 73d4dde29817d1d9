package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forbill/whatsapp-vtu/internal/commands"
	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/forbill/whatsapp-vtu/pkg/money"
	"github.com/forbill/whatsapp-vtu/pkg/phone"
)

func (s *purchaseService) BuyData(ctx context.Context, sender string, cmd commands.Command) (*models.Transaction, error) {
	user, err := resolveUser(ctx, s.users, s.messenger, sender)
	if err != nil {
		return nil, err
	}
	to := user.PhoneNumber

	if cmd.DataSizeMB <= 0 {
		notify(ctx, s.messenger, to, "prompt",
			"Which data bundle would you like?\n\nExample: *1gb mtn* or *buy 500mb glo*")
		return nil, nil
	}

	network, ok := models.ParseNetwork(cmd.Network)
	if !ok {
		network, ok = models.ParseNetwork(s.preferences(ctx, user.ID).DefaultNetwork)
	}
	if !ok {
		notify(ctx, s.messenger, to, "prompt", fmt.Sprintf(
			"Which network is the %s for? MTN, GLO, AIRTEL or 9MOBILE\n\nExample: *1gb mtn*",
			cmd.DataSizeDisplay))
		return nil, nil
	}

	plans, err := s.vtu.GetDataPlans(ctx, network)
	if err != nil {
		slog.Error("failed to fetch data plans", "network", network, "error", err)
		notify(ctx, s.messenger, to, "error", "❌ We couldn't load data plans right now. Please try again shortly.")
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrVendorFailed, err)
	}
	plan, ok := MatchPlan(plans, cmd.DataSizeMB)
	if !ok {
		notify(ctx, s.messenger, to, "prompt", fmt.Sprintf("❌ No %s data plans are available right now.", network.Label()))
		return nil, nil
	}

	dest := recipient(user, cmd)
	local := phone.Local(dest)
	what := fmt.Sprintf("%s data (%s) for %s", network.Label(), plan.Name, local)

	return s.execute(ctx, order{
		user: user,
		debit: DebitRequest{
			Type:            models.TypeData,
			Amount:          plan.Price,
			Description:     fmt.Sprintf("%s for %s", plan.Name, money.Format(plan.Price)),
			ServiceProvider: string(network),
			Network:         string(network),
			RecipientPhone:  dest,
			PlanID:          plan.ID,
			PlanName:        plan.Name,
		},
		naturalKey: local,
		what:       what,
		vend: func(ctx context.Context, key string) (*models.VendResult, error) {
			return s.vtu.BuyData(ctx, models.DataOrder{
				Phone:          local,
				PlanID:         plan.ID,
				Network:        network,
				IdempotencyKey: key,
			})
		},
		receipt: func(*models.VendResult) string {
			return fmt.Sprintf("Amount: %s", money.Format(plan.Price))
		},
		remember: func(pref *models.UserPreference) {
			pref.LastNetwork = string(network)
		},
	})
}
