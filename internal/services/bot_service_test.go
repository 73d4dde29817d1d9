package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/commands"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/kafka"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/redis"
	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) bot() *botService {
	return NewBotService(f.users, f.wallet, f.purchases, f.messenger, f.redis, commands.NewParser(0, 0))
}

func text(id, body string) models.InboundMessage {
	return models.InboundMessage{ID: id, From: buyer, Type: "text", Text: body}
}

func TestBotService_Greeting(t *testing.T) {
	f := newFixture(t)
	bot := f.bot()

	require.NoError(t, bot.HandleMessage(f.ctx, text("m1", "hi")))
	assert.Contains(t, f.lastMessage(buyer), "Welcome to ForBill")

	require.NoError(t, bot.HandleMessage(f.ctx, text("m2", "hello")))
	assert.Contains(t, f.lastMessage(buyer), "Welcome back")
}

func TestBotService_GreetingWithReferralCode(t *testing.T) {
	f := newFixture(t)
	referrer := f.seedUser(t, "2348033334444", 0)
	bot := f.bot()

	require.NoError(t, bot.HandleMessage(f.ctx, text("m1", "start "+referrer.ReferralCode)))
	user, err := f.users.GetByPhone(f.ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, referrer.ReferralCode, user.ReferredBy)
}

func TestBotService_DuplicateMessageDropped(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, buyer, 0)
	bot := f.bot()

	require.NoError(t, bot.HandleMessage(f.ctx, text("wamid.1", "balance")))
	require.NoError(t, bot.HandleMessage(f.ctx, text("wamid.1", "balance")))
	assert.Len(t, f.messagesTo(buyer), 1)
}

func TestBotService_Replies(t *testing.T) {
	tests := []struct {
		name string
		msg  models.InboundMessage
		want string
	}{
		{"NonText", models.InboundMessage{ID: "a", From: buyer, Type: "image"}, msgTextOnly},
		{"Help", text("b", "help"), msgHelp},
		{"Unknown", text("c", "what is the weather"), msgUnknown},
		{"NumericWithoutPending", text("d", "2"), "What would you like to do?"},
		{"Balance", text("e", "balance"), "Your balance: *₦250.00*"},
		{"Referral", text("f", "referral"), "Your referral code"},
		{"History", text("g", "history"), "Recent transactions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seedUser(t, buyer, 250)

			require.NoError(t, f.bot().HandleMessage(f.ctx, tt.msg))
			assert.Contains(t, f.lastMessage(buyer), tt.want)
		})
	}
}

func TestBotService_UnregisteredSender(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.bot().HandleMessage(f.ctx, text("m1", "balance")))
	assert.Equal(t, msgSendHi, f.lastMessage(buyer))
}

func TestBotService_InvalidSender(t *testing.T) {
	f := newFixture(t)
	err := f.bot().HandleMessage(f.ctx, models.InboundMessage{ID: "m1", From: "12", Type: "text", Text: "hi"})
	assert.Error(t, err)
}

func TestBotService_CableSelectionByNumber(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, buyer, 10000)
	bot := f.bot()

	f.vtu.EXPECT().VerifySmartcard(gomock.Any(), "1234567890", models.CableDSTV).Return(&models.CustomerInfo{}, nil)
	f.vtu.EXPECT().GetCablePackages(gomock.Any(), models.CableDSTV).Return(dstvPackages, nil)
	f.vtu.EXPECT().BuyCableTV(gomock.Any(), gomock.Any()).Return(&models.VendResult{Reference: "TM-C9"}, nil)

	require.NoError(t, bot.HandleMessage(f.ctx, text("m1", "pay dstv 1234567890")))
	assert.Contains(t, f.lastMessage(buyer), "Choose a package")

	require.NoError(t, bot.HandleMessage(f.ctx, text("m2", "9")))
	assert.Contains(t, f.lastMessage(buyer), "between 1 and 2")

	require.NoError(t, bot.HandleMessage(f.ctx, text("m3", "1")))
	assert.Equal(t, "7050.00", f.balance(t, user.ID))
}

// TestEndToEnd_FundAndRefund walks one customer from first greeting through a
// failed purchase, with events flowing over the in-process bus.
func TestEndToEnd_FundAndRefund(t *testing.T) {
	f := newFixture(t)
	bus := kafka.NewLocalBus()
	users := NewUserService(f.userRepo, f.prefRepo, bus, decimal.NewFromInt(100))
	wallet := NewWalletService(f.userRepo, f.txRepo, bus)
	purchases := NewPurchaseService(users, wallet, f.vtu, f.messenger, redis.NewPendingStore(f.redis, 5*time.Minute), DefaultPurchaseLimits())
	funding := NewFundingService(f.userRepo, users, wallet, f.gateway, f.messenger, "FORBILL", decimal.NewFromInt(100))
	bot := NewBotService(users, wallet, purchases, f.messenger, f.redis, commands.NewParser(0, 0))
	bus.Subscribe(models.TopicUsers, kafka.JSONHandler(funding.HandleUserRegistered))
	bus.Subscribe(models.TopicTransactions, kafka.JSONHandler(NewAlertService(users, f.messenger).HandleLedgerEvent))

	f.gateway.EXPECT().CreateVirtualAccount(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) (*models.VirtualAccount, error) {
			return &models.VirtualAccount{
				AccountNumber:    "9012345678",
				AccountName:      "ForBill-2222",
				BankName:         "Payrant Bank",
				AccountReference: fmt.Sprintf("FORBILL-%d-2222", u.ID),
			}, nil
		})

	require.NoError(t, bot.HandleMessage(f.ctx, text("m1", "hi")))
	bus.Wait()
	user, err := users.GetByPhone(f.ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, "0.00", user.Balance.StringFixed(2))
	assert.Equal(t, "9012345678", user.VirtualAccountNumber)

	require.NoError(t, bot.HandleMessage(f.ctx, text("m2", "buy 500 airtime")))
	assert.True(t, f.sentContaining(buyer, "Insufficient balance"))

	credit := models.PaymentEvent{
		Event:            "payment.success",
		Amount:           decimal.NewFromInt(2000),
		Reference:        "R1",
		AccountReference: user.AccountReference,
	}
	require.NoError(t, funding.HandlePaymentEvent(f.ctx, credit))
	require.NoError(t, funding.HandlePaymentEvent(f.ctx, credit))
	assert.Equal(t, "2000.00", f.balance(t, user.ID))

	f.vtu.EXPECT().BuyAirtime(gomock.Any(), gomock.Any()).Return(nil, errors.New("vendor unavailable"))
	require.NoError(t, bot.HandleMessage(f.ctx, text("m3", "buy 500 airtime")))
	bus.Wait()

	txs, err := wallet.History(f.ctx, user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TypeAirtime, txs[0].Type)
	assert.Equal(t, models.StatusReversed, txs[0].Status)
	assert.Equal(t, "2000.00", f.balance(t, user.ID))
	assert.True(t, f.sentContaining(buyer, "refunded"))
}
