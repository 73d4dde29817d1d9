package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/commands"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/observability"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/redis"
	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/forbill/whatsapp-vtu/pkg/money"
	"github.com/forbill/whatsapp-vtu/pkg/phone"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	seenMessageTTL = 24 * time.Hour
	historyLimit   = 5
)

var numericReply = regexp.MustCompile(`^\d{1,2}$`)

var menuButtons = []models.Button{
	{ID: "balance", Title: "Balance"},
	{ID: "airtime", Title: "Buy airtime"},
	{ID: "help", Title: "Help"},
}

type BotService interface {
	HandleMessage(ctx context.Context, msg models.InboundMessage) error
}

type botService struct {
	users     UserService
	wallet    WalletService
	purchases PurchaseService
	messenger Messenger
	seen      redis.RedisClient
	parser    *commands.Parser
}

func NewBotService(
	users UserService,
	wallet WalletService,
	purchases PurchaseService,
	messenger Messenger,
	redisClient redis.RedisClient,
	parser *commands.Parser,
) *botService {
	return &botService{
		users:     users,
		wallet:    wallet,
		purchases: purchases,
		messenger: messenger,
		seen:      redisClient,
		parser:    parser,
	}
}

func (s *botService) HandleMessage(ctx context.Context, msg models.InboundMessage) error {
	ctx, span := tracer.Start(ctx, "BotService.HandleMessage")
	defer span.End()
	span.SetAttributes(attribute.String("message_id", msg.ID), attribute.String("type", msg.Type))

	if msg.ID != "" {
		if err := s.messenger.MarkRead(ctx, msg.ID); err != nil {
			slog.Warn("failed to mark message read", "message_id", msg.ID, "error", err)
		}
		fresh, err := s.seen.SetNX(ctx, "wamsg:"+msg.ID, 1, seenMessageTTL)
		if err != nil {
			slog.Warn("message dedupe unavailable", "message_id", msg.ID, "error", err)
		} else if !fresh {
			slog.Info("duplicate message dropped", "message_id", msg.ID)
			return nil
		}
	}

	sender, err := phone.Normalize(msg.From)
	if err != nil {
		span.SetStatus(codes.Error, "invalid sender")
		slog.Warn("message from invalid phone number", "from", msg.From)
		return err
	}

	if msg.Type != "text" {
		notify(ctx, s.messenger, sender, "text_only", msgTextOnly)
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if numericReply.MatchString(text) {
		return s.handleNumericReply(ctx, sender, text)
	}

	cmd := s.parser.Parse(text)
	observability.ParsedCommands.WithLabelValues(string(cmd.Type), string(cmd.Confidence)).Inc()
	slog.Info("message parsed",
		"from", sender,
		"type", cmd.Type,
		"confidence", cmd.Confidence)

	err = s.dispatch(ctx, sender, msg.Name, cmd)
	if err != nil {
		span.RecordError(err)
		if expected(err) {
			slog.Warn("command not completed", "from", sender, "type", cmd.Type, "error", err)
			return nil
		}
		span.SetStatus(codes.Error, "command failed")
		slog.Error("command failed", "from", sender, "type", cmd.Type, "error", err)
	}
	return err
}

// expected reports errors the user has already been told about.
func expected(err error) bool {
	var insufficient *pkgerrors.InsufficientBalanceError
	return stderrors.As(err, &insufficient) ||
		stderrors.Is(err, pkgerrors.ErrUserNotFound) ||
		stderrors.Is(err, pkgerrors.ErrUserInactive) ||
		stderrors.Is(err, pkgerrors.ErrVendorFailed) ||
		stderrors.Is(err, pkgerrors.ErrPendingActionExpired) ||
		stderrors.Is(err, pkgerrors.ErrInvalidSelection)
}

func (s *botService) handleNumericReply(ctx context.Context, sender, text string) error {
	choice, _ := strconv.Atoi(text)
	_, err := s.purchases.CompleteCableSelection(ctx, sender, choice)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, pkgerrors.ErrPendingActionNotFound):
		return s.sendMenu(ctx, sender)
	case expected(err):
		slog.Warn("cable selection not completed", "from", sender, "error", err)
		return nil
	}
	slog.Error("cable selection failed", "from", sender, "error", err)
	return err
}

func (s *botService) dispatch(ctx context.Context, sender, name string, cmd commands.Command) error {
	if cmd.Type == commands.TypeGreeting {
		return s.greet(ctx, sender, name, cmd.ReferralCode)
	}

	var err error
	switch cmd.Type {
	case commands.TypeAirtime:
		_, err = s.purchases.BuyAirtime(ctx, sender, cmd)
	case commands.TypeData:
		_, err = s.purchases.BuyData(ctx, sender, cmd)
	case commands.TypeElectricity:
		_, err = s.purchases.BuyElectricity(ctx, sender, cmd)
	case commands.TypeCableTV:
		err = s.purchases.StartCableSubscription(ctx, sender, cmd)
	case commands.TypeBalance:
		err = s.sendBalance(ctx, sender)
	case commands.TypeHistory:
		err = s.sendHistory(ctx, sender)
	case commands.TypeReferral:
		err = s.sendReferral(ctx, sender)
	case commands.TypeHelp:
		notify(ctx, s.messenger, sender, "help", msgHelp)
	case commands.TypeUnknown:
		notify(ctx, s.messenger, sender, "unknown", msgUnknown)
	default:
		slog.Error("unhandled command type", "type", cmd.Type)
		notify(ctx, s.messenger, sender, "unknown", msgUnknown)
	}
	return err
}

func (s *botService) greet(ctx context.Context, sender, name, referralCode string) error {
	user, created, err := s.users.GetOrCreate(ctx, sender, name, referralCode)
	if err != nil {
		notify(ctx, s.messenger, sender, "error", msgTryAgain)
		return err
	}
	if !user.CanTransact() {
		notify(ctx, s.messenger, sender, "suspended", msgSuspended)
		return pkgerrors.ErrUserInactive
	}
	s.users.Touch(ctx, user.ID)

	var body string
	if created {
		body = fmt.Sprintf("👋 Welcome to ForBill%s!\n\nYour wallet is ready. Balance: %s\nYour referral code: *%s*\n\nWe're setting up your funding account and will send the details shortly.",
			greetingName(user.Name), money.Format(user.Balance), user.ReferralCode)
	} else {
		body = fmt.Sprintf("👋 Welcome back%s!\n\nBalance: %s\n\nWhat would you like to do today?",
			greetingName(user.Name), money.Format(user.Balance))
	}
	notifyButtons(ctx, s.messenger, sender, "welcome", body, menuButtons)
	return nil
}

func greetingName(name string) string {
	if name == "" {
		return ""
	}
	return ", " + name
}

func (s *botService) sendMenu(ctx context.Context, sender string) error {
	notifyButtons(ctx, s.messenger, sender, "welcome",
		"👋 Hi! What would you like to do? Send *help* for all commands.", menuButtons)
	return nil
}

func (s *botService) sendBalance(ctx context.Context, sender string) error {
	user, err := resolveUser(ctx, s.users, s.messenger, sender)
	if err != nil {
		return err
	}
	s.users.Touch(ctx, user.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "💰 Your balance: *%s*", money.Format(user.Balance))
	if user.HasVirtualAccount() {
		fmt.Fprintf(&b, "\n\nFund your wallet by transfer to:\n%s\n%s\n%s",
			user.VirtualAccountNumber, user.VirtualAccountBank, user.VirtualAccountName)
	} else {
		b.WriteString("\n\nYour funding account is being set up.")
	}
	notify(ctx, s.messenger, sender, "balance", b.String())
	return nil
}

func (s *botService) sendHistory(ctx context.Context, sender string) error {
	user, err := resolveUser(ctx, s.users, s.messenger, sender)
	if err != nil {
		return err
	}
	txs, err := s.wallet.History(ctx, user.ID, historyLimit, 0)
	if err != nil {
		notify(ctx, s.messenger, sender, "error", msgTryAgain)
		return err
	}
	if len(txs) == 0 {
		notify(ctx, s.messenger, sender, "history", "🧾 You have no transactions yet.")
		return nil
	}

	var b strings.Builder
	b.WriteString("🧾 *Recent transactions*\n")
	for i, tx := range txs {
		sign := "-"
		if tx.Type.IsCredit() {
			sign = "+"
		}
		fmt.Fprintf(&b, "\n%d. %s %s%s (%s)\n   %s · %s",
			i+1, tx.Type.Label(), sign, money.Format(tx.Amount), tx.Status,
			tx.Reference, tx.CreatedAt.Format("02 Jan 15:04"))
	}
	notify(ctx, s.messenger, sender, "history", b.String())
	return nil
}

func (s *botService) sendReferral(ctx context.Context, sender string) error {
	user, err := resolveUser(ctx, s.users, s.messenger, sender)
	if err != nil {
		return err
	}
	stats, err := s.users.ReferralStats(ctx, user.ID)
	if err != nil {
		notify(ctx, s.messenger, sender, "error", msgTryAgain)
		return err
	}
	notify(ctx, s.messenger, sender, "referral", fmt.Sprintf(
		"🎁 Your referral code: *%s*\n\nFriends join by sending *start %s*. You earn %s when they fund their wallet for the first time.\n\nReferrals so far: %d",
		stats.Code, stats.Code, money.Format(stats.BonusAmount), stats.Referrals))
	return nil
}
