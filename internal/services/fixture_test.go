package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/infrastructure/redis"
	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/internal/repository/memory"
	"github.com/forbill/whatsapp-vtu/internal/services/mocks"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	To   string
	Text string
}

// fixture wires the real services over the in-memory store. Only the
// outside world (chat, vendor, gateway, broker) is mocked.
type fixture struct {
	ctx       context.Context
	store     *memory.Store
	userRepo  *memory.UserRepository
	txRepo    *memory.TransactionRepository
	prefRepo  *memory.PreferenceRepository
	adminLogs *memory.AdminLogRepository
	redis     *redis.MemoryClient

	messenger *mocks.MockMessenger
	vtu       *mocks.MockVTUProvider
	gateway   *mocks.MockPaymentGateway
	publisher *mocks.MockEventPublisher

	users     *userService
	wallet    *walletService
	purchases *purchaseService

	mu   sync.Mutex
	sent []sentMessage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	store := memory.NewStore()
	f := &fixture{
		ctx:       context.Background(),
		store:     store,
		userRepo:  memory.NewUserRepository(store),
		txRepo:    memory.NewTransactionRepository(store),
		prefRepo:  memory.NewPreferenceRepository(store),
		adminLogs: memory.NewAdminLogRepository(store),
		redis:     redis.NewMemoryClient(),
		messenger: mocks.NewMockMessenger(ctrl),
		vtu:       mocks.NewMockVTUProvider(ctrl),
		gateway:   mocks.NewMockPaymentGateway(ctrl),
		publisher: mocks.NewMockEventPublisher(ctrl),
	}

	f.messenger.EXPECT().SendText(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, to, text string) error {
			f.record(to, text)
			return nil
		}).AnyTimes()
	f.messenger.EXPECT().SendInteractive(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, to, body string, _ []models.Button) error {
			f.record(to, body)
			return nil
		}).AnyTimes()
	f.messenger.EXPECT().MarkRead(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	f.users = NewUserService(f.userRepo, f.prefRepo, f.publisher, decimal.NewFromInt(100))
	f.wallet = NewWalletService(f.userRepo, f.txRepo, f.publisher)
	f.purchases = NewPurchaseService(f.users, f.wallet, f.vtu, f.messenger,
		redis.NewPendingStore(f.redis, 5*time.Minute), DefaultPurchaseLimits())
	return f
}

func (f *fixture) record(to, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Text: text})
}

func (f *fixture) messagesTo(to string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.To == to {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fixture) lastMessage(to string) string {
	msgs := f.messagesTo(to)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

// sentContaining reports whether any message to the phone contains substr.
func (f *fixture) sentContaining(to, substr string) bool {
	for _, m := range f.messagesTo(to) {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func (f *fixture) seedUser(t *testing.T, phone string, balance int64) *models.User {
	t.Helper()
	user, _, err := f.users.GetOrCreate(f.ctx, phone, "", "")
	require.NoError(t, err)
	if balance > 0 {
		_, err := f.wallet.Credit(f.ctx, CreditRequest{
			UserID:    user.ID,
			Amount:    decimal.NewFromInt(balance),
			Reference: "SEED_" + phone,
		})
		require.NoError(t, err)
	}
	user, err = f.userRepo.GetByID(f.ctx, user.ID)
	require.NoError(t, err)
	return user
}

func (f *fixture) balance(t *testing.T, userID int64) string {
	t.Helper()
	b, err := f.wallet.GetBalance(f.ctx, userID)
	require.NoError(t, err)
	return b.StringFixed(2)
}
