package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/models"
	repositorymocks "github.com/forbill/whatsapp-vtu/internal/repository/mocks"
	"github.com/forbill/whatsapp-vtu/internal/services/mocks"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReference(t *testing.T) {
	now := time.Date(2025, 3, 9, 14, 5, 7, 0, time.UTC)
	ref := GenerateReference(models.TypeAirtime, now)
	assert.Regexp(t, regexp.MustCompile(`^AIRTIME_20250309140507_\d{6}$`), ref)
	assert.Regexp(t, `^REFBONUS_`, GenerateReference(models.TypeReferralBonus, now))
}

func TestWalletService_Credit(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "2348011112222", 0)

	t.Run("Success", func(t *testing.T) {
		tx, err := f.wallet.Credit(f.ctx, CreditRequest{UserID: user.ID, Amount: decimal.RequireFromString("2000.004"), Reference: "R1"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, tx.Status)
		assert.Equal(t, models.TypeWalletFunding, tx.Type)
		assert.Equal(t, "2000.00", tx.Amount.StringFixed(2))
		assert.Equal(t, "2000.00", f.balance(t, user.ID))
	})

	t.Run("DuplicateReference", func(t *testing.T) {
		_, err := f.wallet.Credit(f.ctx, CreditRequest{UserID: user.ID, Amount: decimal.NewFromInt(2000), Reference: "R1"})
		assert.ErrorIs(t, err, pkgerrors.ErrDuplicateReference)
		assert.Equal(t, "2000.00", f.balance(t, user.ID))
	})

	t.Run("DebitTypeRejected", func(t *testing.T) {
		_, err := f.wallet.Credit(f.ctx, CreditRequest{UserID: user.ID, Amount: decimal.NewFromInt(10), Type: models.TypeAirtime})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransactionType)
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		_, err := f.wallet.Credit(f.ctx, CreditRequest{UserID: user.ID, Amount: decimal.RequireFromString("0.001")})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidAmount)
	})

	t.Run("GeneratedReference", func(t *testing.T) {
		tx, err := f.wallet.Credit(f.ctx, CreditRequest{UserID: user.ID, Amount: decimal.NewFromInt(5), Type: models.TypeAdminCredit})
		require.NoError(t, err)
		assert.Regexp(t, `^ADMINCR_\d{14}_\d{6}$`, tx.Reference)
	})
}

func TestWalletService_DebitAndRefund(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "2348011112222", 1000)

	tx, err := f.wallet.Debit(f.ctx, DebitRequest{UserID: user.ID, Amount: decimal.NewFromInt(300), Type: models.TypeAirtime})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, tx.Status)
	assert.Equal(t, "1000.00", tx.PreviousBalance.Decimal.StringFixed(2))
	assert.Equal(t, "700.00", tx.NewBalance.Decimal.StringFixed(2))
	assert.Equal(t, "700.00", f.balance(t, user.ID))

	reversed, err := f.wallet.Refund(f.ctx, tx.ID, "vendor timeout")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReversed, reversed.Status)
	assert.Equal(t, "REFUNDED: vendor timeout", reversed.ProviderResponse)
	assert.Equal(t, "1000.00", f.balance(t, user.ID))

	_, err = f.wallet.Refund(f.ctx, tx.ID, "again")
	assert.ErrorIs(t, err, pkgerrors.ErrTransactionAlreadyReversed)
	assert.Equal(t, "1000.00", f.balance(t, user.ID))
}

func TestWalletService_DebitInsufficient(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "2348011112222", 100)

	_, err := f.wallet.Debit(f.ctx, DebitRequest{UserID: user.ID, Amount: decimal.NewFromInt(500), Type: models.TypeAirtime})
	var insufficient *pkgerrors.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "400.00", insufficient.Shortfall.StringFixed(2))
	assert.ErrorIs(t, err, pkgerrors.ErrInsufficientFunds)
	assert.Equal(t, "100.00", f.balance(t, user.ID))

	check, err := f.wallet.CheckSufficientBalance(f.ctx, user.ID, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.False(t, check.Sufficient)
	assert.Equal(t, "400.00", check.Shortfall.StringFixed(2))

	_, err = f.wallet.Debit(f.ctx, DebitRequest{UserID: user.ID, Amount: decimal.NewFromInt(5), Type: models.TypeWalletFunding})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransactionType)
}

func TestWalletService_UpdateStatus(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "2348011112222", 1000)
	debit := func() *models.Transaction {
		tx, err := f.wallet.Debit(f.ctx, DebitRequest{UserID: user.ID, Amount: decimal.NewFromInt(100), Type: models.TypeData})
		require.NoError(t, err)
		return tx
	}

	t.Run("PendingToProcessingToCompleted", func(t *testing.T) {
		tx := debit()
		_, err := f.wallet.UpdateStatus(f.ctx, tx.ID, models.StatusProcessing, models.StatusUpdate{})
		require.NoError(t, err)
		done, err := f.wallet.UpdateStatus(f.ctx, tx.ID, models.StatusCompleted, models.StatusUpdate{ProviderReference: "TM-9", Token: "1234"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, done.Status)
		assert.Equal(t, "TM-9", done.ProviderReference)
		assert.NotNil(t, done.CompletedAt)

		_, err = f.wallet.UpdateStatus(f.ctx, tx.ID, models.StatusFailed, models.StatusUpdate{})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidStatusTransition)
		_, err = f.wallet.Refund(f.ctx, tx.ID, "late failure")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidStatusTransition)
	})

	t.Run("ReversalRequiresRefund", func(t *testing.T) {
		tx := debit()
		_, err := f.wallet.UpdateStatus(f.ctx, tx.ID, models.StatusReversed, models.StatusUpdate{})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidStatusTransition)
	})

	t.Run("FailedCanStillBeRefunded", func(t *testing.T) {
		before := f.balance(t, user.ID)
		tx := debit()
		_, err := f.wallet.UpdateStatus(f.ctx, tx.ID, models.StatusFailed, models.StatusUpdate{ProviderResponse: "declined"})
		require.NoError(t, err)
		_, err = f.wallet.Refund(f.ctx, tx.ID, "declined")
		require.NoError(t, err)
		assert.Equal(t, before, f.balance(t, user.ID))
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		_, err := f.wallet.UpdateStatus(f.ctx, 1, models.StatusType("settled"), models.StatusUpdate{})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransactionStatus)
	})

	t.Run("UnknownTransaction", func(t *testing.T) {
		_, err := f.wallet.UpdateStatus(f.ctx, 9999, models.StatusCompleted, models.StatusUpdate{})
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionNotFound)
	})
}

func TestWalletService_UpdateStatusConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userRepo := repositorymocks.NewMockUserRepository(ctrl)
	transactionRepo := repositorymocks.NewMockTransactionRepository(ctrl)
	publisher := mocks.NewMockEventPublisher(ctrl)
	wallet := NewWalletService(userRepo, transactionRepo, publisher)
	ctx := context.Background()

	transactionRepo.EXPECT().GetByID(gomock.Any(), int64(7)).
		Return(&models.Transaction{ID: 7, Status: models.StatusPending}, nil)
	transactionRepo.EXPECT().UpdateStatus(gomock.Any(), int64(7), models.StatusPending, models.StatusCompleted, gomock.Any()).
		Return(nil, pkgerrors.ErrTransactionStatusConflict)

	_, err := wallet.UpdateStatus(ctx, 7, models.StatusCompleted, models.StatusUpdate{})
	assert.ErrorIs(t, err, pkgerrors.ErrTransactionStatusConflict)
}

func TestWalletService_PublishesLedgerEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userRepo := repositorymocks.NewMockUserRepository(ctrl)
	transactionRepo := repositorymocks.NewMockTransactionRepository(ctrl)
	publisher := mocks.NewMockEventPublisher(ctrl)
	wallet := NewWalletService(userRepo, transactionRepo, publisher)
	ctx := context.Background()

	transactionRepo.EXPECT().Credit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *models.Transaction) error {
			tx.ID = 11
			tx.Status = models.StatusCompleted
			tx.NewBalance = decimal.NewNullDecimal(decimal.NewFromInt(2000))
			return nil
		})
	publisher.EXPECT().Publish(gomock.Any(), models.TopicTransactions, int64(3), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ int64, event any) error {
			ev, ok := event.(models.LedgerEvent)
			require.True(t, ok)
			assert.Equal(t, int64(11), ev.TransactionID)
			assert.Equal(t, "2000", ev.Balance.String())
			return nil
		})

	_, err := wallet.Credit(ctx, CreditRequest{UserID: 3, Amount: decimal.NewFromInt(2000), Reference: "R1"})
	require.NoError(t, err)
}

func TestWalletService_HistoryAndSummary(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, "2348011112222", 1000)
	for i := 0; i < 12; i++ {
		_, err := f.wallet.Debit(f.ctx, DebitRequest{UserID: user.ID, Amount: decimal.NewFromInt(10), Type: models.TypeAirtime})
		require.NoError(t, err)
	}

	txs, err := f.wallet.History(f.ctx, user.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 10)

	summary, err := f.wallet.Summary(f.ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 13, summary.TotalTransactions)
	assert.Equal(t, 12, summary.PendingTransactions)
	assert.Equal(t, "880.00", summary.CurrentBalance.StringFixed(2))
}
