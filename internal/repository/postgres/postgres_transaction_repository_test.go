package postgres_test

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/internal/repository/postgres"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transactionColumns = []string{
	"id", "user_id", "reference", "type", "status", "amount", "previous_balance", "new_balance",
	"description", "service_provider", "network", "recipient_phone", "plan_id", "plan_name",
	"meter_number", "smartcard_number", "provider_reference", "provider_response", "token", "units",
	"idempotency_key", "created_at", "updated_at", "completed_at",
}

func transactionRow(id int64, status models.StatusType, amount, response string) []driver.Value {
	now := time.Now().UTC()
	return []driver.Value{
		id, int64(1), "AIRTIME_20250101120000_123456", "airtime", string(status), amount, "2000.00", "1000.00",
		"", "topupmate", "mtn", "2348011112222", "", "", "", "", "", response, "", "",
		"", now, now, nil,
	}
}

func debitTx() *models.Transaction {
	return &models.Transaction{
		UserID:    1,
		Reference: "AIRTIME_20250101120000_123456",
		Type:      models.TypeAirtime,
		Amount:    decimal.NewFromInt(1000),
		Network:   "mtn",
	}
}

func TestPostgresTransactionRepository_Credit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	t.Run("NilTransaction", func(t *testing.T) {
		assert.ErrorIs(t, repo.Credit(ctx, nil), pkgerrors.ErrNilTransaction)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		tx := &models.Transaction{UserID: 1, Reference: "R0", Type: models.TypeWalletFunding, Amount: decimal.Zero}
		assert.ErrorIs(t, repo.Credit(ctx, tx), pkgerrors.ErrInvalidAmount)
	})

	t.Run("InvalidType", func(t *testing.T) {
		tx := &models.Transaction{UserID: 1, Reference: "R0", Type: "gift", Amount: decimal.NewFromInt(5)}
		assert.ErrorIs(t, repo.Credit(ctx, tx), pkgerrors.ErrInvalidTransactionType)
	})

	t.Run("Success", func(t *testing.T) {
		tx := &models.Transaction{UserID: 1, Reference: "R1", Type: models.TypeWalletFunding, Amount: decimal.NewFromInt(2000)}
		now := time.Now().UTC()
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET balance = balance + $1, updated_at = NOW() WHERE id = $2 RETURNING balance`)).
			WithArgs(tx.Amount, tx.UserID).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("2000.00"))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
			WithArgs(tx.UserID, "R1", models.TypeWalletFunding, models.StatusCompleted, sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), "", "", "", "", "", "", "", "", "", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(10), now, now))
		mock.ExpectCommit()

		err := repo.Credit(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, int64(10), tx.ID)
		assert.Equal(t, models.StatusCompleted, tx.Status)
		assert.NotNil(t, tx.CompletedAt)
		assert.True(t, tx.PreviousBalance.Decimal.IsZero())
		assert.Equal(t, "2000", tx.NewBalance.Decimal.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateReference", func(t *testing.T) {
		tx := &models.Transaction{UserID: 1, Reference: "R1", Type: models.TypeWalletFunding, Amount: decimal.NewFromInt(2000)}
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET balance = balance + $1`)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("4000.00"))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "transactions_reference_key"})
		mock.ExpectRollback()

		err := repo.Credit(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrDuplicateReference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UserNotFound", func(t *testing.T) {
		tx := &models.Transaction{UserID: 99, Reference: "R2", Type: models.TypeWalletFunding, Amount: decimal.NewFromInt(10)}
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET balance = balance + $1`)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectRollback()

		err := repo.Credit(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackError", func(t *testing.T) {
		tx := &models.Transaction{UserID: 1, Reference: "R3", Type: models.TypeWalletFunding, Amount: decimal.NewFromInt(10)}
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET balance = balance + $1`)).
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback().WillReturnError(fmt.Errorf("rollback error"))

		err := repo.Credit(ctx, tx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "rollback failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_Debit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		tx := debitTx()
		now := time.Now().UTC()
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET balance = balance - $1, updated_at = NOW() WHERE id = $2 AND balance >= $1 RETURNING balance`)).
			WithArgs(tx.Amount, tx.UserID).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("1000.00"))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
			WithArgs(tx.UserID, tx.Reference, models.TypeAirtime, models.StatusPending, sqlmock.AnyArg(), sqlmock.AnyArg(),
				sqlmock.AnyArg(), "", "", "mtn", "", "", "", "", "", "", nil).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), now, now))
		mock.ExpectCommit()

		err := repo.Debit(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, int64(11), tx.ID)
		assert.Equal(t, models.StatusPending, tx.Status)
		assert.Equal(t, "2000", tx.PreviousBalance.Decimal.String())
		assert.Equal(t, "1000", tx.NewBalance.Decimal.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsufficientBalance", func(t *testing.T) {
		tx := debitTx()
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET balance = balance - $1`)).
			WithArgs(tx.Amount, tx.UserID).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT balance FROM users WHERE id = $1`)).
			WithArgs(tx.UserID).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("250.00"))
		mock.ExpectRollback()

		err := repo.Debit(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrInsufficientFunds)
		var insufficient *pkgerrors.InsufficientBalanceError
		require.True(t, stderrors.As(err, &insufficient))
		assert.Equal(t, "750", insufficient.Shortfall.String())
		assert.Equal(t, "250", insufficient.Current.String())
		assert.Zero(t, tx.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UserNotFound", func(t *testing.T) {
		tx := debitTx()
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET balance = balance - $1`)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT balance FROM users WHERE id = $1`)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectRollback()

		err := repo.Debit(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsertFailsRollsBack", func(t *testing.T) {
		tx := debitTx()
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET balance = balance - $1`)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("1000.00"))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		err := repo.Debit(ctx, tx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresTransactionRepository(db)
	ctx := context.Background()
	upd := models.StatusUpdate{ProviderReference: "TPM-1", ProviderResponse: "ok"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE transactions SET status = $1`)).
			WithArgs(models.StatusCompleted, "ok", "TPM-1", "", "", int64(5), models.StatusPending, true).
			WillReturnRows(sqlmock.NewRows(transactionColumns).AddRow(transactionRow(5, models.StatusCompleted, "1000.00", "ok")...))

		tx, err := repo.UpdateStatus(ctx, 5, models.StatusPending, models.StatusCompleted, upd)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, tx.Status)
		assert.Equal(t, models.TypeAirtime, tx.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Conflict", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE transactions SET status = $1`)).
			WillReturnRows(sqlmock.NewRows(transactionColumns))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`)).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := repo.UpdateStatus(ctx, 5, models.StatusPending, models.StatusFailed, upd)
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionStatusConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE transactions SET status = $1`)).
			WillReturnRows(sqlmock.NewRows(transactionColumns))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := repo.UpdateStatus(ctx, 6, models.StatusPending, models.StatusFailed, upd)
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_Reverse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, type FROM transactions WHERE id = $1 FOR UPDATE`)).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status", "type"}).AddRow("pending", "airtime"))
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE transactions SET status = 'reversed', provider_response = $1`)).
			WithArgs("REFUNDED: vendor down", int64(5)).
			WillReturnRows(sqlmock.NewRows(transactionColumns).AddRow(transactionRow(5, models.StatusReversed, "1000.00", "REFUNDED: vendor down")...))
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET balance = balance + $1`)).
			WithArgs(sqlmock.AnyArg(), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("2000.00"))
		mock.ExpectCommit()

		tx, err := repo.Reverse(ctx, 5, "REFUNDED: vendor down")
		require.NoError(t, err)
		assert.Equal(t, models.StatusReversed, tx.Status)
		assert.Equal(t, "REFUNDED: vendor down", tx.ProviderResponse)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyReversed", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, type FROM transactions`)).
			WillReturnRows(sqlmock.NewRows([]string{"status", "type"}).AddRow("reversed", "airtime"))
		mock.ExpectRollback()

		_, err := repo.Reverse(ctx, 5, "again")
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionAlreadyReversed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CompletedIsFinal", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, type FROM transactions`)).
			WillReturnRows(sqlmock.NewRows([]string{"status", "type"}).AddRow("completed", "data"))
		mock.ExpectRollback()

		_, err := repo.Reverse(ctx, 7, "late")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidStatusTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, type FROM transactions`)).
			WillReturnRows(sqlmock.NewRows([]string{"status", "type"}))
		mock.ExpectRollback()

		_, err := repo.Reverse(ctx, 8, "missing")
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresTransactionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`)).
		WithArgs(int64(1), 10, 0).
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow(transactionRow(2, models.StatusCompleted, "500.00", "")...).
			AddRow(transactionRow(1, models.StatusReversed, "1000.00", "REFUNDED: x")...))

	txs, err := repo.ListByUser(context.Background(), 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(2), txs[0].ID)
	assert.Equal(t, "500", txs[0].Amount.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
