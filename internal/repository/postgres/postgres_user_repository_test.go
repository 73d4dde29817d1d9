package postgres_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/internal/repository/postgres"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{
	"id", "phone_number", "name", "email", "balance", "referral_code", "referred_by",
	"referral_bonus_claimed", "is_active", "is_blocked", "virtual_account_number",
	"virtual_account_name", "virtual_account_bank", "account_reference", "last_activity",
	"created_at", "updated_at",
}

func TestPostgresUserRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("NilUser", func(t *testing.T) {
		err := repo.Create(ctx, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrNilUser)
	})

	t.Run("MissingReferralCode", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{PhoneNumber: "2348011112222"})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("Success", func(t *testing.T) {
		user := &models.User{PhoneNumber: "2348011112222", Name: "Ada", ReferralCode: "ABCD2345"}
		now := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (phone_number, name, email, referral_code, referred_by) VALUES ($1, $2, $3, $4, $5) RETURNING id`)).
			WithArgs(user.PhoneNumber, user.Name, "", user.ReferralCode, "").
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "is_active", "is_blocked", "created_at", "updated_at"}).
				AddRow(int64(7), "0.00", true, false, now, now))

		err := repo.Create(ctx, user)
		assert.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
		assert.True(t, user.Balance.IsZero())
		assert.True(t, user.IsActive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("PhoneTaken", func(t *testing.T) {
		user := &models.User{PhoneNumber: "2348011112222", ReferralCode: "ABCD2345"}
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_phone_number_key"})

		err := repo.Create(ctx, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ReferralCodeTaken", func(t *testing.T) {
		user := &models.User{PhoneNumber: "2348011113333", ReferralCode: "ABCD2345"}
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_referral_code_key"})

		err := repo.Create(ctx, user)
		assert.ErrorIs(t, err, pkgerrors.ErrReferralCodeTaken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		user := &models.User{PhoneNumber: "2348011114444", ReferralCode: "WXYZ2345"}
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WillReturnError(fmt.Errorf("connection reset"))

		err := repo.Create(ctx, user)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create user")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_GetByPhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE phone_number = $1`)).
			WithArgs("2348011112222").
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(
				int64(1), "2348011112222", "Ada", "", "2000.00", "ABCD2345", "",
				false, true, false, "", "", "", "", nil, now, now,
			))

		user, err := repo.GetByPhone(ctx, "2348011112222")
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
		assert.Equal(t, "2000", user.Balance.String())
		assert.Nil(t, user.LastActivity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE phone_number = $1`)).
			WithArgs("2348099999999").
			WillReturnRows(sqlmock.NewRows(userColumns))

		user, err := repo.GetByPhone(ctx, "2348099999999")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_ClaimReferralBonus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("FirstClaim", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET referral_bonus_claimed = TRUE`)).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := repo.ClaimReferralBonus(ctx, 3)
		assert.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("AlreadyClaimed", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET referral_bonus_claimed = TRUE`)).
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		claimed, err := repo.ClaimReferralBonus(ctx, 3)
		assert.NoError(t, err)
		assert.False(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_SetActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := postgres.NewPostgresUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET is_active = $1`)).
		WithArgs(false, int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.SetActive(context.Background(), 404, false)
	assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
