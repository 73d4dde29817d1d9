package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const userTracer = "user-repository"

const userColumns = `id, phone_number, name, email, balance, referral_code, referred_by, referral_bonus_claimed,
	is_active, is_blocked, virtual_account_number, virtual_account_name, virtual_account_bank,
	COALESCE(account_reference, ''), last_activity, created_at, updated_at`

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var lastActivity sql.NullTime
	err := row.Scan(
		&u.ID, &u.PhoneNumber, &u.Name, &u.Email, &u.Balance, &u.ReferralCode, &u.ReferredBy,
		&u.ReferralBonusClaimed, &u.IsActive, &u.IsBlocked, &u.VirtualAccountNumber,
		&u.VirtualAccountName, &u.VirtualAccountBank, &u.AccountReference, &lastActivity,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.LastActivity = nullTime(lastActivity)
	return &u, nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, c := startCall(ctx, userTracer, "CreateUser")
	defer func() { c.end(err) }()

	if user == nil {
		err = pkgerrors.ErrNilUser
		slog.Error("failed to create user", "method", "Create", "error", err)
		return err
	}
	if user.PhoneNumber == "" || user.ReferralCode == "" {
		err = fmt.Errorf("phone number and referral code are required: %w", pkgerrors.ErrInvalidInput)
		slog.Error("invalid user", "method", "Create", "error", err)
		return err
	}
	c.span.SetAttributes(attribute.String("phone", user.PhoneNumber))

	query := `INSERT INTO users (phone_number, name, email, referral_code, referred_by) VALUES ($1, $2, $3, $4, $5) RETURNING id, balance, is_active, is_blocked, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, user.PhoneNumber, user.Name, user.Email, user.ReferralCode, user.ReferredBy).
		Scan(&user.ID, &user.Balance, &user.IsActive, &user.IsBlocked, &user.CreatedAt, &user.UpdatedAt)
	if pqErr, ok := isUniqueViolation(err); ok {
		if pqErr.Constraint == "users_referral_code_key" {
			err = pkgerrors.ErrReferralCodeTaken
		} else {
			err = pkgerrors.ErrUserAlreadyExists
		}
		slog.Warn("user create conflict", "method", "Create", "phone", user.PhoneNumber, "error", err)
		return err
	}
	if err != nil {
		slog.Error("failed to create user", "method", "Create", "phone", user.PhoneNumber, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created", "method", "Create", "user_id", user.ID, "phone", user.PhoneNumber)
	return nil
}

func (r *PostgresUserRepository) getOne(ctx context.Context, method, where string, arg any) (user *models.User, err error) {
	ctx, c := startCall(ctx, userTracer, method)
	defer func() { c.end(err) }()

	user, err = scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if stderrors.Is(err, sql.ErrNoRows) {
		// a miss is an expected outcome for lookups
		return nil, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		slog.Error("failed to get user", "method", method, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "GetUserByID", "id = $1", id)
}

func (r *PostgresUserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.getOne(ctx, "GetUserByPhone", "phone_number = $1", phone)
}

func (r *PostgresUserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return r.getOne(ctx, "GetUserByReferralCode", "referral_code = $1", code)
}

func (r *PostgresUserRepository) ReferralCodeExists(ctx context.Context, code string) (exists bool, err error) {
	ctx, c := startCall(ctx, userTracer, "ReferralCodeExists")
	defer func() { c.end(err) }()

	err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE referral_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check referral code: %w", err)
	}
	return exists, nil
}

func (r *PostgresUserRepository) GetBalance(ctx context.Context, userID int64) (balance decimal.Decimal, err error) {
	ctx, c := startCall(ctx, userTracer, "GetBalance", attribute.Int64("user_id", userID))
	defer func() { c.end(err) }()

	err = r.db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrUserNotFound
		return decimal.Zero, err
	}
	if err != nil {
		slog.Error("failed to get balance", "method", "GetBalance", "user_id", userID, "error", err)
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// exec runs a single-row UPDATE and maps zero affected rows to
// ErrUserNotFound.
func (r *PostgresUserRepository) exec(ctx context.Context, method string, userID int64, query string, args ...any) (err error) {
	ctx, c := startCall(ctx, userTracer, method, attribute.Int64("user_id", userID))
	defer func() { c.end(err) }()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Error("failed to update user", "method", method, "user_id", userID, "error", err)
		return fmt.Errorf("failed to update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		err = pkgerrors.ErrUserNotFound
		return err
	}
	return nil
}

func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, userID int64, name, email string) error {
	return r.exec(ctx, "UpdateProfile", userID,
		`UPDATE users SET name = $1, email = $2, updated_at = NOW() WHERE id = $3`, name, email, userID)
}

func (r *PostgresUserRepository) SetActive(ctx context.Context, userID int64, active bool) error {
	return r.exec(ctx, "SetActive", userID,
		`UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, userID)
}

func (r *PostgresUserRepository) SetVirtualAccount(ctx context.Context, userID int64, account models.VirtualAccount) error {
	err := r.exec(ctx, "SetVirtualAccount", userID,
		`UPDATE users SET virtual_account_number = $1, virtual_account_name = $2, virtual_account_bank = $3, account_reference = $4, updated_at = NOW() WHERE id = $5`,
		account.AccountNumber, account.AccountName, account.BankName, account.AccountReference, userID)
	if _, ok := isUniqueViolation(err); ok {
		return pkgerrors.ErrVirtualAccountExists
	}
	return err
}

func (r *PostgresUserRepository) TouchActivity(ctx context.Context, userID int64) error {
	return r.exec(ctx, "TouchActivity", userID,
		`UPDATE users SET last_activity = NOW() WHERE id = $1`, userID)
}

func (r *PostgresUserRepository) ClaimReferralBonus(ctx context.Context, userID int64) (claimed bool, err error) {
	ctx, c := startCall(ctx, userTracer, "ClaimReferralBonus", attribute.Int64("user_id", userID))
	defer func() { c.end(err) }()

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET referral_bonus_claimed = TRUE, updated_at = NOW() WHERE id = $1 AND referral_bonus_claimed = FALSE`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to claim referral bonus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresUserRepository) CountReferrals(ctx context.Context, code string) (count int, err error) {
	ctx, c := startCall(ctx, userTracer, "CountReferrals")
	defer func() { c.end(err) }()

	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE referred_by = $1`, code).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return count, nil
}
