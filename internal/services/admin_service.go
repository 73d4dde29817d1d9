package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/infrastructure/auth"
	"github.com/forbill/whatsapp-vtu/internal/infrastructure/redis"
	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/internal/repository"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/forbill/whatsapp-vtu/pkg/money"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

const overviewHistory = 20

type AdminService interface {
	Login(ctx context.Context, username, password string) (string, error)
	CreditUser(ctx context.Context, admin string, userID int64, amount decimal.Decimal, description string) (*models.Transaction, error)
	DebitUser(ctx context.Context, admin string, userID int64, amount decimal.Decimal, description string) (*models.Transaction, error)
	RefundTransaction(ctx context.Context, admin string, txID int64, reason string) (*models.Transaction, error)
	DeactivateUser(ctx context.Context, admin string, userID int64) error
	UserOverview(ctx context.Context, userID int64) (*UserOverview, error)
}

type UserOverview struct {
	User      *models.User          `json:"user"`
	Summary   *models.WalletSummary `json:"summary"`
	Recent    []*models.Transaction `json:"recent_transactions"`
	AdminLogs []*models.AdminLog    `json:"admin_logs"`
}

// AdminCredentials is the single operator account configured at startup.
type AdminCredentials struct {
	Username     string
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

type adminService struct {
	users       UserService
	wallet      WalletService
	adminLogs   repository.AdminLogRepository
	redisClient redis.RedisClient
	creds       AdminCredentials
}

func NewAdminService(
	users UserService,
	wallet WalletService,
	adminLogs repository.AdminLogRepository,
	redisClient redis.RedisClient,
	creds AdminCredentials,
) *adminService {
	if creds.TokenTTL <= 0 {
		creds.TokenTTL = time.Hour
	}
	return &adminService{
		users:       users,
		wallet:      wallet,
		adminLogs:   adminLogs,
		redisClient: redisClient,
		creds:       creds,
	}
}

func (s *adminService) Login(ctx context.Context, username, password string) (string, error) {
	ctx, span := tracer.Start(ctx, "AdminService.Login")
	defer span.End()

	if username == "" || password == "" {
		span.SetStatus(codes.Error, "empty username or password")
		return "", pkgerrors.ErrInvalidInput
	}
	if s.creds.PasswordHash == "" ||
		subtle.ConstantTimeCompare([]byte(username), []byte(s.creds.Username)) != 1 {
		slog.Warn("admin login rejected", "username", username)
		return "", pkgerrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.creds.PasswordHash), []byte(password)); err != nil {
		slog.Warn("invalid admin password", "username", username)
		return "", pkgerrors.ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(username, s.creds.JWTSecret, s.creds.TokenTTL, time.Now())
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to generate JWT", "error", err)
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.redisClient.Set(ctx, auth.TokenKey(username), token, s.creds.TokenTTL); err != nil {
		span.RecordError(err)
		slog.Error("failed to cache JWT", "username", username, "error", err)
		return "", fmt.Errorf("%w: failed to store token", pkgerrors.ErrInternal)
	}

	slog.Info("admin logged in", "username", username)
	return token, nil
}

func (s *adminService) CreditUser(ctx context.Context, admin string, userID int64, amount decimal.Decimal, description string) (*models.Transaction, error) {
	ctx, span := tracer.Start(ctx, "AdminService.CreditUser")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID), attribute.String("admin", admin))

	if description == "" {
		description = "Admin credit"
	}
	tx, err := s.wallet.Credit(ctx, CreditRequest{
		UserID:      userID,
		Amount:      amount,
		Type:        models.TypeAdminCredit,
		Description: description,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credit failed")
		return nil, err
	}

	s.record(ctx, admin, models.AdminActionCredit, userID, tx.Amount, fmt.Sprintf("%s (%s)", description, tx.Reference))
	return tx, nil
}

func (s *adminService) DebitUser(ctx context.Context, admin string, userID int64, amount decimal.Decimal, description string) (*models.Transaction, error) {
	ctx, span := tracer.Start(ctx, "AdminService.DebitUser")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID), attribute.String("admin", admin))

	if description == "" {
		description = "Admin debit"
	}
	tx, err := s.wallet.Debit(ctx, DebitRequest{
		UserID:      userID,
		Amount:      amount,
		Type:        models.TypeAdminDebit,
		Description: description,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "debit failed")
		return nil, err
	}

	// Adjustments have no vendor leg.
	completed, err := s.wallet.UpdateStatus(ctx, tx.ID, models.StatusCompleted, models.StatusUpdate{
		ProviderResponse: "admin adjustment by " + admin,
	})
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to complete admin debit", "transaction_id", tx.ID, "error", err)
		return nil, err
	}

	s.record(ctx, admin, models.AdminActionDebit, userID, completed.Amount, fmt.Sprintf("%s (%s)", description, completed.Reference))
	return completed, nil
}

func (s *adminService) RefundTransaction(ctx context.Context, admin string, txID int64, reason string) (*models.Transaction, error) {
	ctx, span := tracer.Start(ctx, "AdminService.RefundTransaction")
	defer span.End()
	span.SetAttributes(attribute.Int64("transaction_id", txID), attribute.String("admin", admin))

	if reason == "" {
		reason = "manual refund by " + admin
	}
	tx, err := s.wallet.Refund(ctx, txID, reason)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refund failed")
		return nil, err
	}

	s.record(ctx, admin, models.AdminActionRefund, tx.UserID, tx.Amount, fmt.Sprintf("%s (%s)", reason, tx.Reference))
	return tx, nil
}

func (s *adminService) DeactivateUser(ctx context.Context, admin string, userID int64) error {
	ctx, span := tracer.Start(ctx, "AdminService.DeactivateUser")
	defer span.End()

	if err := s.users.Deactivate(ctx, userID); err != nil {
		span.RecordError(err)
		return err
	}
	s.record(ctx, admin, models.AdminActionDeactivate, userID, decimal.Zero, "account deactivated")
	return nil
}

func (s *adminService) UserOverview(ctx context.Context, userID int64) (*UserOverview, error) {
	ctx, span := tracer.Start(ctx, "AdminService.UserOverview")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	summary, err := s.wallet.Summary(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	recent, err := s.wallet.History(ctx, userID, overviewHistory, 0)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	logs, err := s.adminLogs.ListByUser(ctx, userID, overviewHistory)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &UserOverview{User: user, Summary: summary, Recent: recent, AdminLogs: logs}, nil
}

// record writes the audit row. The money movement already happened, so a
// failure here is logged rather than returned.
func (s *adminService) record(ctx context.Context, admin string, action models.AdminAction, userID int64, amount decimal.Decimal, description string) {
	entry := &models.AdminLog{
		AdminUser:    admin,
		Action:       action,
		TargetUserID: userID,
		Amount:       amount,
		Description:  description,
	}
	if err := s.adminLogs.Create(ctx, entry); err != nil {
		slog.Error("failed to write admin log",
			"admin", admin,
			"action", action,
			"user_id", userID,
			"error", err)
		return
	}
	slog.Info("admin action",
		"admin", admin,
		"action", action,
		"user_id", userID,
		"amount", money.Format(amount))
}
