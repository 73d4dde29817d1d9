package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/infrastructure/observability"
	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/internal/repository"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/forbill/whatsapp-vtu/pkg/money"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const refundPrefix = "REFUNDED: "

type WalletService interface {
	Credit(ctx context.Context, req CreditRequest) (*models.Transaction, error)
	Debit(ctx context.Context, req DebitRequest) (*models.Transaction, error)
	UpdateStatus(ctx context.Context, txID int64, status models.StatusType, upd models.StatusUpdate) (*models.Transaction, error)
	Refund(ctx context.Context, txID int64, reason string) (*models.Transaction, error)
	CheckSufficientBalance(ctx context.Context, userID int64, amount decimal.Decimal) (*models.BalanceCheck, error)
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)
	History(ctx context.Context, userID int64, limit, offset int) ([]*models.Transaction, error)
	Summary(ctx context.Context, userID int64) (*models.WalletSummary, error)
}

type CreditRequest struct {
	UserID int64
	Amount decimal.Decimal
	// Type defaults to wallet_funding.
	Type models.TransactionType
	// Reference is generated when empty.
	Reference         string
	Description       string
	ProviderReference string
	ProviderResponse  string
}

type DebitRequest struct {
	UserID          int64
	Amount          decimal.Decimal
	Type            models.TransactionType
	Reference       string
	Description     string
	ServiceProvider string
	Network         string
	RecipientPhone  string
	PlanID          string
	PlanName        string
	MeterNumber     string
	SmartcardNumber string
	IdempotencyKey  string
}

type walletService struct {
	userRepo        repository.UserRepository
	transactionRepo repository.TransactionRepository
	publisher       EventPublisher
	now             func() time.Time
}

func NewWalletService(
	userRepo repository.UserRepository,
	transactionRepo repository.TransactionRepository,
	publisher EventPublisher,
) *walletService {
	return &walletService{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		publisher:       publisher,
		now:             time.Now,
	}
}

// GenerateReference builds PREFIX_YYYYMMDDhhmmss_NNNNNN.
func GenerateReference(t models.TransactionType, now time.Time) string {
	return fmt.Sprintf("%s_%s_%06d", t.ReferencePrefix(), now.UTC().Format("20060102150405"), rand.Intn(1_000_000))
}

func (s *walletService) Credit(ctx context.Context, req CreditRequest) (*models.Transaction, error) {
	ctx, span := tracer.Start(ctx, "WalletService.Credit")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", req.UserID))

	if req.Type == "" {
		req.Type = models.TypeWalletFunding
	}
	if !req.Type.IsCredit() {
		span.SetStatus(codes.Error, "not a credit type")
		return nil, fmt.Errorf("%w: %s is not a credit", pkgerrors.ErrInvalidTransactionType, req.Type)
	}
	amount := money.Round2(req.Amount)
	if !amount.IsPositive() {
		span.SetStatus(codes.Error, "non-positive amount")
		return nil, pkgerrors.ErrInvalidAmount
	}
	if req.Reference == "" {
		req.Reference = GenerateReference(req.Type, s.now())
	}

	tx := &models.Transaction{
		UserID:            req.UserID,
		Reference:         req.Reference,
		Type:              req.Type,
		Amount:            amount,
		Description:       req.Description,
		ProviderReference: req.ProviderReference,
		ProviderResponse:  req.ProviderResponse,
	}
	if err := s.transactionRepo.Credit(ctx, tx); err != nil {
		observability.LedgerOperations.WithLabelValues("credit", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "credit failed")
		if stderrors.Is(err, pkgerrors.ErrDuplicateReference) {
			slog.Warn("duplicate credit reference",
				"user_id", req.UserID,
				"reference", req.Reference)
			return nil, err
		}
		slog.Error("failed to credit wallet",
			"user_id", req.UserID,
			"reference", req.Reference,
			"error", err)
		return nil, fmt.Errorf("failed to credit wallet: %w", err)
	}

	observability.LedgerOperations.WithLabelValues("credit", "success").Inc()
	slog.Info("wallet credited",
		"user_id", tx.UserID,
		"reference", tx.Reference,
		"type", tx.Type,
		"amount", tx.Amount.StringFixed(2),
		"new_balance", tx.NewBalance.Decimal.StringFixed(2))
	s.publishLedger(ctx, tx, tx.NewBalance.Decimal)
	return tx, nil
}

func (s *walletService) Debit(ctx context.Context, req DebitRequest) (*models.Transaction, error) {
	ctx, span := tracer.Start(ctx, "WalletService.Debit")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", req.UserID))

	if !req.Type.Valid() || req.Type.IsCredit() {
		span.SetStatus(codes.Error, "not a debit type")
		return nil, fmt.Errorf("%w: %s is not a debit", pkgerrors.ErrInvalidTransactionType, req.Type)
	}
	amount := money.Round2(req.Amount)
	if !amount.IsPositive() {
		span.SetStatus(codes.Error, "non-positive amount")
		return nil, pkgerrors.ErrInvalidAmount
	}
	if req.Reference == "" {
		req.Reference = GenerateReference(req.Type, s.now())
	}

	tx := &models.Transaction{
		UserID:          req.UserID,
		Reference:       req.Reference,
		Type:            req.Type,
		Amount:          amount,
		Description:     req.Description,
		ServiceProvider: req.ServiceProvider,
		Network:         req.Network,
		RecipientPhone:  req.RecipientPhone,
		PlanID:          req.PlanID,
		PlanName:        req.PlanName,
		MeterNumber:     req.MeterNumber,
		SmartcardNumber: req.SmartcardNumber,
		IdempotencyKey:  req.IdempotencyKey,
	}
	if err := s.transactionRepo.Debit(ctx, tx); err != nil {
		observability.LedgerOperations.WithLabelValues("debit", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "debit failed")
		var insufficient *pkgerrors.InsufficientBalanceError
		if stderrors.As(err, &insufficient) {
			slog.Warn("insufficient balance for debit",
				"user_id", req.UserID,
				"required", insufficient.Required.StringFixed(2),
				"available", insufficient.Current.StringFixed(2))
			return nil, err
		}
		slog.Error("failed to debit wallet",
			"user_id", req.UserID,
			"reference", req.Reference,
			"error", err)
		return nil, fmt.Errorf("failed to debit wallet: %w", err)
	}

	observability.LedgerOperations.WithLabelValues("debit", "success").Inc()
	slog.Info("wallet debited",
		"user_id", tx.UserID,
		"reference", tx.Reference,
		"type", tx.Type,
		"amount", tx.Amount.StringFixed(2),
		"new_balance", tx.NewBalance.Decimal.StringFixed(2))
	s.publishLedger(ctx, tx, tx.NewBalance.Decimal)
	return tx, nil
}

// UpdateStatus applies a forward transition. Reversal goes through Refund
// because it moves money.
func (s *walletService) UpdateStatus(ctx context.Context, txID int64, status models.StatusType, upd models.StatusUpdate) (*models.Transaction, error) {
	ctx, span := tracer.Start(ctx, "WalletService.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("transaction_id", txID), attribute.String("status", string(status)))

	if !status.Valid() {
		span.SetStatus(codes.Error, "invalid status")
		return nil, pkgerrors.ErrInvalidTransactionStatus
	}
	if status == models.StatusReversed {
		span.SetStatus(codes.Error, "reversal requires refund")
		return nil, fmt.Errorf("%w: use refund to reverse", pkgerrors.ErrInvalidStatusTransition)
	}

	current, err := s.transactionRepo.GetByID(ctx, txID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction lookup failed")
		return nil, err
	}
	if !current.Status.CanTransitionTo(status) {
		span.SetStatus(codes.Error, "invalid transition")
		return nil, fmt.Errorf("%w: %s -> %s", pkgerrors.ErrInvalidStatusTransition, current.Status, status)
	}

	tx, err := s.transactionRepo.UpdateStatus(ctx, txID, current.Status, status, upd)
	if err != nil {
		observability.LedgerOperations.WithLabelValues("update_status", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "status update failed")
		slog.Error("failed to update transaction status",
			"transaction_id", txID,
			"from", current.Status,
			"to", status,
			"error", err)
		return nil, err
	}

	observability.LedgerOperations.WithLabelValues("update_status", "success").Inc()
	slog.Info("transaction status updated",
		"transaction_id", txID,
		"reference", tx.Reference,
		"from", current.Status,
		"to", status)
	return tx, nil
}

func (s *walletService) Refund(ctx context.Context, txID int64, reason string) (*models.Transaction, error) {
	ctx, span := tracer.Start(ctx, "WalletService.Refund")
	defer span.End()
	span.SetAttributes(attribute.Int64("transaction_id", txID))

	tx, err := s.transactionRepo.Reverse(ctx, txID, refundPrefix+reason)
	if err != nil {
		observability.LedgerOperations.WithLabelValues("refund", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "refund failed")
		if stderrors.Is(err, pkgerrors.ErrTransactionAlreadyReversed) {
			slog.Warn("transaction already reversed", "transaction_id", txID)
			return nil, err
		}
		slog.Error("failed to refund transaction",
			"transaction_id", txID,
			"error", err)
		return nil, err
	}

	observability.LedgerOperations.WithLabelValues("refund", "success").Inc()
	balance, err := s.userRepo.GetBalance(ctx, tx.UserID)
	if err != nil {
		slog.Error("failed to read balance after refund", "user_id", tx.UserID, "error", err)
	}
	slog.Info("transaction refunded",
		"transaction_id", txID,
		"user_id", tx.UserID,
		"reference", tx.Reference,
		"amount", tx.Amount.StringFixed(2),
		"reason", reason)
	s.publishLedger(ctx, tx, balance)
	return tx, nil
}

func (s *walletService) CheckSufficientBalance(ctx context.Context, userID int64, amount decimal.Decimal) (*models.BalanceCheck, error) {
	balance, err := s.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	check := &models.BalanceCheck{
		Sufficient: balance.GreaterThanOrEqual(amount),
		Current:    balance,
		Required:   amount,
		Shortfall:  decimal.Zero,
	}
	if !check.Sufficient {
		check.Shortfall = amount.Sub(balance)
	}
	return check, nil
}

func (s *walletService) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, "WalletService.GetBalance")
	defer span.End()

	balance, err := s.userRepo.GetBalance(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "balance lookup failed")
		return decimal.Zero, err
	}
	return balance, nil
}

func (s *walletService) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return s.transactionRepo.GetByReference(ctx, reference)
}

func (s *walletService) History(ctx context.Context, userID int64, limit, offset int) ([]*models.Transaction, error) {
	ctx, span := tracer.Start(ctx, "WalletService.History")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	txs, err := s.transactionRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history lookup failed")
		return nil, err
	}
	return txs, nil
}

func (s *walletService) Summary(ctx context.Context, userID int64) (*models.WalletSummary, error) {
	ctx, span := tracer.Start(ctx, "WalletService.Summary")
	defer span.End()

	balance, err := s.userRepo.GetBalance(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	summary, err := s.transactionRepo.Summary(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "summary failed")
		return nil, err
	}
	summary.UserID = userID
	summary.CurrentBalance = balance
	return summary, nil
}

func (s *walletService) publishLedger(ctx context.Context, tx *models.Transaction, balance decimal.Decimal) {
	publish(ctx, s.publisher, models.TopicTransactions, tx.UserID, models.LedgerEvent{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Reference:     tx.Reference,
		Type:          tx.Type,
		Status:        tx.Status,
		Amount:        tx.Amount,
		Balance:       balance,
		OccurredAt:    s.now().UTC(),
	})
}
