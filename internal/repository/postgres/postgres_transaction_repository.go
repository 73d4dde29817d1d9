package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

const transactionTracer = "transaction-repository"

const transactionColumns = `id, user_id, reference, type, status, amount, previous_balance, new_balance,
	description, service_provider, network, recipient_phone, plan_id, plan_name, meter_number,
	smartcard_number, provider_reference, provider_response, token, units,
	COALESCE(idempotency_key, ''), created_at, updated_at, completed_at`

const insertTransaction = `INSERT INTO transactions (user_id, reference, type, status, amount, previous_balance, new_balance, description, service_provider, network, recipient_phone, plan_id, plan_name, meter_number, smartcard_number, idempotency_key, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NULLIF($16, ''), $17)
RETURNING id, created_at, updated_at`

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var completedAt sql.NullTime
	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.Reference, &tx.Type, &tx.Status, &tx.Amount, &tx.PreviousBalance,
		&tx.NewBalance, &tx.Description, &tx.ServiceProvider, &tx.Network, &tx.RecipientPhone,
		&tx.PlanID, &tx.PlanName, &tx.MeterNumber, &tx.SmartcardNumber, &tx.ProviderReference,
		&tx.ProviderResponse, &tx.Token, &tx.Units, &tx.IdempotencyKey, &tx.CreatedAt, &tx.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.CompletedAt = nullTime(completedAt)
	return &tx, nil
}

func validateNew(tx *models.Transaction) error {
	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}
	if !tx.Type.Valid() {
		return pkgerrors.ErrInvalidTransactionType
	}
	if !tx.Amount.IsPositive() {
		return pkgerrors.ErrInvalidAmount
	}
	if tx.Reference == "" {
		return fmt.Errorf("reference is required: %w", pkgerrors.ErrInvalidInput)
	}
	return nil
}

func (r *PostgresTransactionRepository) insert(ctx context.Context, dbTx *sql.Tx, tx *models.Transaction) error {
	var completedAt sql.NullTime
	if tx.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *tx.CompletedAt, Valid: true}
	}
	err := dbTx.QueryRowContext(ctx, insertTransaction,
		tx.UserID, tx.Reference, tx.Type, tx.Status, tx.Amount, tx.PreviousBalance, tx.NewBalance,
		tx.Description, tx.ServiceProvider, tx.Network, tx.RecipientPhone, tx.PlanID, tx.PlanName,
		tx.MeterNumber, tx.SmartcardNumber, tx.IdempotencyKey, completedAt,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if _, ok := isUniqueViolation(err); ok {
		return pkgerrors.ErrDuplicateReference
	}
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (r *PostgresTransactionRepository) Credit(ctx context.Context, tx *models.Transaction) (err error) {
	ctx, c := startCall(ctx, transactionTracer, "Credit")
	defer func() { c.end(err) }()

	if err = validateNew(tx); err != nil {
		slog.Error("invalid credit", "method", "Credit", "error", err)
		return err
	}
	c.span.SetAttributes(
		attribute.Int64("user_id", tx.UserID),
		attribute.String("reference", tx.Reference),
		attribute.String("amount", tx.Amount.String()),
	)

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Credit", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	var newBalance decimal.Decimal
	err = dbTx.QueryRowContext(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = NOW() WHERE id = $2 RETURNING balance`,
		tx.Amount, tx.UserID,
	).Scan(&newBalance)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = rollback(dbTx, "Credit", pkgerrors.ErrUserNotFound)
		return err
	}
	if err != nil {
		slog.Error("failed to credit balance", "method", "Credit", "user_id", tx.UserID, "error", err)
		err = rollback(dbTx, "Credit", fmt.Errorf("failed to credit balance: %w", err))
		return err
	}

	now := time.Now().UTC()
	tx.Status = models.StatusCompleted
	tx.CompletedAt = &now
	tx.PreviousBalance = decimal.NewNullDecimal(newBalance.Sub(tx.Amount))
	tx.NewBalance = decimal.NewNullDecimal(newBalance)
	if err = r.insert(ctx, dbTx, tx); err != nil {
		if stderrors.Is(err, pkgerrors.ErrDuplicateReference) {
			slog.Warn("duplicate credit reference", "method", "Credit", "reference", tx.Reference)
		} else {
			slog.Error("failed to record credit", "method", "Credit", "user_id", tx.UserID, "error", err)
		}
		err = rollback(dbTx, "Credit", err)
		return err
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Credit", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("wallet credited", "method", "Credit", "user_id", tx.UserID, "reference", tx.Reference, "amount", tx.Amount.String(), "balance", newBalance.String())
	return nil
}

func (r *PostgresTransactionRepository) Debit(ctx context.Context, tx *models.Transaction) (err error) {
	ctx, c := startCall(ctx, transactionTracer, "Debit")
	defer func() { c.end(err) }()

	if err = validateNew(tx); err != nil {
		slog.Error("invalid debit", "method", "Debit", "error", err)
		return err
	}
	c.span.SetAttributes(
		attribute.Int64("user_id", tx.UserID),
		attribute.String("reference", tx.Reference),
		attribute.String("amount", tx.Amount.String()),
	)

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Debit", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	var newBalance decimal.Decimal
	err = dbTx.QueryRowContext(ctx,
		`UPDATE users SET balance = balance - $1, updated_at = NOW() WHERE id = $2 AND balance >= $1 RETURNING balance`,
		tx.Amount, tx.UserID,
	).Scan(&newBalance)
	if stderrors.Is(err, sql.ErrNoRows) {
		var current decimal.Decimal
		lookupErr := dbTx.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = $1`, tx.UserID).Scan(&current)
		switch {
		case stderrors.Is(lookupErr, sql.ErrNoRows):
			err = pkgerrors.ErrUserNotFound
		case lookupErr != nil:
			err = fmt.Errorf("failed to read balance: %w", lookupErr)
		default:
			err = pkgerrors.NewInsufficientBalanceError(current, tx.Amount)
			slog.Warn("insufficient balance", "method", "Debit", "user_id", tx.UserID, "balance", current.String(), "amount", tx.Amount.String())
		}
		err = rollback(dbTx, "Debit", err)
		return err
	}
	if err != nil {
		slog.Error("failed to debit balance", "method", "Debit", "user_id", tx.UserID, "error", err)
		err = rollback(dbTx, "Debit", fmt.Errorf("failed to debit balance: %w", err))
		return err
	}

	tx.Status = models.StatusPending
	tx.CompletedAt = nil
	tx.PreviousBalance = decimal.NewNullDecimal(newBalance.Add(tx.Amount))
	tx.NewBalance = decimal.NewNullDecimal(newBalance)
	if err = r.insert(ctx, dbTx, tx); err != nil {
		slog.Error("failed to record debit", "method", "Debit", "user_id", tx.UserID, "reference", tx.Reference, "error", err)
		err = rollback(dbTx, "Debit", err)
		return err
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Debit", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("wallet debited", "method", "Debit", "user_id", tx.UserID, "reference", tx.Reference, "amount", tx.Amount.String(), "balance", newBalance.String())
	return nil
}

func (r *PostgresTransactionRepository) UpdateStatus(ctx context.Context, id int64, expected, next models.StatusType, upd models.StatusUpdate) (tx *models.Transaction, err error) {
	ctx, c := startCall(ctx, transactionTracer, "UpdateStatus",
		attribute.Int64("transaction_id", id),
		attribute.String("status", string(next)),
	)
	defer func() { c.end(err) }()

	query := `UPDATE transactions SET status = $1,
	provider_response = COALESCE(NULLIF($2, ''), provider_response),
	provider_reference = COALESCE(NULLIF($3, ''), provider_reference),
	token = COALESCE(NULLIF($4, ''), token),
	units = COALESCE(NULLIF($5, ''), units),
	completed_at = CASE WHEN $8 THEN NOW() ELSE completed_at END,
	updated_at = NOW()
	WHERE id = $6 AND status = $7
	RETURNING ` + transactionColumns

	tx, err = scanTransaction(r.db.QueryRowContext(ctx, query, next, upd.ProviderResponse, upd.ProviderReference, upd.Token, upd.Units, id, expected, next == models.StatusCompleted))
	if stderrors.Is(err, sql.ErrNoRows) {
		var exists bool
		if lookupErr := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); lookupErr != nil {
			err = fmt.Errorf("failed to look up transaction: %w", lookupErr)
			return nil, err
		}
		if !exists {
			err = pkgerrors.ErrTransactionNotFound
			return nil, err
		}
		err = pkgerrors.ErrTransactionStatusConflict
		slog.Warn("transaction status changed concurrently", "method", "UpdateStatus", "transaction_id", id, "expected", expected, "next", next)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to update transaction status", "method", "UpdateStatus", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}

	slog.Info("transaction status updated", "method", "UpdateStatus", "transaction_id", id, "from", expected, "to", next)
	return tx, nil
}

func (r *PostgresTransactionRepository) Reverse(ctx context.Context, id int64, providerResponse string) (tx *models.Transaction, err error) {
	ctx, c := startCall(ctx, transactionTracer, "Reverse", attribute.Int64("transaction_id", id))
	defer func() { c.end(err) }()

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Reverse", "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	var status models.StatusType
	var txType models.TransactionType
	err = dbTx.QueryRowContext(ctx, `SELECT status, type FROM transactions WHERE id = $1 FOR UPDATE`, id).Scan(&status, &txType)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = rollback(dbTx, "Reverse", pkgerrors.ErrTransactionNotFound)
		return nil, err
	}
	if err != nil {
		err = rollback(dbTx, "Reverse", fmt.Errorf("failed to lock transaction: %w", err))
		return nil, err
	}
	if status == models.StatusReversed {
		err = rollback(dbTx, "Reverse", pkgerrors.ErrTransactionAlreadyReversed)
		return nil, err
	}
	if txType.IsCredit() || !status.CanTransitionTo(models.StatusReversed) {
		err = rollback(dbTx, "Reverse", fmt.Errorf("cannot reverse %s transaction: %w", status, pkgerrors.ErrInvalidStatusTransition))
		return nil, err
	}

	tx, err = scanTransaction(dbTx.QueryRowContext(ctx,
		`UPDATE transactions SET status = 'reversed', provider_response = $1, updated_at = NOW() WHERE id = $2 RETURNING `+transactionColumns,
		providerResponse, id))
	if err != nil {
		slog.Error("failed to mark transaction reversed", "method", "Reverse", "transaction_id", id, "error", err)
		err = rollback(dbTx, "Reverse", fmt.Errorf("failed to mark transaction reversed: %w", err))
		return nil, err
	}

	var balance decimal.Decimal
	err = dbTx.QueryRowContext(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = NOW() WHERE id = $2 RETURNING balance`,
		tx.Amount, tx.UserID,
	).Scan(&balance)
	if err != nil {
		slog.Error("failed to restore balance", "method", "Reverse", "transaction_id", id, "error", err)
		err = rollback(dbTx, "Reverse", fmt.Errorf("failed to restore balance: %w", err))
		return nil, err
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Reverse", "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("transaction reversed", "method", "Reverse", "transaction_id", id, "user_id", tx.UserID, "amount", tx.Amount.String(), "balance", balance.String())
	return tx, nil
}

func (r *PostgresTransactionRepository) getOne(ctx context.Context, method, where string, arg any) (tx *models.Transaction, err error) {
	ctx, c := startCall(ctx, transactionTracer, method)
	defer func() { c.end(err) }()

	tx, err = scanTransaction(r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE `+where, arg))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if err != nil {
		slog.Error("failed to get transaction", "method", method, "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	return r.getOne(ctx, "GetTransactionByID", "id = $1", id)
}

func (r *PostgresTransactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return r.getOne(ctx, "GetTransactionByReference", "reference = $1", reference)
}

func (r *PostgresTransactionRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) (txs []*models.Transaction, err error) {
	ctx, c := startCall(ctx, transactionTracer, "ListByUser", attribute.Int64("user_id", userID))
	defer func() { c.end(err) }()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		slog.Error("failed to list transactions", "method", "ListByUser", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		tx, scanErr := scanTransaction(rows)
		if scanErr != nil {
			err = fmt.Errorf("failed to scan transaction: %w", scanErr)
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

func (r *PostgresTransactionRepository) Summary(ctx context.Context, userID int64) (summary *models.WalletSummary, err error) {
	ctx, c := startCall(ctx, transactionTracer, "Summary", attribute.Int64("user_id", userID))
	defer func() { c.end(err) }()

	query := `SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'completed'),
		COUNT(*) FILTER (WHERE status IN ('pending', 'processing')),
		COUNT(*) FILTER (WHERE status = 'failed'),
		COALESCE(SUM(amount) FILTER (WHERE status = 'completed' AND type NOT IN ('wallet_funding', 'referral_bonus', 'admin_credit')), 0),
		COALESCE(SUM(amount) FILTER (WHERE status = 'completed' AND type = 'wallet_funding'), 0)
	FROM transactions WHERE user_id = $1`

	summary = &models.WalletSummary{UserID: userID}
	err = r.db.QueryRowContext(ctx, query, userID).Scan(
		&summary.TotalTransactions,
		&summary.CompletedTransactions,
		&summary.PendingTransactions,
		&summary.FailedTransactions,
		&summary.TotalSpent,
		&summary.TotalFunded,
	)
	if err != nil {
		slog.Error("failed to summarize transactions", "method", "Summary", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	return summary, nil
}
