package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/forbill/whatsapp-vtu/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

const auditTracer = "audit-repository"

type PostgresWebhookLogRepository struct {
	db *sql.DB
}

func NewPostgresWebhookLogRepository(db *sql.DB) *PostgresWebhookLogRepository {
	return &PostgresWebhookLogRepository{db: db}
}

func (r *PostgresWebhookLogRepository) Create(ctx context.Context, log *models.WebhookLog) (id int64, err error) {
	ctx, c := startCall(ctx, auditTracer, "CreateWebhookLog", attribute.String("source", string(log.Source)))
	defer func() { c.end(err) }()

	query := `INSERT INTO webhook_logs (source, event_type, method, headers, payload) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err = r.db.QueryRowContext(ctx, query, log.Source, log.EventType, log.Method, log.Headers, log.Payload).
		Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		slog.Error("failed to store webhook log", "method", "Create", "source", log.Source, "error", err)
		return 0, fmt.Errorf("failed to store webhook log: %w", err)
	}
	return log.ID, nil
}

func (r *PostgresWebhookLogRepository) MarkProcessed(ctx context.Context, id int64, errMsg string) (err error) {
	ctx, c := startCall(ctx, auditTracer, "MarkWebhookProcessed", attribute.Int64("webhook_log_id", id))
	defer func() { c.end(err) }()

	_, err = r.db.ExecContext(ctx,
		`UPDATE webhook_logs SET processed = TRUE, error = $1, processed_at = NOW() WHERE id = $2`,
		errMsg, id)
	if err != nil {
		slog.Error("failed to mark webhook processed", "method", "MarkProcessed", "id", id, "error", err)
		return fmt.Errorf("failed to mark webhook processed: %w", err)
	}
	return nil
}

type PostgresAdminLogRepository struct {
	db *sql.DB
}

func NewPostgresAdminLogRepository(db *sql.DB) *PostgresAdminLogRepository {
	return &PostgresAdminLogRepository{db: db}
}

func (r *PostgresAdminLogRepository) Create(ctx context.Context, log *models.AdminLog) (err error) {
	ctx, c := startCall(ctx, auditTracer, "CreateAdminLog", attribute.String("action", string(log.Action)))
	defer func() { c.end(err) }()

	var target sql.NullInt64
	if log.TargetUserID != 0 {
		target = sql.NullInt64{Int64: log.TargetUserID, Valid: true}
	}
	query := `INSERT INTO admin_logs (admin_user, action, target_user_id, amount, description) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err = r.db.QueryRowContext(ctx, query, log.AdminUser, log.Action, target, log.Amount, log.Description).
		Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		slog.Error("failed to store admin log", "method", "Create", "action", log.Action, "error", err)
		return fmt.Errorf("failed to store admin log: %w", err)
	}
	return nil
}

func (r *PostgresAdminLogRepository) ListByUser(ctx context.Context, userID int64, limit int) (logs []*models.AdminLog, err error) {
	ctx, c := startCall(ctx, auditTracer, "ListAdminLogs", attribute.Int64("user_id", userID))
	defer func() { c.end(err) }()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, admin_user, action, target_user_id, amount, description, created_at FROM admin_logs WHERE target_user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l models.AdminLog
		var target sql.NullInt64
		if err = rows.Scan(&l.ID, &l.AdminUser, &l.Action, &target, &l.Amount, &l.Description, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan admin log: %w", err)
		}
		l.TargetUserID = target.Int64
		logs = append(logs, &l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate admin logs: %w", err)
	}
	return logs, nil
}
