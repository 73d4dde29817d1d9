package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const preferenceTracer = "preference-repository"

type PostgresPreferenceRepository struct {
	db *sql.DB
}

func NewPostgresPreferenceRepository(db *sql.DB) *PostgresPreferenceRepository {
	return &PostgresPreferenceRepository{db: db}
}

func (r *PostgresPreferenceRepository) Get(ctx context.Context, userID int64) (pref *models.UserPreference, err error) {
	ctx, c := startCall(ctx, preferenceTracer, "GetPreference", attribute.Int64("user_id", userID))
	defer func() { c.end(err) }()

	query := `SELECT user_id, default_network, last_network, last_airtime_amount, saved_smartcard,
	saved_cable_provider, saved_meter_number, saved_meter_type, saved_electricity_provider,
	notify_on_transaction, notify_on_low_balance, low_balance_threshold
	FROM user_preferences WHERE user_id = $1`

	var p models.UserPreference
	err = r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.DefaultNetwork, &p.LastNetwork, &p.LastAirtimeAmount, &p.SavedSmartcard,
		&p.SavedCableProvider, &p.SavedMeterNumber, &p.SavedMeterType, &p.SavedElectricityProvider,
		&p.NotifyOnTransaction, &p.NotifyOnLowBalance, &p.LowBalanceThreshold,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = nil
		return models.DefaultPreference(userID), nil
	}
	if err != nil {
		slog.Error("failed to get preferences", "method", "Get", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return &p, nil
}

func (r *PostgresPreferenceRepository) Upsert(ctx context.Context, pref *models.UserPreference) (err error) {
	if pref == nil {
		return fmt.Errorf("preference is nil: %w", pkgerrors.ErrInvalidInput)
	}
	ctx, c := startCall(ctx, preferenceTracer, "UpsertPreference", attribute.Int64("user_id", pref.UserID))
	defer func() { c.end(err) }()

	query := `INSERT INTO user_preferences (user_id, default_network, last_network, last_airtime_amount,
	saved_smartcard, saved_cable_provider, saved_meter_number, saved_meter_type, saved_electricity_provider,
	notify_on_transaction, notify_on_low_balance, low_balance_threshold)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (user_id) DO UPDATE SET
	default_network = EXCLUDED.default_network,
	last_network = EXCLUDED.last_network,
	last_airtime_amount = EXCLUDED.last_airtime_amount,
	saved_smartcard = EXCLUDED.saved_smartcard,
	saved_cable_provider = EXCLUDED.saved_cable_provider,
	saved_meter_number = EXCLUDED.saved_meter_number,
	saved_meter_type = EXCLUDED.saved_meter_type,
	saved_electricity_provider = EXCLUDED.saved_electricity_provider,
	notify_on_transaction = EXCLUDED.notify_on_transaction,
	notify_on_low_balance = EXCLUDED.notify_on_low_balance,
	low_balance_threshold = EXCLUDED.low_balance_threshold,
	updated_at = NOW()`

	_, err = r.db.ExecContext(ctx, query,
		pref.UserID, pref.DefaultNetwork, pref.LastNetwork, pref.LastAirtimeAmount,
		pref.SavedSmartcard, pref.SavedCableProvider, pref.SavedMeterNumber, pref.SavedMeterType,
		pref.SavedElectricityProvider, pref.NotifyOnTransaction, pref.NotifyOnLowBalance, pref.LowBalanceThreshold,
	)
	if err != nil {
		slog.Error("failed to save preferences", "method", "Upsert", "user_id", pref.UserID, "error", err)
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
