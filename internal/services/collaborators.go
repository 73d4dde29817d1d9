package service

import (
	"context"
	"log/slog"

	"github.com/forbill/whatsapp-vtu/internal/infrastructure/observability"
	"github.com/forbill/whatsapp-vtu/internal/models"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("forbill-service")

// Messenger delivers chat messages to users.
type Messenger interface {
	SendText(ctx context.Context, to, text string) error
	// SendInteractive attaches at most three reply buttons.
	SendInteractive(ctx context.Context, to, body string, buttons []models.Button) error
	MarkRead(ctx context.Context, messageID string) error
}

// VTUProvider sells airtime, data and bill payments. Purchases carry the
// caller's idempotency key.
type VTUProvider interface {
	BuyAirtime(ctx context.Context, order models.AirtimeOrder) (*models.VendResult, error)
	GetDataPlans(ctx context.Context, network models.Network) ([]models.DataPlan, error)
	BuyData(ctx context.Context, order models.DataOrder) (*models.VendResult, error)
	VerifyMeter(ctx context.Context, meterNumber, disco, meterType string) (*models.CustomerInfo, error)
	BuyElectricity(ctx context.Context, order models.ElectricityOrder) (*models.VendResult, error)
	VerifySmartcard(ctx context.Context, smartcard string, provider models.CableProvider) (*models.CustomerInfo, error)
	GetCablePackages(ctx context.Context, provider models.CableProvider) ([]models.CablePackage, error)
	BuyCableTV(ctx context.Context, order models.CableOrder) (*models.VendResult, error)
}

type PaymentGateway interface {
	CreateVirtualAccount(ctx context.Context, user *models.User) (*models.VirtualAccount, error)
}

// EventPublisher is satisfied by both the Kafka producer and the in-process
// bus.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key int64, event any) error
}

// notify sends text and swallows the failure after logging and counting it.
func notify(ctx context.Context, m Messenger, to, kind, text string) {
	if err := m.SendText(ctx, to, text); err != nil {
		observability.NotificationFailures.WithLabelValues(kind).Inc()
		slog.Error("failed to send notification",
			"component", "notification",
			"kind", kind,
			"to", to,
			"error", err)
	}
}

func notifyButtons(ctx context.Context, m Messenger, to, kind, body string, buttons []models.Button) {
	if err := m.SendInteractive(ctx, to, body, buttons); err != nil {
		observability.NotificationFailures.WithLabelValues(kind).Inc()
		slog.Error("failed to send notification",
			"component", "notification",
			"kind", kind,
			"to", to,
			"error", err)
	}
}

func publish(ctx context.Context, p EventPublisher, topic string, key int64, event any) {
	if err := p.Publish(ctx, topic, key, event); err != nil {
		slog.Error("failed to publish event", "topic", topic, "key", key, "error", err)
	}
}
