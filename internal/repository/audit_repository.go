package repository

import (
	"context"

	"github.com/forbill/whatsapp-vtu/internal/models"
)

type WebhookLogRepository interface {
	Create(ctx context.Context, log *models.WebhookLog) (int64, error)
	MarkProcessed(ctx context.Context, id int64, errMsg string) error
}

type AdminLogRepository interface {
	Create(ctx context.Context, log *models.AdminLog) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*models.AdminLog, error)
}
