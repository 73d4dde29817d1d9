package memory

import (
	"context"
	"sort"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/models"
)

type WebhookLogRepository struct {
	s *Store
}

func NewWebhookLogRepository(s *Store) *WebhookLogRepository {
	return &WebhookLogRepository{s: s}
}

func (r *WebhookLogRepository) Create(_ context.Context, log *models.WebhookLog) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextWebhookID++
	log.ID = r.s.nextWebhookID
	log.CreatedAt = time.Now().UTC()
	c := *log
	r.s.webhookLogs[log.ID] = &c
	return log.ID, nil
}

func (r *WebhookLogRepository) MarkProcessed(_ context.Context, id int64, errMsg string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if l, ok := r.s.webhookLogs[id]; ok {
		now := time.Now().UTC()
		l.Processed = true
		l.Error = errMsg
		l.ProcessedAt = &now
	}
	return nil
}

// Get returns a stored webhook log. Not part of the repository interface.
func (r *WebhookLogRepository) Get(id int64) (models.WebhookLog, bool) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.webhookLogs[id]
	if !ok {
		return models.WebhookLog{}, false
	}
	return *l, true
}

type AdminLogRepository struct {
	s *Store
}

func NewAdminLogRepository(s *Store) *AdminLogRepository {
	return &AdminLogRepository{s: s}
}

func (r *AdminLogRepository) Create(_ context.Context, log *models.AdminLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	log.ID = int64(len(r.s.adminLogs) + 1)
	log.CreatedAt = time.Now().UTC()
	c := *log
	r.s.adminLogs = append(r.s.adminLogs, &c)
	return nil
}

func (r *AdminLogRepository) ListByUser(_ context.Context, userID int64, limit int) ([]*models.AdminLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.AdminLog
	for _, l := range r.s.adminLogs {
		if l.TargetUserID == userID {
			c := *l
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
