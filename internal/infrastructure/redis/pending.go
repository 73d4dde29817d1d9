package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
)

const pendingKeyPrefix = "pending:"

// PendingStore keeps one PendingAction per phone number. The key outlives the
// action by one extra ttl so a late reply can be told it expired.
type PendingStore struct {
	client RedisClient
	ttl    time.Duration
	now    func() time.Time
}

func NewPendingStore(client RedisClient, ttl time.Duration) *PendingStore {
	return &PendingStore{client: client, ttl: ttl, now: time.Now}
}

func (s *PendingStore) Save(ctx context.Context, phone string, action *models.PendingAction) error {
	action.ExpiresAt = s.now().Add(s.ttl).UTC()
	raw, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to encode pending action: %w", err)
	}
	if err := s.client.Set(ctx, pendingKeyPrefix+phone, raw, 2*s.ttl); err != nil {
		return fmt.Errorf("failed to store pending action: %w", err)
	}
	return nil
}

// Load returns ErrPendingActionNotFound when nothing is pending and
// ErrPendingActionExpired when the action is past ExpiresAt.
func (s *PendingStore) Load(ctx context.Context, phone string) (*models.PendingAction, error) {
	raw, err := s.client.Get(ctx, pendingKeyPrefix+phone)
	if stderrors.Is(err, ErrKeyNotFound) {
		return nil, pkgerrors.ErrPendingActionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending action: %w", err)
	}

	var action models.PendingAction
	if err := json.Unmarshal([]byte(raw), &action); err != nil {
		return nil, fmt.Errorf("failed to decode pending action: %w", err)
	}
	if !action.ExpiresAt.IsZero() && s.now().After(action.ExpiresAt) {
		return &action, pkgerrors.ErrPendingActionExpired
	}
	return &action, nil
}

func (s *PendingStore) Clear(ctx context.Context, phone string) error {
	return s.client.Del(ctx, pendingKeyPrefix+phone)
}
