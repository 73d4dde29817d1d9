package memory

import (
	"context"
	"fmt"

	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
)

type PreferenceRepository struct {
	s *Store
}

func NewPreferenceRepository(s *Store) *PreferenceRepository {
	return &PreferenceRepository{s: s}
}

func (r *PreferenceRepository) Get(_ context.Context, userID int64) (*models.UserPreference, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.prefs[userID]
	if !ok {
		return models.DefaultPreference(userID), nil
	}
	c := *p
	return &c, nil
}

func (r *PreferenceRepository) Upsert(_ context.Context, pref *models.UserPreference) error {
	if pref == nil {
		return fmt.Errorf("preference is nil: %w", pkgerrors.ErrInvalidInput)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := *pref
	r.s.prefs[pref.UserID] = &c
	return nil
}
