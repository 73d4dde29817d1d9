package redis

import (
	"context"
	"testing"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryClient()
	c.now = func() time.Time { return now }

	t.Run("SetNX", func(t *testing.T) {
		ok, err := c.SetNX(ctx, "wamsg:1", "1", time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = c.SetNX(ctx, "wamsg:1", "1", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Expiry", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k", 42, time.Minute))
		v, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "42", v)

		now = now.Add(2 * time.Minute)
		_, err = c.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("Del", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "d", "x", 0))
		require.NoError(t, c.Del(ctx, "d"))
		_, err := c.Get(ctx, "d")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestPendingStore(t *testing.T) {
	ctx := context.Background()
	store := NewPendingStore(NewMemoryClient(), 10*time.Minute)

	_, err := store.Load(ctx, "2348011112222")
	assert.ErrorIs(t, err, pkgerrors.ErrPendingActionNotFound)

	action := &models.PendingAction{
		Kind:      models.PendingCablePackage,
		Provider:  models.CableGOTV,
		Smartcard: "7023456789",
		Packages: []models.CablePackage{
			{Code: "gotv-smallie", Name: "GOtv Smallie", Price: decimal.NewFromInt(1575)},
		},
	}
	require.NoError(t, store.Save(ctx, "2348011112222", action))

	loaded, err := store.Load(ctx, "2348011112222")
	require.NoError(t, err)
	assert.Equal(t, models.CableGOTV, loaded.Provider)
	require.Len(t, loaded.Packages, 1)
	assert.True(t, decimal.NewFromInt(1575).Equal(loaded.Packages[0].Price))

	require.NoError(t, store.Clear(ctx, "2348011112222"))
	_, err = store.Load(ctx, "2348011112222")
	assert.ErrorIs(t, err, pkgerrors.ErrPendingActionNotFound)
}

func TestPendingStore_Expiry(t *testing.T) {
	ctx := context.Background()
	client := NewMemoryClient()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }
	store := NewPendingStore(client, 10*time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "2348011112222", &models.PendingAction{Kind: models.PendingCablePackage}))

	now = now.Add(11 * time.Minute)
	_, err := store.Load(ctx, "2348011112222")
	assert.ErrorIs(t, err, pkgerrors.ErrPendingActionExpired)

	now = now.Add(10 * time.Minute)
	_, err = store.Load(ctx, "2348011112222")
	assert.ErrorIs(t, err, pkgerrors.ErrPendingActionNotFound)
}
