package repository

import (
	"context"

	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/shopspring/decimal"
)

type UserRepository interface {
	// Create inserts a user with a zero balance. A taken phone number yields
	// ErrUserAlreadyExists.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	UpdateProfile(ctx context.Context, userID int64, name, email string) error
	SetActive(ctx context.Context, userID int64, active bool) error
	SetVirtualAccount(ctx context.Context, userID int64, account models.VirtualAccount) error
	TouchActivity(ctx context.Context, userID int64) error
	// ClaimReferralBonus flips referral_bonus_claimed once; it reports false
	// when the flag was already set.
	ClaimReferralBonus(ctx context.Context, userID int64) (bool, error)
	CountReferrals(ctx context.Context, code string) (int, error)
}

type PreferenceRepository interface {
	// Get returns the stored preferences or the defaults when none exist.
	Get(ctx context.Context, userID int64) (*models.UserPreference, error)
	Upsert(ctx context.Context, pref *models.UserPreference) error
}
