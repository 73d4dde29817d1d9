package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/models"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/shopspring/decimal"
)

type UserRepository struct {
	s *Store
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{s: s}
}

func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	if user == nil {
		return pkgerrors.ErrNilUser
	}
	if user.PhoneNumber == "" || user.ReferralCode == "" {
		return fmt.Errorf("phone number and referral code are required: %w", pkgerrors.ErrInvalidInput)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.usersByTel[user.PhoneNumber]; ok {
		return pkgerrors.ErrUserAlreadyExists
	}
	if _, ok := r.s.usersByCode[user.ReferralCode]; ok {
		return pkgerrors.ErrReferralCodeTaken
	}

	r.s.nextUserID++
	now := time.Now().UTC()
	user.ID = r.s.nextUserID
	user.Balance = decimal.Zero
	user.IsActive = true
	user.IsBlocked = false
	user.CreatedAt = now
	user.UpdatedAt = now

	r.s.users[user.ID] = copyUser(user)
	r.s.usersByTel[user.PhoneNumber] = user.ID
	r.s.usersByCode[user.ReferralCode] = user.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	r.s.mu.Lock()
	id, ok := r.s.usersByTel[phone]
	r.s.mu.Unlock()
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	r.s.mu.Lock()
	id, ok := r.s.usersByCode[code]
	r.s.mu.Unlock()
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) ReferralCodeExists(_ context.Context, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.usersByCode[code]
	return ok, nil
}

func (r *UserRepository) GetBalance(_ context.Context, userID int64) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return decimal.Zero, pkgerrors.ErrUserNotFound
	}
	return u.Balance, nil
}

func (r *UserRepository) update(userID int64, fn func(u *models.User) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return pkgerrors.ErrUserNotFound
	}
	if err := fn(u); err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, userID int64, name, email string) error {
	return r.update(userID, func(u *models.User) error {
		u.Name = name
		u.Email = email
		return nil
	})
}

func (r *UserRepository) SetActive(_ context.Context, userID int64, active bool) error {
	return r.update(userID, func(u *models.User) error {
		u.IsActive = active
		return nil
	})
}

func (r *UserRepository) SetVirtualAccount(_ context.Context, userID int64, account models.VirtualAccount) error {
	return r.update(userID, func(u *models.User) error {
		for id, other := range r.s.users {
			if id != userID && account.AccountReference != "" && other.AccountReference == account.AccountReference {
				return pkgerrors.ErrVirtualAccountExists
			}
		}
		u.VirtualAccountNumber = account.AccountNumber
		u.VirtualAccountName = account.AccountName
		u.VirtualAccountBank = account.BankName
		u.AccountReference = account.AccountReference
		return nil
	})
}

func (r *UserRepository) TouchActivity(_ context.Context, userID int64) error {
	return r.update(userID, func(u *models.User) error {
		now := time.Now().UTC()
		u.LastActivity = &now
		return nil
	})
}

func (r *UserRepository) ClaimReferralBonus(_ context.Context, userID int64) (bool, error) {
	claimed := false
	err := r.update(userID, func(u *models.User) error {
		if !u.ReferralBonusClaimed {
			u.ReferralBonusClaimed = true
			claimed = true
		}
		return nil
	})
	return claimed, err
}

func (r *UserRepository) CountReferrals(_ context.Context, code string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, u := range r.s.users {
		if u.ReferredBy == code {
			n++
		}
	}
	return n, nil
}
