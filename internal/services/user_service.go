package service

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/forbill/whatsapp-vtu/internal/models"
	"github.com/forbill/whatsapp-vtu/internal/repository"
	pkgerrors "github.com/forbill/whatsapp-vtu/pkg/errors"
	"github.com/forbill/whatsapp-vtu/pkg/phone"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	referralAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	referralCodeLength  = 8
	maxReferralAttempts = 10
)

type UserService interface {
	// GetOrCreate returns the user for phone, creating it on first contact.
	// created reports whether this call inserted the row.
	GetOrCreate(ctx context.Context, phone, name, referredByCode string) (user *models.User, created bool, err error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, name, email string) error
	Deactivate(ctx context.Context, userID int64) error
	Touch(ctx context.Context, userID int64)
	Preferences(ctx context.Context, userID int64) (*models.UserPreference, error)
	UpdatePreferences(ctx context.Context, pref *models.UserPreference) error
	ReferralStats(ctx context.Context, userID int64) (*ReferralStats, error)
}

type ReferralStats struct {
	Code         string          `json:"code"`
	Referrals    int             `json:"referrals"`
	BonusAmount  decimal.Decimal `json:"bonus_amount"`
	BonusClaimed bool            `json:"bonus_claimed"`
}

type userService struct {
	userRepo      repository.UserRepository
	prefRepo      repository.PreferenceRepository
	publisher     EventPublisher
	referralBonus decimal.Decimal
	newCode       func() (string, error)
}

func NewUserService(
	userRepo repository.UserRepository,
	prefRepo repository.PreferenceRepository,
	publisher EventPublisher,
	referralBonus decimal.Decimal,
) *userService {
	return &userService{
		userRepo:      userRepo,
		prefRepo:      prefRepo,
		publisher:     publisher,
		referralBonus: referralBonus,
		newCode:       GenerateReferralCode,
	}
}

// GenerateReferralCode draws eight characters from an alphabet without the
// easily confused 0, O, 1 and I.
func GenerateReferralCode() (string, error) {
	var b strings.Builder
	size := big.NewInt(int64(len(referralAlphabet)))
	for i := 0; i < referralCodeLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(referralAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func (s *userService) GetOrCreate(ctx context.Context, rawPhone, name, referredByCode string) (*models.User, bool, error) {
	ctx, span := tracer.Start(ctx, "UserService.GetOrCreate")
	defer span.End()

	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		span.SetStatus(codes.Error, "invalid phone")
		return nil, false, err
	}
	span.SetAttributes(attribute.String("phone", canonical))

	existing, err := s.userRepo.GetByPhone(ctx, canonical)
	if err == nil {
		return existing, false, nil
	}
	if !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		slog.Error("failed to look up user", "phone", canonical, "error", err)
		return nil, false, fmt.Errorf("%w: failed to look up user", pkgerrors.ErrInternal)
	}

	user := &models.User{
		PhoneNumber: canonical,
		Name:        strings.TrimSpace(name),
		ReferredBy:  s.resolveReferrer(ctx, canonical, referredByCode),
	}

	for attempt := 0; attempt < maxReferralAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			span.RecordError(err)
			return nil, false, fmt.Errorf("failed to generate referral code: %w", err)
		}
		taken, err := s.userRepo.ReferralCodeExists(ctx, code)
		if err != nil {
			span.RecordError(err)
			return nil, false, fmt.Errorf("failed to check referral code: %w", err)
		}
		if taken {
			continue
		}

		user.ReferralCode = code
		err = s.userRepo.Create(ctx, user)
		switch {
		case err == nil:
			s.afterCreate(ctx, user)
			return user, true, nil
		case stderrors.Is(err, pkgerrors.ErrReferralCodeTaken):
			continue
		case stderrors.Is(err, pkgerrors.ErrUserAlreadyExists):
			// Another message from the same phone won the insert.
			existing, getErr := s.userRepo.GetByPhone(ctx, canonical)
			if getErr != nil {
				span.RecordError(getErr)
				return nil, false, getErr
			}
			return existing, false, nil
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "user creation failed")
			slog.Error("failed to create user", "phone", canonical, "error", err)
			return nil, false, fmt.Errorf("failed to create user: %w", err)
		}
	}

	span.SetStatus(codes.Error, "referral codes exhausted")
	slog.Error("referral code attempts exhausted", "phone", canonical)
	return nil, false, pkgerrors.ErrReferralCodeExhausted
}

// resolveReferrer keeps code only when it belongs to another existing user.
func (s *userService) resolveReferrer(ctx context.Context, canonical, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	referrer, err := s.userRepo.GetByReferralCode(ctx, code)
	if err != nil {
		if !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
			slog.Error("failed to look up referrer", "code", code, "error", err)
		}
		return ""
	}
	if referrer.PhoneNumber == canonical {
		return ""
	}
	return code
}

func (s *userService) afterCreate(ctx context.Context, user *models.User) {
	if err := s.prefRepo.Upsert(ctx, models.DefaultPreference(user.ID)); err != nil {
		slog.Error("failed to create default preferences", "user_id", user.ID, "error", err)
	}
	slog.Info("user registered",
		"user_id", user.ID,
		"referral_code", user.ReferralCode,
		"referred_by", user.ReferredBy)
	publish(ctx, s.publisher, models.TopicUsers, user.ID, models.UserRegisteredEvent{
		UserID:    user.ID,
		Phone:     user.PhoneNumber,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *userService) GetByPhone(ctx context.Context, rawPhone string) (*models.User, error) {
	canonical, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetByPhone(ctx, canonical)
}

func (s *userService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) UpdateProfile(ctx context.Context, userID int64, name, email string) error {
	ctx, span := tracer.Start(ctx, "UserService.UpdateProfile")
	defer span.End()

	if err := s.userRepo.UpdateProfile(ctx, userID, strings.TrimSpace(name), strings.TrimSpace(email)); err != nil {
		span.RecordError(err)
		return err
	}
	slog.Info("user profile updated", "user_id", userID)
	return nil
}

func (s *userService) Deactivate(ctx context.Context, userID int64) error {
	ctx, span := tracer.Start(ctx, "UserService.Deactivate")
	defer span.End()

	if err := s.userRepo.SetActive(ctx, userID, false); err != nil {
		span.RecordError(err)
		return err
	}
	slog.Info("user deactivated", "user_id", userID)
	return nil
}

func (s *userService) Touch(ctx context.Context, userID int64) {
	if err := s.userRepo.TouchActivity(ctx, userID); err != nil {
		slog.Warn("failed to record user activity", "user_id", userID, "error", err)
	}
}

func (s *userService) Preferences(ctx context.Context, userID int64) (*models.UserPreference, error) {
	return s.prefRepo.Get(ctx, userID)
}

func (s *userService) UpdatePreferences(ctx context.Context, pref *models.UserPreference) error {
	if pref == nil {
		return pkgerrors.ErrInvalidInput
	}
	return s.prefRepo.Upsert(ctx, pref)
}

func (s *userService) ReferralStats(ctx context.Context, userID int64) (*ReferralStats, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.userRepo.CountReferrals(ctx, user.ReferralCode)
	if err != nil {
		return nil, err
	}
	return &ReferralStats{
		Code:         user.ReferralCode,
		Referrals:    count,
		BonusAmount:  s.referralBonus,
		BonusClaimed: user.ReferralBonusClaimed,
	}, nil
}
