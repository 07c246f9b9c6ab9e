package service

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/credits-api/internal/metrics"
	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/repository"
	"github.com/iliyamo/credits-api/internal/utils"
)

// OTPService keeps at most one live code per user and purpose.
type OTPService struct {
	DB   *sqlx.DB
	OTPs *repository.OTPRepo
	TTL  time.Duration
	Now  func() time.Time
}

func NewOTPService(db *sqlx.DB, r *repository.OTPRepo, ttl time.Duration) *OTPService {
	return &OTPService{DB: db, OTPs: r, TTL: ttl, Now: time.Now}
}

// Create replaces any existing code for (userID, purpose) with a fresh one.
func (s *OTPService) Create(ctx context.Context, userID string, purpose model.OTPPurpose) (model.OTP, error) {
	if !purpose.Valid() {
		return model.OTP{}, ErrInvalidInput
	}
	code, err := utils.NewOTPCode()
	if err != nil {
		return model.OTP{}, err
	}
	otp := model.OTP{
		ID:        utils.NewID(utils.OTPIDPrefix),
		UserID:    userID,
		Code:      code,
		Type:      purpose,
		ExpiresAt: s.Now().UTC().Add(s.TTL),
	}
	err = withTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if err := s.OTPs.DeleteTx(ctx, tx, userID, purpose); err != nil {
			return err
		}
		return s.OTPs.CreateTx(ctx, tx, &otp)
	})
	if err != nil {
		return model.OTP{}, err
	}
	metrics.OTPIssued(string(purpose))
	return otp, nil
}

// View returns the stored code, or ErrInvalidOTP when there is none.
func (s *OTPService) View(ctx context.Context, userID string, purpose model.OTPPurpose) (model.OTP, error) {
	otp, err := s.OTPs.Get(ctx, userID, purpose)
	if errors.Is(err, repository.ErrNotFound) {
		return model.OTP{}, ErrInvalidOTP
	}
	return otp, err
}

// ConsumeTx spends code inside tx. A wrong, expired or already used code is
// ErrInvalidOTP; the match and the delete happen in one statement.
func (s *OTPService) ConsumeTx(ctx context.Context, tx *sqlx.Tx, userID string, purpose model.OTPPurpose, code string) error {
	if code == "" {
		return ErrInvalidOTP
	}
	err := s.OTPs.ConsumeTx(ctx, tx, userID, purpose, code, s.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidOTP
	}
	return err
}
