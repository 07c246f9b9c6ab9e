package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/repository"
	"github.com/iliyamo/credits-api/internal/utils"
)

// generatedPasswordLength is used for accounts created by Google sign-in.
const generatedPasswordLength = 16

// AuthService drives the account flows that need a one-time code or a
// session: registration, sign-in, activation, password change and 2FA.
type AuthService struct {
	DB         *sqlx.DB
	UserRepo   *repository.UserRepo
	Users      *UserService
	Sessions   *SessionService
	OTPs       *OTPService
	Mail       Mailer
	Identity   IdentityVerifier
	BcryptCost int
	Log        logrus.FieldLogger
}

// Register creates an inactive account, issues its activation code and a
// first session, and sends the welcome mail.
func (s *AuthService) Register(ctx context.Context, in NewUser) (model.User, model.Session, error) {
	u, err := s.Users.Create(ctx, in)
	if err != nil {
		return model.User{}, model.Session{}, err
	}
	otp, err := s.OTPs.Create(ctx, u.ID, model.OTPActivation)
	if err != nil {
		return model.User{}, model.Session{}, err
	}
	sess, err := s.Sessions.Create(ctx, u.ID)
	if err != nil {
		return model.User{}, model.Session{}, err
	}
	if err := s.Mail.Welcome(ctx, u.Email, otp.Code, u.ID, sess.Token); err != nil {
		return model.User{}, model.Session{}, err
	}
	s.Log.WithField("user_id", u.ID).Info("user registered")
	return u, sess, nil
}

// GoogleLogin signs in with a Google id_token. Unknown emails get a new
// active account with a generated password that is mailed to them; known
// accounts without a Google link are linked and activated. created reports
// which of the two happened.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (u model.User, sess model.Session, created bool, err error) {
	ident, err := s.Identity.Verify(ctx, idToken)
	if err != nil {
		return model.User{}, model.Session{}, false, err
	}
	// An unverified address must not claim an existing account.
	if ident.Email == "" || ident.Subject == "" || !ident.EmailVerified {
		return model.User{}, model.Session{}, false, ErrUnauthenticated
	}

	u, err = s.Users.View(ctx, repository.UserByEmail(ident.Email))
	switch {
	case err == nil:
		if u.GoogleUserID == nil {
			active := true
			sub := ident.Subject
			u, err = s.Users.Update(ctx, u.ID, model.UserPatch{GoogleUserID: &sub, IsActive: &active})
			if err != nil {
				return model.User{}, model.Session{}, false, err
			}
		}
	case errors.Is(err, ErrUserNotFound):
		password, perr := utils.GeneratePassword(generatedPasswordLength)
		if perr != nil {
			return model.User{}, model.Session{}, false, perr
		}
		var first *string
		if ident.Name != "" {
			name := ident.Name
			first = &name
		}
		sub := ident.Subject
		u, err = s.Users.Create(ctx, NewUser{
			FirstName:    first,
			Email:        ident.Email,
			Password:     password,
			GoogleUserID: &sub,
			IsActive:     true,
		})
		if err != nil {
			return model.User{}, model.Session{}, false, err
		}
		if err := s.Mail.Password(ctx, u.Email, password); err != nil {
			return model.User{}, model.Session{}, false, err
		}
		created = true
	default:
		return model.User{}, model.Session{}, false, err
	}

	sess, err = s.Sessions.Create(ctx, u.ID)
	if err != nil {
		return model.User{}, model.Session{}, false, err
	}
	return u, sess, created, nil
}

// Login checks email and password and mints a new session on success.
// Every successful call creates a separate session.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.User, model.Session, error) {
	u, err := s.Users.View(ctx, repository.UserByEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return model.User{}, model.Session{}, ErrUnauthenticated
	}
	if err != nil {
		return model.User{}, model.Session{}, err
	}
	if !utils.VerifyPassword(u.Password, password) {
		return model.User{}, model.Session{}, ErrUnauthenticated
	}
	sess, err := s.Sessions.Create(ctx, u.ID)
	if err != nil {
		return model.User{}, model.Session{}, err
	}
	return u, sess, nil
}

// VerifyLogin2FA spends the user's TWO_FACTOR_AUTH code. On any failure the
// session minted for this login is deleted before ErrInvalidOTP is
// returned.
func (s *AuthService) VerifyLogin2FA(ctx context.Context, u model.User, token, code string) error {
	err := withTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		return s.OTPs.ConsumeTx(ctx, tx, u.ID, model.OTPTwoFactorAuth, code)
	})
	if err == nil {
		return nil
	}
	if derr := s.Sessions.Delete(ctx, repository.SessionByToken(token)); derr != nil {
		s.Log.WithError(derr).WithField("user_id", u.ID).Warn("drop unverified session failed")
	}
	return err
}

// DiscardSession drops a session that was minted but must not be handed out.
func (s *AuthService) DiscardSession(ctx context.Context, token string) error {
	return s.Sessions.Delete(ctx, repository.SessionByToken(token))
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.Sessions.Delete(ctx, repository.SessionByToken(token))
}

// ChangePassword spends a CHANGE_PASSWORD code, stores the new hash and
// revokes every other session of the user in one transaction. keepToken is
// the bearer token used for the call, or empty when an API key was used.
func (s *AuthService) ChangePassword(ctx context.Context, u model.User, keepToken, password, code string) error {
	if len(password) < 8 {
		return ErrInvalidInput
	}
	hash, err := utils.HashPassword(password, s.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return withTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if err := s.OTPs.ConsumeTx(ctx, tx, u.ID, model.OTPChangePassword, code); err != nil {
			return err
		}
		if err := s.UserRepo.UpdateTx(ctx, tx, u.ID, model.UserPatch{Password: &hash}); err != nil {
			return err
		}
		return s.Sessions.DeleteOthersTx(ctx, tx, u.ID, keepToken)
	})
}

// SendOTP issues a code for purpose and mails it to the user.
func (s *AuthService) SendOTP(ctx context.Context, email string, purpose model.OTPPurpose) error {
	u, err := s.Users.View(ctx, repository.UserByEmail(email))
	if err != nil {
		return err
	}
	otp, err := s.OTPs.Create(ctx, u.ID, purpose)
	if err != nil {
		return err
	}
	return s.Mail.OTP(ctx, u.Email, otp.Code)
}

// Activate spends an ACTIVATION code and marks the account active.
func (s *AuthService) Activate(ctx context.Context, email, code string) (model.User, error) {
	u, err := s.Users.View(ctx, repository.UserByEmail(email))
	if err != nil {
		return model.User{}, err
	}
	active := true
	err = withTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if err := s.OTPs.ConsumeTx(ctx, tx, u.ID, model.OTPActivation, code); err != nil {
			return err
		}
		return s.UserRepo.UpdateTx(ctx, tx, u.ID, model.UserPatch{IsActive: &active})
	})
	if err != nil {
		return model.User{}, err
	}
	u.IsActive = true
	return u, nil
}

// SetTwoFactor turns 2FA on or off after spending a TWO_FACTOR_AUTH code.
func (s *AuthService) SetTwoFactor(ctx context.Context, userID string, enabled bool, code string) error {
	return withTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if err := s.OTPs.ConsumeTx(ctx, tx, userID, model.OTPTwoFactorAuth, code); err != nil {
			return err
		}
		return s.UserRepo.UpdateTx(ctx, tx, userID, model.UserPatch{Is2FAEnabled: &enabled})
	})
}
