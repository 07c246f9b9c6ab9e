package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/credits-api/internal/metrics"
	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/repository"
	"github.com/iliyamo/credits-api/internal/utils"
)

// SessionService mints and checks bearer sessions. A token is valid only
// while its JWT verifies and its session row exists and is unexpired.
type SessionService struct {
	Sessions *repository.SessionRepo
	Users    *repository.UserRepo
	Secret   string
	Prefix   string
	TTL      time.Duration
	Now      func() time.Time
}

func NewSessionService(s *repository.SessionRepo, u *repository.UserRepo, secret, prefix string, ttl time.Duration) *SessionService {
	return &SessionService{Sessions: s, Users: u, Secret: secret, Prefix: prefix, TTL: ttl, Now: time.Now}
}

// Create signs a token for userID and stores its session.
func (s *SessionService) Create(ctx context.Context, userID string) (model.Session, error) {
	tok, err := utils.NewSessionToken(s.Secret, s.Prefix, userID, string(model.RoleUser), s.TTL)
	if err != nil {
		return model.Session{}, fmt.Errorf("sign session token: %w", err)
	}
	sess := model.Session{
		ID:        utils.NewID(utils.SessionIDPrefix),
		UserID:    userID,
		Token:     tok.Token,
		ExpiresAt: tok.Exp,
	}
	if err := s.Sessions.Create(ctx, &sess); err != nil {
		return model.Session{}, fmt.Errorf("store session: %w", err)
	}
	metrics.SessionCreated()
	return sess, nil
}

// Validate resolves a wrapped token to its user. Expired sessions are
// removed on sight.
func (s *SessionService) Validate(ctx context.Context, token string) (model.User, error) {
	claims, err := utils.ParseSessionToken(s.Secret, s.Prefix, token)
	if err != nil || claims.Role != string(model.RoleUser) {
		return model.User{}, ErrUnauthenticated
	}

	sess, err := s.Sessions.Get(ctx, repository.SessionByToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUnauthenticated
	}
	if err != nil {
		return model.User{}, err
	}
	if sess.Expired(s.Now().UTC()) {
		_ = s.Sessions.Delete(ctx, repository.SessionByID(sess.ID))
		return model.User{}, ErrUnauthenticated
	}
	if sess.UserID != claims.Subject {
		return model.User{}, ErrUnauthenticated
	}

	u, err := s.Users.Get(ctx, repository.UserByID(sess.UserID))
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUnauthenticated
	}
	return u, err
}

func (s *SessionService) View(ctx context.Context, key repository.SessionLookup) (model.Session, error) {
	sess, err := s.Sessions.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Session{}, ErrUnauthenticated
	}
	return sess, err
}

// Delete removes the sessions addressed by key. Deleting nothing is not an
// error.
func (s *SessionService) Delete(ctx context.Context, key repository.SessionLookup) error {
	if err := s.Sessions.Delete(ctx, key); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

// DeleteOthersTx revokes every session of userID except keepToken, which
// may be empty to revoke all of them.
func (s *SessionService) DeleteOthersTx(ctx context.Context, tx *sqlx.Tx, userID, keepToken string) error {
	return s.Sessions.DeleteOthersTx(ctx, tx, userID, keepToken)
}

// PurgeExpired removes every session past its expiry. Validate already
// drops expired sessions it meets; this catches the ones nobody presents
// again.
func (s *SessionService) PurgeExpired(ctx context.Context, log logrus.FieldLogger) {
	n, err := s.Sessions.DeleteExpired(ctx, s.Now().UTC())
	if err != nil {
		log.WithError(err).Warn("session sweep failed")
		return
	}
	if n > 0 {
		log.WithField("removed", n).Info("expired sessions removed")
	}
}
