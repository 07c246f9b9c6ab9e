package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/credits-api/internal/model"
)

const sessionColumns = "id, user_id, token, expires_at, created_at, updated_at"

// SessionRepo persists bearer sessions. A row is the only proof that a token
// is still valid; deleting it revokes the token.
type SessionRepo struct{ DB *sqlx.DB }

func NewSessionRepo(db *sqlx.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions ("+sessionColumns+") VALUES (?,?,?,?,?,?)",
		s.ID, s.UserID, s.Token, s.ExpiresAt, s.CreatedAt, s.UpdatedAt)
	return mapErr(err)
}

// Get returns the first session matching key.
func (r *SessionRepo) Get(ctx context.Context, key SessionLookup) (model.Session, error) {
	col, val := key.sessionColumn()
	var s model.Session
	err := r.DB.GetContext(ctx, &s,
		"SELECT "+sessionColumns+" FROM sessions WHERE "+col+"=? LIMIT 1", val)
	return s, mapErr(err)
}

// Delete removes every session matching key.
func (r *SessionRepo) Delete(ctx context.Context, key SessionLookup) error {
	col, val := key.sessionColumn()
	res, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE "+col+"=?", val)
	return expectRows(res, err)
}

// DeleteOthersTx revokes all of the user's sessions except keepToken.
func (r *SessionRepo) DeleteOthersTx(ctx context.Context, tx *sqlx.Tx, userID, keepToken string) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM sessions WHERE user_id=? AND token<>?", userID, keepToken)
	return err
}

// DeleteExpired purges sessions past their expiry and reports how many went.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at<=?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
