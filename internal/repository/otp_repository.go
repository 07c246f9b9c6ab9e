package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/credits-api/internal/model"
)

type OTPRepo struct{ DB *sqlx.DB }

func NewOTPRepo(db *sqlx.DB) *OTPRepo { return &OTPRepo{DB: db} }

// DeleteTx drops the user's code for purpose, if any.
func (r *OTPRepo) DeleteTx(ctx context.Context, tx *sqlx.Tx, userID string, purpose model.OTPPurpose) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM otps WHERE user_id=? AND type=?", userID, purpose)
	return err
}

// CreateTx inserts o. Callers delete the previous code first; the
// (user_id, type) key rejects a second live row with ErrDuplicate.
func (r *OTPRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, o *model.OTP) error {
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	_, err := tx.ExecContext(ctx,
		"INSERT INTO otps (id, user_id, code, type, expires_at, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		o.ID, o.UserID, o.Code, o.Type, o.ExpiresAt, o.CreatedAt, o.UpdatedAt)
	return mapErr(err)
}

// Get returns the stored code for (userID, purpose), expired or not.
func (r *OTPRepo) Get(ctx context.Context, userID string, purpose model.OTPPurpose) (model.OTP, error) {
	var o model.OTP
	err := r.DB.GetContext(ctx, &o,
		"SELECT id, user_id, code, type, expires_at, created_at, updated_at FROM otps WHERE user_id=? AND type=? LIMIT 1",
		userID, purpose)
	return o, mapErr(err)
}

// ConsumeTx deletes the code only when it matches and has not expired.
// ErrNotFound means the code was wrong, expired or already used.
func (r *OTPRepo) ConsumeTx(ctx context.Context, tx *sqlx.Tx, userID string, purpose model.OTPPurpose, code string, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		"DELETE FROM otps WHERE user_id=? AND type=? AND code=? AND expires_at>?",
		userID, purpose, code, now)
	return expectRows(res, err)
}
