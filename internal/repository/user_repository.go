package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/credits-api/internal/model"
)

const userColumns = "id, first_name, last_name, email, stripe_customer_id, google_user_id, password, " +
	"credits, is_2fa_enabled, is_dark_mode, is_active, created_at, updated_at"

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// CreateTx inserts u inside tx. The email is normalised to lower case and
// timestamps are filled in when zero.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	_, err := tx.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)",
		u.ID, u.FirstName, u.LastName, u.Email, u.StripeCustomerID, u.GoogleUserID, u.Password,
		u.Credits, u.Is2FAEnabled, u.IsDarkMode, u.IsActive, u.CreatedAt, u.UpdatedAt)
	return mapErr(err)
}

// Get fetches one user by id or email.
func (r *UserRepo) Get(ctx context.Context, key UserLookup) (model.User, error) {
	return getUser(ctx, r.DB, key)
}

func (r *UserRepo) GetTx(ctx context.Context, tx *sqlx.Tx, key UserLookup) (model.User, error) {
	return getUser(ctx, tx, key)
}

// GetForUpdateTx reads the user and holds a row lock until tx ends.
func (r *UserRepo) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, key UserLookup) (model.User, error) {
	col, val := key.userColumn()
	var u model.User
	err := sqlx.GetContext(ctx, tx, &u,
		"SELECT "+userColumns+" FROM users WHERE "+col+"=? LIMIT 1 FOR UPDATE", val)
	return u, mapErr(err)
}

func getUser(ctx context.Context, q sqlx.QueryerContext, key UserLookup) (model.User, error) {
	col, val := key.userColumn()
	var u model.User
	err := sqlx.GetContext(ctx, q, &u, "SELECT "+userColumns+" FROM users WHERE "+col+"=? LIMIT 1", val)
	return u, mapErr(err)
}

// List returns a page of users in creation order.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	users := []model.User{}
	err := r.DB.SelectContext(ctx, &users,
		"SELECT "+userColumns+" FROM users ORDER BY created_at, id LIMIT ? OFFSET ?", limit, offset)
	return users, mapErr(err)
}

// Update applies the non-nil fields of p to the user with the given id.
func (r *UserRepo) Update(ctx context.Context, id string, p model.UserPatch) error {
	return updateUser(ctx, r.DB, id, p)
}

func (r *UserRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, id string, p model.UserPatch) error {
	return updateUser(ctx, tx, id, p)
}

func updateUser(ctx context.Context, q sqlx.ExecerContext, id string, p model.UserPatch) error {
	if p.Empty() {
		return nil
	}
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)
	add := func(col string, v interface{}) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if p.FirstName != nil {
		add("first_name", *p.FirstName)
	}
	if p.LastName != nil {
		add("last_name", *p.LastName)
	}
	if p.GoogleUserID != nil {
		add("google_user_id", *p.GoogleUserID)
	}
	if p.IsDarkMode != nil {
		add("is_dark_mode", *p.IsDarkMode)
	}
	if p.IsActive != nil {
		add("is_active", *p.IsActive)
	}
	if p.Is2FAEnabled != nil {
		add("is_2fa_enabled", *p.Is2FAEnabled)
	}
	if p.Password != nil {
		add("password", *p.Password)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)

	res, err := q.ExecContext(ctx, fmt.Sprintf("UPDATE users SET %s WHERE id=?", strings.Join(sets, ", ")), args...)
	return expectRows(res, err)
}

// SetCreditsTx overwrites the stored balance.
func (r *UserRepo) SetCreditsTx(ctx context.Context, tx *sqlx.Tx, id string, credits decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET credits=?, updated_at=? WHERE id=?", credits, time.Now().UTC(), id)
	return expectRows(res, err)
}

// Delete removes the user; sessions, OTPs and transactions cascade.
func (r *UserRepo) Delete(ctx context.Context, key UserLookup) error {
	col, val := key.userColumn()
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE "+col+"=?", val)
	return expectRows(res, err)
}
