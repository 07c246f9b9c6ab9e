package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/credits-api/internal/model"
)

const transactionColumns = "id, user_id, stripe_payment_intent, description, value_in_credits, " +
	"value_in_fiat, type, created_at, updated_at"

type TransactionRepo struct{ DB *sqlx.DB }

func NewTransactionRepo(db *sqlx.DB) *TransactionRepo { return &TransactionRepo{DB: db} }

func (r *TransactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	return insertTransaction(ctx, r.DB, t)
}

// CreateTx inserts t inside tx. A repeated payment intent yields ErrDuplicate.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, t *model.Transaction) error {
	return insertTransaction(ctx, tx, t)
}

func insertTransaction(ctx context.Context, q sqlx.ExecerContext, t *model.Transaction) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := q.ExecContext(ctx,
		"INSERT INTO transactions ("+transactionColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
		t.ID, t.UserID, t.StripePaymentIntent, t.Description, t.ValueInCredits,
		t.ValueInFiat, t.Type, t.CreatedAt, t.UpdatedAt)
	return mapErr(err)
}

// Get returns the transaction only when it belongs to userID.
func (r *TransactionRepo) Get(ctx context.Context, userID, id string) (model.Transaction, error) {
	var t model.Transaction
	err := r.DB.GetContext(ctx, &t,
		"SELECT "+transactionColumns+" FROM transactions WHERE id=? AND user_id=? LIMIT 1", id, userID)
	return t, mapErr(err)
}

// ListByUser returns the user's transactions, newest first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error) {
	out := []model.Transaction{}
	err := r.DB.SelectContext(ctx, &out,
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		userID, limit, offset)
	return out, mapErr(err)
}

func (r *TransactionRepo) Update(ctx context.Context, userID, id string, p model.TransactionPatch) error {
	var (
		sets []string
		args []interface{}
	)
	if p.StripePaymentIntent != nil {
		sets, args = append(sets, "stripe_payment_intent=?"), append(args, *p.StripePaymentIntent)
	}
	if p.Description != nil {
		sets, args = append(sets, "description=?"), append(args, *p.Description)
	}
	if p.ValueInCredits != nil {
		sets, args = append(sets, "value_in_credits=?"), append(args, *p.ValueInCredits)
	}
	if p.ValueInFiat != nil {
		sets, args = append(sets, "value_in_fiat=?"), append(args, *p.ValueInFiat)
	}
	if p.Type != nil {
		sets, args = append(sets, "type=?"), append(args, *p.Type)
	}
	if len(sets) == 0 {
		return nil
	}
	sets, args = append(sets, "updated_at=?"), append(args, time.Now().UTC(), id, userID)

	res, err := r.DB.ExecContext(ctx,
		fmt.Sprintf("UPDATE transactions SET %s WHERE id=? AND user_id=?", strings.Join(sets, ", ")), args...)
	return expectRows(res, err)
}

func (r *TransactionRepo) Delete(ctx context.Context, userID, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM transactions WHERE id=? AND user_id=?", id, userID)
	return expectRows(res, err)
}
