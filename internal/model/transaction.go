package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// TransactionType is the direction of a ledger entry.
type TransactionType string

const (
    Credit TransactionType = "CREDIT"
    Debit  TransactionType = "DEBIT"
)

func (t TransactionType) Valid() bool {
    return t == Credit || t == Debit
}

// Transaction mirrors the `transactions` table. StripePaymentIntent is
// unique when set and makes settlement idempotent.
type Transaction struct {
    ID                  string          `db:"id" json:"id"`
    UserID              string          `db:"user_id" json:"user_id"`
    StripePaymentIntent *string         `db:"stripe_payment_intent" json:"stripe_payment_intent"`
    Description         string          `db:"description" json:"description"`
    ValueInCredits      decimal.Decimal `db:"value_in_credits" json:"value_in_credits"`
    ValueInFiat         decimal.Decimal `db:"value_in_fiat" json:"value_in_fiat"`
    Type                TransactionType `db:"type" json:"type"`
    CreatedAt           time.Time       `db:"created_at" json:"created_at"`
    UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// TransactionView hides the payment reference from account holders.
type TransactionView struct {
    ID             string          `json:"id"`
    UserID         string          `json:"user_id"`
    Description    string          `json:"description"`
    ValueInCredits decimal.Decimal `json:"value_in_credits"`
    ValueInFiat    decimal.Decimal `json:"value_in_fiat"`
    Type           TransactionType `json:"type"`
    CreatedAt      time.Time       `json:"created_at"`
    UpdatedAt      time.Time       `json:"updated_at"`
}

func (t Transaction) View() TransactionView {
    return TransactionView{
        ID:             t.ID,
        UserID:         t.UserID,
        Description:    t.Description,
        ValueInCredits: t.ValueInCredits,
        ValueInFiat:    t.ValueInFiat,
        Type:           t.Type,
        CreatedAt:      t.CreatedAt,
        UpdatedAt:      t.UpdatedAt,
    }
}

// TransactionPatch carries the editable transaction fields.
type TransactionPatch struct {
    StripePaymentIntent *string
    Description         *string
    ValueInCredits      *decimal.Decimal
    ValueInFiat         *decimal.Decimal
    Type                *TransactionType
}
