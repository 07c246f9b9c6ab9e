package service

import (
	"context"

	"github.com/shopspring/decimal"
)

// CustomerUpdate lists the Stripe customer fields the service changes. Empty
// fields are left alone.
type CustomerUpdate struct {
	Name   string
	UserID string
}

// CheckoutRequest describes a one-off credits purchase.
type CheckoutRequest struct {
	CustomerID     string
	PriceID        string
	UserID         string
	ValueInCredits decimal.Decimal
	ValueInFiat    decimal.Decimal
	ReturnPath     string
}

// CheckoutCompleted is the verified content of a checkout.session.completed
// webhook.
type CheckoutCompleted struct {
	UserID         string
	PaymentIntent  string
	ValueInCredits decimal.Decimal
	ValueInFiat    decimal.Decimal
}

// PaymentProvider is the subset of Stripe the service needs.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, name, email string) (string, error)
	UpdateCustomer(ctx context.Context, customerID string, upd CustomerUpdate) error
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
	// ParseCheckoutCompleted verifies the signature and returns ErrWrongEvent
	// for any other event type and ErrInvalidInput for a bad payload.
	ParseCheckoutCompleted(payload []byte, signature string) (CheckoutCompleted, error)
}

// ExternalIdentity is what an OAuth identity token asserts about its holder.
type ExternalIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// IdentityVerifier checks third-party identity tokens. Any rejection is
// reported as ErrUnauthenticated.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (ExternalIdentity, error)
}

// Mailer sends the account emails.
type Mailer interface {
	Welcome(ctx context.Context, to, code, userID, token string) error
	OTP(ctx context.Context, to, code string) error
	Password(ctx context.Context, to, password string) error
}
