package handler

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/repository"
	"github.com/iliyamo/credits-api/internal/service"
)

// The interfaces below are the service methods each handler calls. The
// concrete services in internal/service satisfy them.

type UserStore interface {
	View(ctx context.Context, key repository.UserLookup) (model.User, error)
	List(ctx context.Context, limit, offset int) ([]model.User, error)
	Update(ctx context.Context, id string, p model.UserPatch) (model.User, error)
	Delete(ctx context.Context, id string) error
}

type AuthFlows interface {
	Register(ctx context.Context, in service.NewUser) (model.User, model.Session, error)
	GoogleLogin(ctx context.Context, idToken string) (model.User, model.Session, bool, error)
	VerifyLogin2FA(ctx context.Context, u model.User, token, code string) error
	DiscardSession(ctx context.Context, token string) error
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, u model.User, keepToken, password, code string) error
	SendOTP(ctx context.Context, email string, purpose model.OTPPurpose) error
	Activate(ctx context.Context, email, code string) (model.User, error)
	SetTwoFactor(ctx context.Context, userID string, enabled bool, code string) error
}

type Ledger interface {
	UpdateCredits(ctx context.Context, userID string, upd service.CreditUpdate) (model.User, model.Transaction, error)
	Settle(ctx context.Context, payload []byte, signature string) error
	CreditsRates() model.RateTable
	Buy(ctx context.Context, u model.User, amount decimal.Decimal, returnPath string) (service.Checkout, error)
	Portal(ctx context.Context, u model.User) (string, error)
}

type TransactionStore interface {
	Create(ctx context.Context, userID string, in service.NewTransaction) (model.Transaction, error)
	View(ctx context.Context, userID, id string) (model.Transaction, error)
	List(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error)
	Update(ctx context.Context, userID, id string, p model.TransactionPatch) (model.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
}
