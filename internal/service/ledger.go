package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/credits-api/internal/metrics"
	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/repository"
	"github.com/iliyamo/credits-api/internal/utils"
)

// CreditUpdate describes one balance change. With Type nil, Amount is the
// new balance; with Credit or Debit it is added or subtracted.
type CreditUpdate struct {
	Amount        decimal.Decimal
	Type          *model.TransactionType
	PaymentIntent *string
	Description   string
}

// Checkout is the result of starting a credits purchase.
type Checkout struct {
	ReturnPath     string          `json:"return_path"`
	URL            string          `json:"url"`
	ValueInCredits decimal.Decimal `json:"value_in_credits"`
	ValueInFiat    decimal.Decimal `json:"value_in_fiat"`
}

// LedgerService keeps users' balances and their transaction log in step.
type LedgerService struct {
	DB           *sqlx.DB
	Users        *repository.UserRepo
	Transactions *repository.TransactionRepo
	Payments     PaymentProvider
	Rates        model.RateTable
	Log          logrus.FieldLogger
}

func NewLedgerService(db *sqlx.DB, u *repository.UserRepo, t *repository.TransactionRepo, p PaymentProvider, rates model.RateTable, log logrus.FieldLogger) *LedgerService {
	return &LedgerService{DB: db, Users: u, Transactions: t, Payments: p, Rates: rates, Log: log}
}

// UpdateCredits writes the new balance and appends the matching transaction
// in one database transaction, holding the user row lock throughout. The
// transaction's magnitude always equals the balance change.
func (s *LedgerService) UpdateCredits(ctx context.Context, userID string, upd CreditUpdate) (model.User, model.Transaction, error) {
	if upd.Amount.IsNegative() {
		return model.User{}, model.Transaction{}, ErrInvalidInput
	}
	var (
		user  model.User
		entry model.Transaction
	)
	err := withTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		u, err := s.Users.GetForUpdateTx(ctx, tx, repository.UserByID(userID))
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		old := u.Credits
		next := upd.Amount.Round(2)
		if upd.Type != nil {
			switch *upd.Type {
			case model.Credit:
				next = old.Add(upd.Amount).Round(2)
			case model.Debit:
				next = old.Sub(upd.Amount).Round(2)
			default:
				return ErrInvalidInput
			}
		}
		if next.IsNegative() {
			return ErrInsufficientCredits
		}

		diff := next.Sub(old)
		magnitude := diff.Abs().Round(2)
		kind := model.Debit
		if diff.IsPositive() {
			kind = model.Credit
		}
		desc := upd.Description
		if desc == "" {
			desc = fmt.Sprintf("Admin updated credits from %s to %s.", old.StringFixed(2), next.StringFixed(2))
		}

		if err := s.Users.SetCreditsTx(ctx, tx, u.ID, next); err != nil {
			return err
		}
		entry = model.Transaction{
			ID:                  utils.NewID(utils.TransactionIDPrefix),
			UserID:              u.ID,
			StripePaymentIntent: upd.PaymentIntent,
			Description:         desc,
			ValueInCredits:      magnitude,
			ValueInFiat:         s.Rates.FiatValue(magnitude),
			Type:                kind,
		}
		if err := s.Transactions.CreateTx(ctx, tx, &entry); err != nil {
			if errors.Is(err, repository.ErrDuplicate) && upd.PaymentIntent != nil {
				return ErrAlreadySettled
			}
			return err
		}
		u.Credits = next
		user = u
		return nil
	})
	if err != nil {
		return model.User{}, model.Transaction{}, err
	}
	metrics.CreditsMoved(string(entry.Type), entry.ValueInCredits.InexactFloat64())
	return user, entry, nil
}

// Settle credits the buyer of a completed checkout. Replaying a payment
// intent that is already in the ledger returns ErrAlreadySettled and
// changes nothing.
func (s *LedgerService) Settle(ctx context.Context, payload []byte, signature string) error {
	done, err := s.Payments.ParseCheckoutCompleted(payload, signature)
	if err != nil {
		metrics.Settlement("rejected")
		return err
	}
	credit := model.Credit
	_, _, err = s.UpdateCredits(ctx, done.UserID, CreditUpdate{
		Amount:        done.ValueInCredits,
		Type:          &credit,
		PaymentIntent: &done.PaymentIntent,
		Description: fmt.Sprintf("User bought %s credits for $%s.",
			done.ValueInCredits.String(), done.ValueInFiat.String()),
	})
	log := s.Log.WithFields(logrus.Fields{"user_id": done.UserID, "payment_intent": done.PaymentIntent})
	switch {
	case errors.Is(err, ErrAlreadySettled):
		metrics.Settlement("duplicate")
		log.Info("checkout already settled")
		return err
	case errors.Is(err, ErrUserNotFound):
		metrics.Settlement("rejected")
		return ErrInvalidInput
	case err != nil:
		metrics.Settlement("failed")
		return err
	}
	metrics.Settlement("settled")
	log.Info("checkout settled")
	return nil
}

// CreditsRates returns the configured purchase tiers.
func (s *LedgerService) CreditsRates() model.RateTable { return s.Rates }

// Buy opens a Stripe checkout for amount fiat units at the matching tier.
func (s *LedgerService) Buy(ctx context.Context, u model.User, amount decimal.Decimal, returnPath string) (Checkout, error) {
	tier, ok := s.Rates.Find(amount)
	if !ok {
		return Checkout{}, ErrRateNotFound
	}
	credits := tier.Rate.Mul(amount).Round(2)
	url, err := s.Payments.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID:     u.StripeCustomerID,
		PriceID:        tier.StripePriceID,
		UserID:         u.ID,
		ValueInCredits: credits,
		ValueInFiat:    amount,
		ReturnPath:     returnPath,
	})
	if err != nil {
		return Checkout{}, err
	}
	return Checkout{ReturnPath: returnPath, URL: url, ValueInCredits: credits, ValueInFiat: amount}, nil
}

// Portal opens a Stripe billing portal session for u.
func (s *LedgerService) Portal(ctx context.Context, u model.User) (string, error) {
	return s.Payments.CreatePortalSession(ctx, u.StripeCustomerID)
}
