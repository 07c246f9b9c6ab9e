package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/repository"
	"github.com/iliyamo/credits-api/internal/utils"
)

const (
	signupCredits     = 100
	signupFiat        = 1
	signupDescription = "Free credits on signup."
)

// NewUser is the input for account creation. Password is plain text.
type NewUser struct {
	FirstName    *string
	LastName     *string
	Email        string
	Password     string
	GoogleUserID *string
	IsActive     bool
}

type UserService struct {
	DB           *sqlx.DB
	Users        *repository.UserRepo
	Transactions *repository.TransactionRepo
	Payments     PaymentProvider
	BcryptCost   int
	Log          logrus.FieldLogger
}

func NewUserService(db *sqlx.DB, u *repository.UserRepo, t *repository.TransactionRepo, p PaymentProvider, cost int, log logrus.FieldLogger) *UserService {
	return &UserService{DB: db, Users: u, Transactions: t, Payments: p, BcryptCost: cost, Log: log}
}

// Create registers a Stripe customer, stores the user with the signup
// bonus and tags the customer with the new user id.
func (s *UserService) Create(ctx context.Context, in NewUser) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return model.User{}, ErrInvalidInput
	}
	if _, err := s.Users.Get(ctx, repository.UserByEmail(email)); err == nil {
		return model.User{}, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, err
	}

	first, last := titlePtr(in.FirstName), titlePtr(in.LastName)
	customerID, err := s.Payments.CreateCustomer(ctx, fullName(first, last), email)
	if err != nil {
		return model.User{}, err
	}
	hash, err := utils.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := model.User{
		ID:               utils.NewID(utils.UserIDPrefix),
		FirstName:        first,
		LastName:         last,
		Email:            email,
		StripeCustomerID: customerID,
		GoogleUserID:     in.GoogleUserID,
		Password:         hash,
		Credits:          decimal.NewFromInt(signupCredits),
		IsDarkMode:       true,
		IsActive:         in.IsActive,
	}
	bonus := model.Transaction{
		ID:             utils.NewID(utils.TransactionIDPrefix),
		UserID:         u.ID,
		Description:    signupDescription,
		ValueInCredits: decimal.NewFromInt(signupCredits),
		ValueInFiat:    decimal.NewFromInt(signupFiat),
		Type:           model.Credit,
	}
	err = withTx(ctx, s.DB, func(tx *sqlx.Tx) error {
		if err := s.Users.CreateTx(ctx, tx, &u); err != nil {
			return err
		}
		return s.Transactions.CreateTx(ctx, tx, &bonus)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return model.User{}, ErrUserExists
	}
	if err != nil {
		return model.User{}, err
	}

	if err := s.Payments.UpdateCustomer(ctx, customerID, CustomerUpdate{UserID: u.ID}); err != nil {
		s.Log.WithError(err).WithField("user_id", u.ID).Warn("tag stripe customer failed")
	}
	return u, nil
}

func (s *UserService) View(ctx context.Context, key repository.UserLookup) (model.User, error) {
	u, err := s.Users.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	if limit < 0 || offset < 0 {
		return nil, ErrInvalidInput
	}
	return s.Users.List(ctx, limit, offset)
}

// Update applies p to the user. Names are title-cased and mirrored to the
// Stripe customer.
func (s *UserService) Update(ctx context.Context, id string, p model.UserPatch) (model.User, error) {
	u, err := s.View(ctx, repository.UserByID(id))
	if err != nil {
		return model.User{}, err
	}
	if p.Empty() {
		return u, nil
	}
	p.FirstName, p.LastName = titlePtr(p.FirstName), titlePtr(p.LastName)

	if p.FirstName != nil || p.LastName != nil {
		first, last := u.FirstName, u.LastName
		if p.FirstName != nil {
			first = p.FirstName
		}
		if p.LastName != nil {
			last = p.LastName
		}
		if err := s.Payments.UpdateCustomer(ctx, u.StripeCustomerID, CustomerUpdate{Name: fullName(first, last)}); err != nil {
			return model.User{}, err
		}
	}

	switch err := s.Users.Update(ctx, id, p); {
	case errors.Is(err, repository.ErrNotFound):
		return model.User{}, ErrUserNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return model.User{}, ErrInvalidInput
	case err != nil:
		return model.User{}, err
	}
	return s.View(ctx, repository.UserByID(id))
}

// Delete removes the user together with its sessions, codes and ledger.
func (s *UserService) Delete(ctx context.Context, id string) error {
	err := s.Users.Delete(ctx, repository.UserByID(id))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func titlePtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := utils.TitleWords(*s)
	return &t
}

func fullName(first, last *string) string {
	var f, l string
	if first != nil {
		f = *first
	}
	if last != nil {
		l = *last
	}
	return strings.TrimSpace(f + " " + l)
}
