package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/repository"
	"github.com/iliyamo/credits-api/internal/utils"
)

// NewTransaction is a ledger entry written directly by an operator. It does
// not touch the user's balance.
type NewTransaction struct {
	Description    string
	ValueInCredits decimal.Decimal
	ValueInFiat    decimal.Decimal
	Type           model.TransactionType
}

type TransactionService struct {
	Users        *repository.UserRepo
	Transactions *repository.TransactionRepo
}

func NewTransactionService(u *repository.UserRepo, t *repository.TransactionRepo) *TransactionService {
	return &TransactionService{Users: u, Transactions: t}
}

func (s *TransactionService) requireUser(ctx context.Context, userID string) error {
	_, err := s.Users.Get(ctx, repository.UserByID(userID))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *TransactionService) Create(ctx context.Context, userID string, in NewTransaction) (model.Transaction, error) {
	if !in.Type.Valid() || in.Description == "" {
		return model.Transaction{}, ErrInvalidInput
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return model.Transaction{}, err
	}
	t := model.Transaction{
		ID:             utils.NewID(utils.TransactionIDPrefix),
		UserID:         userID,
		Description:    in.Description,
		ValueInCredits: in.ValueInCredits.Round(2),
		ValueInFiat:    in.ValueInFiat.Round(2),
		Type:           in.Type,
	}
	if err := s.Transactions.Create(ctx, &t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Transaction{}, ErrInvalidInput
		}
		return model.Transaction{}, err
	}
	return t, nil
}

func (s *TransactionService) View(ctx context.Context, userID, id string) (model.Transaction, error) {
	t, err := s.Transactions.Get(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Transaction{}, ErrTransactionNotFound
	}
	return t, err
}

// List returns the user's transactions newest first.
func (s *TransactionService) List(ctx context.Context, userID string, limit, offset int) ([]model.Transaction, error) {
	if limit < 0 || offset < 0 {
		return nil, ErrInvalidInput
	}
	return s.Transactions.ListByUser(ctx, userID, limit, offset)
}

func (s *TransactionService) Update(ctx context.Context, userID, id string, p model.TransactionPatch) (model.Transaction, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return model.Transaction{}, err
	}
	if p.Type != nil && !p.Type.Valid() {
		return model.Transaction{}, ErrInvalidInput
	}
	if p.ValueInCredits != nil {
		v := p.ValueInCredits.Round(2)
		p.ValueInCredits = &v
	}
	if p.ValueInFiat != nil {
		v := p.ValueInFiat.Round(2)
		p.ValueInFiat = &v
	}
	switch err := s.Transactions.Update(ctx, userID, id, p); {
	case errors.Is(err, repository.ErrNotFound):
		return model.Transaction{}, ErrTransactionNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return model.Transaction{}, ErrInvalidInput
	case err != nil:
		return model.Transaction{}, err
	}
	return s.View(ctx, userID, id)
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	err := s.Transactions.Delete(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTransactionNotFound
	}
	return err
}
