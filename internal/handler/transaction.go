package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/repository"
	"github.com/iliyamo/credits-api/internal/response"
	"github.com/iliyamo/credits-api/internal/service"
)

type TransactionHandler struct {
	Users        UserStore
	Transactions TransactionStore
}

func NewTransactionHandler(u UserStore, t TransactionStore) *TransactionHandler {
	return &TransactionHandler{Users: u, Transactions: t}
}

var forbiddenTransactionKeys = []string{"id", "created_at", "updated_at"}

type transactionReq struct {
	Description    string                `json:"description" validate:"required,max=255"`
	ValueInCredits *decimal.Decimal      `json:"value_in_credits" validate:"required"`
	ValueInFiat    *decimal.Decimal      `json:"value_in_fiat" validate:"required"`
	Type           model.TransactionType `json:"type" validate:"required,oneof=CREDIT DEBIT"`
}

type transactionPatchReq struct {
	UserID              *string                `json:"user_id" validate:"omitempty"`
	StripePaymentIntent *string                `json:"stripe_payment_intent" validate:"omitempty,max=255"`
	Description         *string                `json:"description" validate:"omitempty,max=255"`
	ValueInCredits      *decimal.Decimal       `json:"value_in_credits"`
	ValueInFiat         *decimal.Decimal       `json:"value_in_fiat"`
	Type                *model.TransactionType `json:"type" validate:"omitempty,oneof=CREDIT DEBIT"`
}

// requireUser answers 404 when the :id user does not exist.
func (h *TransactionHandler) requireUser(c echo.Context) error {
	_, err := h.Users.View(c.Request().Context(), repository.UserByID(c.Param("id")))
	return err
}

// Create: POST /users/:id/transactions (private).
func (h *TransactionHandler) Create(c echo.Context) error {
	if err := h.requireUser(c); err != nil {
		return fail(c, err)
	}
	var req transactionReq
	if err := bindBody(c, &req); err != nil {
		return fail(c, err)
	}
	t, err := h.Transactions.Create(c.Request().Context(), c.Param("id"), service.NewTransaction{
		Description:    req.Description,
		ValueInCredits: *req.ValueInCredits,
		ValueInFiat:    *req.ValueInFiat,
		Type:           req.Type,
	})
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, http.StatusCreated, "Transaction created successfully.", t)
}

// List: GET /users/:id/transactions?limit&offset (general active).
func (h *TransactionHandler) List(c echo.Context) error {
	u, err := targetUser(c, h.Users)
	if err != nil {
		return fail(c, err)
	}
	limit, offset, err := page(c)
	if err != nil {
		return fail(c, err)
	}
	list, err := h.Transactions.List(c.Request().Context(), u.ID, limit, offset)
	if err != nil {
		return fail(c, err)
	}
	out := make([]model.TransactionView, 0, len(list))
	for _, t := range list {
		out = append(out, t.View())
	}
	return response.Success(c, http.StatusOK, "Transactions fetched successfully.", out)
}

// Get: GET /users/:id/transactions/:tid (general active).
func (h *TransactionHandler) Get(c echo.Context) error {
	id := identity(c)
	if !id.IsPrivate() && (id.User == nil || id.User.ID != c.Param("id")) {
		return response.Forbidden(c)
	}
	t, err := h.Transactions.View(c.Request().Context(), c.Param("id"), c.Param("tid"))
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, http.StatusOK, "Transaction fetched successfully.", t.View())
}

// Update: PATCH /users/:id/transactions/:tid (private).
func (h *TransactionHandler) Update(c echo.Context) error {
	if err := h.requireUser(c); err != nil {
		return fail(c, err)
	}
	var req transactionPatchReq
	if err := bindPatch(c, &req, forbiddenTransactionKeys...); err != nil {
		return fail(c, err)
	}
	// moving an entry to another user is not supported
	if req.UserID != nil && *req.UserID != c.Param("id") {
		return response.Schema(c)
	}
	t, err := h.Transactions.Update(c.Request().Context(), c.Param("id"), c.Param("tid"), model.TransactionPatch{
		StripePaymentIntent: req.StripePaymentIntent,
		Description:         req.Description,
		ValueInCredits:      req.ValueInCredits,
		ValueInFiat:         req.ValueInFiat,
		Type:                req.Type,
	})
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, http.StatusOK, "Transaction updated successfully.", t)
}

// Delete: DELETE /users/:id/transactions/:tid (private).
func (h *TransactionHandler) Delete(c echo.Context) error {
	if err := h.Transactions.Delete(c.Request().Context(), c.Param("id"), c.Param("tid")); err != nil {
		return fail(c, err)
	}
	return response.NoContent(c)
}
