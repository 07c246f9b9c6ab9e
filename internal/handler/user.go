package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/response"
	"github.com/iliyamo/credits-api/internal/service"
)

type UserHandler struct {
	Users  UserStore
	Ledger Ledger
}

func NewUserHandler(u UserStore, l Ledger) *UserHandler {
	return &UserHandler{Users: u, Ledger: l}
}

// Keys a caller may never set through PATCH /users/:id.
var forbiddenUserKeys = []string{
	"id", "email", "stripe_customer_id", "password", "credits",
	"is_2fa_enabled", "is_active", "created_at", "updated_at",
}

type userPatchReq struct {
	FirstName    *string `json:"first_name" validate:"omitempty,max=255"`
	LastName     *string `json:"last_name" validate:"omitempty,max=255"`
	GoogleUserID *string `json:"google_user_id" validate:"omitempty,max=255"`
	IsDarkMode   *bool   `json:"is_dark_mode"`
}

type creditsReq struct {
	Credits *decimal.Decimal       `json:"credits" validate:"required"`
	Type    *model.TransactionType `json:"type" validate:"omitempty,oneof=CREDIT DEBIT"`
}

// List: GET /users?limit&offset (private).
func (h *UserHandler) List(c echo.Context) error {
	limit, offset, err := page(c)
	if err != nil {
		return fail(c, err)
	}
	users, err := h.Users.List(c.Request().Context(), limit, offset)
	if err != nil {
		return fail(c, err)
	}
	out := make([]model.PrivateUserView, 0, len(users))
	for _, u := range users {
		out = append(out, u.PrivateView())
	}
	return response.Success(c, http.StatusOK, "Users fetched successfully.", out)
}

// Get: GET /users/:id (general inactive).
func (h *UserHandler) Get(c echo.Context) error {
	u, err := targetUser(c, h.Users)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, http.StatusOK, "User fetched successfully.", u.PublicView())
}

// Update: PATCH /users/:id (general inactive).
func (h *UserHandler) Update(c echo.Context) error {
	u, err := targetUser(c, h.Users)
	if err != nil {
		return fail(c, err)
	}
	var req userPatchReq
	if err := bindPatch(c, &req, forbiddenUserKeys...); err != nil {
		return fail(c, err)
	}
	u, err = h.Users.Update(c.Request().Context(), u.ID, model.UserPatch{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		GoogleUserID: req.GoogleUserID,
		IsDarkMode:   req.IsDarkMode,
	})
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, http.StatusOK, "User updated successfully.", u.PublicView())
}

// UpdateCredits: PUT /users/:id/credits (private). Without a type the
// amount is the new balance; CREDIT and DEBIT move it by the amount.
func (h *UserHandler) UpdateCredits(c echo.Context) error {
	var req creditsReq
	if err := bindBody(c, &req); err != nil {
		return fail(c, err)
	}
	u, _, err := h.Ledger.UpdateCredits(c.Request().Context(), c.Param("id"), service.CreditUpdate{
		Amount: req.Credits.Round(2),
		Type:   req.Type,
	})
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, http.StatusOK, "User's credits updated successfully.", u.PublicView())
}

// Delete: DELETE /users/:id (private).
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.Users.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, err)
	}
	return response.NoContent(c)
}
