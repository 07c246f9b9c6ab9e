package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/credits-api/internal/response"
	"github.com/iliyamo/credits-api/internal/service"
)

const rateMessage = "Credits rate fetched successfully. Upper limit and lower limit are in fiat. " +
	"Rate is in credits per dollar. Any amount beyond the limits will not be credited."

// StripeHandler serves credit purchases and the Stripe webhook.
type StripeHandler struct {
	Ledger Ledger
	Log    logrus.FieldLogger
}

func NewStripeHandler(l Ledger, log logrus.FieldLogger) *StripeHandler {
	return &StripeHandler{Ledger: l, Log: log}
}

type buyReq struct {
	Amount     *int64 `json:"amount" validate:"required"`
	ReturnPath string `json:"return_path" validate:"required"`
}

// Rate: GET /stripe/rate (general active).
func (h *StripeHandler) Rate(c echo.Context) error {
	return response.Success(c, http.StatusOK, rateMessage, h.Ledger.CreditsRates())
}

// Buy: POST /stripe/buy (user role).
func (h *StripeHandler) Buy(c echo.Context) error {
	var req buyReq
	if err := bindBody(c, &req); err != nil {
		return fail(c, err)
	}
	u := identity(c).User
	out, err := h.Ledger.Buy(c.Request().Context(), *u, decimal.NewFromInt(*req.Amount), req.ReturnPath)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, http.StatusCreated, "Checkout session created successfully.", out)
}

// Portal: POST /stripe/portal (user role).
func (h *StripeHandler) Portal(c echo.Context) error {
	url, err := h.Ledger.Portal(c.Request().Context(), *identity(c).User)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusCreated, "Customer portal session created successfully.",
		map[string]string{"url": url})
}

// Settle: POST /stripe/settle. Authenticated by the Stripe-Signature header
// only. A replayed payment intent is acknowledged without crediting twice.
func (h *StripeHandler) Settle(c echo.Context) error {
	sig := c.Request().Header.Get("Stripe-Signature")
	if sig == "" {
		return response.Schema(c)
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<16))
	if err != nil {
		return response.Schema(c)
	}
	err = h.Ledger.Settle(c.Request().Context(), payload, sig)
	if err != nil && !errors.Is(err, service.ErrAlreadySettled) {
		return fail(c, err)
	}
	return response.Success(c, http.StatusOK, "Checkout session settled successfully.", nil)
}
