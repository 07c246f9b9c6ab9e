// Package payment adapts Stripe to the service layer: customers, one-off
// credit checkouts, the billing portal and webhook verification.
package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/tidwall/gjson"

	"github.com/iliyamo/credits-api/internal/apperr"
	"github.com/iliyamo/credits-api/internal/config"
	"github.com/iliyamo/credits-api/internal/service"
)

const checkoutCompleted = "checkout.session.completed"

type Stripe struct {
	api           *client.API
	webhookSecret string
	clientURL     string
	returnURL     string
}

func NewStripe(cfg config.StripeConfig, clientURL string) *Stripe {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &Stripe{
		api:           sc,
		webhookSecret: cfg.WebhookSecret,
		clientURL:     strings.TrimRight(clientURL, "/"),
		returnURL:     cfg.ReturnURL,
	}
}

func (s *Stripe) CreateCustomer(ctx context.Context, name, email string) (string, error) {
	params := &stripe.CustomerParams{
		Name:  stripe.String(name),
		Email: stripe.String(email),
	}
	params.Context = ctx
	c, err := s.api.Customers.New(params)
	if err != nil {
		return "", apperr.Wrap("stripe", "create_customer", err, map[string]interface{}{"email": email})
	}
	return c.ID, nil
}

func (s *Stripe) UpdateCustomer(ctx context.Context, customerID string, upd service.CustomerUpdate) error {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if upd.Name != "" {
		params.Name = stripe.String(upd.Name)
	}
	if upd.UserID != "" {
		params.AddMetadata("user_id", upd.UserID)
	}
	if _, err := s.api.Customers.Update(customerID, params); err != nil {
		return apperr.Wrap("stripe", "update_customer", err, map[string]interface{}{
			"customer_id": customerID,
			"user_id":     upd.UserID,
		})
	}
	return nil
}

// CreateCheckoutSession charges ValueInCredits units of the tier's price and
// returns the hosted checkout URL.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req service.CheckoutRequest) (string, error) {
	returnTo := fmt.Sprintf("%s/%s", s.clientURL, strings.TrimLeft(req.ReturnPath, "/"))
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(req.CustomerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(req.PriceID),
			Quantity: stripe.Int64(req.ValueInCredits.IntPart()),
		}},
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:               stripe.String(returnTo + "?stripe_status=success"),
		CancelURL:                stripe.String(returnTo + "?stripe_status=cancel"),
		AllowPromotionCodes:      stripe.Bool(true),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		CustomerUpdate: &stripe.CheckoutSessionCustomerUpdateParams{
			Address: stripe.String("auto"),
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("value_in_credits", req.ValueInCredits.String())
	params.AddMetadata("value_in_fiat", req.ValueInFiat.String())

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return "", apperr.Wrap("stripe", "create_checkout_session", err, map[string]interface{}{
			"customer_id": req.CustomerID,
			"user_id":     req.UserID,
			"credits":     req.ValueInCredits.String(),
		})
	}
	return sess.URL, nil
}

func (s *Stripe) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(s.returnURL),
	}
	params.Context = ctx
	sess, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", apperr.Wrap("stripe", "create_customer_portal_session", err, map[string]interface{}{
			"customer_id": customerID,
		})
	}
	return sess.URL, nil
}

// ParseCheckoutCompleted verifies the Stripe-Signature header and extracts
// the purchase from a checkout.session.completed event.
func (s *Stripe) ParseCheckoutCompleted(payload []byte, signature string) (service.CheckoutCompleted, error) {
	return parseCheckoutCompleted(payload, signature, s.webhookSecret)
}

func parseCheckoutCompleted(payload []byte, signature, secret string) (service.CheckoutCompleted, error) {
	if secret == "" {
		return service.CheckoutCompleted{}, fmt.Errorf("%w: webhook secret not configured", service.ErrInvalidInput)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return service.CheckoutCompleted{}, fmt.Errorf("%w: %v", service.ErrInvalidInput, err)
	}
	if string(event.Type) != checkoutCompleted || event.Data == nil {
		return service.CheckoutCompleted{}, service.ErrWrongEvent
	}

	obj := gjson.ParseBytes(event.Data.Raw)
	userID := obj.Get("metadata.user_id").String()
	intent := obj.Get("payment_intent").String()
	credits, cerr := decimal.NewFromString(obj.Get("metadata.value_in_credits").String())
	fiat, ferr := decimal.NewFromString(obj.Get("metadata.value_in_fiat").String())
	if userID == "" || intent == "" || cerr != nil || ferr != nil || !credits.IsPositive() {
		return service.CheckoutCompleted{}, service.ErrInvalidInput
	}
	return service.CheckoutCompleted{
		UserID:         userID,
		PaymentIntent:  intent,
		ValueInCredits: credits,
		ValueInFiat:    fiat,
	}, nil
}
