package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/credits-api/internal/config"
	"github.com/iliyamo/credits-api/internal/handler"
	"github.com/iliyamo/credits-api/internal/middleware"
)

func newServer() *echo.Echo {
	e := echo.New()
	e.Validator = handler.NewValidator()
	a := middleware.NewAuthenticator(config.AuthConfig{
		Header: "Authorization", PrivateAPIKey: "priv", PublicAPIKey: "pub", TokenPrefix: "crazi_couser_",
	}, nil, nil)
	Register(e, "/api/v1", a, Handlers{
		Auth:         &handler.AuthHandler{},
		Users:        &handler.UserHandler{},
		Transactions: &handler.TransactionHandler{},
		Stripe:       &handler.StripeHandler{},
		Misc:         &handler.MiscHandler{ServiceName: "credits-api", AppVersion: "test"},
	})
	return e
}

func TestRouteTable(t *testing.T) {
	got := map[string]bool{}
	for _, r := range newServer().Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /api/v1/auth/register",
		"POST /api/v1/auth/google",
		"POST /api/v1/auth/session",
		"DELETE /api/v1/auth/session",
		"PATCH /api/v1/users/:email/password",
		"POST /api/v1/users/:email/otp/:type",
		"POST /api/v1/users/:email/activate",
		"POST /api/v1/users/:id/2fa",
		"DELETE /api/v1/users/:id/2fa",
		"GET /api/v1/users",
		"GET /api/v1/users/:id",
		"PATCH /api/v1/users/:id",
		"PUT /api/v1/users/:id/credits",
		"DELETE /api/v1/users/:id",
		"POST /api/v1/users/:id/transactions",
		"GET /api/v1/users/:id/transactions",
		"GET /api/v1/users/:id/transactions/:tid",
		"PATCH /api/v1/users/:id/transactions/:tid",
		"DELETE /api/v1/users/:id/transactions/:tid",
		"GET /api/v1/stripe/rate",
		"POST /api/v1/stripe/buy",
		"POST /api/v1/stripe/portal",
		"POST /api/v1/stripe/settle",
		"GET /api/v1/health",
		"GET /api/v1/version",
		"GET /metrics",
	} {
		assert.True(t, got[want], want)
	}
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	e := newServer()
	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/auth/register"},
		{http.MethodPost, "/api/v1/auth/session"},
		{http.MethodDelete, "/api/v1/auth/session"},
		{http.MethodPatch, "/api/v1/users/a@x.com/password"},
		{http.MethodGet, "/api/v1/users"},
		{http.MethodGet, "/api/v1/users/user_1"},
		{http.MethodPut, "/api/v1/users/user_1/credits"},
		{http.MethodGet, "/api/v1/users/user_1/transactions"},
		{http.MethodGet, "/api/v1/stripe/rate"},
		{http.MethodPost, "/api/v1/stripe/buy"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(r.method, r.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, r.method+" "+r.path)
	}
}

func TestPublicKeyCannotUsePrivateRoutes(t *testing.T) {
	e := newServer()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/user_1", nil)
	req.Header.Set("Authorization", "pub")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthIsOpen(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"service":"credits-api"`)
}
