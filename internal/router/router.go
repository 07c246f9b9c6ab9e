// Package router mounts the HTTP handlers under the configured API base
// path with the authentication each route requires.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/credits-api/internal/handler"
	"github.com/iliyamo/credits-api/internal/metrics"
	"github.com/iliyamo/credits-api/internal/middleware"
)

// Handlers groups everything the route table needs.
type Handlers struct {
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Transactions *handler.TransactionHandler
	Stripe       *handler.StripeHandler
	Misc         *handler.MiscHandler
	// Cache is applied to responses that are identical for every caller.
	Cache echo.MiddlewareFunc
}

// Register mounts all routes under base. /metrics stays at the root so
// scrapers do not need to know the API prefix.
func Register(e *echo.Echo, base string, a *middleware.Authenticator, h Handlers) {
	if h.Cache == nil {
		h.Cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	g := e.Group(base)
	g.GET("/health", h.Misc.Health)
	g.GET("/version", h.Misc.Version, h.Cache)

	registerAuth(g, a, h.Auth)
	registerUsers(g, a, h.Users, h.Auth)
	registerTransactions(g, a, h.Transactions)
	registerStripe(g, a, h.Stripe, h.Cache)
}
