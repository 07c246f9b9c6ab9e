package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/credits-api/internal/handler"
	"github.com/iliyamo/credits-api/internal/middleware"
	"github.com/iliyamo/credits-api/internal/model"
)

// registerStripe mounts purchase routes. /settle is called by Stripe and is
// authenticated by the webhook signature inside the handler.
func registerStripe(g *echo.Group, a *middleware.Authenticator, h *handler.StripeHandler, cache echo.MiddlewareFunc) {
	s := g.Group("/stripe")
	s.GET("/rate", h.Rate, a.GeneralActive(), cache)
	s.POST("/buy", h.Buy, a.GeneralActive(), middleware.RequireRole(model.RoleUser))
	s.POST("/portal", h.Portal, a.GeneralActive(), middleware.RequireRole(model.RoleUser))
	s.POST("/settle", h.Settle)
}
