package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/credits-api/internal/handler"
	"github.com/iliyamo/credits-api/internal/middleware"
	"github.com/iliyamo/credits-api/internal/model"
)

// registerAuth mounts sign-up and session routes under /auth. Google
// sign-in carries its own proof and needs no authorization header.
func registerAuth(g *echo.Group, a *middleware.Authenticator, h *handler.AuthHandler) {
	auth := g.Group("/auth")
	auth.POST("/register", h.Register, a.Static())
	auth.POST("/google", h.Google)
	auth.POST("/session", h.Login, a.Basic())
	auth.DELETE("/session", h.Logout, a.GeneralInactive(), middleware.RequireRole(model.RoleUser))
}
