package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/credits-api/internal/handler"
	"github.com/iliyamo/credits-api/internal/middleware"
)

// registerUsers mounts account routes. Routes addressed by email are for
// flows where the caller may not hold a session yet.
func registerUsers(g *echo.Group, a *middleware.Authenticator, h *handler.UserHandler, auth *handler.AuthHandler) {
	users := g.Group("/users")

	users.PATCH("/:email/password", auth.ChangePassword, a.KeyOrBearer())
	users.POST("/:email/otp/:type", auth.SendOTP, a.Static())
	users.POST("/:email/activate", auth.Activate, a.Static())
	users.POST("/:id/2fa", auth.Enable2FA, a.GeneralActive())
	users.DELETE("/:id/2fa", auth.Disable2FA, a.GeneralActive())

	users.GET("", h.List, a.Private())
	users.GET("/:id", h.Get, a.GeneralInactive())
	users.PATCH("/:id", h.Update, a.GeneralInactive())
	users.PUT("/:id/credits", h.UpdateCredits, a.Private())
	users.DELETE("/:id", h.Delete, a.Private())
}

// registerTransactions mounts the ledger entries of one user. Users may
// read their own entries; only operators write.
func registerTransactions(g *echo.Group, a *middleware.Authenticator, h *handler.TransactionHandler) {
	tx := g.Group("/users/:id/transactions")
	tx.POST("", h.Create, a.Private())
	tx.GET("", h.List, a.GeneralActive())
	tx.GET("/:tid", h.Get, a.GeneralActive())
	tx.PATCH("/:tid", h.Update, a.Private())
	tx.DELETE("/:tid", h.Delete, a.Private())
}
