package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/credits-api/internal/middleware"
	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/repository"
)

// identity returns the caller resolved by the route's authentication
// middleware.
func identity(c echo.Context) middleware.Identity {
	id, _ := middleware.IdentityOf(c)
	return id
}

// targetUser resolves the user named by the :id path parameter. Private
// callers may address any existing user; session holders only themselves.
func targetUser(c echo.Context, users UserStore) (model.User, error) {
	userID := c.Param("id")
	id := identity(c)
	if id.IsPrivate() {
		return users.View(c.Request().Context(), repository.UserByID(userID))
	}
	if id.User == nil || id.User.ID != userID {
		return model.User{}, errForbidden
	}
	return *id.User, nil
}

// sameEmail compares addresses the way the store does.
func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// withToken is a user view plus the session token handed out with it.
type withToken struct {
	model.UserView
	Token string `json:"token"`
}

type privateWithToken struct {
	model.PrivateUserView
	Token string `json:"token"`
}
