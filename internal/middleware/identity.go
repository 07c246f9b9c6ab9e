package middleware

// identity.go carries what an authentication strategy resolved for the
// request. Handlers read it through IdentityOf and never look at headers.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/credits-api/internal/model"
)

const identityKey = "identity"

// Identity is the caller behind a request. User and Token are set for the
// user role only.
type Identity struct {
    Role  model.Role
    User  *model.User
    Token string
}

// IsPrivate reports whether the caller holds the private API key.
func (i Identity) IsPrivate() bool { return i.Role == model.RolePrivate }

func setIdentity(c echo.Context, id Identity) { c.Set(identityKey, id) }

// IdentityOf returns the identity stored by an authentication middleware.
func IdentityOf(c echo.Context) (Identity, bool) {
    id, ok := c.Get(identityKey).(Identity)
    return id, ok
}

// subject names the caller for logs: the user id for sessions, the role for
// API keys and "guest" when nothing was resolved.
func subject(c echo.Context) string {
    id, ok := IdentityOf(c)
    if !ok {
        return "guest"
    }
    if id.User != nil {
        return id.User.ID
    }
    return string(id.Role)
}
