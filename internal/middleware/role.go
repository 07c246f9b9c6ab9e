package middleware

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/credits-api/internal/model"
    "github.com/iliyamo/credits-api/internal/response"
)

// RequireRole rejects callers whose resolved role is not in roles with the
// 403 access error. It must run after an authentication middleware.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, ok := IdentityOf(c)
            if !ok || !allowed[id.Role] {
                return response.Forbidden(c)
            }
            return next(c)
        }
    }
}
