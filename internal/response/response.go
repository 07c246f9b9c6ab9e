// Package response writes the {status, message, data} envelope shared by
// every endpoint, together with the fixed error messages clients match on.
package response

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

const (
	MsgEmptyBody      = "Request body is empty."
	MsgSchema         = "One or more required parameters are either not given or have invalid schema."
	MsgAuthentication = "Authorization header or OTP is either missing, invalid or expired."
	MsgAccess         = "You do not have access to the requested resource."
	MsgInactive       = "Please activate your account to access the requested resource."
	MsgCredits        = "You do not have enough credits to perform this action."
	MsgRateNotFound   = "No credits rate found for the given amount."
	MsgRoute          = "The requested route does not exist."
	MsgMethod         = "The requested method is not allowed for this route."
	MsgRateLimit      = "You have exceeded the rate limit."
	MsgUnidentified   = "Something went wrong."
)

// Envelope is the body of every non-204 response.
type Envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success writes a success envelope with the given status code.
func Success(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, Envelope{Status: statusSuccess, Message: message, Data: data})
}

// Error writes an error envelope with the given status code.
func Error(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, Envelope{Status: statusError, Message: message, Data: data})
}

// NoContent answers 204 without a body.
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func EmptyBody(c echo.Context) error {
	return Error(c, http.StatusBadRequest, MsgEmptyBody, nil)
}

func Schema(c echo.Context) error {
	return Error(c, http.StatusBadRequest, MsgSchema, nil)
}

// Unauthenticated answers 401. When is2FA is set the body carries
// {"is_2fa_enabled": true} so clients know to prompt for a code.
func Unauthenticated(c echo.Context, is2FA bool) error {
	var data interface{}
	if is2FA {
		data = map[string]bool{"is_2fa_enabled": true}
	}
	return Error(c, http.StatusUnauthorized, MsgAuthentication, data)
}

func Forbidden(c echo.Context) error {
	return Error(c, http.StatusForbidden, MsgAccess, nil)
}

func Inactive(c echo.Context) error {
	return Error(c, http.StatusUnauthorized, MsgInactive, nil)
}

func NotEnoughCredits(c echo.Context) error {
	return Error(c, http.StatusForbidden, MsgCredits, nil)
}

func RateNotFound(c echo.Context) error {
	return Error(c, http.StatusNotFound, MsgRateNotFound, nil)
}

// NotFound answers 404 naming the missing resource, e.g. "User".
func NotFound(c echo.Context, resource string) error {
	return Error(c, http.StatusNotFound, fmt.Sprintf("%s with the given identifier does not exist.", resource), nil)
}

// Exists answers 400 naming the resource that is already present.
func Exists(c echo.Context, resource string) error {
	return Error(c, http.StatusBadRequest, fmt.Sprintf("%s with the given identifier already exists.", resource), nil)
}

func RateLimited(c echo.Context) error {
	return Error(c, http.StatusTooManyRequests, MsgRateLimit, nil)
}

func Unidentified(c echo.Context) error {
	return Error(c, http.StatusInternalServerError, MsgUnidentified, nil)
}
