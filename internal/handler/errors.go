package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/credits-api/internal/apperr"
	"github.com/iliyamo/credits-api/internal/response"
	"github.com/iliyamo/credits-api/internal/service"
)

// fail answers the client errors handlers and services agree on. Anything
// else is returned unchanged and ends up in ErrorHandler as a 500.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errEmptyBody):
		return response.EmptyBody(c)
	case errors.Is(err, errSchema),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrWrongEvent):
		return response.Schema(c)
	case errors.Is(err, errTwoFactor):
		return response.Unauthenticated(c, true)
	case errors.Is(err, errForbidden):
		return response.Forbidden(c)
	case errors.Is(err, service.ErrUserNotFound):
		return response.NotFound(c, "User")
	case errors.Is(err, service.ErrTransactionNotFound):
		return response.NotFound(c, "Transaction")
	case errors.Is(err, service.ErrUserExists):
		return response.Exists(c, "User")
	case errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, service.ErrInvalidOTP):
		return response.Unauthenticated(c, false)
	case errors.Is(err, service.ErrInsufficientCredits):
		return response.NotEnoughCredits(c)
	case errors.Is(err, service.ErrRateNotFound):
		return response.RateNotFound(c)
	}
	return err
}

// ErrorHandler renders errors that escaped the handlers, including echo's
// own routing errors, in the response envelope. Unexpected errors are
// logged once here; third-party failures carry their service context.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			var werr error
			switch he.Code {
			case http.StatusNotFound:
				werr = response.Error(c, he.Code, response.MsgRoute, nil)
			case http.StatusMethodNotAllowed:
				werr = response.Error(c, he.Code, response.MsgMethod, nil)
			case http.StatusTooManyRequests:
				werr = response.RateLimited(c)
			case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
				werr = response.Schema(c)
			case http.StatusUnauthorized:
				werr = response.Unauthenticated(c, false)
			case http.StatusForbidden:
				werr = response.Forbidden(c)
			default:
				if he.Code < 500 {
					werr = response.Error(c, he.Code, http.StatusText(he.Code), nil)
					break
				}
				log.WithError(err).WithField("path", c.Request().URL.Path).Error("unhandled http error")
				werr = response.Unidentified(c)
			}
			if werr != nil {
				log.WithError(werr).Debug("write error response")
			}
			return
		}

		entry := log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
		})
		if ext, ok := apperr.AsExternal(err); ok {
			entry = entry.WithFields(ext.Fields())
		}
		entry.Error("request failed")
		if werr := response.Unidentified(c); werr != nil {
			log.WithError(werr).Debug("write error response")
		}
	}
}
