package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/credits-api/internal/model"
	"github.com/iliyamo/credits-api/internal/repository"
	"github.com/iliyamo/credits-api/internal/response"
	"github.com/iliyamo/credits-api/internal/service"
)

// AuthHandler serves registration, sign-in and the code-gated account
// changes.
type AuthHandler struct {
	Auth  AuthFlows
	Users UserStore
	Log   logrus.FieldLogger
}

func NewAuthHandler(a AuthFlows, u UserStore, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{Auth: a, Users: u, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string `json:"first_name" validate:"required,max=255"`
	LastName  string `json:"last_name" validate:"required,max=255"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8"`
}

type googleReq struct {
	IDToken string `json:"id_token" validate:"required"`
}

type codeReq struct {
	Code string `json:"code" validate:"required"`
}

type passwordReq struct {
	Password string `json:"password" validate:"required,min=8"`
	Code     string `json:"code" validate:"required"`
}

// Register: POST /auth/register (static). Private callers also see the
// external account ids.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindBody(c, &req); err != nil {
		return fail(c, err)
	}
	u, sess, err := h.Auth.Register(c.Request().Context(), service.NewUser{
		FirstName: &req.FirstName,
		LastName:  &req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return fail(c, err)
	}
	if identity(c).IsPrivate() {
		return response.Success(c, http.StatusCreated, "User registered successfully.",
			privateWithToken{PrivateUserView: u.PrivateView(), Token: sess.Token})
	}
	return response.Success(c, http.StatusCreated, "User registered successfully.",
		withToken{UserView: u.PublicView(), Token: sess.Token})
}

// Google: POST /auth/google. Signs in, or signs up on first use.
func (h *AuthHandler) Google(c echo.Context) error {
	var req googleReq
	if err := bindBody(c, &req); err != nil {
		return fail(c, err)
	}
	u, sess, created, err := h.Auth.GoogleLogin(c.Request().Context(), req.IDToken)
	if err != nil {
		return fail(c, err)
	}
	msg := "User logged in successfully."
	if created {
		msg = "User registered successfully."
	}
	return response.Success(c, http.StatusCreated, msg, withToken{UserView: u.PublicView(), Token: sess.Token})
}

// Login: POST /auth/session (basic). The basic strategy has already minted
// a session; users with 2FA must also send a valid code or that session is
// thrown away.
func (h *AuthHandler) Login(c echo.Context) error {
	id := identity(c)
	u := *id.User
	ctx := c.Request().Context()

	if u.Is2FAEnabled {
		code, err := readTwoFactorCode(c)
		if err != nil {
			h.discard(c, id.Token)
			return fail(c, err)
		}
		err = h.Auth.VerifyLogin2FA(ctx, u, id.Token, code)
		if errors.Is(err, service.ErrInvalidOTP) {
			return fail(c, errTwoFactor)
		}
		if err != nil {
			return err
		}
	}
	return response.Success(c, http.StatusOK, "User logged in successfully.",
		withToken{UserView: u.PublicView(), Token: id.Token})
}

func (h *AuthHandler) discard(c echo.Context, token string) {
	if err := h.Auth.DiscardSession(c.Request().Context(), token); err != nil {
		h.Log.WithError(err).Warn("discard login session failed")
	}
}

// Logout: DELETE /auth/session (user role).
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Auth.Logout(c.Request().Context(), identity(c).Token); err != nil {
		return err
	}
	return response.NoContent(c)
}

// ChangePassword: PATCH /users/:email/password. API key holders address any
// user by email; session holders only themselves, and keep the session
// they called with.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	email := c.Param("email")
	id := identity(c)

	var u model.User
	if id.User != nil {
		if !sameEmail(id.User.Email, email) {
			return response.Forbidden(c)
		}
		u = *id.User
	} else {
		var err error
		if u, err = h.Users.View(c.Request().Context(), repository.UserByEmail(email)); err != nil {
			return fail(c, err)
		}
	}

	var req passwordReq
	if err := bindBody(c, &req); err != nil {
		return fail(c, err)
	}
	if err := h.Auth.ChangePassword(c.Request().Context(), u, id.Token, req.Password, req.Code); err != nil {
		return fail(c, err)
	}
	return response.Success(c, http.StatusOK, "User password changed successfully.", nil)
}

// SendOTP: POST /users/:email/otp/:type (static).
func (h *AuthHandler) SendOTP(c echo.Context) error {
	purpose, ok := model.ParseOTPPurpose(c.Param("type"))
	if !ok {
		return response.Schema(c)
	}
	if err := h.Auth.SendOTP(c.Request().Context(), c.Param("email"), purpose); err != nil {
		return fail(c, err)
	}
	return response.Success(c, http.StatusCreated, "OTP sent successfully.", nil)
}

// Activate: POST /users/:email/activate (static).
func (h *AuthHandler) Activate(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := h.Users.View(ctx, repository.UserByEmail(c.Param("email"))); err != nil {
		return fail(c, err)
	}
	var req codeReq
	if err := bindBody(c, &req); err != nil {
		return fail(c, err)
	}
	u, err := h.Auth.Activate(ctx, c.Param("email"), req.Code)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, http.StatusOK, "User activated successfully.", u.PublicView())
}

// Enable2FA: POST /users/:id/2fa (general active).
func (h *AuthHandler) Enable2FA(c echo.Context) error {
	if err := h.setTwoFactor(c, true); err != nil {
		return fail(c, err)
	}
	return response.Success(c, http.StatusOK, "User 2FA enabled successfully.", nil)
}

// Disable2FA: DELETE /users/:id/2fa (general active).
func (h *AuthHandler) Disable2FA(c echo.Context) error {
	if err := h.setTwoFactor(c, false); err != nil {
		return fail(c, err)
	}
	return response.NoContent(c)
}

// setTwoFactor checks the code and flips the flag. Rejections come back as
// errors for fail to render.
func (h *AuthHandler) setTwoFactor(c echo.Context, enabled bool) error {
	u, err := targetUser(c, h.Users)
	if err != nil {
		return err
	}
	code, err := readTwoFactorCode(c)
	if err != nil {
		return err
	}
	err = h.Auth.SetTwoFactor(c.Request().Context(), u.ID, enabled, code)
	if errors.Is(err, service.ErrInvalidOTP) {
		return errTwoFactor
	}
	return err
}
