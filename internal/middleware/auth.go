package middleware

import (
    "context"
    "encoding/base64"
    "errors"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/credits-api/internal/config"
    "github.com/iliyamo/credits-api/internal/model"
    "github.com/iliyamo/credits-api/internal/response"
    "github.com/iliyamo/credits-api/internal/service"
)

var (
    // ErrUnauthenticated means the header is missing, malformed or does not
    // resolve to a key or a live session.
    ErrUnauthenticated = errors.New("authorization missing, invalid or expired")
    // ErrInactive means a session resolved but its user is not active or has
    // no full name yet.
    ErrInactive = errors.New("user inactive")
)

// SessionValidator resolves a bearer token to its user.
type SessionValidator interface {
    Validate(ctx context.Context, token string) (model.User, error)
}

// PasswordLogin checks email and password and mints a session.
type PasswordLogin interface {
    Login(ctx context.Context, email, password string) (model.User, model.Session, error)
}

// Strategy resolves the caller of a request. It returns ErrUnauthenticated
// or ErrInactive for rejected callers; any other error is a server fault.
type Strategy func(c echo.Context) (Identity, error)

// Authenticator builds the authentication strategies from the configured
// API keys and the session store.
type Authenticator struct {
    Header     string
    PrivateKey string
    PublicKey  string
    Prefix     string
    Sessions   SessionValidator
    Passwords  PasswordLogin
}

func NewAuthenticator(cfg config.AuthConfig, sessions SessionValidator, passwords PasswordLogin) *Authenticator {
    return &Authenticator{
        Header:     cfg.Header,
        PrivateKey: cfg.PrivateAPIKey,
        PublicKey:  cfg.PublicAPIKey,
        Prefix:     cfg.TokenPrefix,
        Sessions:   sessions,
        Passwords:  passwords,
    }
}

// Require runs s and stores the identity for the handler, answering 401 on
// rejection.
func (a *Authenticator) Require(s Strategy) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            id, err := s(c)
            switch {
            case errors.Is(err, ErrInactive):
                return response.Inactive(c)
            case errors.Is(err, ErrUnauthenticated):
                return response.Unauthenticated(c, false)
            case err != nil:
                return err
            }
            setIdentity(c, id)
            return next(c)
        }
    }
}

func (a *Authenticator) Static() echo.MiddlewareFunc          { return a.Require(a.StaticStrategy) }
func (a *Authenticator) Private() echo.MiddlewareFunc         { return a.Require(a.PrivateStrategy) }
func (a *Authenticator) Basic() echo.MiddlewareFunc           { return a.Require(a.BasicStrategy) }
func (a *Authenticator) GeneralInactive() echo.MiddlewareFunc { return a.Require(a.GeneralInactiveStrategy) }
func (a *Authenticator) GeneralActive() echo.MiddlewareFunc   { return a.Require(a.GeneralActiveStrategy) }
func (a *Authenticator) KeyOrBearer() echo.MiddlewareFunc     { return a.Require(a.KeyOrBearerStrategy) }

func (a *Authenticator) header(c echo.Context) string {
    return c.Request().Header.Get(a.Header)
}

// StaticStrategy accepts the private or the public API key.
func (a *Authenticator) StaticStrategy(c echo.Context) (Identity, error) {
    switch h := a.header(c); {
    case h != "" && h == a.PrivateKey:
        return Identity{Role: model.RolePrivate}, nil
    case h != "" && h == a.PublicKey:
        return Identity{Role: model.RolePublic}, nil
    }
    return Identity{}, ErrUnauthenticated
}

// PrivateStrategy accepts the private API key only.
func (a *Authenticator) PrivateStrategy(c echo.Context) (Identity, error) {
    if h := a.header(c); h != "" && h == a.PrivateKey {
        return Identity{Role: model.RolePrivate}, nil
    }
    return Identity{}, ErrUnauthenticated
}

// BasicStrategy checks "Basic base64(email:password)" and mints a session
// for the user. The handler must discard that session if it rejects the
// login afterwards.
func (a *Authenticator) BasicStrategy(c echo.Context) (Identity, error) {
    scheme, cred, ok := strings.Cut(a.header(c), " ")
    if !ok || scheme != "Basic" {
        return Identity{}, ErrUnauthenticated
    }
    raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cred))
    if err != nil {
        return Identity{}, ErrUnauthenticated
    }
    email, password, ok := strings.Cut(string(raw), ":")
    if !ok || email == "" {
        return Identity{}, ErrUnauthenticated
    }
    u, sess, err := a.Passwords.Login(c.Request().Context(), email, password)
    if errors.Is(err, service.ErrUnauthenticated) {
        return Identity{}, ErrUnauthenticated
    }
    if err != nil {
        return Identity{}, err
    }
    return Identity{Role: model.RoleUser, User: &u, Token: sess.Token}, nil
}

// GeneralInactiveStrategy accepts the private key or any live session.
func (a *Authenticator) GeneralInactiveStrategy(c echo.Context) (Identity, error) {
    if h := a.header(c); h != "" && h == a.PrivateKey {
        return Identity{Role: model.RolePrivate}, nil
    }
    return a.bearer(c)
}

// GeneralActiveStrategy is GeneralInactiveStrategy restricted to active
// users with both names filled in.
func (a *Authenticator) GeneralActiveStrategy(c echo.Context) (Identity, error) {
    id, err := a.GeneralInactiveStrategy(c)
    if err != nil {
        return Identity{}, err
    }
    if id.User != nil && (!id.User.IsActive || !id.User.HasProfile()) {
        return Identity{}, ErrInactive
    }
    return id, nil
}

// KeyOrBearerStrategy accepts either API key or a live session. The
// password change route uses it to serve both operators and users.
func (a *Authenticator) KeyOrBearerStrategy(c echo.Context) (Identity, error) {
    if id, err := a.StaticStrategy(c); err == nil {
        return id, nil
    }
    return a.bearer(c)
}

func (a *Authenticator) bearer(c echo.Context) (Identity, error) {
    scheme, token, ok := strings.Cut(a.header(c), " ")
    if !ok || scheme != "Bearer" || !strings.HasPrefix(token, a.Prefix) {
        return Identity{}, ErrUnauthenticated
    }
    u, err := a.Sessions.Validate(c.Request().Context(), token)
    if errors.Is(err, service.ErrUnauthenticated) {
        return Identity{}, ErrUnauthenticated
    }
    if err != nil {
        return Identity{}, err
    }
    return Identity{Role: model.RoleUser, User: &u, Token: token}, nil
}
