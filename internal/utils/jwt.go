package utils // package utils provides helpers for token creation, hashing and identifiers

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any bearer token that cannot be trusted:
// wrong prefix, bad signature, unexpected algorithm or past expiry.
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims is the payload signed into every session token.
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionToken is a signed token already wrapped with the textual prefix,
// together with its absolute expiry.
type SessionToken struct {
	Token string
	Exp   time.Time
}

// NewSessionToken signs an HS256 JWT for userID and returns it prefixed.
// The token embeds subject, role, issued-at and expiry claims; ttl is the
// absolute lifetime of the session.
func NewSessionToken(secret, prefix, userID, role string, ttl time.Duration) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := SessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: prefix + signed, Exp: exp}, nil
}

// ParseSessionToken strips prefix from the wrapped token and verifies the
// JWT signature and expiry. Only HMAC signatures are accepted.
func ParseSessionToken(secret, prefix, wrapped string) (*SessionClaims, error) {
	if prefix == "" || !strings.HasPrefix(wrapped, prefix) {
		return nil, ErrInvalidToken
	}
	raw := strings.TrimPrefix(wrapped, prefix)

	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
