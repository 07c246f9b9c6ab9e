// Package identity verifies Google Sign-In id_tokens.
package identity

import (
	"context"

	"google.golang.org/api/idtoken"

	"github.com/iliyamo/credits-api/internal/service"
)

// Google checks id_tokens against the OAuth client id they were issued for.
type Google struct {
	ClientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogle(clientID string) *Google {
	return &Google{ClientID: clientID, validate: idtoken.Validate}
}

// Verify returns the subject, email and display name asserted by token.
// Any verification failure is service.ErrUnauthenticated.
func (g *Google) Verify(ctx context.Context, token string) (service.ExternalIdentity, error) {
	if token == "" || g.ClientID == "" {
		return service.ExternalIdentity{}, service.ErrUnauthenticated
	}
	p, err := g.validate(ctx, token, g.ClientID)
	if err != nil {
		return service.ExternalIdentity{}, service.ErrUnauthenticated
	}
	return service.ExternalIdentity{
		Subject:       p.Subject,
		Email:         claim(p.Claims, "email"),
		EmailVerified: verified(p.Claims),
		Name:          claim(p.Claims, "name"),
	}, nil
}

// verified reads email_verified, which Google sends as a bool and some
// older tokens carry as the string "true".
func verified(claims map[string]interface{}) bool {
	switch v := claims["email_verified"].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

func claim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
