package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"

	"github.com/iliyamo/credits-api/internal/service"
)

func TestGoogleVerify(t *testing.T) {
	g := &Google{ClientID: "client-1", validate: func(_ context.Context, token, aud string) (*idtoken.Payload, error) {
		if aud != "client-1" {
			return nil, errors.New("idtoken: audience")
		}
		switch token {
		case "good":
			return &idtoken.Payload{
				Subject: "1234",
				Claims:  map[string]interface{}{"email": "jane@example.com", "email_verified": true, "name": "Jane Doe"},
			}, nil
		case "legacy":
			return &idtoken.Payload{Subject: "1", Claims: map[string]interface{}{"email": "a@x.com", "email_verified": "true"}}, nil
		case "unverified":
			return &idtoken.Payload{Subject: "2", Claims: map[string]interface{}{"email": "b@x.com", "email_verified": false}}, nil
		case "no-claim":
			return &idtoken.Payload{Subject: "3", Claims: map[string]interface{}{"email": "c@x.com"}}, nil
		}
		return nil, errors.New("idtoken: invalid")
	}}

	got, err := g.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, service.ExternalIdentity{Subject: "1234", Email: "jane@example.com", EmailVerified: true, Name: "Jane Doe"}, got)

	for token, want := range map[string]bool{"legacy": true, "unverified": false, "no-claim": false} {
		got, err := g.Verify(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, want, got.EmailVerified, token)
	}

	_, err = g.Verify(context.Background(), "forged")
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	_, err = g.Verify(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
}
