package payment

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/iliyamo/credits-api/internal/config"
	"github.com/iliyamo/credits-api/internal/service"
)

const testSecret = "whsec_test"

func eventJSON(eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2025-07-30.basil","type":%q,"data":{"object":%s}}`, eventType, object))
}

func sign(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret})
	return signed.Header
}

func TestParseCheckoutCompleted(t *testing.T) {
	completed := eventJSON("checkout.session.completed",
		`{"id":"cs_1","object":"checkout.session","payment_intent":"pi_1","metadata":{"user_id":"user_1","value_in_credits":"5000","value_in_fiat":"50"}}`)

	t.Run("valid event", func(t *testing.T) {
		got, err := parseCheckoutCompleted(completed, sign(t, completed, testSecret), testSecret)
		require.NoError(t, err)
		assert.Equal(t, "user_1", got.UserID)
		assert.Equal(t, "pi_1", got.PaymentIntent)
		assert.Equal(t, "5000", got.ValueInCredits.String())
		assert.Equal(t, "50", got.ValueInFiat.String())
	})

	t.Run("bad signature", func(t *testing.T) {
		_, err := parseCheckoutCompleted(completed, sign(t, completed, "whsec_other"), testSecret)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("empty secret rejects events signed with an empty key", func(t *testing.T) {
		forged := eventJSON("checkout.session.completed",
			`{"id":"cs_2","object":"checkout.session","payment_intent":"pi_forged","metadata":{"user_id":"user_1","value_in_credits":"1000000","value_in_fiat":"0"}}`)
		_, err := parseCheckoutCompleted(forged, sign(t, forged, ""), "")
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		_, err = NewStripe(config.StripeConfig{}, "http://localhost:3000").ParseCheckoutCompleted(forged, sign(t, forged, ""))
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("other event type", func(t *testing.T) {
		p := eventJSON("checkout.session.expired", `{"id":"cs_1","object":"checkout.session"}`)
		_, err := parseCheckoutCompleted(p, sign(t, p, testSecret), testSecret)
		assert.ErrorIs(t, err, service.ErrWrongEvent)
	})

	t.Run("missing metadata", func(t *testing.T) {
		p := eventJSON("checkout.session.completed", `{"id":"cs_1","object":"checkout.session","payment_intent":"pi_1"}`)
		_, err := parseCheckoutCompleted(p, sign(t, p, testSecret), testSecret)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}
