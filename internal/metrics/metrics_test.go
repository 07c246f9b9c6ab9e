package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/users/:id", "200"))
	ObserveRequest("get", "/api/v1/users/:id", 200, 10*time.Millisecond)
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/users/:id", "200"))
	assert.Equal(t, before+1, after)
}

func TestRequestStarted(t *testing.T) {
	base := testutil.ToFloat64(httpInFlight)
	done := RequestStarted()
	assert.Equal(t, base+1, testutil.ToFloat64(httpInFlight))
	done()
	assert.Equal(t, base, testutil.ToFloat64(httpInFlight))
}

func TestCreditsMovedUsesMagnitude(t *testing.T) {
	before := testutil.ToFloat64(creditsMoved.WithLabelValues("DEBIT"))
	CreditsMoved("DEBIT", -25)
	assert.Equal(t, before+25, testutil.ToFloat64(creditsMoved.WithLabelValues("DEBIT")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	SessionCreated()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "credits_api_auth_sessions_created_total")
}
