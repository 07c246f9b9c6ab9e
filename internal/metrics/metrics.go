package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "credits_api",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credits_api",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "credits_api",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	sessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "credits_api",
			Subsystem: "auth",
			Name:      "sessions_created_total",
			Help:      "Total number of sessions minted.",
		},
	)

	otpsIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credits_api",
			Subsystem: "auth",
			Name:      "otps_issued_total",
			Help:      "Total number of one-time codes issued.",
		},
		[]string{"purpose"},
	)

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credits_api",
			Subsystem: "ledger",
			Name:      "settlements_total",
			Help:      "Checkout settlements by outcome.",
		},
		[]string{"outcome"},
	)

	creditsMoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credits_api",
			Subsystem: "ledger",
			Name:      "credits_total",
			Help:      "Credits added or removed through the ledger.",
		},
		[]string{"type"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		sessionsCreated,
		otpsIssued,
		settlements,
		creditsMoved,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RequestStarted bumps the in-flight gauge and returns the matching
// decrement.
func RequestStarted() func() {
	httpInFlight.Inc()
	return httpInFlight.Dec
}

// ObserveRequest records one finished HTTP request. route is the registered
// path template, not the raw URL.
func ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	method = strings.ToUpper(method)
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func SessionCreated() { sessionsCreated.Inc() }

func OTPIssued(purpose string) { otpsIssued.WithLabelValues(purpose).Inc() }

// Settlement counts a webhook outcome: "settled", "duplicate" or "failed".
func Settlement(outcome string) { settlements.WithLabelValues(outcome).Inc() }

// CreditsMoved adds the magnitude of a ledger entry under its type.
func CreditsMoved(txType string, amount float64) {
	if amount < 0 {
		amount = -amount
	}
	creditsMoved.WithLabelValues(txType).Add(amount)
}
