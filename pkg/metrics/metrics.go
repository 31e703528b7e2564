// Package metrics exposes this service's Prometheus collectors.
// Grounded on the teacher's pkg/metrics/metrics.go for the shape (one
// struct holding the collectors, a constructor, an http.Handler
// exposer) but backed by github.com/prometheus/client_golang instead
// of the teacher's hand-rolled JSON counter dump: this repo's ambient
// stack carries a real metrics library rather than avoiding one.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector this service registers.
type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	gatewayLatency *prometheus.HistogramVec
	rateLimited    *prometheus.CounterVec
	inFlight       prometheus.Gauge
}

// New builds and registers the collector set against reg. Passing a
// fresh *prometheus.Registry (rather than the global default) keeps
// tests hermetic.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		requestsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "fcm_push",
			Name:      "requests_total",
			Help:      "Total notification requests handled, by route and outcome.",
		}, []string{"route", "outcome"}),
		gatewayLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fcm_push",
			Name:      "gateway_send_seconds",
			Help:      "Latency of calls to the push gateway.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		rateLimited: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "fcm_push",
			Name:      "rate_limited_total",
			Help:      "Requests rejected with 429 due to the daily rate limit, by route.",
		}, []string{"route"}),
		inFlight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "fcm_push",
			Name:      "requests_in_flight",
			Help:      "Notification requests currently being processed.",
		}),
	}
}

// ObserveRequest records the outcome of one HTTP call to a send/check route.
func (m *Metrics) ObserveRequest(route, outcome string) {
	m.requestsTotal.WithLabelValues(route, outcome).Inc()
}

// ObserveRateLimited records a 429 rejection for route.
func (m *Metrics) ObserveRateLimited(route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}

// ObserveGatewaySend records how long a push gateway call took and whether
// it succeeded.
func (m *Metrics) ObserveGatewaySend(seconds float64, outcome string) {
	m.gatewayLatency.WithLabelValues(outcome).Observe(seconds)
}

// InFlightInc/InFlightDec track concurrently in-progress requests.
func (m *Metrics) InFlightInc() { m.inFlight.Inc() }
func (m *Metrics) InFlightDec() { m.inFlight.Dec() }

// Handler exposes the registered collectors in the Prometheus exposition
// format at /metrics.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
