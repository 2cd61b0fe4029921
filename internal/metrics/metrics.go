// Package metrics provides application-level metrics collection.
// Metrics live in a private prometheus registry so tests and embedders
// can create isolated instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds the connection-layer collectors.
type Metrics struct {
	registry *prometheus.Registry

	connectTotal     *prometheus.CounterVec
	switchChainTotal *prometheus.CounterVec
	stateEvents      *prometheus.CounterVec
	refreshErrors    *prometheus.CounterVec
	rateLimited      prometheus.Counter
	connected        *prometheus.GaugeVec
}

// Global is the global metrics instance.
// Use this for recording metrics throughout the application.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = New()

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		connectTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tether_connect_total",
				Help: "Wallet connect attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		switchChainTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tether_switch_chain_total",
				Help: "Chain switch requests by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		stateEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tether_state_events_total",
				Help: "Values published on connection state streams",
			},
			[]string{"stream"},
		),
		refreshErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tether_refresh_errors_total",
				Help: "Failed account or chain refreshes",
			},
			[]string{"field"},
		),
		rateLimited: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tether_http_rate_limited_total",
				Help: "Control requests rejected by the rate limiter",
			},
		),
		connected: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tether_connected",
				Help: "1 while the provider reports an active session",
			},
			[]string{"provider"},
		),
	}
}

// RecordConnect records the outcome of a connect attempt.
func (m *Metrics) RecordConnect(provider, outcome string) {
	m.connectTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordSwitchChain records the outcome of a switch chain request.
func (m *Metrics) RecordSwitchChain(provider, outcome string) {
	m.switchChainTotal.WithLabelValues(provider, outcome).Inc()
}

// RecordStateEvent records a value published on the named stream.
func (m *Metrics) RecordStateEvent(stream string) {
	m.stateEvents.WithLabelValues(stream).Inc()
}

// RecordRefreshError records a failed refresh of the named field.
func (m *Metrics) RecordRefreshError(field string) {
	m.refreshErrors.WithLabelValues(field).Inc()
}

// RecordRateLimited records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

// SetConnected sets the connected gauge for a provider.
func (m *Metrics) SetConnected(provider string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	m.connected.WithLabelValues(provider).Set(v)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
