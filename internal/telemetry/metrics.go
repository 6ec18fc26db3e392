package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the bridge.
type Metrics struct {
	HookRequests      *prometheus.CounterVec
	HookDuration      *prometheus.HistogramVec
	CarrierErrors     *prometheus.CounterVec
	TokenExchanges    *prometheus.CounterVec
	QuoteCacheLookups *prometheus.CounterVec
}

// NewMetrics creates and registers the bridge metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		HookRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parceline_hook_requests_total",
				Help: "Webhook invocations by hook and status",
			},
			[]string{"hook", "status"},
		),
		HookDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parceline_hook_duration_seconds",
				Help:    "Webhook handling duration by hook",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"hook"},
		),
		CarrierErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parceline_carrier_errors_total",
				Help: "Provider API errors by carrier and operation",
			},
			[]string{"carrier", "operation"},
		),
		TokenExchanges: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parceline_token_exchanges_total",
				Help: "OAuth credential exchanges by grant and outcome",
			},
			[]string{"grant", "outcome"},
		),
		QuoteCacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parceline_quote_cache_lookups_total",
				Help: "Quote cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordHook records one webhook invocation.
func (m *Metrics) RecordHook(hook, status string, duration float64) {
	m.HookRequests.WithLabelValues(hook, status).Inc()
	m.HookDuration.WithLabelValues(hook).Observe(duration)
}

// RecordCarrierError records a provider API failure.
func (m *Metrics) RecordCarrierError(carrier, operation string) {
	m.CarrierErrors.WithLabelValues(carrier, operation).Inc()
}

// RecordTokenExchange records one credential exchange.
func (m *Metrics) RecordTokenExchange(grant string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.TokenExchanges.WithLabelValues(grant, outcome).Inc()
}

// RecordQuoteCacheLookup records a quote cache hit or miss.
func (m *Metrics) RecordQuoteCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.QuoteCacheLookups.WithLabelValues(result).Inc()
}
