package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketlens"

// Metrics holds the application collectors.
// A nil *Metrics is valid and records nothing.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Metrics struct {
	registry *prometheus.Registry

	providerAttempts *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	screenSymbols    *prometheus.CounterVec
	screenRuns       *prometheus.CounterVec
}

// New creates collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		providerAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Adapter calls by provider, operation and outcome.",
		}, []string{"provider", "op", "outcome"}),

		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_seconds",
			Help:      "Adapter call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "op"}),

		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by dataset and state (fresh, stale, miss).",
		}, []string{"dataset", "state"}),

		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Requests answered after every adapter failed, by level (stale, default).",
		}, []string{"op", "level"}),

		screenSymbols: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screening_symbols_total",
			Help:      "Screened symbols by outcome.",
		}, []string{"outcome"}),

		screenRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screening_runs_total",
			Help:      "Screening runs by status (completed, aborted, cached).",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.providerAttempts,
		m.providerLatency,
		m.cacheLookups,
		m.fallbacks,
		m.screenSymbols,
		m.screenRuns,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ProviderAttempt records one adapter call
func (m *Metrics) ProviderAttempt(provider, op, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerAttempts.WithLabelValues(provider, op, outcome).Inc()
	m.providerLatency.WithLabelValues(provider, op).Observe(elapsed.Seconds())
}

// CacheLookup records a cache lookup
func (m *Metrics) CacheLookup(dataset, state string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(dataset, state).Inc()
}

// Fallback records a stale or default answer
func (m *Metrics) Fallback(op, level string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(op, level).Inc()
}

// ScreenSymbol records one symbol outcome
func (m *Metrics) ScreenSymbol(outcome string) {
	if m == nil {
		return
	}
	m.screenSymbols.WithLabelValues(outcome).Inc()
}

// ScreenRun records the end of a screening run
func (m *Metrics) ScreenRun(status string) {
	if m == nil {
		return
	}
	m.screenRuns.WithLabelValues(status).Inc()
}
