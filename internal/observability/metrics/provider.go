// Package metrics provides LLM provider metrics for observability
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderMetrics contains Prometheus metrics for provider adapter searches
// and the upstream HTTP calls behind them. It implements Recorder so the
// adapters can report through the narrow interface.
type ProviderMetrics struct {
	registry *prometheus.Registry

	searchesTotal   *prometheus.CounterVec
	searchDuration  *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	recordsTotal    *prometheus.CounterVec
	droppedTotal    *prometheus.CounterVec
	upstreamTotal   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
}

// NewProviderMetrics creates and registers new provider metrics
func NewProviderMetrics(registry *prometheus.Registry) (*ProviderMetrics, error) {
	m := &ProviderMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ProviderMetrics) initMetrics() {
	m.searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearwatch_provider_searches_total",
			Help: "Total number of provider adapter searches",
		},
		[]string{"provider", "status"}, // status: success, empty, error
	)

	m.searchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "bearwatch_provider_search_duration_seconds",
			Help: "Time taken by one provider adapter search",
			// 100ms to ~100s, grounded LLM calls routinely take 5-30s
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
		},
		[]string{"provider"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearwatch_provider_errors_total",
			Help: "Total number of provider adapter errors by category",
		},
		[]string{"provider", "error_type"},
	)

	m.recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearwatch_provider_records_total",
			Help: "Total number of sightings accepted from each provider",
		},
		[]string{"provider"},
	)

	m.droppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearwatch_provider_records_dropped_total",
			Help: "Total number of model records discarded by validation",
		},
		[]string{"provider", "reason"},
	)

	m.upstreamTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearwatch_upstream_requests_total",
			Help: "Total number of HTTP requests sent to LLM APIs",
		},
		[]string{"host", "status_code"},
	)

	m.upstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bearwatch_upstream_request_duration_seconds",
			Help:    "Round trip time of HTTP requests sent to LLM APIs",
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
		},
		[]string{"host"},
	)
}

// Describe implements the Collector interface
func (m *ProviderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.searchesTotal.Describe(ch)
	m.searchDuration.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.recordsTotal.Describe(ch)
	m.droppedTotal.Describe(ch)
	m.upstreamTotal.Describe(ch)
	m.upstreamLatency.Describe(ch)
}

// Collect implements the Collector interface
func (m *ProviderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.searchesTotal.Collect(ch)
	m.searchDuration.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.recordsTotal.Collect(ch)
	m.droppedTotal.Collect(ch)
	m.upstreamTotal.Collect(ch)
	m.upstreamLatency.Collect(ch)
}

// RecordOperation records a search outcome for a provider
func (m *ProviderMetrics) RecordOperation(provider, status string) {
	m.searchesTotal.WithLabelValues(provider, status).Inc()
}

// RecordDuration records the duration of a provider search
func (m *ProviderMetrics) RecordDuration(provider string, seconds float64) {
	m.searchDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordError records a provider error by category
func (m *ProviderMetrics) RecordError(provider, errorType string) {
	m.errorsTotal.WithLabelValues(provider, errorType).Inc()
}

// RecordRecords adds n accepted sightings for a provider
func (m *ProviderMetrics) RecordRecords(provider string, n int) {
	m.recordsTotal.WithLabelValues(provider).Add(float64(n))
}

// RecordDropped adds n discarded records for a provider and reason
func (m *ProviderMetrics) RecordDropped(provider, reason string, n int) {
	m.droppedTotal.WithLabelValues(provider, reason).Add(float64(n))
}

// RecordUpstreamRequest records one HTTP round trip to an LLM API.
// statusCode 0 means the request failed before a response arrived.
func (m *ProviderMetrics) RecordUpstreamRequest(host string, statusCode int, seconds float64) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	m.upstreamTotal.WithLabelValues(host, code).Inc()
	m.upstreamLatency.WithLabelValues(host).Observe(seconds)
}
