// Package metrics provides scan aggregation metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics contains Prometheus metrics for scan aggregation
type ScanMetrics struct {
	registry *prometheus.Registry

	scansTotal        *prometheus.CounterVec
	scanDuration      prometheus.Histogram
	duplicatesTotal   prometheus.Counter
	snapshotSightings *prometheus.GaugeVec
	snapshotTimestamp prometheus.Gauge
}

// NewScanMetrics creates and registers new scan metrics
func NewScanMetrics(registry *prometheus.Registry) (*ScanMetrics, error) {
	m := &ScanMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ScanMetrics) initMetrics() {
	m.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearwatch_scans_total",
			Help: "Total number of scans by result",
		},
		[]string{"result"}, // result: success, empty, timeout, error
	)

	m.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bearwatch_scan_duration_seconds",
		Help:    "Wall time of a complete scan",
		Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
	})

	m.duplicatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bearwatch_scan_duplicates_total",
		Help: "Total number of duplicate sightings removed while merging",
	})

	m.snapshotSightings = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bearwatch_snapshot_sightings",
			Help: "Number of sightings in the latest snapshot by provider",
		},
		[]string{"provider"},
	)

	m.snapshotTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "bearwatch_snapshot_timestamp_seconds",
		Help: "Unix time of the latest stored snapshot",
	})
}

// Describe implements the Collector interface
func (m *ScanMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.scansTotal.Describe(ch)
	m.scanDuration.Describe(ch)
	m.duplicatesTotal.Describe(ch)
	m.snapshotSightings.Describe(ch)
	m.snapshotTimestamp.Describe(ch)
}

// Collect implements the Collector interface
func (m *ScanMetrics) Collect(ch chan<- prometheus.Metric) {
	m.scansTotal.Collect(ch)
	m.scanDuration.Collect(ch)
	m.duplicatesTotal.Collect(ch)
	m.snapshotSightings.Collect(ch)
	m.snapshotTimestamp.Collect(ch)
}

// RecordScan records a finished scan with its result label and duration
func (m *ScanMetrics) RecordScan(result string, seconds float64) {
	m.scansTotal.WithLabelValues(result).Inc()
	m.scanDuration.Observe(seconds)
}

// RecordDuplicates adds n removed duplicates
func (m *ScanMetrics) RecordDuplicates(n int) {
	m.duplicatesTotal.Add(float64(n))
}

// UpdateSnapshot sets the snapshot gauges
func (m *ScanMetrics) UpdateSnapshot(news, social, user int, unixSeconds float64) {
	m.snapshotSightings.WithLabelValues("news").Set(float64(news))
	m.snapshotSightings.WithLabelValues("social").Set(float64(social))
	m.snapshotSightings.WithLabelValues("user").Set(float64(user))
	m.snapshotTimestamp.Set(unixSeconds)
}
