package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ConsensusMetrics contains Prometheus metrics for photo verification
type ConsensusMetrics struct {
	registry *prometheus.Registry

	decisionsTotal   *prometheus.CounterVec
	votesTotal       *prometheus.CounterVec
	voterErrors      *prometheus.CounterVec
	verifyDuration   prometheus.Histogram
	unavailableTotal prometheus.Counter
}

// NewConsensusMetrics creates and registers new consensus metrics
func NewConsensusMetrics(registry *prometheus.Registry) (*ConsensusMetrics, error) {
	m := &ConsensusMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ConsensusMetrics) initMetrics() {
	m.decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearwatch_verification_decisions_total",
			Help: "Total number of verification decisions by status and secondary method",
		},
		[]string{"status", "method"},
	)

	m.votesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearwatch_verification_votes_total",
			Help: "Total number of individual voter verdicts",
		},
		[]string{"voter", "vote"},
	)

	m.voterErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearwatch_verification_voter_errors_total",
			Help: "Total number of voter failures counted as NO",
		},
		[]string{"voter"},
	)

	m.verifyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bearwatch_verification_duration_seconds",
		Help:    "Wall time of a complete verification",
		Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
	})

	m.unavailableTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bearwatch_verification_unavailable_total",
		Help: "Total number of verifications aborted because the primary voter was unreachable",
	})
}

// Describe implements the Collector interface
func (m *ConsensusMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.decisionsTotal.Describe(ch)
	m.votesTotal.Describe(ch)
	m.voterErrors.Describe(ch)
	m.verifyDuration.Describe(ch)
	m.unavailableTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *ConsensusMetrics) Collect(ch chan<- prometheus.Metric) {
	m.decisionsTotal.Collect(ch)
	m.votesTotal.Collect(ch)
	m.voterErrors.Collect(ch)
	m.verifyDuration.Collect(ch)
	m.unavailableTotal.Collect(ch)
}

// RecordDecision records a final verification decision
func (m *ConsensusMetrics) RecordDecision(status, method string, seconds float64) {
	m.decisionsTotal.WithLabelValues(status, method).Inc()
	m.verifyDuration.Observe(seconds)
}

// RecordVote records one voter verdict
func (m *ConsensusMetrics) RecordVote(voter string, yes bool) {
	vote := "no"
	if yes {
		vote = "yes"
	}
	m.votesTotal.WithLabelValues(voter, vote).Inc()
}

// RecordVoterError records a voter failure
func (m *ConsensusMetrics) RecordVoterError(voter string) {
	m.voterErrors.WithLabelValues(voter).Inc()
}

// RecordUnavailable records an aborted verification
func (m *ConsensusMetrics) RecordUnavailable() {
	m.unavailableTotal.Inc()
}
