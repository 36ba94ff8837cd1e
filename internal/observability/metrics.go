// Package observability provides Prometheus metrics for bearwatch.
// Sentry-related error telemetry is handled in the telemetry package.
package observability

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/bearwatch/internal/httpclient"
	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry     *prometheus.Registry
	Scan         *metrics.ScanMetrics
	Provider     *metrics.ProviderMetrics
	Consensus    *metrics.ConsensusMetrics
	HTTP         *metrics.HTTPMetrics
	MQTT         *metrics.MQTTMetrics
	Notification *metrics.NotificationMetrics
}

// NewMetrics creates a new instance of Metrics on a private registry.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	scanMetrics, err := metrics.NewScanMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create scan metrics: %w", err)
	}

	providerMetrics, err := metrics.NewProviderMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider metrics: %w", err)
	}

	consensusMetrics, err := metrics.NewConsensusMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create consensus metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	notificationMetrics, err := metrics.NewNotificationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification metrics: %w", err)
	}

	return &Metrics{
		registry:     registry,
		Scan:         scanMetrics,
		Provider:     providerMetrics,
		Consensus:    consensusMetrics,
		HTTP:         httpMetrics,
		MQTT:         mqttMetrics,
		Notification: notificationMetrics,
	}, nil
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the metrics exposition.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// InstrumentHTTPClient records every upstream round trip made through c.
func (m *Metrics) InstrumentHTTPClient(c *httpclient.Client) {
	c.SetAfterResponseHook(func(req *http.Request, resp *http.Response, err error, elapsed time.Duration) {
		status := 0
		if err == nil && resp != nil {
			status = resp.StatusCode
		}
		m.Provider.RecordUpstreamRequest(hostOf(req.URL), status, elapsed.Seconds())
		if err != nil {
			log.Debug("Upstream request failed",
				logger.String("host", hostOf(req.URL)),
				logger.Error(err))
		}
	})
}

func hostOf(u *url.URL) string {
	if u == nil {
		return "unknown"
	}
	return u.Hostname()
}
