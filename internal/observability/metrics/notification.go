// Package metrics provides custom Prometheus metrics for notification operations.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains Prometheus metrics for outbound alerts.
type NotificationMetrics struct {
	DeliveriesTotal  *prometheus.CounterVec   // by provider, type, status
	DeliveryDuration *prometheus.HistogramVec // by provider
	DeliveryErrors   *prometheus.CounterVec   // by provider, error_category

	registry *prometheus.Registry
}

// NewNotificationMetrics creates and registers notification metrics.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearwatch_notification_deliveries_total",
			Help: "Total number of notification delivery attempts by provider, notification type, and status",
		},
		[]string{"provider", "notification_type", "status"},
	)

	m.DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bearwatch_notification_delivery_duration_seconds",
			Help:    "Time taken for notification delivery by provider",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"provider"},
	)

	m.DeliveryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bearwatch_notification_delivery_errors_total",
			Help: "Total number of notification delivery errors by provider and error category",
		},
		[]string{"provider", "error_category"},
	)
}

// RecordDelivery records one delivery attempt.
func (m *NotificationMetrics) RecordDelivery(provider, notificationType, status string, seconds float64) {
	m.DeliveriesTotal.WithLabelValues(provider, notificationType, status).Inc()
	m.DeliveryDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordDeliveryError records a failed delivery by error category.
func (m *NotificationMetrics) RecordDeliveryError(provider, category string) {
	m.DeliveryErrors.WithLabelValues(provider, category).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DeliveriesTotal.Describe(ch)
	m.DeliveryDuration.Describe(ch)
	m.DeliveryErrors.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DeliveriesTotal.Collect(ch)
	m.DeliveryDuration.Collect(ch)
	m.DeliveryErrors.Collect(ch)
}
