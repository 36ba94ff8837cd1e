package notification

import (
	"github.com/tphakala/bearwatch/internal/conf"
	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/mqtt"
	"github.com/tphakala/bearwatch/internal/observability"
	"github.com/tphakala/bearwatch/internal/observability/metrics"
)

// FromSettings builds the service from configuration. Misconfigured
// providers are logged and skipped so a bad webhook URL never prevents
// startup. Returns nil when nothing is enabled.
func FromSettings(settings *conf.Settings, m *observability.Metrics) *Service {
	var providers []Provider

	if settings.Notification.Enabled && len(settings.Notification.URLs) > 0 {
		sp, err := NewShoutrrrProvider(settings.Notification.URLs, nil, settings.Notification.Timeout)
		if err != nil {
			log.Error("Shoutrrr provider disabled", logger.Error(err))
		} else {
			providers = append(providers, sp)
		}
	}

	if settings.MQTT.Enabled {
		cfg := mqtt.DefaultConfig()
		cfg.Broker = settings.MQTT.Broker
		cfg.Username = settings.MQTT.Username
		cfg.Password = settings.MQTT.Password
		cfg.Retain = settings.MQTT.Retain
		if settings.MQTT.ClientID != "" {
			cfg.ClientID = settings.MQTT.ClientID
		}
		if settings.MQTT.TopicPrefix != "" {
			cfg.TopicPrefix = settings.MQTT.TopicPrefix
		}

		var mm *metrics.MQTTMetrics
		if m != nil {
			mm = m.MQTT
		}
		client, err := mqtt.NewClient(cfg, mm)
		if err != nil {
			log.Error("MQTT provider disabled", logger.Error(err))
		} else {
			providers = append(providers, NewMQTTProvider(client, cfg))
		}
	}

	if len(providers) == 0 {
		return nil
	}

	opts := Options{SendTimeout: settings.Notification.Timeout}
	if m != nil {
		opts.Metrics = m.Notification
	}
	return NewService(providers, opts)
}
