package notification

import (
	"context"
	"encoding/json"

	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/mqtt"
)

// Topic suffixes under the configured prefix
const (
	TopicReports  = "reports"
	TopicSnapshot = "snapshot"
)

// MQTTProvider publishes notification payloads as JSON
type MQTTProvider struct {
	client mqtt.Client
	config mqtt.Config
}

// NewMQTTProvider wraps client. Topics are built from config.TopicPrefix.
func NewMQTTProvider(client mqtt.Client, config mqtt.Config) *MQTTProvider {
	return &MQTTProvider{client: client, config: config}
}

func (p *MQTTProvider) Name() string { return "mqtt" }

func (p *MQTTProvider) SupportsType(t Type) bool {
	return t == TypeReport || t == TypeSnapshot
}

// Send publishes n.Payload, connecting first if needed
func (p *MQTTProvider) Send(ctx context.Context, n *Notification) error {
	if !p.client.IsConnected() {
		if err := p.client.Connect(ctx); err != nil {
			return retryable(err)
		}
	}

	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryMQTTPublish).
			Component("notification").
			Context("type", string(n.Type)).
			Build()
	}

	topic := p.config.Topic(TopicSnapshot)
	if n.Type == TypeReport {
		topic = p.config.Topic(TopicReports)
	}
	if err := p.client.Publish(ctx, topic, string(payload)); err != nil {
		return retryable(err)
	}
	return nil
}

// Close disconnects from the broker
func (p *MQTTProvider) Close() {
	p.client.Disconnect()
}
