// Package mqtt publishes bearwatch events to an MQTT broker.
package mqtt

import (
	"context"
	"strings"
	"time"

	"github.com/tphakala/bearwatch/internal/logger"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends payload to topic. The topic is used as given; see
	// Config.Topic for building prefixed topics.
	Publish(ctx context.Context, topic, payload string) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string // prepended to every topic built with Topic
	Retain      bool   // true to retain messages at the broker

	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultTopicPrefix is used when no prefix is configured
const DefaultTopicPrefix = "bearwatch"

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ClientID:          "bearwatch",
		TopicPrefix:       DefaultTopicPrefix,
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// Topic joins the configured prefix and suffix with a single slash
func (c Config) Topic(suffix string) string {
	prefix := strings.TrimRight(c.TopicPrefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "/" + strings.TrimLeft(suffix, "/")
}

var log = logger.Global().Module("mqtt")
