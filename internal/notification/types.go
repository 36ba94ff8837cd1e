// Package notification pushes verified reports and scan summaries to
// external services.
package notification

import (
	"time"

	"github.com/tphakala/bearwatch/internal/logger"
)

// Type identifies the kind of notification
type Type string

const (
	// TypeReport is sent when a user report passes verification
	TypeReport Type = "report"
	// TypeSnapshot is sent after each successful scan
	TypeSnapshot Type = "snapshot"
)

// Notification is one outbound message. Payload is sent as JSON by
// providers that carry structured data.
type Notification struct {
	Type      Type
	Title     string
	Message   string
	Payload   any
	Timestamp time.Time
}

var log = logger.Global().Module("notification")
