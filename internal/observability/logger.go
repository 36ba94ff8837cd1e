package observability

import "github.com/tphakala/bearwatch/internal/logger"

// Package-level cached logger instance.
var log = logger.Global().Module("metrics")
