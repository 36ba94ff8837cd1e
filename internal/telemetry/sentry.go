// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry.
package telemetry

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/bearwatch/internal/conf"
	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/logger"
)

var (
	log         = logger.Global().Module("telemetry")
	initialized atomic.Bool
)

// InitSentry initializes Sentry when enabled in settings and routes
// enhanced errors to it. transport may be nil to use the SDK default.
func InitSentry(settings *conf.Settings, transport sentry.Transport) error {
	if !settings.Sentry.Enabled {
		log.Debug("Sentry telemetry is disabled (opt-in required)")
		return nil
	}
	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry is enabled but no DSN is configured").
			Category(errors.CategoryConfiguration).
			Component("telemetry").
			Build()
	}

	env := settings.Sentry.Environment
	if env == "" {
		env = "production"
	}
	version := settings.Version
	if version == "" {
		version = "dev"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      env,
		ServerName:       "",
		Release:          fmt.Sprintf("bearwatch@%s", version),
		Transport:        transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Category(errors.CategoryConfiguration).
			Component("telemetry").
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":    "bearwatch",
			"version": version,
		})
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)
	log.Info("Sentry telemetry initialized", logger.String("environment", env))
	return nil
}

// Flush waits for queued events. It is a no-op when Sentry is not initialized.
func Flush(ctx context.Context) bool {
	if !initialized.Load() {
		return true
	}
	return sentry.FlushWithContext(ctx)
}

// Shutdown detaches the error reporter and flushes, waiting at most timeout
func Shutdown(timeout time.Duration) {
	if !initialized.Load() {
		return
	}
	errors.SetTelemetryReporter(nil)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if !Flush(ctx) {
		log.Warn("Sentry flush timed out", logger.Duration("timeout", timeout))
	}
	initialized.Store(false)
}

// applyPrivacyFilters strips identifying data and scrubs API keys from
// messages, which may embed upstream response bodies.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" && k != "category" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = logger.RedactSensitiveData(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = logger.RedactSensitiveData(event.Exception[i].Value)
	}
	return event
}
