// Package serve implements the serve command that runs the HTTP API.
package serve

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/bearwatch/internal/api"
	"github.com/tphakala/bearwatch/internal/app"
	"github.com/tphakala/bearwatch/internal/conf"
	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/observability"
)

// Command creates the serve command
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Run the HTTP API server.

The server exposes the sighting scan, photo verification, species advisory
and risk endpoints under /api, and Prometheus metrics when enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Global().Module("serve")

			var m *observability.Metrics
			if settings.Metrics.Enabled {
				var err error
				if m, err = observability.NewMetrics(); err != nil {
					return err
				}
			}

			if !settings.HasProviderCredentials() {
				log.Warn("No provider API keys configured, scans need manualKeys in the request")
			}

			application, err := app.New(cmd.Context(), settings, m)
			if err != nil {
				return err
			}

			srv, err := api.New(application, api.WithMetrics(m))
			if err != nil {
				return err
			}
			return srv.StartWithGracefulShutdown()
		},
	}
}
