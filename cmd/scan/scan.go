// Package scan implements a one-shot sighting scan from the command line.
package scan

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/bearwatch/cmd/internal/output"
	"github.com/tphakala/bearwatch/internal/app"
	"github.com/tphakala/bearwatch/internal/conf"
	"github.com/tphakala/bearwatch/internal/provider"
)

// NoDataMessage is printed to stderr when a scan finds no sightings
const NoDataMessage = "No bear sightings found in the search window."

// Command creates the scan command. opts are passed to the application.
func Command(settings *conf.Settings, opts ...app.Option) *cobra.Command {
	var (
		location string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one sighting scan and print the snapshot",
		Long: `Run one sighting scan against the configured providers and print the
merged snapshot.

Examples:
  # Nationwide scan as JSON
  bearwatch scan

  # Focus on a prefecture and save as YAML for later risk checks
  bearwatch scan --location 秋田 --output yaml > snapshot.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			application, err := app.New(ctx, settings, nil, opts...)
			if err != nil {
				return err
			}
			defer func() { _ = application.Close(ctx) }()

			scanner, err := application.Scanner(ctx, application.Credentials())
			if err != nil {
				return err
			}
			snap, err := scanner.Scan(ctx, provider.Query{
				Location:   location,
				Now:        time.Now(),
				WindowDays: settings.Scan.WindowDays,
			})
			if err != nil {
				return err
			}
			if snap.Empty() {
				cmd.PrintErrln(NoDataMessage)
			}
			return output.Write(cmd.OutOrStdout(), format, snap)
		},
	}

	cmd.Flags().StringVarP(&location, "location", "l", "", "Focus area: prefecture name or \"lat,lng\"")
	cmd.Flags().StringVarP(&format, "output", "o", output.FormatJSON, "Output format: json or yaml")

	return cmd
}
