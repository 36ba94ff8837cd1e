// Package risk implements the proximity risk check from the command line.
package risk

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/bearwatch/cmd/internal/output"
	"github.com/tphakala/bearwatch/internal/app"
	"github.com/tphakala/bearwatch/internal/conf"
	"github.com/tphakala/bearwatch/internal/provider"
	"github.com/tphakala/bearwatch/internal/sighting"
)

// Command creates the risk command
func Command(settings *conf.Settings) *cobra.Command {
	var (
		lat, lng     float64
		snapshotPath string
		format       string
	)

	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Classify the risk at a location against current sightings",
		Long: `Classify the risk at a location against current sightings.

Sightings come from a snapshot file written by "bearwatch scan", or from a
live scan when --snapshot is not given.

Examples:
  bearwatch risk --lat 39.72 --lng 140.10 --snapshot snapshot.yaml
  bearwatch risk --lat 43.06 --lng 141.35`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !sighting.IsFinite(lat) || !sighting.IsFinite(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
				return fmt.Errorf("invalid coordinate %v,%v", lat, lng)
			}

			application, err := app.New(ctx, settings, nil)
			if err != nil {
				return err
			}
			defer func() { _ = application.Close(ctx) }()

			var snap sighting.Snapshot
			if snapshotPath != "" {
				if err := output.ReadFile(snapshotPath, &snap); err != nil {
					return fmt.Errorf("reading snapshot: %w", err)
				}
			} else {
				scanner, err := application.Scanner(ctx, application.Credentials())
				if err != nil {
					return err
				}
				if snap, err = scanner.Scan(ctx, provider.Query{Now: time.Now()}); err != nil {
					return err
				}
			}

			res := application.Risk.Evaluate(snap, sighting.Point{Lat: lat, Lng: lng}, time.Now())
			return output.Write(cmd.OutOrStdout(), format, res)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude")
	cmd.Flags().StringVarP(&snapshotPath, "snapshot", "s", "", "Snapshot file (json or yaml) from bearwatch scan")
	cmd.Flags().StringVarP(&format, "output", "o", output.FormatJSON, "Output format: json or yaml")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}
