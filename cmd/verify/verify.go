// Package verify implements photo verification from the command line.
package verify

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/bearwatch/cmd/internal/output"
	"github.com/tphakala/bearwatch/internal/app"
	"github.com/tphakala/bearwatch/internal/conf"
	"github.com/tphakala/bearwatch/internal/consensus"
	"github.com/tphakala/bearwatch/internal/sighting"
)

// Result is printed by the verify command
type Result struct {
	Decision consensus.Decision `json:"decision" yaml:"decision"`
	Sighting *sighting.Sighting `json:"sighting,omitempty" yaml:"sighting,omitempty"`
}

// Command creates the verify command
func Command(settings *conf.Settings) *cobra.Command {
	var (
		imagePath   string
		lat, lng    float64
		description string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a bear photo with the two-model consensus",
		Long: `Verify a bear photo with the two-model consensus and print the decision.
An accepted photo also prints the user sighting that would be published.

Example:
  bearwatch verify --image footprint.jpg --lat 39.72 --lng 140.10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("reading image: %w", err)
			}
			img, err := consensus.NewImage(data, settings.Consensus.MaxImageBytes)
			if err != nil {
				return err
			}

			application, err := app.New(ctx, settings, nil)
			if err != nil {
				return err
			}
			defer func() { _ = application.Close(ctx) }()

			if !application.Bounds().Contains(lat, lng) {
				return fmt.Errorf("location %.4f,%.4f is outside the supported area", lat, lng)
			}

			engine, err := application.Verifier(ctx, application.Credentials())
			if err != nil {
				return err
			}
			decision, err := engine.Verify(ctx, img)
			if err != nil {
				return err
			}

			res := Result{Decision: decision}
			if decision.Accepted() {
				sg := consensus.NewUserSighting(decision, consensus.Report{
					Lat:         lat,
					Lng:         lng,
					Description: description,
				}, time.Now())
				res.Sighting = &sg
			}
			return output.Write(cmd.OutOrStdout(), format, res)
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Path to the photo")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude where the photo was taken")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude where the photo was taken")
	cmd.Flags().StringVar(&description, "description", "", "Optional description of the sighting")
	cmd.Flags().StringVarP(&format, "output", "o", output.FormatJSON, "Output format: json or yaml")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}
