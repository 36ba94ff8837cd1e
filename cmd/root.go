package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/bearwatch/cmd/risk"
	"github.com/tphakala/bearwatch/cmd/scan"
	"github.com/tphakala/bearwatch/cmd/serve"
	"github.com/tphakala/bearwatch/cmd/verify"
	"github.com/tphakala/bearwatch/internal/conf"
	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/telemetry"
)

// sentryFlushTimeout bounds the final telemetry flush on exit
const sentryFlushTimeout = 2 * time.Second

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings, version string) *cobra.Command {
	var (
		configPath string
		central    *logger.CentralLogger
	)

	rootCmd := &cobra.Command{
		Use:           "bearwatch",
		Short:         "Bear sighting aggregation and photo verification service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, &configPath)

	rootCmd.AddCommand(
		serve.Command(settings),
		scan.Command(settings),
		verify.Command(settings),
		risk.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := loadSettings(configPath)
		if err != nil {
			return err
		}
		*settings = *loaded
		settings.Version = version

		if settings.Debug {
			settings.Logging.DefaultLevel = "debug"
		}
		central, err = logger.NewCentralLogger(&settings.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		logger.SetGlobal(central)

		if err := telemetry.InitSentry(settings, nil); err != nil {
			central.Module("main").Warn("Error telemetry disabled", logger.Error(err))
		}
		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		telemetry.Shutdown(sentryFlushTimeout)
		if central != nil {
			return central.Close()
		}
		return nil
	}

	return rootCmd
}

// setupFlags defines the global flags and binds them into viper so they
// take precedence over the config file and environment
func setupFlags(rootCmd *cobra.Command, configPath *string) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configPath, "config", "c", "", "Path to config.yaml (default: search standard locations)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.Int("port", 0, "HTTP listen port (overrides server.port and PORT)")

	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("server.port", flags.Lookup("port"))
}

func loadSettings(configPath string) (*conf.Settings, error) {
	if configPath != "" {
		return conf.LoadFile(configPath)
	}
	return conf.Load()
}

// Execute runs the CLI and returns the process exit code
func Execute(version string) int {
	settings := &conf.Settings{}
	rootCmd := RootCommand(settings, version)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", logger.RedactSensitiveData(err.Error()))
		telemetry.Shutdown(sentryFlushTimeout)
		return 1
	}
	return 0
}
