// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings.
// When several variables are listed the first one that is set wins.
type envBinding struct {
	ConfigKey string
	EnvVars   []string
	Validate  func(string) error
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"providers.xai.apikey", []string{"XAI_API_KEY"}, validateEnvAPIKey},
		{"providers.gemini.apikey", []string{"API_KEY", "GOOGLE_API_KEY"}, validateEnvAPIKey},
		{"server.port", []string{"PORT"}, validateEnvPort},
		{"debug", []string{"BEARWATCH_DEBUG"}, validateEnvBool},
		{"sentry.dsn", []string{"SENTRY_DSN"}, nil},
	}
}

// bindEnvVars binds environment variables and collects validation warnings
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		args := append([]string{binding.ConfigKey}, binding.EnvVars...)
		if err := viper.BindEnv(args...); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", strings.Join(binding.EnvVars, "/"), err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		for _, envVar := range binding.EnvVars {
			value := os.Getenv(envVar)
			if value == "" {
				continue
			}
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", envVar, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// validateEnvAPIKey rejects obviously malformed keys without echoing them
func validateEnvAPIKey(value string) error {
	if len(value) < 10 {
		return fmt.Errorf("api key too short (%d characters)", len(value))
	}
	if strings.IndexFunc(value, unicode.IsSpace) >= 0 {
		return fmt.Errorf("api key contains whitespace")
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvPrefix("BEARWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	return bindEnvVars()
}
