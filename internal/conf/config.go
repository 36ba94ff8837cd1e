// conf/config.go settings model and loading
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/bearwatch/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// ServerSettings contains HTTP server settings
type ServerSettings struct {
	Host            string        // listen host, empty for all interfaces
	Port            int           // listen port, PORT env overrides
	BodyLimit       string        // echo body limit such as "10M"
	AllowOrigins    []string      // CORS origins
	ShutdownTimeout time.Duration // graceful shutdown bound
}

// XAISettings configures the xAI (Grok) provider
type XAISettings struct {
	APIKey            string
	Model             string
	VisionModel       string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// GeminiSettings configures the Google Gemini provider
type GeminiSettings struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// ProviderSettings groups the LLM provider credentials and models
type ProviderSettings struct {
	XAI    XAISettings
	Gemini GeminiSettings
}

// ScanSettings controls the aggregation scan
type ScanSettings struct {
	Timeout             time.Duration // whole-scan bound
	ProviderTimeout     time.Duration // bound on abandoned provider calls
	WindowDays          int           // recency window in days
	Cooldown            time.Duration // per-client cooldown between scans
	SocialMinDescLength int           // minimum desc length in runes for social records
}

// BoundsSettings is the accepted coordinate box
type BoundsSettings struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// MapSettings holds the default map center used for synthesized records
type MapSettings struct {
	Latitude  float64
	Longitude float64
}

// ConsensusSettings controls photo verification
type ConsensusSettings struct {
	MinAcceptConfidence int
	RejectConfidence    int
	MaxPhotoAge         time.Duration
	MaxImageBytes       int
}

// RiskSettings holds distance thresholds in kilometres
type RiskSettings struct {
	CriticalKm float64
	AlertKm    float64
}

// SpeciesSettings controls species advisory caching
type SpeciesSettings struct {
	CacheTTL time.Duration
}

// CacheSettings controls snapshot freshness
type CacheSettings struct {
	TTL time.Duration
}

// MetricsSettings controls the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool
	Path    string
}

// SentrySettings controls error telemetry
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// NotificationSettings lists shoutrrr service URLs for alerts
type NotificationSettings struct {
	Enabled bool
	URLs    []string
	Timeout time.Duration
}

// MQTTSettings contains settings for MQTT publishing
type MQTTSettings struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Retain      bool
}

// Settings contains all configuration options for bearwatch
type Settings struct {
	Debug   bool
	Version string `yaml:"-"` // set at build time, not configurable

	Server       ServerSettings
	Providers    ProviderSettings
	Scan         ScanSettings
	Bounds       BoundsSettings
	Map          MapSettings
	Consensus    ConsensusSettings
	Risk         RiskSettings
	Species      SpeciesSettings
	Cache        CacheSettings
	Metrics      MetricsSettings
	Sentry       SentrySettings
	Notification NotificationSettings
	MQTT         MQTTSettings
	Logging      logger.LoggingConfig
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configuration from the default config paths, creating a
// default config file when none exists.
func Load() (*Settings, error) {
	return load(func() error {
		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, path := range configPaths {
			viper.AddConfigPath(path)
		}
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return createDefaultConfig(configPaths[0])
			}
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
		return nil
	})
}

// LoadFile reads configuration from an explicit file path.
func LoadFile(path string) (*Settings, error) {
	return load(func() error {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", path, err)
		}
		return nil
	})
}

func load(read func() error) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	setDefaultConfig()
	if err := configureEnvironmentVariables(); err != nil {
		// invalid env values are reported but do not stop startup
		GetLogger().Warn("Environment variable problems", logger.Error(err))
	}
	if err := read(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// createDefaultConfig writes the embedded default config into dir and reads it
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("Created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath atomically via a temp file.
// Comments and ordering in the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}
	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// HasProviderCredentials reports whether at least one LLM provider key is configured
func (s *Settings) HasProviderCredentials() bool {
	return s.Providers.XAI.APIKey != "" || s.Providers.Gemini.APIKey != ""
}
