// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("server.host", "")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.bodylimit", "10M")
	viper.SetDefault("server.alloworigins", []string{"*"})
	viper.SetDefault("server.shutdowntimeout", 10*time.Second)

	viper.SetDefault("providers.xai.model", "grok-2-latest")
	viper.SetDefault("providers.xai.visionmodel", "grok-2-vision-latest")
	viper.SetDefault("providers.xai.baseurl", "https://api.x.ai/v1")
	viper.SetDefault("providers.xai.timeout", 60*time.Second)
	viper.SetDefault("providers.xai.requestspersecond", 2.0)
	viper.SetDefault("providers.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("providers.gemini.timeout", 60*time.Second)

	viper.SetDefault("scan.timeout", 25*time.Second)
	viper.SetDefault("scan.providertimeout", 60*time.Second)
	viper.SetDefault("scan.windowdays", 30)
	viper.SetDefault("scan.cooldown", 30*time.Second)
	viper.SetDefault("scan.socialmindesclength", 10)

	viper.SetDefault("bounds.minlat", 24.0)
	viper.SetDefault("bounds.maxlat", 46.0)
	viper.SetDefault("bounds.minlng", 122.0)
	viper.SetDefault("bounds.maxlng", 154.0)

	viper.SetDefault("map.latitude", 38.5)
	viper.SetDefault("map.longitude", 137.0)

	viper.SetDefault("consensus.minacceptconfidence", 85)
	viper.SetDefault("consensus.rejectconfidence", 10)
	viper.SetDefault("consensus.maxphotoage", time.Hour)
	viper.SetDefault("consensus.maximagebytes", 10<<20)

	viper.SetDefault("risk.criticalkm", 5.0)
	viper.SetDefault("risk.alertkm", 50.0)

	viper.SetDefault("species.cachettl", 24*time.Hour)
	viper.SetDefault("cache.ttl", 24*time.Hour)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.environment", "production")

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.timeout", 10*time.Second)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientid", "bearwatch")
	viper.SetDefault("mqtt.topicprefix", "bearwatch")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/bearwatch.log")
	viper.SetDefault("logging.file_output.max_size", 50)
	viper.SetDefault("logging.file_output.max_age", 14)
	viper.SetDefault("logging.file_output.max_rotated_files", 5)
}
