// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/labstack/gommon/bytes"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateServerSettings,
		validateProviderSettings,
		validateScanSettings,
		validateBoundsSettings,
		validateConsensusSettings,
		validateRiskSettings,
		validateMQTTSettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateServerSettings(s *Settings) error {
	if s.Server.Port < 1 || s.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", s.Server.Port)
	}
	// echo panics on a limit it cannot parse
	if s.Server.BodyLimit != "" {
		if _, err := bytes.Parse(s.Server.BodyLimit); err != nil {
			return fmt.Errorf("server.bodylimit %q is invalid: %w", s.Server.BodyLimit, err)
		}
	}
	return nil
}

func validateProviderSettings(s *Settings) error {
	var problems []string
	if s.Providers.XAI.BaseURL != "" {
		if u, err := url.Parse(s.Providers.XAI.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("providers.xai.baseurl %q is not an absolute URL", s.Providers.XAI.BaseURL))
		}
	}
	if s.Providers.XAI.Model == "" {
		problems = append(problems, "providers.xai.model must not be empty")
	}
	if s.Providers.Gemini.Model == "" {
		problems = append(problems, "providers.gemini.model must not be empty")
	}
	if s.Providers.XAI.RequestsPerSecond < 0 {
		problems = append(problems, "providers.xai.requestspersecond must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func validateScanSettings(s *Settings) error {
	switch {
	case s.Scan.Timeout <= 0:
		return fmt.Errorf("scan.timeout must be positive")
	case s.Scan.WindowDays < 1:
		return fmt.Errorf("scan.windowdays must be at least 1, got %d", s.Scan.WindowDays)
	case s.Scan.ProviderTimeout < s.Scan.Timeout:
		return fmt.Errorf("scan.providertimeout (%s) must not be shorter than scan.timeout (%s)", s.Scan.ProviderTimeout, s.Scan.Timeout)
	case s.Scan.Cooldown < 0:
		return fmt.Errorf("scan.cooldown must not be negative")
	}
	return nil
}

func validateBoundsSettings(s *Settings) error {
	b := s.Bounds
	if b.MinLat >= b.MaxLat || b.MinLng >= b.MaxLng {
		return fmt.Errorf("bounds are empty: lat [%g,%g] lng [%g,%g]", b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLng < -180 || b.MaxLng > 180 {
		return fmt.Errorf("bounds exceed valid coordinate ranges")
	}
	if s.Map.Latitude < b.MinLat || s.Map.Latitude > b.MaxLat || s.Map.Longitude < b.MinLng || s.Map.Longitude > b.MaxLng {
		return fmt.Errorf("map center %g,%g lies outside bounds", s.Map.Latitude, s.Map.Longitude)
	}
	return nil
}

func validateConsensusSettings(s *Settings) error {
	c := s.Consensus
	if c.MinAcceptConfidence < 0 || c.MinAcceptConfidence > 100 {
		return fmt.Errorf("consensus.minacceptconfidence must be 0-100, got %d", c.MinAcceptConfidence)
	}
	if c.RejectConfidence < 0 || c.RejectConfidence >= c.MinAcceptConfidence {
		return fmt.Errorf("consensus.rejectconfidence must be below minacceptconfidence, got %d", c.RejectConfidence)
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("consensus.maximagebytes must be positive")
	}
	return nil
}

func validateRiskSettings(s *Settings) error {
	if s.Risk.CriticalKm <= 0 {
		return fmt.Errorf("risk.criticalkm must be positive")
	}
	if s.Risk.AlertKm < s.Risk.CriticalKm {
		return fmt.Errorf("risk.alertkm (%g) must not be smaller than risk.criticalkm (%g)", s.Risk.AlertKm, s.Risk.CriticalKm)
	}
	return nil
}

func validateMQTTSettings(s *Settings) error {
	if !s.MQTT.Enabled {
		return nil
	}
	if s.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if strings.TrimSpace(s.MQTT.TopicPrefix) == "" {
		return fmt.Errorf("mqtt.topicprefix is required when mqtt is enabled")
	}
	return nil
}
