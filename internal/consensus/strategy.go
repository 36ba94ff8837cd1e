package consensus

import (
	"github.com/tphakala/bearwatch/internal/errors"
)

// NewEngineFor picks voters from the configured providers. Pass nil for a
// provider without credentials.
//
// Gemini is primary when available. The secondary vote comes from the other
// provider when it is configured, otherwise the primary model is asked again
// with a skeptical persona.
func NewEngineFor(gem GeminiVision, grok GrokVision, config Config) (*Engine, error) {
	switch {
	case gem != nil && grok != nil:
		return NewEngine(NewGeminiVoter(gem, RolePrimary), NewGrokVoter(grok, RoleSecondary), MethodGrok, config), nil
	case gem != nil:
		return NewEngine(NewGeminiVoter(gem, RolePrimary), NewGeminiVoter(gem, RoleSkeptic), MethodGeminiReflection, config), nil
	case grok != nil:
		return NewEngine(NewGrokVoter(grok, RolePrimary), NewGrokVoter(grok, RoleSkeptic), MethodGrokReflection, config), nil
	default:
		return nil, errors.New(ErrVerificationUnavailable).
			Category(errors.CategoryConfiguration).
			Component("consensus").
			Context("reason", "no vision provider configured").
			Build()
	}
}
