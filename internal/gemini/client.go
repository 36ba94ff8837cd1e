// Package gemini wraps the Google GenAI SDK for the three call shapes the
// service needs: search-grounded text, JSON-mode text and image questions.
package gemini

import (
	"context"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/httpclient"
	"github.com/tphakala/bearwatch/internal/logger"
)

// DefaultModel is used for search, vision and advisory calls
const DefaultModel = "gemini-2.5-flash"

// Config holds the client configuration
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // empty uses the SDK endpoint
	Timeout time.Duration

	// HTTPClient is shared with other providers; nil lets the SDK create one
	HTTPClient *httpclient.Client
}

// Client is a thin wrapper over genai.Client. Safe for concurrent use.
type Client struct {
	genai *genai.Client
	model string
	log   logger.Logger
}

// NewClient creates a Gemini API client. No network calls are made.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("Gemini API key is required").
			Category(errors.CategoryConfiguration).
			Component("gemini").
			Build()
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.HTTPClient != nil {
		cc.HTTPClient = config.HTTPClient.HTTPClient()
	}
	if config.BaseURL != "" {
		cc.HTTPOptions.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		cc.HTTPOptions.Timeout = genai.Ptr(config.Timeout)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Component("gemini").
			Build()
	}

	return &Client{
		genai: client,
		model: config.Model,
		log:   logger.Global().Module("gemini"),
	}, nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// GenerateGrounded runs prompt with Google Search grounding enabled and
// returns the reply text.
func (c *Client) GenerateGrounded(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
	return c.generate(ctx, "grounded", genai.Text(prompt), cfg)
}

// GenerateJSON asks for a JSON reply under an optional system instruction.
func (c *Client) GenerateJSON(ctx context.Context, system, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return c.generate(ctx, "json", genai.Text(prompt), cfg)
}

// Vision asks prompt about one inline image.
func (c *Client) Vision(ctx context.Context, system, prompt string, image []byte, mimeType string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(prompt),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return c.generate(ctx, "vision", contents, cfg)
}

func (c *Client) generate(ctx context.Context, operation string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", c.wrapError(ctx, operation, err, time.Since(start))
	}

	text := resp.Text()
	c.log.Debug("Gemini call completed",
		logger.String("operation", operation),
		logger.Duration("elapsed", time.Since(start)),
		logger.Int("reply_length", len(text)))
	return text, nil
}

func (c *Client) wrapError(ctx context.Context, operation string, err error, elapsed time.Duration) error {
	category := errors.CategoryNetwork
	statusCode := 0

	var apiErr genai.APIError
	switch {
	case errors.As(err, &apiErr):
		statusCode = apiErr.Code
		category = getErrorCategory(apiErr.Code)
	case ctx.Err() != nil:
		category = errors.CategoryTimeout
	}

	b := errors.Newf("gemini %s call failed: %s", operation, logger.RedactSensitiveData(err.Error())).
		Category(category).
		Component("gemini").
		Timing("gemini-"+operation, elapsed)
	if statusCode != 0 {
		b = b.Context("status_code", statusCode)
	}
	return b.Build()
}

// getErrorCategory maps an HTTP status code to an error category
func getErrorCategory(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CategoryConfiguration
	case http.StatusBadRequest:
		// Gemini reports invalid keys as 400 INVALID_ARGUMENT
		return errors.CategoryValidation
	case http.StatusTooManyRequests:
		return errors.CategoryLimit
	case http.StatusNotFound:
		return errors.CategoryNotFound
	default:
		return errors.CategoryNetwork
	}
}
