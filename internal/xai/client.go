// Package xai is a minimal client for the xAI (Grok) chat completions API.
package xai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/httpclient"
	"github.com/tphakala/bearwatch/internal/logger"
)

const (
	DefaultBaseURL     = "https://api.x.ai/v1"
	DefaultModel       = "grok-2-latest"
	DefaultVisionModel = "grok-2-vision-latest"

	maxRetries       = 3
	maxPreviewLength = 500
	maxResponseBytes = 4 << 20

	maxSearchResults = 30
)

// ErrResponseTooLarge is returned when a response body exceeds the read cap
var ErrResponseTooLarge = errors.NewStd("xAI response too large")

// Config holds the client configuration
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	VisionModel       string
	Timeout           time.Duration
	RequestsPerSecond float64

	// HTTPClient is shared with other providers; nil creates a private one
	HTTPClient *httpclient.Client
}

// Client talks to the xAI API. Safe for concurrent use.
type Client struct {
	config  Config
	http    *httpclient.Client
	limiter *rate.Limiter
	log     logger.Logger
}

// NewClient creates a new xAI client
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("xAI API key is required").
			Category(errors.CategoryConfiguration).
			Component("xai").
			Build()
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.VisionModel == "" {
		config.VisionModel = DefaultVisionModel
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 2
	}

	hc := config.HTTPClient
	if hc == nil {
		hc = httpclient.New(&httpclient.Config{DefaultTimeout: config.Timeout})
	}

	burst := max(int(config.RequestsPerSecond), 1)
	return &Client{
		config:  config,
		http:    hc,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst),
		log:     logger.Global().Module("xai"),
	}, nil
}

// Model returns the configured text model name
func (c *Client) Model() string {
	return c.config.Model
}

// Complete sends a system and user message to the text model and returns
// the reply text.
func (c *Client) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	req := &ChatRequest{
		Model: c.config.Model,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
		Temperature: temperature,
	}
	resp, err := c.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// CompleteWithSearch is Complete with live search over X posts and Japanese
// web and news sources published between from and to (YYYY-MM-DD).
func (c *Client) CompleteWithSearch(ctx context.Context, system, user string, temperature float64, from, to string) (string, error) {
	req := &ChatRequest{
		Model: c.config.Model,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
		Temperature: temperature,
		SearchParameters: &SearchParameters{
			Mode: SearchModeOn,
			Sources: []SearchSource{
				{Type: SourceX},
				{Type: SourceWeb, Country: "JP"},
				{Type: SourceNews, Country: "JP"},
			},
			FromDate:         from,
			ToDate:           to,
			ReturnCitations:  true,
			MaxSearchResults: maxSearchResults,
		},
	}
	resp, err := c.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Vision asks the vision model about one image. imageURL may be a data URL.
func (c *Client) Vision(ctx context.Context, system, prompt, imageURL string) (string, error) {
	req := &ChatRequest{
		Model: c.config.VisionModel,
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: []ContentPart{
				{Type: "image_url", ImageURL: &ImageURL{URL: imageURL, Detail: "high"}},
				{Type: "text", Text: prompt},
			}},
		},
		Temperature: 0,
	}
	resp, err := c.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Chat performs a chat completion with retries on transient failures.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryValidation).
			Component("xai").
			Build()
	}
	var out ChatResponse
	if err := c.doRequestWithRetry(ctx, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doRequest(ctx context.Context, body []byte, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.New(err).
			Category(errors.CategoryCancellation).
			Component("xai").
			Build()
	}

	url := c.config.BaseURL + "/chat/completions"
	start := time.Now()

	resp, err := c.http.PostJSON(ctx, url, map[string]string{
		"Authorization": "Bearer " + c.config.APIKey,
		"Accept":        "application/json",
	}, json.RawMessage(body))
	if err != nil {
		category := errors.CategoryNetwork
		if ctx.Err() != nil {
			category = errors.CategoryTimeout
		}
		return errors.New(err).
			Category(category).
			NetworkContext(url, c.config.Timeout).
			Component("xai").
			Build()
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Debug("Failed to close response body", logger.Error(cerr))
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryNetwork).
			Component("xai").
			Build()
	}
	if len(data) > maxResponseBytes {
		return errors.New(fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, maxResponseBytes)).
			Category(errors.CategoryLimit).
			Context("status_code", resp.StatusCode).
			Component("xai").
			Build()
	}

	c.log.Debug("xAI API response",
		logger.Int("status_code", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)),
		logger.Int("body_size", len(data)))

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return errors.Newf("xAI API error %d: %s", resp.StatusCode, logger.RedactSensitiveData(msg)).
			Category(getErrorCategory(resp.StatusCode)).
			Context("status_code", resp.StatusCode).
			Context("body_preview", bodyPreview(data)).
			Component("xai").
			Build()
	}

	if err := json.Unmarshal(data, result); err != nil {
		return errors.New(fmt.Errorf("failed to decode xAI response: %w", err)).
			Category(errors.CategoryLLMParse).
			Context("body_preview", bodyPreview(data)).
			Component("xai").
			Build()
	}
	return nil
}

func (c *Client) doRequestWithRetry(ctx context.Context, body []byte, result any) error {
	var lastErr error

	for attempt := range maxRetries {
		err := c.doRequest(ctx, body, result)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrResponseTooLarge) {
			return err
		}

		var enhancedErr *errors.EnhancedError
		if errors.As(err, &enhancedErr) {
			switch enhancedErr.Category {
			case errors.CategoryConfiguration, errors.CategoryNotFound,
				errors.CategoryValidation, errors.CategoryLLMParse, errors.CategoryCancellation:
				return err
			}
			if statusCode, ok := enhancedErr.Context["status_code"].(int); ok {
				// client errors other than 429 will not improve on retry
				if statusCode >= 400 && statusCode < 500 && statusCode != http.StatusTooManyRequests {
					return err
				}
			}
		}

		lastErr = err
		if ctx.Err() != nil {
			return lastErr
		}

		delay := time.Duration(attempt+1) * 500 * time.Millisecond
		if attempt < maxRetries-1 {
			c.log.Warn("xAI API request failed, retrying",
				logger.Int("attempt", attempt+1),
				logger.Int("max_retries", maxRetries),
				logger.Int64("delay_ms", delay.Milliseconds()),
				logger.Error(err))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return lastErr
			}
		}
	}

	return lastErr
}

// getErrorCategory maps an HTTP status code to an error category
func getErrorCategory(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CategoryConfiguration
	case http.StatusTooManyRequests:
		return errors.CategoryLimit
	case http.StatusNotFound:
		return errors.CategoryNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.CategoryValidation
	default:
		return errors.CategoryNetwork
	}
}

func bodyPreview(data []byte) string {
	s := string(data)
	if len(s) > maxPreviewLength {
		s = s[:maxPreviewLength] + "..."
	}
	return logger.RedactSensitiveData(s)
}
