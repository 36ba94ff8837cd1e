package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/httpclient"
)

func newMockClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	c, err := NewClient(context.Background(), Config{
		APIKey:     "AIza-test-key",
		BaseURL:    "https://gemini.test/",
		HTTPClient: httpclient.New(&httpclient.Config{Transport: mock}),
	})
	require.NoError(t, err)
	return c, mock
}

func reply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}}},
		},
	})
	return string(b)
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), Config{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestGenerateGrounded_EnablesSearchTool(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	var body map[string]any
	mock.RegisterRegexpResponder(http.MethodPost, mustRegexp(`generateContent`),
		func(req *http.Request) (*http.Response, error) {
			assert.Contains(t, req.URL.Path, DefaultModel)
			data, _ := io.ReadAll(req.Body)
			require.NoError(t, json.Unmarshal(data, &body))
			return httpmock.NewStringResponse(http.StatusOK, reply("[]")), nil
		})

	text, err := c.GenerateGrounded(context.Background(), "find bears")
	require.NoError(t, err)
	assert.Equal(t, "[]", text)

	tools, ok := body["tools"].([]any)
	require.True(t, ok, "request should carry tools")
	require.Len(t, tools, 1)
	assert.Contains(t, tools[0], "googleSearch")
}

func TestVision_SendsInlineImage(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	mock.RegisterRegexpResponder(http.MethodPost, mustRegexp(`generateContent`),
		func(req *http.Request) (*http.Response, error) {
			data, _ := io.ReadAll(req.Body)
			assert.Contains(t, string(data), "inlineData")
			assert.Contains(t, string(data), "image/png")
			return httpmock.NewStringResponse(http.StatusOK, reply(`{"isBearSign":true}`)), nil
		})

	text, err := c.Vision(context.Background(), "", "bear?", []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	assert.JSONEq(t, `{"isBearSign":true}`, text)
}

func TestGenerate_APIErrorCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		category errors.ErrorCategory
	}{
		{"forbidden", http.StatusForbidden, errors.CategoryConfiguration},
		{"rate limited", http.StatusTooManyRequests, errors.CategoryLimit},
		{"server error", http.StatusInternalServerError, errors.CategoryNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, mock := newMockClient(t)
			mock.RegisterRegexpResponder(http.MethodPost, mustRegexp(`generateContent`),
				httpmock.NewStringResponder(tt.status, `{"error":{"code":`+itoa(tt.status)+`,"message":"nope","status":"X"}}`))

			_, err := c.GenerateJSON(context.Background(), "sys", "prompt")
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
		})
	}
}
