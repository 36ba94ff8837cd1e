package xai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/httpclient"
)

const testURL = "https://api.x.test/v1/chat/completions"

func newMockClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	c, err := NewClient(Config{
		APIKey:            "xai-test-key",
		BaseURL:           "https://api.x.test/v1/",
		RequestsPerSecond: 100,
		HTTPClient:        httpclient.New(&httpclient.Config{Transport: mock}),
	})
	require.NoError(t, err)
	return c, mock
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":    "chatcmpl-1",
		"model": DefaultModel,
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	})
	return string(b)
}

func TestNewClient_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestComplete(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	mock.RegisterResponder(http.MethodPost, testURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer xai-test-key", req.Header.Get("Authorization"))

		var body ChatRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, DefaultModel, body.Model)
		assert.False(t, body.Stream)
		assert.InDelta(t, 0.1, body.Temperature, 1e-9)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, RoleSystem, body.Messages[0].Role)
		assert.Equal(t, "find bears", body.Messages[1].Content)
		assert.Nil(t, body.SearchParameters, "plain completions must not trigger live search")

		return httpmock.NewStringResponse(http.StatusOK, completion(`[{"id":"a"}]`)), nil
	})

	text, err := c.Complete(context.Background(), "system prompt", "find bears", 0.1)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, text)
}

func TestCompleteWithSearch_SendsSearchParameters(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	mock.RegisterResponder(http.MethodPost, testURL, func(req *http.Request) (*http.Response, error) {
		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(req.Body).Decode(&raw))
		require.Contains(t, raw, "search_parameters")

		var params SearchParameters
		require.NoError(t, json.Unmarshal(raw["search_parameters"], &params))
		assert.Equal(t, SearchModeOn, params.Mode)
		assert.Equal(t, "2025-09-20", params.FromDate)
		assert.Equal(t, "2025-10-20", params.ToDate)
		assert.True(t, params.ReturnCitations)

		types := make([]string, 0, len(params.Sources))
		for _, src := range params.Sources {
			types = append(types, src.Type)
		}
		assert.Contains(t, types, SourceX)
		assert.Contains(t, types, SourceNews)

		return httpmock.NewStringResponse(http.StatusOK, completion(`[]`)), nil
	})

	text, err := c.CompleteWithSearch(context.Background(), "sys", "find bears", 0.1, "2025-09-20", "2025-10-20")
	require.NoError(t, err)
	assert.Equal(t, "[]", text)
	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestChat_ResponseTooLarge(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	huge := strings.Repeat("a", maxResponseBytes+10)
	mock.RegisterResponder(http.MethodPost, testURL, httpmock.NewStringResponder(http.StatusOK, huge))

	_, err := c.Complete(context.Background(), "s", "u", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
	assert.True(t, errors.IsCategory(err, errors.CategoryLimit))
	assert.Equal(t, 1, mock.GetTotalCallCount(), "oversized responses are not retried")
}

func TestVision_SendsImagePart(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	mock.RegisterResponder(http.MethodPost, testURL, func(req *http.Request) (*http.Response, error) {
		var raw struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(req.Body).Decode(&raw))
		assert.Equal(t, DefaultVisionModel, raw.Model)

		var parts []ContentPart
		require.NoError(t, json.Unmarshal(raw.Messages[1].Content, &parts))
		require.Len(t, parts, 2)
		assert.Equal(t, "image_url", parts[0].Type)
		assert.Equal(t, "data:image/jpeg;base64,AAAA", parts[0].ImageURL.URL)

		return httpmock.NewStringResponse(http.StatusOK, completion("YES")), nil
	})

	text, err := c.Vision(context.Background(), "sys", "is this a bear?", "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "YES", text)
}

func TestChat_ErrorHandling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		category  errors.ErrorCategory
		wantCalls int
	}{
		{"unauthorized is not retried", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, errors.CategoryConfiguration, 1},
		{"bad request is not retried", http.StatusBadRequest, `{}`, errors.CategoryValidation, 1},
		{"server error is retried", http.StatusBadGateway, `oops`, errors.CategoryNetwork, maxRetries},
		{"garbage body is a parse error", http.StatusOK, `not json`, errors.CategoryLLMParse, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, mock := newMockClient(t)
			mock.RegisterResponder(http.MethodPost, testURL, httpmock.NewStringResponder(tt.status, tt.body))

			_, err := c.Complete(context.Background(), "s", "u", 0)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
			assert.Equal(t, tt.wantCalls, mock.GetTotalCallCount())
		})
	}
}

func TestChat_ErrorMessageIsRedacted(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	mock.RegisterResponder(http.MethodPost, testURL,
		httpmock.NewStringResponder(http.StatusForbidden, `{"error":{"message":"Incorrect API key provided: xai-abcdefghijklmnopqrstuvwxyz"}}`))

	_, err := c.Complete(context.Background(), "s", "u", 0)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "xai-abcdefghijklmnopqrstuvwxyz")
}

func TestChat_ContextCanceled(t *testing.T) {
	t.Parallel()

	c, mock := newMockClient(t)
	mock.RegisterResponder(http.MethodPost, testURL, httpmock.NewStringResponder(http.StatusOK, completion("x")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, "s", "u", 0)
	require.Error(t, err)
}
