package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/observability/metrics"
	"github.com/tphakala/bearwatch/internal/sighting"
)

var testNow = time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)

type fakeGrounded struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGrounded) GenerateGrounded(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

type fakeChat struct {
	reply        string
	err          error
	system, user string
	temperature  float64
	from, to     string
}

func (f *fakeChat) CompleteWithSearch(_ context.Context, system, user string, temperature float64, from, to string) (string, error) {
	f.system, f.user, f.temperature = system, user, temperature
	f.from, f.to = from, to
	return f.reply, f.err
}

func daysAgo(n int) string {
	return testNow.AddDate(0, 0, -n).Format(sighting.DateLayout)
}

func record(id, date string, extra map[string]any) map[string]any {
	r := map[string]any{
		"id":     id,
		"title":  "秋田市で熊出没",
		"lat":    39.72,
		"lng":    140.10,
		"desc":   "住宅街附近發現一頭成年黑熊，警方呼籲民眾注意安全。",
		"count":  1,
		"source": "NHK",
		"date":   date,
	}
	for k, v := range extra {
		r[k] = v
	}
	return r
}

func reply(t *testing.T, records ...map[string]any) string {
	t.Helper()
	b, err := json.Marshal(records)
	require.NoError(t, err)
	return "Here are the results:\n```json\n" + string(b) + "\n```"
}

func TestQueryWindow(t *testing.T) {
	t.Parallel()

	today, cutoff := Query{Now: testNow}.Window()
	assert.Equal(t, "2025-10-20", today)
	assert.Equal(t, "2025-09-20", cutoff)

	_, cutoff = Query{Now: testNow, WindowDays: 7}.Window()
	assert.Equal(t, "2025-10-13", cutoff)
}

func TestNewsAdapter_FiltersByCutoff(t *testing.T) {
	t.Parallel()

	client := &fakeGrounded{reply: reply(t,
		record("a1", daysAgo(1), nil),
		record("a2", daysAgo(90), nil),
		record("a3", daysAgo(5), map[string]any{"lat": 10.0}),
		record("a4", "2025/10/18", map[string]any{"verificationStatus": "VERIFIED", "confidence": 99}),
	)}
	rec := metrics.NewTestRecorder()
	adapter := NewNewsAdapter(client, Options{Recorder: rec})

	got := adapter.Search(context.Background(), Query{Now: testNow})

	require.Len(t, got, 2)
	assert.Equal(t, "news-a1", got[0].ID)
	assert.Equal(t, daysAgo(1), got[0].Date)
	assert.Equal(t, "news-a4", got[1].ID)
	assert.Equal(t, "2025-10-18", got[1].Date, "lenient dates are normalized")
	for _, s := range got {
		assert.Equal(t, sighting.ProviderNews, s.Provider)
		assert.Empty(t, s.VerificationStatus, "models cannot claim verification")
		assert.Zero(t, s.Confidence)
	}

	assert.Contains(t, client.prompt, "between 2025-09-20 and 2025-10-20")
	assert.Contains(t, client.prompt, "Traditional Chinese")
	assert.Equal(t, 1, rec.GetOperationCount("news", metrics.StatusSuccess))
}

func TestNewsAdapter_FailsSoft(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		client *fakeGrounded
		status string
	}{
		{
			name:   "transport error",
			client: &fakeGrounded{err: errors.Newf("boom").Category(errors.CategoryNetwork).Build()},
			status: metrics.StatusError,
		},
		{
			name:   "no json in reply",
			client: &fakeGrounded{reply: "I could not find any recent sightings."},
			status: metrics.StatusEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := metrics.NewTestRecorder()
			got := NewNewsAdapter(tt.client, Options{Recorder: rec}).Search(context.Background(), Query{Now: testNow})
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.Equal(t, 1, rec.GetOperationCount("news", tt.status))
		})
	}

	rec := metrics.NewTestRecorder()
	NewNewsAdapter(tests[0].client, Options{Recorder: rec}).Search(context.Background(), Query{Now: testNow})
	assert.Equal(t, 1, rec.GetErrorCount("news", string(errors.CategoryNetwork)))
}

func TestSocialAdapter_Validation(t *testing.T) {
	t.Parallel()

	good := "https://x.com/akita_news/status/1849203948571234567"
	client := &fakeChat{reply: reply(t,
		record("1849203948571234567", daysAgo(1), map[string]any{"url": good}),
		record("xxxxx", daysAgo(1), nil),
		record("post-1", daysAgo(1), nil),
		record("1849203948571234999", daysAgo(2), map[string]any{"url": "https://x.com/user/status/123456789"}),
		record("1849203948571235000", daysAgo(2), map[string]any{"url": "https://example.com/post/1"}),
		record("1849203948571235111", daysAgo(2), map[string]any{"desc": "熊"}),
		record("1849203948571235222", "YYYY-MM-DD", nil),
		record("1849203948571235333", daysAgo(45), nil),
		record("1849203948571235444", testNow.AddDate(0, 0, 3).Format(sighting.DateLayout), nil),
		record("1849203948571235555", "2025/10/19", nil),
		record("1849203948571235666", daysAgo(3), nil),
	)}
	adapter := NewSocialAdapter(client, Options{})

	got := adapter.Search(context.Background(), Query{Now: testNow})

	require.Len(t, got, 2)
	assert.Equal(t, "social-1849203948571234567", got[0].ID)
	assert.Equal(t, good, got[0].URL)
	assert.Equal(t, "social-1849203948571235666", got[1].ID)
	assert.True(t, strings.HasPrefix(got[1].URL, "https://x.com/search?q="), "missing url gets a live search link")
	for _, s := range got {
		assert.Equal(t, sighting.ProviderSocial, s.Provider)
		assert.False(t, s.Synthetic)
	}

	assert.Contains(t, client.system, "AFTER 2025-09-20")
	assert.Equal(t, "Find bear sightings in Japan between 2025-09-20 and 2025-10-20.", client.user)
	assert.InDelta(t, 0.1, client.temperature, 1e-9)
	assert.Equal(t, "2025-09-20", client.from, "live search starts at the window cutoff")
	assert.Equal(t, "2025-10-20", client.to)
}

func TestSocialAdapter_FallbackRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		location string
		wantLat  float64
		wantLng  float64
	}{
		{"default center", "", sighting.DefaultCenter.Lat, sighting.DefaultCenter.Lng},
		{"prefecture name", "秋田", 39.719, 140.102},
		{"coordinate pair", "43.06, 141.35", 43.06, 141.35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &fakeChat{reply: reply(t, record("xxxxxxxx", daysAgo(1), nil))}
			got := NewSocialAdapter(client, Options{}).Search(context.Background(),
				Query{Now: testNow, Location: tt.location})

			require.Len(t, got, 1)
			fb := got[0]
			assert.True(t, fb.Synthetic)
			assert.Equal(t, fmt.Sprintf("social-search-%d", testNow.UnixMilli()), fb.ID)
			assert.Equal(t, sighting.ProviderSocial, fb.Provider)
			assert.Equal(t, "X.com", fb.Source)
			assert.Equal(t, "2025-10-20", fb.Date)
			assert.InDelta(t, tt.wantLat, fb.Lat, 0.01)
			assert.InDelta(t, tt.wantLng, fb.Lng, 0.01)

			u, err := url.Parse(fb.URL)
			require.NoError(t, err)
			assert.Equal(t, "x.com", u.Host)
			assert.Equal(t, "live", u.Query().Get("f"))
			assert.Contains(t, u.Query().Get("q"), "熊 出没")
		})
	}
}

func TestSocialAdapter_ErrorYieldsEmptyList(t *testing.T) {
	t.Parallel()

	client := &fakeChat{err: errors.Newf("unauthorized").Category(errors.CategoryConfiguration).Build()}
	got := NewSocialAdapter(client, Options{}).Search(context.Background(), Query{Now: testNow})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestIsFakeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		fake bool
	}{
		{"xxxxx", true},
		{"abcXXXXdef", true},
		{"1", true},
		{"g-1", true},
		{"post_12", true},
		{"123456", true},
		{"000000", true},
		{"sample-post", true},
		{"1849203948571234567", false},
		{"akita-20251019-bear", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.fake, IsFakeID(tt.id))
		})
	}
}

func TestValidStatusURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url   string
		valid bool
	}{
		{"https://x.com/akita_news/status/1849203948571234567", true},
		{"https://twitter.com/NHK_news/status/1849203948571234567", true},
		{"http://x.com/akita_news/status/1849203948571234567", false},
		{"https://x.com/akita_news/status/123456789", false},
		{"https://x.com/akita_news/status/1111111111", false},
		{"https://x.com/this_handle_is_far_too_long/status/1849203948571234567", false},
		{"https://x.com/akita_news", false},
		{"https://x.com/akita_news/status/1849203948571234567?s=20", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.valid, ValidStatusURL(tt.url))
		})
	}
}
