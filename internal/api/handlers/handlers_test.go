package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/tphakala/bearwatch/internal/api/middleware"
	"github.com/tphakala/bearwatch/internal/app"
	"github.com/tphakala/bearwatch/internal/conf"
	"github.com/tphakala/bearwatch/internal/consensus"
	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/provider"
	"github.com/tphakala/bearwatch/internal/risk"
	"github.com/tphakala/bearwatch/internal/sighting"
	"github.com/tphakala/bearwatch/internal/species"
)

const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

var (
	fixedNow = time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC)
	pngURL   = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(pngHeader))
)

type stubAdapter struct {
	p     sighting.Provider
	out   []sighting.Sighting
	delay time.Duration
}

func (s stubAdapter) Provider() sighting.Provider { return s.p }

func (s stubAdapter) Search(ctx context.Context, _ provider.Query) []sighting.Sighting {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil
		}
	}
	return s.out
}

type fakeGemini struct {
	reply string
	err   error
}

func (f fakeGemini) Vision(context.Context, string, string, []byte, string) (string, error) {
	return f.reply, f.err
}

type fakeGrok struct {
	reply string
	err   error
}

func (f fakeGrok) Vision(context.Context, string, string, string) (string, error) {
	return f.reply, f.err
}

type testEnv struct {
	e        *echo.Echo
	app      *app.App
	mu       sync.Mutex
	lastKeys app.Credentials
}

type envConfig struct {
	settings func(*conf.Settings)
	adapters []provider.Adapter
	gemini   consensus.GeminiVision
	grok     consensus.GrokVision
}

func newTestEnv(t *testing.T, cfg envConfig) *testEnv {
	t.Helper()

	s := &conf.Settings{}
	s.Server.Port = 8080
	s.Scan.Timeout = 2 * time.Second
	s.Scan.ProviderTimeout = 2 * time.Second
	s.Scan.WindowDays = 30
	s.Consensus.MinAcceptConfidence = 85
	s.Consensus.RejectConfidence = 10
	s.Consensus.MaxPhotoAge = time.Hour
	s.Providers.XAI.APIKey = "env-xai"
	s.Providers.XAI.Timeout = time.Second
	if cfg.settings != nil {
		cfg.settings(s)
	}

	env := &testEnv{}
	a, err := app.New(t.Context(), s, nil,
		app.WithAdapterFactory(func(_ context.Context, creds app.Credentials) ([]provider.Adapter, error) {
			env.mu.Lock()
			env.lastKeys = creds
			env.mu.Unlock()
			return cfg.adapters, nil
		}),
		app.WithVisionFactory(func(context.Context, app.Credentials) (consensus.GeminiVision, consensus.GrokVision, error) {
			return cfg.gemini, cfg.grok, nil
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	c := New(a, WithClock(func() time.Time { return fixedNow }))
	e := echo.New()
	e.HTTPErrorHandler = c.HTTPErrorHandler
	e.Use(mw.NewRequestID())
	c.Register(e.Group("/api"))

	env.e = e
	env.app = a
	return env
}

func (env *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func newsSighting(id, date string) sighting.Sighting {
	return sighting.Sighting{
		ID: id, Title: "秋田市で熊出沒", Lat: 39.72, Lng: 140.10, Desc: "住宅街で目撃",
		Count: 1, Source: "NHK", Date: date, Provider: sighting.ProviderNews,
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envConfig{})
	rec := env.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 8080, resp.Port)
	assert.True(t, resp.Providers.XAI)
	assert.False(t, resp.Providers.Gemini)
}

func TestGetSightings(t *testing.T) {
	t.Parallel()

	t.Run("nothing cached", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, envConfig{})
		rec := env.do(t, http.MethodGet, "/api/sightings", "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[SnapshotResponse](t, rec)
		assert.Empty(t, resp.Hotspots)
		assert.NotNil(t, resp.Hotspots)
		assert.Zero(t, resp.Timestamp)
		assert.True(t, resp.Empty)
		assert.Nil(t, resp.AgeSeconds)
		assert.Contains(t, rec.Body.String(), `"hotspots":[]`)
	})

	t.Run("cached snapshot with age", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, envConfig{})
		snap := sighting.NewSnapshot([]sighting.Sighting{newsSighting("n1", "2025-10-19")}, fixedNow.Add(-90*time.Second))
		env.app.Store.Replace(snap)

		rec := env.do(t, http.MethodGet, "/api/sightings", "")
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[SnapshotResponse](t, rec)
		require.Len(t, resp.Hotspots, 1)
		assert.Equal(t, 1, resp.Counts.Gemini)
		assert.Equal(t, 0, resp.Counts.Grok)
		require.NotNil(t, resp.AgeSeconds)
		assert.InDelta(t, 90, *resp.AgeSeconds, 0.001)
	})
}

func TestScan(t *testing.T) {
	t.Parallel()

	t.Run("merges providers and stores snapshot", func(t *testing.T) {
		t.Parallel()
		social := newsSighting("x1", "2025-10-20")
		social.Provider = sighting.ProviderSocial
		env := newTestEnv(t, envConfig{adapters: []provider.Adapter{
			stubAdapter{p: sighting.ProviderNews, out: []sighting.Sighting{newsSighting("n1", "2025-10-18")}},
			stubAdapter{p: sighting.ProviderSocial, out: []sighting.Sighting{social}},
		}})

		rec := env.do(t, http.MethodPost, "/api/scan", `{"location":"秋田"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[SnapshotResponse](t, rec)
		require.Len(t, resp.Hotspots, 2)
		assert.Equal(t, "x1", resp.Hotspots[0].ID, "newest first")
		assert.Equal(t, CountsResponse{Grok: 1, Gemini: 1}, resp.Counts)
		assert.False(t, resp.Empty)

		stored, ok := env.app.Store.Get()
		require.True(t, ok)
		assert.Len(t, stored.Sightings, 2)
	})

	t.Run("empty body uses server keys", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, envConfig{adapters: []provider.Adapter{stubAdapter{p: sighting.ProviderNews}}})

		rec := env.do(t, http.MethodPost, "/api/scan", "")
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[SnapshotResponse](t, rec)
		assert.True(t, resp.Empty)
		assert.Equal(t, app.Credentials{XAI: "env-xai"}, env.lastKeys)
	})

	t.Run("manual keys override", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, envConfig{adapters: []provider.Adapter{stubAdapter{p: sighting.ProviderNews}}})

		rec := env.do(t, http.MethodPost, "/api/scan", `{"manualKeys":{"xai":"m-xai","google":"m-google"}}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, app.Credentials{XAI: "m-xai", Google: "m-google"}, env.lastKeys)
	})

	t.Run("missing keys", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, envConfig{settings: func(s *conf.Settings) { s.Providers.XAI.APIKey = "" }})

		rec := env.do(t, http.MethodPost, "/api/scan", `{}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode[ErrorResponse](t, rec)
		assert.Equal(t, MsgMissingKeys, resp.Error)
		assert.NotEmpty(t, resp.CorrelationID)
		assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), resp.CorrelationID)
	})

	t.Run("timeout discards partial results", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, envConfig{
			settings: func(s *conf.Settings) { s.Scan.Timeout = 50 * time.Millisecond },
			adapters: []provider.Adapter{
				stubAdapter{p: sighting.ProviderNews, out: []sighting.Sighting{newsSighting("n1", "2025-10-18")}},
				stubAdapter{p: sighting.ProviderSocial, delay: 500 * time.Millisecond},
			},
		})

		rec := env.do(t, http.MethodPost, "/api/scan", `{}`)
		require.Equal(t, http.StatusGatewayTimeout, rec.Code)
		assert.Equal(t, MsgScanTimeout, decode[ErrorResponse](t, rec).Error)

		_, ok := env.app.Store.Get()
		assert.False(t, ok, "a timed out scan must not replace the snapshot")
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, envConfig{})
		rec := env.do(t, http.MethodPost, "/api/scan", `{"location":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, MsgInvalidRequest, decode[ErrorResponse](t, rec).Error)
	})
}

func TestVerifyProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      envConfig
		body     string
		wantCode int
		want     VerifyResponse
	}{
		{
			name:     "grok yes",
			cfg:      envConfig{grok: fakeGrok{reply: "YES"}},
			body:     `{"image":"` + pngURL + `"}`,
			wantCode: http.StatusOK,
			want:     VerifyResponse{Vote: true, Provider: consensus.VoterGrok, Success: true},
		},
		{
			name:     "gemini skeptic no",
			cfg:      envConfig{gemini: fakeGemini{reply: "NO"}},
			body:     `{"image":"` + pngURL + `"}`,
			wantCode: http.StatusOK,
			want:     VerifyResponse{Vote: false, Provider: consensus.VoterGemini, Success: true},
		},
		{
			name:     "voter failure reports unsuccessful no",
			cfg:      envConfig{grok: fakeGrok{err: errors.NewStd("upstream 500")}},
			body:     `{"image":"` + pngURL + `"}`,
			wantCode: http.StatusOK,
			want:     VerifyResponse{Vote: false, Provider: consensus.VoterGrok, Success: false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, tt.cfg)
			rec := env.do(t, http.MethodPost, "/api/verify", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, decode[VerifyResponse](t, rec))
		})
	}

	t.Run("no vision provider", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, envConfig{})
		rec := env.do(t, http.MethodPost, "/api/verify", `{"image":"`+pngURL+`"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("not an image", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, envConfig{grok: fakeGrok{reply: "YES"}})
		text := base64.StdEncoding.EncodeToString([]byte("hello world"))
		rec := env.do(t, http.MethodPost, "/api/verify", `{"image":"data:image/png;base64,`+text+`"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[ErrorResponse](t, rec).Error, "invalid image")
	})
}

func reportBody(lat, lng float64, extra string) string {
	b, _ := json.Marshal(map[string]any{"image": pngURL, "lat": lat, "lng": lng})
	if extra == "" {
		return string(b)
	}
	return strings.TrimSuffix(string(b), "}") + "," + extra + "}"
}

func TestReport(t *testing.T) {
	t.Parallel()

	accept := envConfig{
		gemini: fakeGemini{reply: `{"isBearSign":true,"confidence":92,"detectedType":"FOOTPRINT","reason":"清晰熊掌印"}`},
		grok:   fakeGrok{reply: "YES"},
	}

	t.Run("accepted report is prepended", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, accept)
		env.app.Store.Replace(sighting.NewSnapshot([]sighting.Sighting{newsSighting("n1", "2025-10-19")}, fixedNow))

		rec := env.do(t, http.MethodPost, "/api/report", reportBody(39.7, 140.1, `"description":"河邊足跡"`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[ReportResponse](t, rec)
		assert.Equal(t, consensus.StatusAccepted, resp.Status)
		assert.Equal(t, 92, resp.Confidence)
		assert.Equal(t, consensus.MethodGrok, resp.Method)
		require.NotNil(t, resp.Sighting)
		assert.Equal(t, sighting.ProviderUser, resp.Sighting.Provider)
		assert.Equal(t, "河邊足跡", resp.Sighting.Desc)
		assert.Equal(t, "2025-10-20", resp.Sighting.Date)

		stored, ok := env.app.Store.Get()
		require.True(t, ok)
		require.Len(t, stored.Sightings, 2)
		assert.Equal(t, resp.Sighting.ID, stored.Sightings[0].ID)
		assert.Equal(t, 1, stored.Counts.User)
	})

	t.Run("rejected report leaves store untouched", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t, envConfig{
			gemini: accept.gemini,
			grok:   fakeGrok{reply: "NO"},
		})

		rec := env.do(t, http.MethodPost, "/api/report", reportBody(39.7, 140.1, ""))
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[ReportResponse](t, rec)
		assert.Equal(t, consensus.StatusRejected, resp.Status)
		assert.Equal(t, 10, resp.Confidence)
		assert.Nil(t, resp.Sighting)

		_, ok := env.app.Store.Get()
		assert.False(t, ok)
	})

	tests := []struct {
		name     string
		cfg      envConfig
		body     string
		wantCode int
	}{
		{"outside bounds", accept, reportBody(51.5, -0.1, ""), http.StatusBadRequest},
		{"missing coordinates", accept, `{"image":"` + pngURL + `"}`, http.StatusBadRequest},
		{"stale photo", accept, reportBody(39.7, 140.1, `"capturedAt":"2025-10-20T06:00:00Z"`), http.StatusBadRequest},
		{"primary unreachable", envConfig{gemini: fakeGemini{err: errors.NewStd("dial tcp: timeout")}}, reportBody(39.7, 140.1, ""), http.StatusServiceUnavailable},
		{"no providers", envConfig{}, reportBody(39.7, 140.1, ""), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t, tt.cfg)
			rec := env.do(t, http.MethodPost, "/api/report", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestAnalyzeSpecies(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envConfig{})

	rec := env.do(t, http.MethodPost, "/api/analyze-species", `{"lat":43.06,"lng":141.35}`)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[species.Info](t, rec)
	assert.Equal(t, species.TypeBrown, info.Type)
	assert.Equal(t, species.SourceStatic, info.Source)

	rec = env.do(t, http.MethodPost, "/api/analyze-species", `{"lat":35.68}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRisk(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envConfig{})

	rec := env.do(t, http.MethodPost, "/api/risk", `{"lat":35.01,"lng":135.01}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, risk.LevelNone, decode[risk.Result](t, rec).Level)

	near := newsSighting("a", "2025-10-19")
	near.Lat, near.Lng = 35.0, 135.0
	far := newsSighting("b", "2025-10-19")
	far.Lat, far.Lng = 36.0, 136.0
	env.app.Store.Replace(sighting.NewSnapshot([]sighting.Sighting{near, far}, fixedNow))

	rec = env.do(t, http.MethodPost, "/api/risk", `{"lat":35.01,"lng":135.01}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[risk.Result](t, rec)
	assert.Equal(t, risk.LevelDanger, res.Level)
	require.NotNil(t, res.DistanceKm)
	assert.InDelta(t, 1.44, *res.DistanceKm, 0.05)
	require.NotNil(t, res.Nearest)
	assert.Equal(t, "a", res.Nearest.ID)
	assert.NotEmpty(t, res.Daylight)
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, envConfig{})
	for _, path := range []string{"/api/unknown", "/api/v2/detections"} {
		rec := env.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, MsgRouteNotFound, decode[ErrorResponse](t, rec).Error)
	}
}

type countingAdapter struct {
	calls *atomic.Int32
}

func (countingAdapter) Provider() sighting.Provider { return sighting.ProviderNews }

func (a countingAdapter) Search(context.Context, provider.Query) []sighting.Sighting {
	a.calls.Add(1)
	return []sighting.Sighting{newsSighting("n1", "2025-10-19")}
}

func TestMalformedBodyStopsHandler(t *testing.T) {
	t.Parallel()

	paths := []string{"/api/scan", "/api/verify", "/api/report", "/api/analyze-species", "/api/risk"}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			env := newTestEnv(t, envConfig{
				adapters: []provider.Adapter{countingAdapter{calls: &calls}},
				gemini:   fakeGemini{reply: `{"isBearSign":true,"confidence":95,"detectedType":"BEAR","reason":"熊"}`},
				grok:     fakeGrok{reply: "YES"},
			})

			rec := env.do(t, http.MethodPost, path, `{"image":"`+pngURL+`","lat":39.7,"lng":`)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			// decode fails if a second document follows the error body
			res := decode[ErrorResponse](t, rec)
			assert.Equal(t, MsgInvalidRequest, res.Error)
			assert.NotEmpty(t, res.CorrelationID)

			assert.Zero(t, calls.Load(), "no scan may run for a rejected body")
			_, ok := env.app.Store.Get()
			assert.False(t, ok, "the snapshot must stay untouched")
		})
	}
}
