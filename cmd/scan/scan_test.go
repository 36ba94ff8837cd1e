package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/bearwatch/internal/app"
	"github.com/tphakala/bearwatch/internal/conf"
	"github.com/tphakala/bearwatch/internal/provider"
	"github.com/tphakala/bearwatch/internal/sighting"
)

type stubAdapter struct {
	out []sighting.Sighting
}

func (stubAdapter) Provider() sighting.Provider { return sighting.ProviderNews }

func (s stubAdapter) Search(context.Context, provider.Query) []sighting.Sighting {
	return s.out
}

func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Scan.Timeout = 2 * time.Second
	s.Scan.ProviderTimeout = 2 * time.Second
	s.Scan.WindowDays = 30
	s.Providers.XAI.APIKey = "xai-test"
	s.Providers.XAI.Timeout = time.Second
	return s
}

func runScan(t *testing.T, adapter provider.Adapter) (stdout, stderr string) {
	t.Helper()

	factory := app.WithAdapterFactory(func(context.Context, app.Credentials) ([]provider.Adapter, error) {
		return []provider.Adapter{adapter}, nil
	})

	var out, errOut bytes.Buffer
	cmd := Command(testSettings(), factory)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	return out.String(), errOut.String()
}

func TestScanCommand(t *testing.T) {
	t.Parallel()

	t.Run("empty scan reports no data", func(t *testing.T) {
		t.Parallel()

		stdout, stderr := runScan(t, stubAdapter{})
		assert.Contains(t, stderr, NoDataMessage)

		var snap sighting.Snapshot
		require.NoError(t, json.Unmarshal([]byte(stdout), &snap))
		assert.Empty(t, snap.Sightings)
	})

	t.Run("results print without notice", func(t *testing.T) {
		t.Parallel()

		today := time.Now().Format(sighting.DateLayout)
		stdout, stderr := runScan(t, stubAdapter{out: []sighting.Sighting{{
			ID: "n1", Title: "秋田市で熊出没", Lat: 39.72, Lng: 140.10,
			Count: 1, Source: "NHK", Date: today, Provider: sighting.ProviderNews,
		}}})
		assert.NotContains(t, stderr, NoDataMessage)

		var snap sighting.Snapshot
		require.NoError(t, json.Unmarshal([]byte(stdout), &snap))
		require.Len(t, snap.Sightings, 1)
		assert.Equal(t, "n1", snap.Sightings[0].ID)
	})
}
