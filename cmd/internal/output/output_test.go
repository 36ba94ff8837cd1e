package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/bearwatch/internal/sighting"
)

func TestWriteAndReadFile(t *testing.T) {
	t.Parallel()

	snap := sighting.Snapshot{
		Sightings: []sighting.Sighting{{
			ID: "n1", Title: "熊出沒", Lat: 39.72, Lng: 140.1, Desc: "住宅街", Count: 1,
			Source: "NHK", Date: "2025-10-20", Provider: sighting.ProviderNews,
		}},
		Timestamp: 1760950800000,
		Counts:    sighting.Counts{News: 1},
	}

	for _, format := range []string{FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, format, snap))
			assert.Contains(t, buf.String(), "熊出沒", "non-ASCII text is written as is")

			path := filepath.Join(t.TempDir(), "snapshot."+format)
			require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

			var got sighting.Snapshot
			require.NoError(t, ReadFile(path, &got))
			assert.Equal(t, snap, got)
		})
	}

	assert.Error(t, Write(&bytes.Buffer{}, "xml", snap))
}
