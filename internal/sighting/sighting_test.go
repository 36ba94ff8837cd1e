package sighting

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/bearwatch/internal/llmjson"
)

func values(t *testing.T, raw string) []*jason.Value {
	t.Helper()
	v, err := jason.NewValueFromBytes([]byte(raw))
	require.NoError(t, err)
	items, err := v.Array()
	require.NoError(t, err)
	return items
}

func TestSanitizeCoercesAndDrops(t *testing.T) {
	t.Parallel()

	items := values(t, `[
		{"id":"n-1","title":"秋田縣 鹿角市","lat":"40.21","lng":140.78,"desc":"目擊一頭黑熊","count":"2","source":"NHK","date":"2026-10-10"},
		{"title":"no id","lat":39.7,"lng":141.1,"date":"2026/10/09"},
		{"id":"bad-lat","lat":"north","lng":140.0,"date":"2026-10-10"},
		{"id":"missing-lng","lat":39.0,"date":"2026-10-10"},
		{"id":"null-lat","lat":null,"lng":140.0,"date":"2026-10-10"},
		{"id":"no-date","lat":39.0,"lng":140.0},
		"not an object",
		{"id":"fullwidth","lat":"３９．５","lng":"１４０．１","count":0,"date":"２０２６－１０－０１"}
	]`)

	out, report := SanitizeWithReport(items, Options{})

	assert.LessOrEqual(t, len(out), len(items))
	require.Len(t, out, 3)
	assert.Equal(t, 8, report.Input)
	assert.Equal(t, 3, report.Dropped[DropCoordinates])
	assert.Equal(t, 1, report.Dropped[DropDate])
	assert.Equal(t, 1, report.Dropped[DropNotObject])

	first := out[0]
	assert.Equal(t, "n-1", first.ID)
	assert.InDelta(t, 40.21, first.Lat, 1e-9)
	assert.Equal(t, 2, first.Count)
	assert.Equal(t, "2026-10-10", first.Date)

	second := out[1]
	assert.NotEmpty(t, second.ID, "missing ids get a random fallback")
	assert.Equal(t, 1, second.Count, "absent count defaults to 1")
	assert.Equal(t, "2026-10-09", second.Date)

	third := out[2]
	assert.InDelta(t, 39.5, third.Lat, 1e-9)
	assert.Equal(t, 1, third.Count, "non-positive count defaults to 1")

	for _, s := range out {
		assert.True(t, IsFinite(s.Lat) && IsFinite(s.Lng))
	}
}

func TestSanitizeBoundsAndStrictDates(t *testing.T) {
	t.Parallel()

	items := values(t, `[
		{"id":"tokyo","lat":35.68,"lng":139.69,"date":"2026-10-10"},
		{"id":"seoul","lat":37.56,"lng":126.97,"date":"2026-10-10"},
		{"id":"slash","lat":35.68,"lng":139.69,"date":"2026/10/10"},
		{"id":"placeholder","lat":35.68,"lng":139.69,"date":"YYYY-MM-DD"},
		{"id":"impossible","lat":35.68,"lng":139.69,"date":"2026-02-30"}
	]`)

	bounds := Bounds{MinLat: 24, MaxLat: 46, MinLng: 128, MaxLng: 154}
	out := Sanitize(items, Options{Bounds: &bounds, StrictDates: true})

	require.Len(t, out, 1)
	assert.Equal(t, "tokyo", out[0].ID)
}

func TestSanitizeStripsMarkup(t *testing.T) {
	t.Parallel()

	items := values(t, `[{"id":"m","title":"<b>長野縣</b>","lat":36.6,"lng":138.2,"desc":"<p>熊 &amp; 幼熊</p>","date":"2026-10-01"}]`)
	out := Sanitize(items, Options{})

	require.Len(t, out, 1)
	assert.Equal(t, "長野縣", out[0].Title)
	assert.Equal(t, "熊 & 幼熊", out[0].Desc)
}

func TestStripMarkupIsIdempotent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "秋田市で熊出没", "秋田市で熊出没"},
		{"escaped brackets without markup", "注意 &lt;熊&gt; 出沒", "注意 &lt;熊&gt; 出沒"},
		{"bare brackets", "注意 <熊> 出沒", "注意 <熊> 出沒"},
		{"comparison", "距離 < 5km", "距離 < 5km"},
		{"tags", "<b>長野縣</b>", "長野縣"},
		{"escaped tag inside markup", "<b>熊</b> &lt;script&gt;x&lt;/script&gt;", ""},
		{"nested tag fragments", "<p>a<<i>b>c</p>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			once := stripMarkup(tt.in)
			if tt.want != "" {
				assert.Equal(t, tt.want, once)
			}
			assert.NotRegexp(t, markupTag, once)
			assert.Equal(t, once, stripMarkup(once))
		})
	}
}

func TestSanitizeRoundTrip(t *testing.T) {
	t.Parallel()

	original := []Sighting{
		{
			ID: "social-1849203948572", Title: "岩手縣 盛岡市", Lat: 39.7036, Lng: 141.1527,
			Desc: "住宅區附近目擊成年黑熊", Count: 1, Source: "X.com", Date: "2026-10-15",
			URL: "https://x.com/iwate_news/status/1849203948572", Provider: ProviderSocial,
		},
		{
			ID: "user-1760745600000", Title: "[用戶回報] 發現熊蹤跡", Lat: 43.06, Lng: 141.35,
			Desc: "足跡", Count: 3, Source: "AI consensus", Date: "2026-10-17",
			Provider: ProviderUser, VerificationStatus: StatusVerified, Confidence: 91,
		},
		{
			ID: "news-entity", Title: "注意 &lt;熊&gt; 出沒", Lat: 40.82, Lng: 140.74,
			Desc: "熊 &amp; 幼熊 <出沒>", Count: 2, Source: "NHK", Date: "2026-10-16",
			Provider: ProviderNews,
		},
		{
			ID: "social-search-1", Title: "X 即時搜尋", Lat: 38.5, Lng: 137, Desc: "search",
			Count: 1, Source: "X.com", Date: "2026-10-17", Provider: ProviderSocial, Synthetic: true,
		},
	}

	data, err := Marshal(original)
	require.NoError(t, err)

	reparsed := Sanitize(llmjson.ExtractArray(string(data)), Options{Bounds: &JapanBounds, StrictDates: true})
	assert.Equal(t, original, reparsed)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	sightings := []Sighting{
		{ID: "a", Date: "2026-10-01", Provider: ProviderNews},
		{ID: "b", Date: "2026-10-15", Provider: ProviderSocial},
		{ID: "c", Date: "2026-10-10", Provider: ProviderNews},
	}
	SortByDateDesc(sightings)
	assert.Equal(t, []string{"b", "c", "a"}, []string{sightings[0].ID, sightings[1].ID, sightings[2].ID})

	snap := NewSnapshot(sightings, now)
	assert.Equal(t, Counts{News: 2, Social: 1}, snap.Counts)
	assert.Equal(t, now.UnixMilli(), snap.Timestamp)
	assert.False(t, snap.Empty())

	withUser := snap.WithPrepended(Sighting{ID: "u", Provider: ProviderUser, VerificationStatus: StatusVerified})
	assert.Equal(t, "u", withUser.Sightings[0].ID)
	assert.Len(t, snap.Sightings, 3, "original snapshot is not modified")
	assert.Equal(t, 1, withUser.Counts.User)

	empty := NewSnapshot(nil, now)
	assert.True(t, empty.Empty())
	data, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sightings":[]`)
}

func TestDates(t *testing.T) {
	t.Parallel()

	_, ok := ParseStrictDate("2026-10-17")
	assert.True(t, ok)

	for _, bad := range []string{"2026-1-7", "2026/10/17", "YYYY-MM-DD", "0000-00-00", "2026-13-01", " 2026-10-17", ""} {
		_, ok := ParseStrictDate(bad)
		assert.False(t, ok, bad)
	}

	tests := map[string]string{
		"2026-10-17":           "2026-10-17",
		"2026/10/7":            "2026-10-07",
		"2026.10.07":           "2026-10-07",
		"2026-10-17T08:30:00Z": "2026-10-17",
		"2026年10月7日":           "2026-10-07",
		"２０２６－１０－１７":           "2026-10-17",
	}
	for in, want := range tests {
		got, ok := NormalizeDate(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok = NormalizeDate("last Tuesday")
	assert.False(t, ok)

	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-09-18", Cutoff(now, 30))
	assert.Equal(t, "2026-10-18", Today(now))
}

func TestResolveLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  Point
		found bool
	}{
		{"coordinate pair", "35.0, 135.5", Point{35.0, 135.5}, true},
		{"pair outside bounds", "51.5, -0.12", DefaultCenter, false},
		{"kanji prefecture", "岩手県 盛岡市", Point{39.704, 141.153}, true},
		{"romaji prefecture", "Near Sapporo, Hokkaido", Point{43.064, 141.347}, true},
		{"tokyo-to is not kyoto", "東京都", Point{35.690, 139.692}, true},
		{"kyoto-fu", "京都府", Point{35.021, 135.756}, true},
		{"unknown", "somewhere", DefaultCenter, false},
		{"empty", "", DefaultCenter, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, found := ResolveLocation(tt.input, JapanBounds, DefaultCenter)
			assert.Equal(t, tt.found, found)
			assert.InDelta(t, tt.want.Lat, got.Lat, 1e-9)
			assert.InDelta(t, tt.want.Lng, got.Lng, 1e-9)
		})
	}
}

func TestBoundsContains(t *testing.T) {
	t.Parallel()

	assert.True(t, JapanBounds.Contains(35, 135))
	assert.True(t, JapanBounds.Contains(24, 122), "edges are inclusive")
	assert.False(t, JapanBounds.Contains(math.NaN(), 135))
	assert.False(t, JapanBounds.Contains(35, math.Inf(1)))
	assert.False(t, JapanBounds.Contains(10, 135))
}
