package risk

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/bearwatch/internal/sighting"
)

func TestHaversine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b sighting.Point
		want float64
		tol  float64
	}{
		{name: "same point", a: sighting.Point{Lat: 35, Lng: 135}, b: sighting.Point{Lat: 35, Lng: 135}, want: 0, tol: 1e-9},
		{name: "short hop", a: sighting.Point{Lat: 35.01, Lng: 135.01}, b: sighting.Point{Lat: 35, Lng: 135}, want: 1.43, tol: 0.02},
		{name: "tokyo to sapporo", a: sighting.Point{Lat: 35.681, Lng: 139.767}, b: sighting.Point{Lat: 43.064, Lng: 141.347}, want: 831, tol: 5},
		{name: "one degree of latitude", a: sighting.Point{Lat: 0, Lng: 0}, b: sighting.Point{Lat: 1, Lng: 0}, want: 111.19, tol: 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Haversine(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, tt.tol)
			assert.InDelta(t, got, Haversine(tt.b, tt.a), 1e-9, "symmetric")
		})
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	near := sighting.Sighting{ID: "a", Lat: 35.0, Lng: 135.0}
	far := sighting.Sighting{ID: "b", Lat: 36.0, Lng: 136.0}
	user := sighting.Point{Lat: 35.01, Lng: 135.01}

	t.Run("danger within critical distance", func(t *testing.T) {
		t.Parallel()
		res := Evaluate([]sighting.Sighting{far, near}, user, Config{CriticalKm: 5})
		assert.Equal(t, LevelDanger, res.Level)
		require.NotNil(t, res.Nearest)
		assert.Equal(t, "a", res.Nearest.ID)
		require.NotNil(t, res.DistanceKm)
		assert.InDelta(t, 1.43, *res.DistanceKm, 0.02)
		assert.Equal(t, 1, res.NearbyCount)
	})

	t.Run("warning beyond critical distance", func(t *testing.T) {
		t.Parallel()
		res := Evaluate([]sighting.Sighting{far}, user, Config{})
		assert.Equal(t, LevelWarning, res.Level)
		assert.Equal(t, "b", res.Nearest.ID)
		assert.Greater(t, *res.DistanceKm, DefaultCriticalKm)
		assert.Equal(t, 0, res.NearbyCount)
	})

	t.Run("no sightings is none", func(t *testing.T) {
		t.Parallel()
		for _, u := range []sighting.Point{user, {Lat: 0, Lng: 0}} {
			res := Evaluate(nil, u, Config{})
			assert.Equal(t, LevelNone, res.Level)
			assert.Nil(t, res.DistanceKm)
			assert.Nil(t, res.Nearest)
		}
	})

	t.Run("non-finite coordinates are skipped", func(t *testing.T) {
		t.Parallel()
		bad := sighting.Sighting{ID: "nan", Lat: math.NaN(), Lng: 135}
		res := Evaluate([]sighting.Sighting{bad}, user, Config{})
		assert.Equal(t, LevelNone, res.Level)
	})

	t.Run("tie keeps first", func(t *testing.T) {
		t.Parallel()
		twin := near
		twin.ID = "twin"
		res := Evaluate([]sighting.Sighting{near, twin}, user, Config{})
		assert.Equal(t, "a", res.Nearest.ID)
		assert.Equal(t, 2, res.NearbyCount)
	})

	t.Run("input untouched", func(t *testing.T) {
		t.Parallel()
		in := []sighting.Sighting{far, near}
		_ = Evaluate(in, user, Config{})
		assert.Equal(t, "b", in[0].ID)
		assert.Equal(t, "a", in[1].ID)
	})
}

func TestSunCalcPhase(t *testing.T) {
	t.Parallel()

	sc := NewSunCalc()
	const lat, lng = 35.68, 139.69 // Tokyo

	tests := []struct {
		name string
		at   time.Time
		want Phase
	}{
		{name: "noon", at: time.Date(2025, 6, 21, 12, 0, 0, 0, JST), want: PhaseDay},
		{name: "evening civil twilight", at: time.Date(2025, 6, 21, 19, 15, 0, 0, JST), want: PhaseTwilight},
		{name: "midnight", at: time.Date(2025, 6, 21, 23, 30, 0, 0, JST), want: PhaseNight},
		{name: "winter early morning", at: time.Date(2025, 12, 21, 3, 0, 0, 0, JST), want: PhaseNight},
		{name: "winter afternoon", at: time.Date(2025, 12, 21, 14, 0, 0, 0, JST), want: PhaseDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := sc.Phase(lat, lng, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSunEventTimesCached(t *testing.T) {
	t.Parallel()

	sc := NewSunCalc()
	at := time.Date(2025, 10, 1, 12, 0, 0, 0, JST)

	first, err := sc.GetSunEventTimes(39.72, 140.10, at)
	require.NoError(t, err)
	assert.True(t, first.CivilDawn.Before(first.Sunrise))
	assert.True(t, first.Sunrise.Before(first.Sunset))
	assert.True(t, first.Sunset.Before(first.CivilDusk))

	// same 0.1 degree bucket
	second, err := sc.GetSunEventTimes(39.71, 140.09, at.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, sc.cache.ItemCount())
}

func TestEvaluatorAddsDaylight(t *testing.T) {
	t.Parallel()

	e := NewEvaluator(Config{})
	snap := sighting.NewSnapshot([]sighting.Sighting{{ID: "a", Lat: 35.0, Lng: 135.0}}, time.Now())

	res := e.Evaluate(snap, sighting.Point{Lat: 35.01, Lng: 135.01}, time.Date(2025, 6, 21, 12, 0, 0, 0, JST))
	assert.Equal(t, LevelDanger, res.Level)
	assert.Equal(t, PhaseDay, res.Daylight)
}
