// Package risk classifies a user's exposure to nearby bear sightings.
package risk

import (
	"math"

	"github.com/tphakala/bearwatch/internal/sighting"
)

// Level is the alert level
type Level string

const (
	// LevelNone means risk cannot be assessed because there are no sightings
	LevelNone    Level = "NONE"
	LevelWarning Level = "WARNING"
	LevelDanger  Level = "DANGER"
)

const (
	DefaultCriticalKm = 5.0
	DefaultAlertKm    = 50.0
	earthRadiusKm     = 6371.0
)

// Config holds distance thresholds in kilometers
type Config struct {
	CriticalKm float64
	AlertKm    float64
}

func (c Config) withDefaults() Config {
	if c.CriticalKm <= 0 {
		c.CriticalKm = DefaultCriticalKm
	}
	if c.AlertKm <= 0 {
		c.AlertKm = DefaultAlertKm
	}
	return c
}

// Result is the outcome of one evaluation
type Result struct {
	Level Level `json:"level"`
	// DistanceKm and Nearest are nil when Level is NONE
	DistanceKm  *float64           `json:"distanceKm,omitempty"`
	Nearest     *sighting.Sighting `json:"nearest,omitempty"`
	NearbyCount int                `json:"nearbyCount"`
	Daylight    Phase              `json:"daylight,omitempty"`
}

// Evaluate finds the sighting nearest to user and classifies the distance.
// Ties keep the first minimal record. The input slice is not modified.
func Evaluate(sightings []sighting.Sighting, user sighting.Point, cfg Config) Result {
	cfg = cfg.withDefaults()

	best := -1
	bestKm := math.Inf(1)
	nearby := 0
	for i := range sightings {
		s := &sightings[i]
		if !sighting.IsFinite(s.Lat) || !sighting.IsFinite(s.Lng) {
			continue
		}
		d := Haversine(user, sighting.Point{Lat: s.Lat, Lng: s.Lng})
		if d <= cfg.AlertKm {
			nearby++
		}
		if d < bestKm {
			best, bestKm = i, d
		}
	}

	if best < 0 {
		return Result{Level: LevelNone}
	}

	nearest := sightings[best]
	km := math.Round(bestKm*100) / 100
	res := Result{
		Level:       LevelWarning,
		DistanceKm:  &km,
		Nearest:     &nearest,
		NearbyCount: nearby,
	}
	if bestKm <= cfg.CriticalKm {
		res.Level = LevelDanger
	}
	return res
}

// Haversine returns the great-circle distance between a and b in kilometers
func Haversine(a, b sighting.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
