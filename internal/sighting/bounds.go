package sighting

import "math"

// Point is a WGS84 coordinate in degrees
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is an inclusive latitude/longitude box
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// JapanBounds covers the Japanese archipelago
var JapanBounds = Bounds{MinLat: 24, MaxLat: 46, MinLng: 122, MaxLng: 154}

// DefaultCenter is the map center used when no better location is known
var DefaultCenter = Point{Lat: 38.5, Lng: 137.0}

// Contains reports whether lat/lng are finite and inside the box
func (b Bounds) Contains(lat, lng float64) bool {
	if !IsFinite(lat) || !IsFinite(lng) {
		return false
	}
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// IsFinite reports whether f is neither NaN nor infinite
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
