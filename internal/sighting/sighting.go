// Package sighting defines the normalized bear sighting record, the snapshot
// that bundles a scan result, and the sanitizer that turns untrusted model
// output into sightings.
package sighting

import (
	"cmp"
	"slices"
	"time"
)

// Provider tags where a sighting came from
type Provider string

const (
	ProviderNews   Provider = "news"
	ProviderSocial Provider = "social"
	ProviderUser   Provider = "user"
)

// Valid reports whether p is a known provider
func (p Provider) Valid() bool {
	switch p {
	case ProviderNews, ProviderSocial, ProviderUser:
		return true
	}
	return false
}

// VerificationStatus is set only on user-submitted reports
type VerificationStatus string

const (
	StatusVerified VerificationStatus = "VERIFIED"
	StatusPending  VerificationStatus = "PENDING"
	StatusRejected VerificationStatus = "REJECTED"
)

// Valid reports whether s is a known status
func (s VerificationStatus) Valid() bool {
	switch s {
	case StatusVerified, StatusPending, StatusRejected:
		return true
	}
	return false
}

// Sighting is a normalized bear sighting record
type Sighting struct {
	ID                 string             `json:"id" yaml:"id"`
	Title              string             `json:"title" yaml:"title"`
	Lat                float64            `json:"lat" yaml:"lat"`
	Lng                float64            `json:"lng" yaml:"lng"`
	Desc               string             `json:"desc" yaml:"desc"`
	Count              int                `json:"count" yaml:"count"`
	Source             string             `json:"source" yaml:"source"`
	Date               string             `json:"date" yaml:"date"` // YYYY-MM-DD
	URL                string             `json:"url,omitempty" yaml:"url,omitempty"`
	Provider           Provider           `json:"provider" yaml:"provider"`
	VerificationStatus VerificationStatus `json:"verificationStatus,omitempty" yaml:"verificationStatus,omitempty"`
	Confidence         int                `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	// Synthetic marks search-summary records that point at a live search
	// rather than describing a real sighting.
	Synthetic bool `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`
}

// Counts tallies sightings per provider
type Counts struct {
	News   int `json:"news" yaml:"news"`
	Social int `json:"social" yaml:"social"`
	User   int `json:"user,omitempty" yaml:"user,omitempty"`
}

// Snapshot is one aggregation result, the unit of caching
type Snapshot struct {
	Sightings []Sighting `json:"sightings" yaml:"sightings"`
	Timestamp int64      `json:"timestamp" yaml:"timestamp"` // epoch milliseconds
	Counts    Counts     `json:"counts" yaml:"counts"`
}

// NewSnapshot builds a snapshot stamped with now and counts derived from sightings
func NewSnapshot(sightings []Sighting, now time.Time) Snapshot {
	if sightings == nil {
		sightings = []Sighting{}
	}
	return Snapshot{
		Sightings: sightings,
		Timestamp: now.UnixMilli(),
		Counts:    CountByProvider(sightings),
	}
}

// CountByProvider tallies sightings per provider tag
func CountByProvider(sightings []Sighting) Counts {
	var c Counts
	for i := range sightings {
		switch sightings[i].Provider {
		case ProviderNews:
			c.News++
		case ProviderSocial:
			c.Social++
		case ProviderUser:
			c.User++
		}
	}
	return c
}

// Empty reports whether the snapshot holds no sightings at all
func (s Snapshot) Empty() bool {
	return len(s.Sightings) == 0
}

// Time returns the snapshot timestamp as a time.Time
func (s Snapshot) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// WithPrepended returns a copy of s with sg placed first. The receiver is not modified.
func (s Snapshot) WithPrepended(sg Sighting) Snapshot {
	out := make([]Sighting, 0, len(s.Sightings)+1)
	out = append(out, sg)
	out = append(out, s.Sightings...)
	return Snapshot{
		Sightings: out,
		Timestamp: s.Timestamp,
		Counts:    CountByProvider(out),
	}
}

// SortByDateDesc orders sightings newest first. Dates are canonical
// YYYY-MM-DD strings so lexical order is chronological.
func SortByDateDesc(sightings []Sighting) {
	slices.SortStableFunc(sightings, func(a, b Sighting) int {
		return cmp.Compare(b.Date, a.Date)
	})
}
