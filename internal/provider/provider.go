// Package provider implements the search adapters that turn one LLM call
// into a list of normalized sightings.
//
// Adapters fail soft: transport errors and unusable replies are logged and
// recorded, and the adapter returns an empty list. They never return an
// error to the aggregator.
package provider

import (
	"context"
	"strings"
	"time"

	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/observability/metrics"
	"github.com/tphakala/bearwatch/internal/sighting"
)

// DefaultWindowDays is the lookback window when a query does not set one
const DefaultWindowDays = 30

// Query describes one scan request as seen by an adapter
type Query struct {
	// Location is an optional free-text focus area, e.g. "秋田" or "39.7,140.1"
	Location   string
	Now        time.Time
	WindowDays int
}

func (q Query) normalized() Query {
	if q.Now.IsZero() {
		q.Now = time.Now()
	}
	if q.WindowDays <= 0 {
		q.WindowDays = DefaultWindowDays
	}
	q.Location = strings.TrimSpace(q.Location)
	return q
}

// Window returns today's date and the earliest accepted date
func (q Query) Window() (today, cutoff string) {
	q = q.normalized()
	return sighting.Today(q.Now), sighting.Cutoff(q.Now, q.WindowDays)
}

// Adapter is one search source
type Adapter interface {
	Provider() sighting.Provider
	Search(ctx context.Context, q Query) []sighting.Sighting
}

// GroundedGenerator generates text with web search grounding
type GroundedGenerator interface {
	GenerateGrounded(ctx context.Context, prompt string) (string, error)
}

// LiveSearchCompleter runs a system+user chat completion grounded on a
// live search of posts published between from and to (YYYY-MM-DD)
type LiveSearchCompleter interface {
	CompleteWithSearch(ctx context.Context, system, user string, temperature float64, from, to string) (string, error)
}

// Options holds settings shared by the adapters
type Options struct {
	Bounds sighting.Bounds
	// Center is used for the social fallback record when the query location
	// cannot be resolved
	Center sighting.Point
	// MinDescLength is the minimum desc length in runes for social records
	MinDescLength int
	Recorder      metrics.Recorder
}

func (o Options) withDefaults() Options {
	if o.Bounds == (sighting.Bounds{}) {
		o.Bounds = sighting.JapanBounds
	}
	if o.Center == (sighting.Point{}) {
		o.Center = sighting.DefaultCenter
	}
	if o.MinDescLength <= 0 {
		o.MinDescLength = 10
	}
	if o.Recorder == nil {
		o.Recorder = metrics.NoOpRecorder{}
	}
	return o
}

// recordCounter and dropRecorder are optional extensions of metrics.Recorder
type recordCounter interface {
	RecordRecords(provider string, n int)
}

type dropRecorder interface {
	RecordDropped(provider, reason string, n int)
}

func recordOutcome(r metrics.Recorder, p sighting.Provider, kept int, elapsed time.Duration, err error) {
	name := string(p)
	r.RecordDuration(name, elapsed.Seconds())
	switch {
	case err != nil:
		r.RecordOperation(name, metrics.StatusError)
		category := string(errors.CategoryGeneric)
		var ee *errors.EnhancedError
		if errors.As(err, &ee) {
			category = ee.GetCategory()
		}
		r.RecordError(name, category)
	case kept == 0:
		r.RecordOperation(name, metrics.StatusEmpty)
	default:
		r.RecordOperation(name, metrics.StatusSuccess)
	}
	if rc, ok := r.(recordCounter); ok && kept > 0 {
		rc.RecordRecords(name, kept)
	}
}

func recordDrops(r metrics.Recorder, p sighting.Provider, drops map[string]int) {
	dr, ok := r.(dropRecorder)
	if !ok {
		return
	}
	for reason, n := range drops {
		if n > 0 {
			dr.RecordDropped(string(p), reason, n)
		}
	}
}

// stamp tags model records with the adapter's provenance. Model output may
// not claim verification, confidence or synthetic status.
func stamp(s *sighting.Sighting, p sighting.Provider) {
	prefix := string(p) + "-"
	if !strings.HasPrefix(s.ID, prefix) {
		s.ID = prefix + s.ID
	}
	s.Provider = p
	s.VerificationStatus = ""
	s.Confidence = 0
	s.Synthetic = false
}

func getLogger() logger.Logger {
	return logger.Global().Module("provider")
}
