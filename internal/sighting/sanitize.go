package sighting

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/google/uuid"
	"github.com/k3a/html2text"
	"golang.org/x/text/width"

	"github.com/tphakala/bearwatch/internal/logger"
)

// Options tunes sanitization. The zero value applies only the numeric rules.
type Options struct {
	// Bounds rejects records outside the box when set
	Bounds *Bounds
	// StrictDates requires an exact YYYY-MM-DD date instead of normalizing
	StrictDates bool
}

// DropReason explains why a record was discarded
type DropReason string

const (
	DropNotObject   DropReason = "not_object"
	DropCoordinates DropReason = "non_finite_coordinates"
	DropOutOfBounds DropReason = "out_of_bounds"
	DropDate        DropReason = "invalid_date"
)

// Report summarizes one sanitization pass
type Report struct {
	Input   int
	Kept    int
	Dropped map[DropReason]int
}

func getLogger() logger.Logger {
	return logger.Global().Module("sighting")
}

// Sanitize converts parsed model records into sightings, discarding any
// record whose coordinates are not finite numbers or whose date is unusable.
// Output length never exceeds input length.
func Sanitize(items []*jason.Value, opts Options) []Sighting {
	out, _ := SanitizeWithReport(items, opts)
	return out
}

// SanitizeWithReport is Sanitize plus per-reason drop counts
func SanitizeWithReport(items []*jason.Value, opts Options) ([]Sighting, Report) {
	report := Report{Input: len(items), Dropped: map[DropReason]int{}}
	out := make([]Sighting, 0, len(items))

	for _, item := range items {
		s, reason := sanitizeOne(item, opts)
		if reason != "" {
			report.Dropped[reason]++
			continue
		}
		out = append(out, s)
	}
	report.Kept = len(out)

	if report.Kept < report.Input {
		getLogger().Debug("Discarded malformed records",
			logger.Int("input", report.Input),
			logger.Int("kept", report.Kept),
			logger.Any("dropped", report.Dropped))
	}
	return out, report
}

func sanitizeOne(item *jason.Value, opts Options) (Sighting, DropReason) {
	if item == nil {
		return Sighting{}, DropNotObject
	}
	obj, err := item.Object()
	if err != nil {
		return Sighting{}, DropNotObject
	}

	lat, latOK := numberField(obj, "lat", "latitude")
	lng, lngOK := numberField(obj, "lng", "longitude", "lon")
	if !latOK || !lngOK || !IsFinite(lat) || !IsFinite(lng) {
		return Sighting{}, DropCoordinates
	}
	if opts.Bounds != nil && !opts.Bounds.Contains(lat, lng) {
		return Sighting{}, DropOutOfBounds
	}

	rawDate := stringField(obj, "date")
	var date string
	if opts.StrictDates {
		if _, ok := ParseStrictDate(rawDate); !ok {
			return Sighting{}, DropDate
		}
		date = rawDate
	} else {
		var ok bool
		if date, ok = NormalizeDate(rawDate); !ok {
			return Sighting{}, DropDate
		}
	}

	s := Sighting{
		ID:     stringField(obj, "id"),
		Title:  textField(obj, "title"),
		Lat:    lat,
		Lng:    lng,
		Desc:   textField(obj, "desc"),
		Count:  1,
		Source: textField(obj, "source"),
		Date:   date,
		URL:    stringField(obj, "url"),
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if count, ok := numberField(obj, "count"); ok && IsFinite(count) && count >= 1 {
		s.Count = int(math.Min(math.Round(count), math.MaxInt32))
	}

	// provenance fields pass through only when they hold known values;
	// adapters overwrite them for model-produced records
	if p := Provider(stringField(obj, "provider")); p.Valid() {
		s.Provider = p
	}
	if vs := VerificationStatus(stringField(obj, "verificationStatus")); vs.Valid() {
		s.VerificationStatus = vs
	}
	if c, ok := numberField(obj, "confidence"); ok && c >= 0 && c <= 100 {
		s.Confidence = int(math.Round(c))
	}
	if v, err := obj.GetBoolean("synthetic"); err == nil {
		s.Synthetic = v
	}

	return s, ""
}

// numberField reads the first present key as a number, accepting numeric
// strings including fullwidth digits.
func numberField(obj *jason.Object, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, err := obj.GetValue(key)
		if err != nil {
			continue
		}
		if f, err := v.Float64(); err == nil {
			return f, true
		}
		if s, err := v.String(); err == nil {
			s = strings.TrimSpace(width.Narrow.String(s))
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return math.NaN(), true
			}
			return f, true
		}
		// present but neither number nor string
		return math.NaN(), true
	}
	return 0, false
}

// stringField reads key as a trimmed string; numbers are rendered as text
func stringField(obj *jason.Object, key string) string {
	v, err := obj.GetValue(key)
	if err != nil {
		return ""
	}
	if s, err := v.String(); err == nil {
		return strings.TrimSpace(s)
	}
	if n, err := v.Number(); err == nil {
		return n.String()
	}
	return ""
}

// markupTag matches HTML tags and comments. Bare angle brackets such as
// "<熊>" or "a < b" are not markup.
var markupTag = regexp.MustCompile(`<(?:/?[A-Za-z][A-Za-z0-9-]*(?:\s[^<>]*)?/?|!--[\s\S]*?--)>`)

// textField is stringField with markup stripped from model prose. The
// result never contains markup, so sanitizing it again is a no-op.
func textField(obj *jason.Object, key string) string {
	return stripMarkup(stringField(obj, key))
}

func stripMarkup(s string) string {
	if !markupTag.MatchString(s) {
		return s
	}
	s = html2text.HTML2Text(s)
	// decoded entities like &lt;b&gt; can form new tags
	for markupTag.MatchString(s) {
		s = markupTag.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// Marshal renders sightings as a JSON array, the inverse of Sanitize
func Marshal(sightings []Sighting) ([]byte, error) {
	if sightings == nil {
		sightings = []Sighting{}
	}
	return json.Marshal(sightings)
}
