package sighting

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// DateLayout is the canonical sighting date format
const DateLayout = "2006-01-02"

var strictDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// placeholderDates are values models emit when copying the prompt's schema
var placeholderDates = map[string]struct{}{
	"0000-00-00": {},
	"1970-01-01": {},
	"9999-12-31": {},
}

var lenientLayouts = []string{
	DateLayout,
	"2006-1-2",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006年1月2日",
}

// Today formats t in the canonical layout
func Today(t time.Time) string {
	return t.Format(DateLayout)
}

// IsPlaceholderDate reports whether s is a schema placeholder rather than a date
func IsPlaceholderDate(s string) bool {
	s = strings.TrimSpace(s)
	if _, ok := placeholderDates[s]; ok {
		return true
	}
	return strings.ContainsAny(strings.ToUpper(s), "YMD")
}

// ParseStrictDate accepts only an exact, real, non-placeholder YYYY-MM-DD date
func ParseStrictDate(s string) (time.Time, bool) {
	if !strictDate.MatchString(s) || IsPlaceholderDate(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeDate coerces common model date spellings into YYYY-MM-DD.
// Fullwidth digits are folded and '/' or '.' separators are accepted.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(width.Narrow.String(s))
	if s == "" || IsPlaceholderDate(s) {
		return "", false
	}
	candidates := []string{s, strings.NewReplacer("/", "-", ".", "-").Replace(s)}
	for _, c := range candidates {
		for _, layout := range lenientLayouts {
			t, err := time.Parse(layout, c)
			if err != nil {
				continue
			}
			out := t.Format(DateLayout)
			if _, bad := placeholderDates[out]; bad {
				return "", false
			}
			return out, true
		}
	}
	return "", false
}

// Cutoff returns the earliest accepted date for a window of days ending today
func Cutoff(now time.Time, windowDays int) string {
	return now.AddDate(0, 0, -windowDays).Format(DateLayout)
}
