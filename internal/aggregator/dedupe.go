package aggregator

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/width"

	"github.com/tphakala/bearwatch/internal/sighting"
)

// Dedupe removes repeated sightings, keeping the first occurrence. Two
// records are the same when they share an id, or when date, coordinates
// rounded to three decimals and normalized title all match.
func Dedupe(in []sighting.Sighting) (out []sighting.Sighting, removed int) {
	out = make([]sighting.Sighting, 0, len(in))
	ids := make(map[string]struct{}, len(in))
	keys := make(map[string]struct{}, len(in))

	for i := range in {
		s := in[i]
		key := contentKey(&s)
		if _, dup := ids[s.ID]; dup {
			removed++
			continue
		}
		if _, dup := keys[key]; dup {
			removed++
			continue
		}
		ids[s.ID] = struct{}{}
		keys[key] = struct{}{}
		out = append(out, s)
	}
	return out, removed
}

func contentKey(s *sighting.Sighting) string {
	return fmt.Sprintf("%s|%.3f|%.3f|%s", s.Date, s.Lat, s.Lng, normalizeTitle(s.Title))
}

func normalizeTitle(title string) string {
	title = strings.ToLower(width.Fold.String(title))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, title)
}
