package provider

import (
	"fmt"
	"strings"
)

func locationLine(location string) string {
	if location == "" {
		return ""
	}
	return fmt.Sprintf("\nFocus area: prioritize sightings in or near %q.\n", location)
}

func newsPrompt(today, cutoff string, days int, location string) string {
	return fmt.Sprintf(`Current Date: %[1]s.

**STRICT DATE REQUIREMENT**:
Only search for events that happened between %[2]s and %[1]s (Last %[3]d days).
IGNORE any news older than %[2]s.

Task: Search Google News for confirmed "熊出没" (Bear sightings) in Japan.
Use only official sources: prefectural or municipal government notices, police reports and established press.
%[4]s
Output: A purely JSON Array (no markdown).

Schema: [{
  "id": "g-1",
  "title": "Location/News Title (Traditional Chinese)",
  "lat": 35.123,
  "lng": 139.123,
  "desc": "Short description of the event (Traditional Chinese)",
  "count": 1,
  "source": "News Source Name",
  "date": "YYYY-MM-DD",
  "url": "https://news-link..."
}]`, today, cutoff, days, locationLine(location))
}

func socialSystemPrompt(today, cutoff string, days int, location string) string {
	return strings.TrimSpace(fmt.Sprintf(`You are a real-time event tracker.
Current Date: %[1]s.

**CRITICAL RULE**:
You must ONLY return bear sightings that occurred AFTER %[2]s.
If a date is not within the last %[3]d days, ignore it.

Task: List 3-5 recent bear sightings in Japan based on posts on X (Twitter).
Only include posts you can link to. Never invent ids or links.
%[4]s
Format: JSON Array only.
Keys: id (the post id), title (Traditional Chinese), lat, lng, desc (Traditional Chinese), count, source (the account handle), date (YYYY-MM-DD), url (https://x.com/<handle>/status/<id>).`,
		today, cutoff, days, locationLine(location)))
}

func socialUserPrompt(cutoff, today, location string) string {
	if location != "" {
		return fmt.Sprintf("Find bear sightings in Japan near %s between %s and %s.", location, cutoff, today)
	}
	return fmt.Sprintf("Find bear sightings in Japan between %s and %s.", cutoff, today)
}
