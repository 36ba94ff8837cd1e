package provider

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tphakala/bearwatch/internal/llmjson"
	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/sighting"
)

const (
	socialTemperature = 0.1
	socialSource      = "X.com"
	socialSearchTerm  = "熊 出没"
)

// social rejection reasons, reported alongside the sanitizer's
const (
	rejectID     = "fake_id"
	rejectURL    = "bad_url"
	rejectDesc   = "short_desc"
	rejectWindow = "outside_window"
)

var (
	statusURL = regexp.MustCompile(`^https://(?:x|twitter)\.com/([A-Za-z0-9_]{1,15})/status/(\d{5,20})$`)

	repeatedX       = regexp.MustCompile(`(?i)x{4,}`)
	sequentialID    = regexp.MustCompile(`(?i)^[a-z]*[-_]?\d{1,3}$`)
	placeholderWord = regexp.MustCompile(`(?i)placeholder|example|sample|dummy|lorem|fake|test`)
)

// SocialAdapter searches social posts through a chat model with live search
type SocialAdapter struct {
	client LiveSearchCompleter
	opts   Options
	log    logger.Logger
}

// NewSocialAdapter creates a social adapter over client
func NewSocialAdapter(client LiveSearchCompleter, opts Options) *SocialAdapter {
	return &SocialAdapter{
		client: client,
		opts:   opts.withDefaults(),
		log:    getLogger().With(logger.String("provider", string(sighting.ProviderSocial))),
	}
}

// Provider implements Adapter
func (a *SocialAdapter) Provider() sighting.Provider {
	return sighting.ProviderSocial
}

// Search implements Adapter. When the call succeeds but no record survives
// validation, exactly one synthetic search-summary record is returned.
func (a *SocialAdapter) Search(ctx context.Context, q Query) []sighting.Sighting {
	q = q.normalized()
	today, cutoff := q.Window()
	start := time.Now()

	text, err := a.client.CompleteWithSearch(ctx,
		socialSystemPrompt(today, cutoff, q.WindowDays, q.Location),
		socialUserPrompt(cutoff, today, q.Location),
		socialTemperature, cutoff, today)
	if err != nil {
		a.log.Warn("Social search failed", logger.Error(err))
		recordOutcome(a.opts.Recorder, sighting.ProviderSocial, 0, time.Since(start), err)
		return []sighting.Sighting{}
	}

	records, report := sighting.SanitizeWithReport(llmjson.ExtractArray(text), sighting.Options{
		Bounds:      &a.opts.Bounds,
		StrictDates: true,
	})

	drops := make(map[string]int, len(report.Dropped)+4)
	for reason, n := range report.Dropped {
		drops[string(reason)] = n
	}

	out := make([]sighting.Sighting, 0, len(records))
	for i := range records {
		s := records[i]
		if reason := a.validate(&s, cutoff, today); reason != "" {
			drops[reason]++
			continue
		}
		stamp(&s, sighting.ProviderSocial)
		out = append(out, s)
	}
	recordDrops(a.opts.Recorder, sighting.ProviderSocial, drops)

	if len(out) == 0 {
		fb := a.fallback(q, today)
		a.log.Info("No verifiable social posts, returning search summary",
			logger.Int("returned", report.Input),
			logger.String("url", fb.URL))
		out = append(out, fb)
	}

	recordOutcome(a.opts.Recorder, sighting.ProviderSocial, len(out), time.Since(start), nil)
	a.log.Info("Social search completed",
		logger.Int("returned", report.Input),
		logger.Int("kept", len(out)),
		logger.Duration("elapsed", time.Since(start)))
	return out
}

// validate applies the social acceptance rules and fills in a search link
// for records without a url. It returns a rejection reason or "".
func (a *SocialAdapter) validate(s *sighting.Sighting, cutoff, today string) string {
	if s.Date < cutoff || s.Date > today {
		return rejectWindow
	}
	if IsFakeID(s.ID) {
		return rejectID
	}
	if s.URL == "" {
		s.URL = searchURL(socialSearchTerm + " " + s.Title)
	} else if !ValidStatusURL(s.URL) {
		return rejectURL
	}
	if utf8.RuneCountInString(strings.TrimSpace(s.Desc)) < a.opts.MinDescLength {
		return rejectDesc
	}
	if s.Source == "" {
		s.Source = socialSource
	}
	return ""
}

func (a *SocialAdapter) fallback(q Query, today string) sighting.Sighting {
	point, _ := sighting.ResolveLocation(q.Location, a.opts.Bounds, a.opts.Center)

	term := socialSearchTerm
	title := "X 即時搜尋：日本熊出沒動態"
	if q.Location != "" {
		term += " " + q.Location
		title = fmt.Sprintf("X 即時搜尋：%s 熊出沒動態", q.Location)
	}

	return sighting.Sighting{
		ID:        fmt.Sprintf("social-search-%d", q.Now.UnixMilli()),
		Title:     title,
		Lat:       point.Lat,
		Lng:       point.Lng,
		Desc:      "未取得可驗證的社群貼文，請開啟連結查看 X 上的即時搜尋結果。",
		Count:     1,
		Source:    socialSource,
		Date:      today,
		URL:       searchURL(term),
		Provider:  sighting.ProviderSocial,
		Synthetic: true,
	}
}

func searchURL(term string) string {
	return "https://x.com/search?q=" + url.QueryEscape(strings.TrimSpace(term)) + "&f=live"
}

// IsFakeID reports whether id looks invented: too short, a run of x's, a
// placeholder word or a small sequential number such as "post-1".
func IsFakeID(id string) bool {
	id = strings.TrimSpace(id)
	if utf8.RuneCountInString(id) < 4 {
		return true
	}
	if repeatedX.MatchString(id) || sequentialID.MatchString(id) || placeholderWord.MatchString(id) {
		return true
	}
	return isDigitRun(id)
}

// ValidStatusURL reports whether u is a post link of the form
// https://x.com/<handle>/status/<id> with a plausible id.
func ValidStatusURL(u string) bool {
	m := statusURL.FindStringSubmatch(u)
	if m == nil {
		return false
	}
	return !isDigitRun(m[2]) && !repeatedX.MatchString(m[1])
}

// isDigitRun reports whether s is a repeated digit ("00000") or a strictly
// ascending or descending digit run ("123456", "98765").
func isDigitRun(s string) bool {
	if len(s) < 2 {
		return false
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	same, up, down := true, true, true
	for i := 1; i < len(s); i++ {
		d := int(s[i]) - int(s[i-1])
		same = same && d == 0
		up = up && (d == 1 || (s[i-1] == '9' && s[i] == '0'))
		down = down && d == -1
	}
	return same || up || down
}
