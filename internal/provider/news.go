package provider

import (
	"context"
	"time"

	"github.com/tphakala/bearwatch/internal/llmjson"
	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/sighting"
)

// NewsAdapter searches official and press sources through a search-grounded model
type NewsAdapter struct {
	client GroundedGenerator
	opts   Options
	log    logger.Logger
}

// NewNewsAdapter creates a news adapter over client
func NewNewsAdapter(client GroundedGenerator, opts Options) *NewsAdapter {
	return &NewsAdapter{
		client: client,
		opts:   opts.withDefaults(),
		log:    getLogger().With(logger.String("provider", string(sighting.ProviderNews))),
	}
}

// Provider implements Adapter
func (a *NewsAdapter) Provider() sighting.Provider {
	return sighting.ProviderNews
}

// Search implements Adapter
func (a *NewsAdapter) Search(ctx context.Context, q Query) []sighting.Sighting {
	q = q.normalized()
	today, cutoff := q.Window()
	start := time.Now()

	a.log.Debug("Starting news search",
		logger.String("cutoff", cutoff),
		logger.String("location", q.Location))

	text, err := a.client.GenerateGrounded(ctx, newsPrompt(today, cutoff, q.WindowDays, q.Location))
	if err != nil {
		a.log.Warn("News search failed", logger.Error(err))
		recordOutcome(a.opts.Recorder, sighting.ProviderNews, 0, time.Since(start), err)
		return []sighting.Sighting{}
	}

	records, report := sighting.SanitizeWithReport(llmjson.ExtractArray(text), sighting.Options{
		Bounds: &a.opts.Bounds,
	})

	drops := make(map[string]int, len(report.Dropped)+1)
	for reason, n := range report.Dropped {
		drops[string(reason)] = n
	}

	out := make([]sighting.Sighting, 0, len(records))
	for i := range records {
		s := records[i]
		if s.Date < cutoff {
			drops["stale"]++
			continue
		}
		stamp(&s, sighting.ProviderNews)
		out = append(out, s)
	}

	recordDrops(a.opts.Recorder, sighting.ProviderNews, drops)
	recordOutcome(a.opts.Recorder, sighting.ProviderNews, len(out), time.Since(start), nil)

	a.log.Info("News search completed",
		logger.Int("returned", report.Input),
		logger.Int("kept", len(out)),
		logger.Duration("elapsed", time.Since(start)))
	return out
}
