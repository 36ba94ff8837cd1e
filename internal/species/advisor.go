package species

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/bearwatch/internal/llmjson"
	"github.com/tphakala/bearwatch/internal/logger"
)

// DefaultCacheTTL keeps AI advisories for a day
const DefaultCacheTTL = 24 * time.Hour

// JSONGenerator is the JSON-mode call of the Gemini client
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
}

// Advisor asks a model for a region advisory and falls back to Lookup
type Advisor struct {
	gen   JSONGenerator
	cache *cache.Cache
	log   logger.Logger
}

// NewAdvisor creates an advisor. A nil gen always uses the static table.
func NewAdvisor(gen JSONGenerator, ttl time.Duration) *Advisor {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Advisor{
		gen:   gen,
		cache: cache.New(ttl, ttl/2),
		log:   logger.Global().Module("species"),
	}
}

const advisorSystem = `You are a Japanese wildlife safety expert. Reply with one JSON object only.`

const advisorPrompt = `A traveller is at latitude %.3f, longitude %.3f in Japan.
Which bear species is predominant in this area? Reply as:
{"name": "common name in Traditional Chinese with the Japanese name in parentheses", "scientificName": "...", "type": "BROWN" or "BLACK", "riskLevel": "e.g. HIGH (高)", "features": "one or two sentences in Traditional Chinese", "advice": "one or two sentences in Traditional Chinese"}`

// Advise returns the advisory for lat/lng. Errors from the model are logged
// and answered from the static table, so Advise never fails.
func (a *Advisor) Advise(ctx context.Context, lat, lng float64) Info {
	if a.gen == nil {
		return Lookup(lat)
	}

	key := fmt.Sprintf("%.1f:%.1f", lat, lng)
	if v, ok := a.cache.Get(key); ok {
		return v.(Info)
	}

	reply, err := a.gen.GenerateJSON(ctx, advisorSystem, fmt.Sprintf(advisorPrompt, lat, lng))
	if err != nil {
		a.log.Warn("Species advisory unavailable, using static table",
			logger.Float64("lat", lat),
			logger.Error(err))
		return Lookup(lat)
	}

	info, ok := parseInfo(reply)
	if !ok {
		a.log.Warn("Species advisory unreadable, using static table",
			logger.Int("reply_length", len(reply)))
		return Lookup(lat)
	}
	a.cache.SetDefault(key, info)
	return info
}

func parseInfo(reply string) (Info, bool) {
	obj, ok := llmjson.ExtractObject(reply)
	if !ok {
		return Info{}, false
	}
	str := func(k string) string {
		s, _ := obj.GetString(k)
		return strings.TrimSpace(s)
	}

	info := Info{
		Name:           str("name"),
		ScientificName: str("scientificName"),
		RiskLevel:      str("riskLevel"),
		Features:       str("features"),
		Advice:         str("advice"),
		Source:         SourceAI,
	}
	switch BearType(strings.ToUpper(str("type"))) {
	case TypeBrown:
		info.Type = TypeBrown
	case TypeBlack:
		info.Type = TypeBlack
	default:
		return Info{}, false
	}
	if info.Name == "" || info.Advice == "" {
		return Info{}, false
	}
	return info, true
}
