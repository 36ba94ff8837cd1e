// Package app assembles the provider clients, scan pipeline and
// verification engine from settings. Per-request credentials build fresh
// pipelines that share the process-wide snapshot store.
package app

import (
	"context"
	"time"

	"github.com/tphakala/bearwatch/internal/aggregator"
	"github.com/tphakala/bearwatch/internal/conf"
	"github.com/tphakala/bearwatch/internal/consensus"
	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/gemini"
	"github.com/tphakala/bearwatch/internal/httpclient"
	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/notification"
	"github.com/tphakala/bearwatch/internal/observability"
	"github.com/tphakala/bearwatch/internal/provider"
	"github.com/tphakala/bearwatch/internal/risk"
	"github.com/tphakala/bearwatch/internal/sighting"
	"github.com/tphakala/bearwatch/internal/species"
	"github.com/tphakala/bearwatch/internal/xai"
)

// Credentials are the provider API keys for one request
type Credentials struct {
	XAI    string `json:"xai,omitempty"`
	Google string `json:"google,omitempty"`
}

// Empty reports whether no key is set
func (c Credentials) Empty() bool {
	return c.XAI == "" && c.Google == ""
}

// Override returns c with the non-empty keys of o applied
func (c Credentials) Override(o Credentials) Credentials {
	if o.XAI != "" {
		c.XAI = o.XAI
	}
	if o.Google != "" {
		c.Google = o.Google
	}
	return c
}

// App holds the long-lived services. Safe for concurrent use.
type App struct {
	Settings *conf.Settings
	Metrics  *observability.Metrics // nil when metrics are disabled
	Store    aggregator.Store
	Risk     *risk.Evaluator
	Species  *species.Advisor
	Notifier *notification.Service // nil when no notification target is configured

	http       *httpclient.Client
	defaults   Credentials
	started    time.Time
	log        logger.Logger
	adaptersFn AdapterFactory
	visionFn   VisionFactory
}

// AdapterFactory builds the scan adapters for one set of credentials
type AdapterFactory func(ctx context.Context, creds Credentials) ([]provider.Adapter, error)

// VisionFactory builds the vision clients for one set of credentials. A
// missing provider must be returned as a nil interface.
type VisionFactory func(ctx context.Context, creds Credentials) (consensus.GeminiVision, consensus.GrokVision, error)

// Option configures an App
type Option func(*App)

// WithAdapterFactory replaces the provider adapter wiring
func WithAdapterFactory(fn AdapterFactory) Option {
	return func(a *App) {
		a.adaptersFn = fn
	}
}

// WithVisionFactory replaces the vision client wiring
func WithVisionFactory(fn VisionFactory) Option {
	return func(a *App) {
		a.visionFn = fn
	}
}

// New builds the application services from settings. m may be nil.
func New(ctx context.Context, settings *conf.Settings, m *observability.Metrics, opts ...Option) (*App, error) {
	hc := httpclient.New(&httpclient.Config{DefaultTimeout: settings.Providers.XAI.Timeout})
	if m != nil {
		m.InstrumentHTTPClient(hc)
	}

	var store aggregator.Store
	if settings.Cache.TTL > 0 {
		store = aggregator.NewCacheStore(settings.Cache.TTL)
	} else {
		store = aggregator.NewMemoryStore()
	}

	a := &App{
		Settings: settings,
		Metrics:  m,
		Store:    store,
		Risk: risk.NewEvaluator(risk.Config{
			CriticalKm: settings.Risk.CriticalKm,
			AlertKm:    settings.Risk.AlertKm,
		}),
		Notifier: notification.FromSettings(settings, m),
		http:     hc,
		defaults: Credentials{
			XAI:    settings.Providers.XAI.APIKey,
			Google: settings.Providers.Gemini.APIKey,
		},
		started: time.Now(),
		log:     logger.Global().Module("app"),
	}
	a.adaptersFn = a.adapters
	a.visionFn = a.visionClients
	for _, opt := range opts {
		opt(a)
	}

	var advisorGen species.JSONGenerator
	if a.defaults.Google != "" {
		gem, err := a.geminiClient(ctx, a.defaults.Google)
		if err != nil {
			return nil, err
		}
		advisorGen = gem
	}
	a.Species = species.NewAdvisor(advisorGen, settings.Species.CacheTTL)

	a.log.Info("Application services ready",
		logger.Bool("xai", a.defaults.XAI != ""),
		logger.Bool("gemini", a.defaults.Google != ""),
		logger.Bool("notifications", a.Notifier.Enabled()))
	return a, nil
}

// Credentials returns the configured keys
func (a *App) Credentials() Credentials {
	return a.defaults
}

// StartedAt returns when the app was built
func (a *App) StartedAt() time.Time {
	return a.started
}

// Scanner builds a scan pipeline for creds writing to the shared store.
// It fails with aggregator.ErrNoCredentials when creds is empty.
func (a *App) Scanner(ctx context.Context, creds Credentials) (*aggregator.Aggregator, error) {
	if creds.Empty() {
		return nil, errors.New(aggregator.ErrNoCredentials).
			Category(errors.CategoryConfiguration).
			Component("app").
			Build()
	}

	adapters, err := a.adaptersFn(ctx, creds)
	if err != nil {
		return nil, err
	}

	var aggOpts []aggregator.Option
	if a.Metrics != nil {
		aggOpts = append(aggOpts, aggregator.WithMetrics(a.Metrics.Scan))
	}
	return aggregator.New(a.Store, aggregator.Config{
		Timeout:         a.Settings.Scan.Timeout,
		ProviderTimeout: a.Settings.Scan.ProviderTimeout,
		WindowDays:      a.Settings.Scan.WindowDays,
	}, adapters, aggOpts...), nil
}

// adapters wires the news adapter to Gemini and the social adapter to Grok
func (a *App) adapters(ctx context.Context, creds Credentials) ([]provider.Adapter, error) {
	opts := provider.Options{
		Bounds:        a.bounds(),
		Center:        sighting.Point{Lat: a.Settings.Map.Latitude, Lng: a.Settings.Map.Longitude},
		MinDescLength: a.Settings.Scan.SocialMinDescLength,
	}
	if a.Metrics != nil {
		opts.Recorder = a.Metrics.Provider
	}

	var adapters []provider.Adapter
	if creds.Google != "" {
		gem, err := a.geminiClient(ctx, creds.Google)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, provider.NewNewsAdapter(gem, opts))
	}
	if creds.XAI != "" {
		grok, err := a.xaiClient(creds.XAI)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, provider.NewSocialAdapter(grok, opts))
	}
	return adapters, nil
}

// Verifier builds a consensus engine for creds
func (a *App) Verifier(ctx context.Context, creds Credentials) (*consensus.Engine, error) {
	gem, grok, err := a.visionFn(ctx, creds)
	if err != nil {
		return nil, err
	}

	engine, err := consensus.NewEngineFor(gem, grok, consensus.Config{
		MinAcceptConfidence: a.Settings.Consensus.MinAcceptConfidence,
		RejectConfidence:    a.Settings.Consensus.RejectConfidence,
	})
	if err != nil {
		return nil, err
	}
	if a.Metrics != nil {
		engine.SetMetrics(a.Metrics.Consensus)
	}
	return engine, nil
}

// SecondaryVoter returns the YES/NO voter used for standalone probes:
// Grok when configured, otherwise a skeptical Gemini.
func (a *App) SecondaryVoter(ctx context.Context, creds Credentials) (consensus.Voter, error) {
	gem, grok, err := a.visionFn(ctx, creds)
	if err != nil {
		return nil, err
	}
	switch {
	case grok != nil:
		return consensus.NewGrokVoter(grok, consensus.RoleSecondary), nil
	case gem != nil:
		return consensus.NewGeminiVoter(gem, consensus.RoleSkeptic), nil
	default:
		return nil, errors.New(consensus.ErrVerificationUnavailable).
			Category(errors.CategoryConfiguration).
			Component("app").
			Build()
	}
}

// Close stops background services
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Notifier != nil {
		if err := a.Notifier.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.http.Close()
	return errors.Join(errs...)
}

// visionClients returns nil interfaces, not typed nils, for missing keys
func (a *App) visionClients(ctx context.Context, creds Credentials) (consensus.GeminiVision, consensus.GrokVision, error) {
	var (
		gem  consensus.GeminiVision
		grok consensus.GrokVision
	)
	if creds.Google != "" {
		c, err := a.geminiClient(ctx, creds.Google)
		if err != nil {
			return nil, nil, err
		}
		gem = c
	}
	if creds.XAI != "" {
		c, err := a.xaiClient(creds.XAI)
		if err != nil {
			return nil, nil, err
		}
		grok = c
	}
	return gem, grok, nil
}

func (a *App) geminiClient(ctx context.Context, key string) (*gemini.Client, error) {
	g := a.Settings.Providers.Gemini
	return gemini.NewClient(ctx, gemini.Config{
		APIKey:     key,
		Model:      g.Model,
		BaseURL:    g.BaseURL,
		Timeout:    g.Timeout,
		HTTPClient: a.http,
	})
}

func (a *App) xaiClient(key string) (*xai.Client, error) {
	x := a.Settings.Providers.XAI
	return xai.NewClient(xai.Config{
		APIKey:            key,
		BaseURL:           x.BaseURL,
		Model:             x.Model,
		VisionModel:       x.VisionModel,
		Timeout:           x.Timeout,
		RequestsPerSecond: x.RequestsPerSecond,
		HTTPClient:        a.http,
	})
}

func (a *App) bounds() sighting.Bounds {
	b := a.Settings.Bounds
	if b == (conf.BoundsSettings{}) {
		return sighting.JapanBounds
	}
	return sighting.Bounds{MinLat: b.MinLat, MaxLat: b.MaxLat, MinLng: b.MinLng, MaxLng: b.MaxLng}
}

// Bounds returns the accepted coordinate box
func (a *App) Bounds() sighting.Bounds {
	return a.bounds()
}
