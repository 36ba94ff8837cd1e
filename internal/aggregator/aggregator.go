// Package aggregator runs the provider adapters concurrently under one
// overall timeout and merges their output into a snapshot.
package aggregator

import (
	"context"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/observability/metrics"
	"github.com/tphakala/bearwatch/internal/provider"
	"github.com/tphakala/bearwatch/internal/sighting"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	ErrScanTimeout   = errors.NewStd("scan timed out")
	ErrNoCredentials = errors.NewStd("no provider credentials configured")
)

const (
	DefaultTimeout         = 25 * time.Second
	DefaultProviderTimeout = 60 * time.Second
)

// Config tunes a scan
type Config struct {
	// Timeout bounds the whole scan; exceeding it fails the scan
	Timeout time.Duration
	// ProviderTimeout bounds abandoned adapter calls after a scan timed out
	ProviderTimeout time.Duration
	WindowDays      int
}

// Aggregator merges adapter results into snapshots. Safe for concurrent use.
type Aggregator struct {
	adapters []provider.Adapter
	store    Store
	config   Config
	metrics  *metrics.ScanMetrics
	now      func() time.Time
	log      logger.Logger
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithMetrics records scan metrics
func WithMetrics(m *metrics.ScanMetrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New creates an aggregator. A nil store keeps snapshots in memory.
func New(store Store, config Config, adapters []provider.Adapter, opts ...Option) *Aggregator {
	if store == nil {
		store = NewMemoryStore()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.ProviderTimeout < config.Timeout {
		config.ProviderTimeout = max(DefaultProviderTimeout, config.Timeout)
	}
	a := &Aggregator{
		adapters: adapters,
		store:    store,
		config:   config,
		now:      time.Now,
		log:      logger.Global().Module("aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store returns the snapshot store
func (a *Aggregator) Store() Store {
	return a.store
}

// Providers lists the configured adapter providers
func (a *Aggregator) Providers() []sighting.Provider {
	out := make([]sighting.Provider, 0, len(a.adapters))
	for _, ad := range a.adapters {
		out = append(out, ad.Provider())
	}
	return out
}

// Scan runs every adapter concurrently and stores the merged snapshot.
//
// The combined wait races a single timer. When the timer wins the scan fails
// with ErrScanTimeout and partial results are discarded. In-flight adapter
// calls are not aborted; they run on a context detached from ctx, bounded
// only by ProviderTimeout, and their late results are dropped.
//
// A snapshot with no sightings is a successful scan; callers report it as
// "no data found" using Snapshot.Empty.
func (a *Aggregator) Scan(ctx context.Context, q provider.Query) (sighting.Snapshot, error) {
	if len(a.adapters) == 0 {
		return sighting.Snapshot{}, errors.New(ErrNoCredentials).
			Category(errors.CategoryConfiguration).
			Component("aggregator").
			Build()
	}

	start := time.Now()
	q.Now = a.now()
	if q.WindowDays <= 0 {
		q.WindowDays = a.config.WindowDays
	}

	done := make(chan [][]sighting.Sighting, 1)
	go a.runAdapters(ctx, q, done)

	timer := time.NewTimer(a.config.Timeout)
	defer timer.Stop()

	var results [][]sighting.Sighting
	select {
	case results = <-done:
	case <-timer.C:
		a.recordScan(metrics.StatusTimeout, start)
		a.log.Warn("Scan timed out, discarding partial results",
			logger.Duration("timeout", a.config.Timeout))
		return sighting.Snapshot{}, errors.New(ErrScanTimeout).
			Category(errors.CategoryTimeout).
			Component("aggregator").
			Context("timeout_seconds", a.config.Timeout.Seconds()).
			Build()
	case <-ctx.Done():
		a.recordScan(metrics.StatusError, start)
		return sighting.Snapshot{}, errors.New(ctx.Err()).
			Category(errors.CategoryCancellation).
			Component("aggregator").
			Build()
	}

	snap := a.merge(results)
	a.store.Replace(snap)

	result := metrics.StatusSuccess
	if snap.Empty() {
		result = metrics.StatusEmpty
	}
	a.recordScan(result, start)
	if a.metrics != nil {
		a.metrics.UpdateSnapshot(snap.Counts.News, snap.Counts.Social, snap.Counts.User,
			float64(snap.Timestamp)/1000)
	}

	a.log.Info("Scan completed",
		logger.Int("sightings", len(snap.Sightings)),
		logger.Int("news", snap.Counts.News),
		logger.Int("social", snap.Counts.Social),
		logger.Duration("elapsed", time.Since(start)))
	return snap, nil
}

// runAdapters fans out to every adapter and sends all result lists on done.
// One adapter's failure or panic never cancels the others.
func (a *Aggregator) runAdapters(parent context.Context, q provider.Query, done chan<- [][]sighting.Sighting) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), a.config.ProviderTimeout)
	defer cancel()

	results := make([][]sighting.Sighting, len(a.adapters))
	var g errgroup.Group
	for i, ad := range a.adapters {
		g.Go(func() error {
			results[i] = a.searchOne(ctx, ad, q)
			return nil
		})
	}
	_ = g.Wait()

	// buffered; never blocks even when the scan has already timed out
	done <- results
}

func (a *Aggregator) searchOne(ctx context.Context, ad provider.Adapter, q provider.Query) (out []sighting.Sighting) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Newf("adapter panic: %v", r).
				Category(errors.CategoryProvider).
				Component("aggregator").
				Context("provider", string(ad.Provider())).
				Context("stack", string(debug.Stack())).
				Build()
			a.log.Error("Provider adapter panicked",
				logger.String("provider", string(ad.Provider())),
				logger.Error(err))
			out = []sighting.Sighting{}
		}
	}()
	return ad.Search(ctx, q)
}

func (a *Aggregator) merge(results [][]sighting.Sighting) sighting.Snapshot {
	var total int
	for _, r := range results {
		total += len(r)
	}
	combined := make([]sighting.Sighting, 0, total)
	for _, r := range results {
		combined = append(combined, r...)
	}

	merged, removed := Dedupe(combined)
	if removed > 0 {
		a.log.Debug("Removed duplicate sightings", logger.Int("removed", removed))
		if a.metrics != nil {
			a.metrics.RecordDuplicates(removed)
		}
	}
	sighting.SortByDateDesc(merged)
	return sighting.NewSnapshot(merged, a.now())
}

func (a *Aggregator) recordScan(result string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordScan(result, time.Since(start).Seconds())
	}
}

