package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/observability/metrics"
	"github.com/tphakala/bearwatch/internal/sighting"
)

const (
	DefaultQueueSize   = 64
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 2 * time.Second
	DefaultSendTimeout = 15 * time.Second
)

// Options tune the dispatcher
type Options struct {
	QueueSize   int
	MaxRetries  int
	RetryDelay  time.Duration
	SendTimeout time.Duration
	Metrics     *metrics.NotificationMetrics
}

// Service queues notifications and delivers them to every provider that
// supports their type. Delivery never blocks the caller; when the queue is
// full the notification is dropped and logged.
type Service struct {
	providers []Provider
	opts      Options
	queue     chan *Notification

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewService starts a dispatcher for providers
func NewService(providers []Provider, opts Options) *Service {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		providers: providers,
		opts:      opts,
		queue:     make(chan *Notification, opts.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.wg.Add(1)
	go s.run()

	log.Info("Notification service started", logger.Int("providers", len(providers)))
	return s
}

// Enabled reports whether any provider is configured
func (s *Service) Enabled() bool {
	return s != nil && len(s.providers) > 0
}

// Notify queues n. It returns false when the service is closed, has no
// providers or the queue is full.
func (s *Service) Notify(n *Notification) bool {
	if !s.Enabled() {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	select {
	case s.queue <- n:
		return true
	default:
		log.Warn("Notification queue full, dropping notification", logger.String("type", string(n.Type)))
		return false
	}
}

// NotifyReport announces a verified user report
func (s *Service) NotifyReport(sg sighting.Sighting) bool {
	return s.Notify(&Notification{
		Type:    TypeReport,
		Title:   sg.Title,
		Message: fmt.Sprintf("%s (%.4f, %.4f) 信心度 %d%%\n%s", sg.Date, sg.Lat, sg.Lng, sg.Confidence, sg.Desc),
		Payload: sg,
	})
}

// snapshotSummary is the MQTT payload for scans. Full sightings stay
// behind the HTTP API.
type snapshotSummary struct {
	Timestamp int64           `json:"timestamp"`
	Total     int             `json:"total"`
	Counts    sighting.Counts `json:"counts"`
}

// NotifySnapshot announces a completed scan
func (s *Service) NotifySnapshot(snap sighting.Snapshot) bool {
	return s.Notify(&Notification{
		Type:  TypeSnapshot,
		Title: "熊出沒情報更新",
		Message: fmt.Sprintf("新聞 %d 筆、社群 %d 筆、用戶回報 %d 筆",
			snap.Counts.News, snap.Counts.Social, snap.Counts.User),
		Payload: snapshotSummary{
			Timestamp: snap.Timestamp,
			Total:     len(snap.Sightings),
			Counts:    snap.Counts,
		},
	})
}

// Close stops accepting notifications, delivers what is queued and waits
// for in-flight sends or ctx, whichever ends first.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.cancel()
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		for _, p := range s.providers {
			if c, ok := p.(interface{ Close() }); ok {
				c.Close()
			}
		}
		return nil
	case <-ctx.Done():
		return errors.New(ctx.Err()).
			Category(errors.CategoryTimeout).
			Component("notification").
			Context("operation", "close").
			Build()
	}
}

func (s *Service) run() {
	defer s.wg.Done()
	for n := range s.queue {
		s.dispatch(n)
	}
}

func (s *Service) dispatch(n *Notification) {
	var wg sync.WaitGroup
	for _, p := range s.providers {
		if !p.SupportsType(n.Type) {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.deliver(p, n)
		}()
	}
	wg.Wait()
}

func (s *Service) deliver(p Provider, n *Notification) {
	start := time.Now()
	var err error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.opts.RetryDelay)
		}
		// queued notifications are still delivered after Close
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.opts.SendTimeout)
		err = p.Send(ctx, n)
		cancel()
		if err == nil {
			s.record(p, n, "success", start)
			return
		}
		var perr *providerError
		if !errors.As(err, &perr) || !perr.Retryable {
			break
		}
	}

	log.Error("Notification delivery failed",
		logger.String("provider", p.Name()),
		logger.String("type", string(n.Type)),
		logger.Error(err))
	s.record(p, n, "error", start)
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordDeliveryError(p.Name(), errorCategory(err))
	}
}

func (s *Service) record(p Provider, n *Notification, status string, start time.Time) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordDelivery(p.Name(), string(n.Type), status, time.Since(start).Seconds())
	}
}

func errorCategory(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}
