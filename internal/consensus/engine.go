// Package consensus decides whether a submitted photo shows a bear sign by
// combining two independent vision votes.
//
// A submission moves through SUBMITTED, PRIMARY_VOTE, an optional
// SECONDARY_VOTE and DECIDED. A primary NO short-circuits to REJECTED
// without a secondary call. ACCEPTED requires both votes to be YES. Voter
// failures count as NO, except a failed primary call, which aborts with
// ErrVerificationUnavailable so callers can tell "the model said no" from
// "no model answered".
package consensus

import (
	"context"
	"fmt"
	"time"

	"github.com/tphakala/bearwatch/internal/errors"
	"github.com/tphakala/bearwatch/internal/logger"
	"github.com/tphakala/bearwatch/internal/observability/metrics"
	"github.com/tphakala/bearwatch/internal/sighting"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	ErrVerificationUnavailable = errors.NewStd("verification unavailable")
	ErrInvalidImage            = errors.NewStd("invalid image")
)

// Status is the final decision
type Status string

const (
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// Method names the source of the secondary vote
type Method string

const (
	MethodGrok             Method = "GROK"
	MethodGemini           Method = "GEMINI"
	MethodGeminiReflection Method = "GEMINI_REFLECTION"
	MethodGrokReflection   Method = "GROK_REFLECTION"
)

const (
	DefaultMinAcceptConfidence = 85
	DefaultRejectConfidence    = 10
)

// Config holds decision thresholds
type Config struct {
	// MinAcceptConfidence floors the confidence of accepted decisions
	MinAcceptConfidence int
	// RejectConfidence is the fixed confidence of rejected decisions
	RejectConfidence int
}

// Decision is the outcome of one verification
type Decision struct {
	Status     Status  `json:"status"`
	Confidence int     `json:"confidence"`
	Method     Method  `json:"method"`
	Primary    Verdict `json:"primary"`
	// Secondary is nil when the primary vote short-circuited
	Secondary    *bool  `json:"secondary,omitempty"`
	DetectedType string `json:"detectedType,omitempty"`
	Explanation  string `json:"explanation"`
}

// Accepted reports whether the photo was accepted
func (d Decision) Accepted() bool {
	return d.Status == StatusAccepted
}

// Engine runs the two-vote protocol. Safe for concurrent use.
type Engine struct {
	primary   Voter
	secondary Voter
	method    Method
	config    Config
	metrics   *metrics.ConsensusMetrics
	log       logger.Logger
}

// NewEngine creates an engine from explicit voters
func NewEngine(primary, secondary Voter, method Method, config Config) *Engine {
	if config.MinAcceptConfidence <= 0 {
		config.MinAcceptConfidence = DefaultMinAcceptConfidence
	}
	if config.RejectConfidence <= 0 {
		config.RejectConfidence = DefaultRejectConfidence
	}
	return &Engine{
		primary:   primary,
		secondary: secondary,
		method:    method,
		config:    config,
		log:       logger.Global().Module("consensus"),
	}
}

// SetMetrics enables consensus metrics
func (e *Engine) SetMetrics(m *metrics.ConsensusMetrics) {
	e.metrics = m
}

// Method returns the secondary vote source
func (e *Engine) Method() Method {
	return e.method
}

// Verify runs the protocol on img
func (e *Engine) Verify(ctx context.Context, img Image) (Decision, error) {
	start := time.Now()

	primary, err := e.primary.Vote(ctx, img)
	if err != nil {
		e.log.Error("Primary voter unavailable",
			logger.String("voter", e.primary.Name()),
			logger.Error(err))
		if e.metrics != nil {
			e.metrics.RecordUnavailable()
		}
		return Decision{}, errors.New(fmt.Errorf("%w: %w", ErrVerificationUnavailable, err)).
			Category(errors.CategoryVerification).
			Component("consensus").
			Context("voter", e.primary.Name()).
			Build()
	}
	if !primary.Parsed {
		e.log.Warn("Primary reply unreadable, counting as NO", logger.String("voter", e.primary.Name()))
	}
	e.recordVote("primary", primary.IsBearSign)

	if !primary.IsBearSign {
		d := Decision{
			Status:       StatusRejected,
			Confidence:   e.config.RejectConfidence,
			Method:       e.method,
			Primary:      primary,
			DetectedType: primary.DetectedType,
			Explanation:  fmt.Sprintf("%s 判定：非熊跡象（%s）", e.primary.Name(), reasonOr(primary.Reason, "未偵測到熊或熊的痕跡")),
		}
		e.finish(d, start)
		return d, nil
	}

	secondYes := false
	second, err := e.secondary.Vote(ctx, img)
	switch {
	case err != nil:
		e.log.Warn("Secondary voter failed, counting as NO",
			logger.String("voter", e.secondary.Name()),
			logger.Error(err))
		if e.metrics != nil {
			e.metrics.RecordVoterError("secondary")
		}
	default:
		secondYes = second.IsBearSign
	}
	e.recordVote("secondary", secondYes)

	d := Decision{
		Method:       e.method,
		Primary:      primary,
		Secondary:    &secondYes,
		DetectedType: primary.DetectedType,
	}
	if secondYes {
		d.Status = StatusAccepted
		d.Confidence = min(max(primary.Confidence, e.config.MinAcceptConfidence), 100)
		d.Explanation = fmt.Sprintf("雙重 AI 共識：%s 與 %s 均判定為熊跡象（%s）",
			e.primary.Name(), e.method, reasonOr(primary.Reason, primary.DetectedType))
	} else {
		d.Status = StatusRejected
		d.Confidence = e.config.RejectConfidence
		d.Explanation = fmt.Sprintf("未達共識：%s 判定為熊跡象，但 %s 複查未通過", e.primary.Name(), e.method)
	}
	e.finish(d, start)
	return d, nil
}

// Report is the user-supplied context of a submission
type Report struct {
	Lat         float64
	Lng         float64
	Description string
}

// NewUserSighting builds the sighting published for an accepted decision
func NewUserSighting(d Decision, r Report, now time.Time) sighting.Sighting {
	desc := r.Description
	if desc == "" {
		desc = "用戶上傳照片經 AI 雙重驗證確認為熊跡象"
	}
	return sighting.Sighting{
		ID:                 fmt.Sprintf("user-%d", now.UnixMilli()),
		Title:              "[用戶回報] 發現熊蹤跡",
		Lat:                r.Lat,
		Lng:                r.Lng,
		Desc:               desc,
		Count:              1,
		Source:             d.Explanation,
		Date:               sighting.Today(now),
		Provider:           sighting.ProviderUser,
		VerificationStatus: sighting.StatusVerified,
		Confidence:         d.Confidence,
	}
}

func (e *Engine) recordVote(voter string, yes bool) {
	if e.metrics != nil {
		e.metrics.RecordVote(voter, yes)
	}
}

func (e *Engine) finish(d Decision, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordDecision(string(d.Status), string(d.Method), time.Since(start).Seconds())
	}
	e.log.Info("Verification decided",
		logger.String("status", string(d.Status)),
		logger.Int("confidence", d.Confidence),
		logger.String("method", string(d.Method)),
		logger.Duration("elapsed", time.Since(start)))
}

func reasonOr(reason, fallback string) string {
	if reason != "" {
		return reason
	}
	return fallback
}
