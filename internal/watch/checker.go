package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/formwatch/formwatch/internal/metrics"
)

// ErrCheckInFlight is returned when a check is requested while another
// one is still running. The second check is coalesced, not queued: an
// interleaved load/decide/save would risk a lost update on the
// persisted record.
var ErrCheckInFlight = errors.New("check already in flight")

// ambiguousCountsAsAccepting is the explicit policy for the fallback
// verdict: an ambiguous page persists as not accepting and never
// notifies. False negatives are acceptable, false positives are not.
const ambiguousCountsAsAccepting = false

// RenderDetector decides whether a static body warrants a headless
// re-fetch before classification.
type RenderDetector interface {
	ShouldRender(body []byte) bool
}

// CheckerConfig carries the per-form knobs for a Checker.
type CheckerConfig struct {
	FormURL             string
	FormID              string
	ForcedNotifyEnabled bool
	ArchivePrefix       string
	ArchiveContentType  string
	Topic               string
}

// Checker runs one full check cycle: fetch, classify, probe, decide,
// persist, notify. It owns the single-slot lock that serializes checks.
type Checker struct {
	cfg        CheckerConfig
	fetcher    Fetcher
	renderer   Fetcher
	detector   RenderDetector
	structured VerdictSource
	prober     *Prober
	store      StateStore
	notifier   Notifier
	publisher  Publisher
	archive    BlobStore
	clock      Clock
	deliveries *DeliveryLog
	logger     *zap.Logger

	mu sync.Mutex
}

// NewChecker constructs a Checker. The renderer, detector, structured
// source, publisher and archive are optional; everything else is
// required.
func NewChecker(
	cfg CheckerConfig,
	fetcher Fetcher,
	store StateStore,
	notifier Notifier,
	clock Clock,
	deliveries *DeliveryLog,
	logger *zap.Logger,
) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deliveries == nil {
		deliveries = NewDeliveryLog()
	}
	if cfg.ArchiveContentType == "" {
		cfg.ArchiveContentType = "text/html; charset=utf-8"
	}
	return &Checker{
		cfg:        cfg,
		fetcher:    fetcher,
		store:      store,
		notifier:   notifier,
		clock:      clock,
		deliveries: deliveries,
		logger:     logger,
	}
}

// WithProber attaches the alternate-source prober.
func (c *Checker) WithProber(p *Prober) *Checker {
	c.prober = p
	return c
}

// WithRenderer attaches a headless fetcher plus the detector that
// gates it.
func (c *Checker) WithRenderer(renderer Fetcher, detector RenderDetector) *Checker {
	c.renderer = renderer
	c.detector = detector
	return c
}

// WithStructuredSource attaches the preferred verdict source.
func (c *Checker) WithStructuredSource(src VerdictSource) *Checker {
	c.structured = src
	return c
}

// WithPublisher attaches a check-event publisher.
func (c *Checker) WithPublisher(p Publisher) *Checker {
	c.publisher = p
	return c
}

// WithArchive attaches a page snapshot archive.
func (c *Checker) WithArchive(b BlobStore) *Checker {
	c.archive = b
	return c
}

// Deliveries exposes the audit log of delivery attempts.
func (c *Checker) Deliveries() *DeliveryLog {
	return c.deliveries
}

// RunCheck executes one check cycle. A forced request that is not
// enabled by configuration is silently treated as a normal check.
// Overlapping invocations return ErrCheckInFlight.
func (c *Checker) RunCheck(ctx context.Context, forced bool) (CheckResult, error) {
	if !c.mu.TryLock() {
		metrics.ObserveCheck("coalesced")
		return CheckResult{}, ErrCheckInFlight
	}
	defer c.mu.Unlock()

	previous, err := c.store.Load(ctx)
	if err != nil {
		metrics.ObserveCheck("error")
		return CheckResult{}, fmt.Errorf("load state: %w", err)
	}

	snapshot, body, err := c.observe(ctx)
	if err != nil {
		metrics.ObserveCheck("error")
		return CheckResult{}, err
	}
	c.archiveBody(ctx, body)

	if snapshot.Verdict == VerdictBlocked && c.prober != nil {
		if alternate := c.prober.Probe(ctx, c.cfg.FormURL); alternate != nil {
			snapshot = *alternate
		}
	}

	now := c.clock.Now()
	decision, next := c.decide(snapshot, previous, forced)
	next.CheckedAt = now

	if err := c.store.Save(ctx, next); err != nil {
		metrics.ObserveCheck("error")
		return CheckResult{}, fmt.Errorf("save state: %w", err)
	}

	result := CheckResult{
		Accepting:  next.Accepting != nil && *next.Accepting,
		ReasonCode: snapshot.ReasonCode,
		CheckedAt:  now,
	}
	c.publishEvent(ctx, snapshot, decision, result)

	if !decision.Notify {
		metrics.ObserveCheck("no-op")
		c.logger.Info("check complete",
			zap.String("verdict", string(snapshot.Verdict)),
			zap.String("reason", snapshot.ReasonCode),
			zap.Bool("notified", false),
		)
		return result, nil
	}

	if err := c.deliver(ctx, decision); err != nil {
		metrics.ObserveCheck("delivery-failed")
		return result, err
	}
	result.Notified = true
	metrics.ObserveCheck("notified")
	metrics.ObserveNotification(string(decision.Kind))
	c.logger.Info("notification sent",
		zap.String("kind", string(decision.Kind)),
		zap.String("reason", snapshot.ReasonCode),
	)
	return result, nil
}

// RunTestNotification bypasses decision logic entirely and pushes a
// connectivity-test message through the notifier.
func (c *Checker) RunTestNotification(ctx context.Context) error {
	decision := Decision{
		Notify:  true,
		Kind:    KindForcedTest,
		Message: fmt.Sprintf("formwatch test notification for %s", c.cfg.FormURL),
	}
	return c.deliver(ctx, decision)
}

// observe acquires the current snapshot: the structured source wins
// when it has a signal, otherwise the page is fetched and classified,
// with a headless re-fetch when the static body looks script-rendered.
func (c *Checker) observe(ctx context.Context) (Snapshot, []byte, error) {
	if c.structured != nil {
		if snap := c.structured.Lookup(ctx); snap != nil {
			c.logger.Debug("structured source verdict",
				zap.String("verdict", string(snap.Verdict)),
				zap.String("reason", snap.ReasonCode),
			)
			return *snap, nil, nil
		}
	}

	res, err := c.fetcher.Fetch(ctx, c.cfg.FormURL)
	if err != nil {
		return Snapshot{}, nil, err
	}
	metrics.ObserveFetch(res.StatusCode, res.Duration)

	snapshot := Classify(c.cfg.FormURL, res.Body)
	if snapshot.Verdict != VerdictAmbiguous || c.renderer == nil || c.detector == nil {
		return snapshot, res.Body, nil
	}
	if !c.detector.ShouldRender(res.Body) {
		return snapshot, res.Body, nil
	}

	rendered, err := c.renderer.Fetch(ctx, c.cfg.FormURL)
	if err != nil {
		c.logger.Warn("headless render failed", zap.Error(err))
		return snapshot, res.Body, nil
	}
	metrics.ObserveFetch(rendered.StatusCode, rendered.Duration)
	return Classify("headless:"+c.cfg.FormURL, rendered.Body), rendered.Body, nil
}

// decide applies the transition rules in priority order and returns
// both the decision and the state to persist.
func (c *Checker) decide(snapshot Snapshot, previous State, forced bool) (Decision, State) {
	switch snapshot.Verdict {
	case VerdictClosed:
		return Decision{}, State{Accepting: boolPtr(false)}

	case VerdictBlocked:
		// An access wall correlates with restricted-but-active forms:
		// alert once, optimistically record accepting, suppress repeats.
		next := State{Accepting: boolPtr(true)}
		if previous.Accepting != nil && *previous.Accepting {
			return Decision{}, next
		}
		return Decision{
			Notify: true,
			Kind:   KindDegraded,
			Message: fmt.Sprintf(
				"%s may be accepting responses, but visibility could not be fully verified (%s)",
				c.cfg.FormURL, snapshot.ReasonCode,
			),
		}, next

	default:
		accepting := snapshot.Verdict == VerdictAccepting ||
			(ambiguousCountsAsAccepting && snapshot.Verdict == VerdictAmbiguous)
		changed := previous.Accepting != nil && accepting && !*previous.Accepting
		next := State{Accepting: boolPtr(accepting)}

		if changed {
			return Decision{
				Notify: true,
				Kind:   KindTransition,
				Message: fmt.Sprintf("%s is now accepting responses (%s)",
					c.cfg.FormURL, snapshot.ReasonCode),
			}, next
		}
		if forced && c.cfg.ForcedNotifyEnabled {
			return Decision{
				Notify: true,
				Kind:   KindForcedTest,
				Message: fmt.Sprintf("forced check notification for %s (%s)",
					c.cfg.FormURL, snapshot.ReasonCode),
			}, next
		}
		return Decision{}, next
	}
}

func (c *Checker) deliver(ctx context.Context, decision Decision) error {
	err := c.notifier.Deliver(ctx, decision.Message)
	now := c.clock.Now()
	if err != nil {
		c.deliveries.Append(now, false, err.Error())
		metrics.ObserveDeliveryFailure()
		c.logger.Error("delivery failed", zap.Error(err))
		return &DeliveryError{Err: err}
	}
	c.deliveries.Append(now, true, string(decision.Kind))
	return nil
}

func (c *Checker) archiveBody(ctx context.Context, body []byte) {
	if c.archive == nil || len(body) == 0 {
		return
	}
	path := fmt.Sprintf("%s/%d.html", c.cfg.ArchivePrefix, c.clock.Now().UnixNano())
	uri, err := c.archive.PutObject(ctx, path, c.cfg.ArchiveContentType, body)
	if err != nil {
		c.logger.Warn("archive snapshot failed", zap.Error(err))
		return
	}
	c.logger.Debug("snapshot archived", zap.String("uri", uri))
}

func (c *Checker) publishEvent(ctx context.Context, snapshot Snapshot, decision Decision, result CheckResult) {
	if c.publisher == nil || c.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"form_id":     c.cfg.FormID,
		"form_url":    c.cfg.FormURL,
		"verdict":     string(snapshot.Verdict),
		"reason_code": snapshot.ReasonCode,
		"accepting":   result.Accepting,
		"notify":      decision.Notify,
		"checked_at":  result.CheckedAt,
	}
	if _, err := c.publisher.Publish(ctx, c.cfg.Topic, payload); err != nil {
		c.logger.Warn("publish check event failed", zap.Error(err))
	}
}
