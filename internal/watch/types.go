// Package watch defines the core types shared across the form watcher.
package watch

import (
	"fmt"
	"time"
)

// Verdict classifies one fetched representation of the watched form.
type Verdict string

// Verdict values produced by the classifier.
const (
	VerdictAccepting Verdict = "accepting"
	VerdictClosed    Verdict = "closed"
	VerdictBlocked   Verdict = "blocked"
	VerdictAmbiguous Verdict = "ambiguous"
)

// Snapshot is the outcome of inspecting one fetched representation.
// It is produced fresh on every fetch attempt and never mutated.
type Snapshot struct {
	Verdict    Verdict `json:"verdict"`
	ReasonCode string  `json:"reason_code"`
	Source     string  `json:"source"`
}

// State is the persisted classification for the watched form.
// A nil Accepting means the form was never successfully classified.
type State struct {
	Accepting *bool     `json:"accepting"`
	CheckedAt time.Time `json:"checked_at"`
}

// NotificationKind labels why a notification fired.
type NotificationKind string

// Notification kinds carried on a Decision.
const (
	KindTransition NotificationKind = "transition"
	KindDegraded   NotificationKind = "degraded-status"
	KindForcedTest NotificationKind = "forced-test"
)

// Decision is the per-check outcome of the transition rules. It is
// derived from the current snapshot plus the previous state and is
// never persisted itself.
type Decision struct {
	Notify  bool
	Kind    NotificationKind
	Message string
}

// CheckResult is returned to the caller of a check invocation.
type CheckResult struct {
	Notified   bool      `json:"notified"`
	Accepting  bool      `json:"accepting"`
	ReasonCode string    `json:"reason_code"`
	CheckedAt  time.Time `json:"checked_at"`
}

// DeliveryEntry is one append-only audit record for a delivery attempt.
type DeliveryEntry struct {
	At     time.Time `json:"at"`
	OK     bool      `json:"ok"`
	Detail string    `json:"detail"`
}

// FetchResult is the raw outcome returned by a Fetcher implementation.
type FetchResult struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// FetchError reports a failed fetch of the primary form page. A check
// that hits one aborts without mutating persisted state.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DeliveryError reports a failed webhook delivery. By the time it can
// occur the new state has already been persisted, so a repeated check
// will not re-attempt the same notification.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver notification: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func boolPtr(b bool) *bool { return &b }
