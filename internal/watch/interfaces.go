package watch

import (
	"context"
	"time"
)

// Fetcher retrieves one representation of the watched form.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// VerdictSource supplies a verdict without textual heuristics, e.g. a
// structured responder API. A nil snapshot means "no usable signal";
// implementations swallow their own failures.
type VerdictSource interface {
	Lookup(ctx context.Context) *Snapshot
}

// StateStore persists the last known classification for the one
// watched form. Load returns a zero State when no record exists.
type StateStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// Notifier delivers one outbound message.
type Notifier interface {
	Deliver(ctx context.Context, message string) error
}

// Publisher pushes check-completed events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore archives raw page bodies and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
