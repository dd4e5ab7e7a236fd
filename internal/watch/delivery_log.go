package watch

import (
	"sync"
	"time"
)

// deliveryLogCap bounds the audit log; oldest entries are dropped first.
const deliveryLogCap = 200

// DeliveryLog is a capped, concurrency-safe audit log of delivery
// attempts. Appends cannot fail, so logging can never mask the
// underlying delivery outcome.
type DeliveryLog struct {
	mu      sync.RWMutex
	entries []DeliveryEntry
	cap     int
}

// NewDeliveryLog creates a DeliveryLog with the default cap.
func NewDeliveryLog() *DeliveryLog {
	return &DeliveryLog{cap: deliveryLogCap}
}

// Append records one delivery attempt, evicting the oldest entry once
// the cap is reached.
func (l *DeliveryLog) Append(at time.Time, ok bool, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, DeliveryEntry{At: at, OK: ok, Detail: detail})
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
}

// Entries returns a copy of the recorded attempts, oldest first.
func (l *DeliveryLog) Entries() []DeliveryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]DeliveryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the current number of entries.
func (l *DeliveryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
