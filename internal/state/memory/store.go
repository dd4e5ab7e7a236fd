// Package memory provides an in-memory state store for development/testing.
package memory

import (
	"context"
	"sync"

	"github.com/formwatch/formwatch/internal/watch"
)

// Store keeps the persisted state in memory.
type Store struct {
	mu    sync.RWMutex
	state watch.State
	set   bool
}

// New constructs a Store.
func New() *Store {
	return &Store{}
}

// Load returns the stored state, or a zero state when nothing was
// saved yet.
func (s *Store) Load(_ context.Context) (watch.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return watch.State{}, nil
	}
	return s.state, nil
}

// Save overwrites the stored state.
func (s *Store) Save(_ context.Context, state watch.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.set = true
	return nil
}
