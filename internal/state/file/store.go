// Package file implements a JSON-file state store.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/formwatch/formwatch/internal/watch"
)

// Store persists the watcher state as a single JSON file. Writes go
// through a temp file plus rename so a reader never observes a partial
// record.
type Store struct {
	path string
}

// New creates a Store rooted at the given path.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("state path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Load reads the state file. A missing file is not an error: it means
// the form was never classified.
func (s *Store) Load(_ context.Context) (watch.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return watch.State{}, nil
		}
		return watch.State{}, fmt.Errorf("read state file: %w", err)
	}
	var state watch.State
	if err := json.Unmarshal(data, &state); err != nil {
		return watch.State{}, fmt.Errorf("decode state file: %w", err)
	}
	return state, nil
}

// Save atomically replaces the state file.
func (s *Store) Save(_ context.Context, state watch.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".formwatch-state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
