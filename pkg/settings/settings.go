// Package settings persists the daemon's user-adjustable configuration as
// one TOML document. Saves are debounced and coalesced: a burst of changes
// inside the window produces a single write of the final state, and write
// failures are logged, never returned, so a slow or broken disk cannot
// stall the governance path.
package settings

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/pelletier/go-toml"
)

const (
	DefaultDebounce = 500 * time.Millisecond

	filePermission = 0o644
)

type Store[T any] struct {
	path   string
	delay  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	pending *T
	timer   *time.Timer
}

func NewStore[T any](path string, delay time.Duration, logger *slog.Logger) *Store[T] {
	if delay <= 0 {
		delay = DefaultDebounce
	}

	return &Store[T]{
		path:   path,
		delay:  delay,
		logger: logger,
	}
}

// Load reads the settings file. A missing file is reported via os.IsNotExist
// so callers can fall back to defaults.
func (s *Store[T]) Load() (T, error) {
	var v T

	data, err := os.ReadFile(s.path)
	if err != nil {
		return v, err
	}

	tree, err := toml.LoadBytes(data)
	if err != nil {
		return v, fmt.Errorf("error parsing settings file: %w", err)
	}
	if err := tree.Unmarshal(&v); err != nil {
		return v, fmt.Errorf("error unmarshaling settings: %w", err)
	}

	return v, nil
}

// Save schedules v to be written after the debounce window. Later Saves
// within the window replace the pending value; only the final state hits
// the disk.
func (s *Store[T]) Save(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = &v
	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.write)

		return
	}
	s.timer.Reset(s.delay)
}

// Flush writes any pending state immediately.
func (s *Store[T]) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	v := s.pending
	s.pending = nil
	s.mu.Unlock()

	if v == nil {
		return nil
	}

	return s.writeValue(*v)
}

func (s *Store[T]) Path() string {
	return s.path
}

func (s *Store[T]) write() {
	s.mu.Lock()
	v := s.pending
	s.pending = nil
	s.mu.Unlock()

	if v == nil {
		return
	}
	if err := s.writeValue(*v); err != nil && s.logger != nil {
		s.logger.Warn("failed to persist settings", slog.String("path", s.path), slog.Any("error", err))
	}
}

func (s *Store[T]) writeValue(v T) error {
	data, err := toml.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}

	return os.WriteFile(s.path, data, filePermission)
}
