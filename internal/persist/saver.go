package persist

import (
	"log/slog"
	"sync"
	"time"
)

// Saver debounces writes of one key so rapid position updates collapse into
// a single store write. Flush must be called on shutdown to not lose the
// trailing value.
type Saver struct {
	store Store
	key   string
	delay time.Duration
	log   *slog.Logger

	mu      sync.Mutex
	pending string
	dirty   bool
	timer   *time.Timer
}

func NewSaver(store Store, key string, delay time.Duration, log *slog.Logger) *Saver {
	if delay <= 0 {
		delay = time.Second
	}
	return &Saver{store: store, key: key, delay: delay, log: log}
}

// Save schedules value for writing. Later calls before the timer fires
// replace the pending value; only the latest is written.
func (s *Saver) Save(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = value
	s.dirty = true
	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, s.fire)
	}
}

func (s *Saver) fire() {
	s.mu.Lock()
	value, dirty := s.pending, s.dirty
	s.dirty = false
	s.timer = nil
	s.mu.Unlock()

	if !dirty {
		return
	}
	if err := s.store.Set(s.key, value); err != nil {
		s.log.Warn("state save failed", "key", s.key, "error", err)
	}
}

// Flush writes any pending value immediately.
func (s *Saver) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	value, dirty := s.pending, s.dirty
	s.dirty = false
	s.mu.Unlock()

	if !dirty {
		return
	}
	if err := s.store.Set(s.key, value); err != nil {
		s.log.Warn("state flush failed", "key", s.key, "error", err)
	}
}

// Load reads the persisted value synchronously.
func (s *Saver) Load() (string, bool) {
	return s.store.Get(s.key)
}

// Clear removes the persisted value, used when state turns out corrupt.
func (s *Saver) Clear() {
	s.mu.Lock()
	s.dirty = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	if err := s.store.Remove(s.key); err != nil {
		s.log.Warn("state clear failed", "key", s.key, "error", err)
	}
}
