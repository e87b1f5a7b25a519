package sequencer

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the per-run context shared by all slides. It replaces ambient
// browser storage: a slide that produces a value (a quiz answer) stores it
// here and a later slide reads it back.
type Session struct {
	id      string
	started time.Time

	mu     sync.RWMutex
	values map[string]string
}

func NewSession() *Session {
	return &Session{
		id:      uuid.NewString(),
		started: time.Now(),
		values:  make(map[string]string),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Started() time.Time { return s.started }

func (s *Session) Set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

func (s *Session) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// GetOr returns the stored value or fallback when the key was never written.
func (s *Session) GetOr(key, fallback string) string {
	if v, ok := s.Get(key); ok && v != "" {
		return v
	}
	return fallback
}
