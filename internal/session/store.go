package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"appforge/internal/config"
	"appforge/internal/logging"
)

// Store keys session state by ID and evicts sessions idle longer than
// the configured TTL. A zero TTL disables eviction.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*State
	cfg      config.SessionConfig

	stop chan struct{}
	once sync.Once
}

// NewStore creates a store and starts the idle-eviction sweep when a TTL
// is configured.
func NewStore(cfg config.SessionConfig) *Store {
	s := &Store{
		sessions: make(map[string]*State),
		cfg:      cfg,
		stop:     make(chan struct{}),
	}
	if cfg.TTL > 0 {
		go s.sweep()
	}
	return s
}

// GetOrCreate returns the session for id, creating it if missing. An
// empty id creates a fresh session with a generated ID.
func (s *Store) GetOrCreate(id string) *State {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.sessions[id]; ok {
		return state
	}
	state := NewState(id, s.cfg)
	s.sessions[id] = state
	logging.Debug("session created", "session", id)
	return state
}

// Get returns the session for id, or nil.
func (s *Store) Get(id string) *State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the eviction sweep.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) sweep() {
	interval := s.cfg.TTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *Store) evictIdle() {
	cutoff := time.Now().Add(-s.cfg.TTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, state := range s.sessions {
		if state.LastActivity().Before(cutoff) {
			delete(s.sessions, id)
			logging.Debug("session evicted after idle TTL", "session", id)
		}
	}
}
