package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/candormetrics/go-candor/internal/log"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session: not found")

// Manager owns the id → Session mapping. Sessions share nothing: each one
// carries fully independent pipeline state.
type Manager struct {
	cfg      Config
	opts     []Option
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions use cfg and opts.
func NewManager(cfg Config, opts ...Option) *Manager {
	return &Manager{
		cfg:      cfg,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Start creates and registers a new session.
func (m *Manager) Start(opts ...Option) *Session {
	id := uuid.NewString()
	all := append(append([]Option{}, m.opts...), opts...)
	s := New(id, m.cfg, all...)

	m.mu.Lock()
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	log.Info("session started", "session", id, "active", count)
	return s
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// End closes and removes a session. All of its timers stop and its state
// is discarded; nothing leaks into later sessions.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.Close()
	log.Info("session ended", "session", id, "active", count)
	return nil
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll ends every session. Used at server shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
