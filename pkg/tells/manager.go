// Package tells manages the decaying list of behavioral indicators shown to
// the user, and the truth-meter position derived from it. Tells are
// deduplicated by type: while a tell of a given type is alive, re-firing
// that type is rejected rather than refreshing its ttl.
package tells

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the lifetime of a tell in seconds.
const DefaultTTL = 10

// Truth-meter geometry: a base offset plus a fixed step per active tell,
// capped at the deception end of the scale.
const (
	meterBase = 30.0
	meterSpan = 70.0
	meterMax  = 100.0
	meterFull = 3.0 // tells needed to peg the meter
)

// Tell is one transient textual indicator.
type Tell struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	TTL       int       `json:"ttl"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager owns the live tell set for one session. Reads may come from
// request handlers, so access is guarded.
type Manager struct {
	mu   sync.RWMutex
	live map[string]Tell // keyed by type
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{live: make(map[string]Tell)}
}

// Add creates a tell unless one of the same type is still alive. It
// returns the created tell and true, or the zero Tell and false when
// rejected.
func (m *Manager) Add(message, tellType string) (Tell, bool) {
	return m.AddWithTTL(message, tellType, DefaultTTL)
}

// AddWithTTL is Add with an explicit lifetime.
func (m *Manager) AddWithTTL(message, tellType string, ttl int) (Tell, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, alive := m.live[tellType]; alive {
		return Tell{}, false
	}
	t := Tell{
		ID:        uuid.NewString(),
		Message:   message,
		Type:      tellType,
		TTL:       ttl,
		CreatedAt: time.Now(),
	}
	m.live[tellType] = t
	return t, true
}

// Decay ages every live tell by one second and drops the expired ones.
// Called by the session's one-second tick.
func (m *Manager) Decay() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for typ, t := range m.live {
		t.TTL--
		if t.TTL <= 0 {
			delete(m.live, typ)
		} else {
			m.live[typ] = t
		}
	}
}

// Active returns the live tells ordered by creation time.
func (m *Manager) Active() []Tell {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Tell, 0, len(m.live))
	for _, t := range m.live {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of live tells.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

// Reset drops every live tell. Used on calibration entry and session end.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = make(map[string]Tell)
}

// TruthMeter returns the derived meter position for the current tell
// count: each active tell pushes the needle further toward the deception
// end.
func (m *Manager) TruthMeter() float64 {
	return MeterPosition(m.Count())
}

// MeterPosition computes the truth-meter position for a tell count.
func MeterPosition(count int) float64 {
	pos := meterBase + float64(count)*(meterSpan/meterFull)
	if pos > meterMax {
		return meterMax
	}
	return pos
}
