package emotion

import "sync"

// Mailbox is a single-slot, last-write-wins holder for classifier results.
// The frame loop never waits on classification: a finished classification
// overwrites whatever was there, and readers always see the most recent
// vector. The zero value is ready to use.
type Mailbox struct {
	mu     sync.Mutex
	latest Vector
	fresh  bool
}

// Put stores a new result, replacing any previous one.
func (m *Mailbox) Put(v Vector) {
	m.mu.Lock()
	m.latest = v.Clone()
	m.fresh = true
	m.mu.Unlock()
}

// TakeNew returns the latest vector only if a Put happened since the last
// TakeNew. Used by calibration, which accumulates each classification
// exactly once.
func (m *Mailbox) TakeNew() (Vector, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.fresh {
		return nil, false
	}
	m.fresh = false
	return m.latest.Clone(), true
}

// Latest returns the most recent vector, or the zero vector when nothing
// has been classified yet.
func (m *Mailbox) Latest() Vector {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return ZeroVector()
	}
	return m.latest.Clone()
}
