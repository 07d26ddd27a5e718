// Package alert raises the rare, loud high-stress notification. Unlike
// tells, alerts are not deduplicated by type: the only gate is that at
// most one is showing at a time, and each auto-dismisses after a fixed
// window.
package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults for the dispatch gate.
const (
	DefaultThreshold   = 80
	DefaultDisplayTime = 3 * time.Second
)

// Alert is one transient high-stress notification.
type Alert struct {
	ID        string    `json:"id"`
	Score     int       `json:"score"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Config holds dispatcher settings.
type Config struct {
	// Threshold is the stress score above which an alert fires.
	Threshold int

	// DisplayTime is how long an alert shows before auto-dismissing.
	DisplayTime time.Duration
}

// DefaultConfig returns the canonical gate values.
func DefaultConfig() Config {
	return Config{
		Threshold:   DefaultThreshold,
		DisplayTime: DefaultDisplayTime,
	}
}

// Dispatcher owns the single-alert gate for one session.
type Dispatcher struct {
	cfg Config

	mu      sync.Mutex
	current *Alert
	shownAt time.Time
}

// NewDispatcher creates a dispatcher with the given gate.
func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{cfg: cfg}
}

// Observe evaluates one stress score at the given instant. It returns a
// new alert when the score crosses the threshold and nothing is currently
// showing, else nil. Expiry of the current alert is evaluated first, so a
// crossing on the same tick an old alert expires can fire.
func (d *Dispatcher) Observe(score int, now time.Time) *Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil && now.Sub(d.shownAt) >= d.cfg.DisplayTime {
		d.current = nil
	}
	if d.current != nil || score <= d.cfg.Threshold {
		return nil
	}

	a := &Alert{
		ID:        uuid.NewString(),
		Score:     score,
		Message:   "High stress detected",
		CreatedAt: now,
	}
	d.current = a
	d.shownAt = now
	return a
}

// Showing returns the currently displayed alert, or nil.
func (d *Dispatcher) Showing(now time.Time) *Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil && now.Sub(d.shownAt) >= d.cfg.DisplayTime {
		d.current = nil
	}
	return d.current
}

// Reset clears any showing alert.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = nil
}
