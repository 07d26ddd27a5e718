package alert

import (
	"testing"
	"time"
)

func TestObserveThreshold(t *testing.T) {
	d := NewDispatcher(DefaultConfig())
	now := time.Now()

	// Exactly at the threshold does not fire
	if a := d.Observe(80, now); a != nil {
		t.Error("score at threshold should not fire")
	}

	a := d.Observe(85, now)
	if a == nil {
		t.Fatal("score above threshold should fire")
	}
	if a.Score != 85 {
		t.Errorf("alert score: got %d, want 85", a.Score)
	}
	if a.ID == "" {
		t.Error("alert should carry an ID")
	}
}

func TestSingleAlertGate(t *testing.T) {
	d := NewDispatcher(DefaultConfig())
	now := time.Now()

	if d.Observe(90, now) == nil {
		t.Fatal("first crossing should fire")
	}

	// Still showing: higher score does not stack a second alert
	if a := d.Observe(99, now.Add(time.Second)); a != nil {
		t.Error("second crossing while showing should not fire")
	}
}

func TestAutoDismiss(t *testing.T) {
	d := NewDispatcher(DefaultConfig())
	now := time.Now()

	d.Observe(90, now)
	if d.Showing(now.Add(2*time.Second)) == nil {
		t.Error("alert should still show inside the display window")
	}
	if d.Showing(now.Add(3*time.Second)) != nil {
		t.Error("alert should dismiss at the display boundary")
	}

	// Expiry and a new crossing on the same tick fire
	if a := d.Observe(95, now.Add(3*time.Second)); a == nil {
		t.Error("crossing after dismissal should fire")
	}
}

func TestReset(t *testing.T) {
	d := NewDispatcher(DefaultConfig())
	now := time.Now()

	d.Observe(90, now)
	d.Reset()
	if d.Showing(now) != nil {
		t.Error("reset should clear the showing alert")
	}
	if d.Observe(90, now.Add(time.Millisecond)) == nil {
		t.Error("crossing after reset should fire")
	}
}

func TestCustomGate(t *testing.T) {
	d := NewDispatcher(Config{Threshold: 50, DisplayTime: time.Second})
	now := time.Now()

	if d.Observe(51, now) == nil {
		t.Error("custom threshold should fire at 51")
	}
	if d.Showing(now.Add(time.Second)) != nil {
		t.Error("custom display time should dismiss after 1s")
	}
}
