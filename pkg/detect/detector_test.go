package detect

import (
	"testing"
	"time"

	"github.com/candormetrics/go-candor/pkg/geometry"
)

func metricsAt(blinking, hand bool) geometry.Metrics {
	return geometry.Metrics{
		FaceDetected: true,
		Blinking:     blinking,
		HandOnFace:   hand,
	}
}

func TestBlinkDebounce(t *testing.T) {
	d := New(DefaultConfig())
	t0 := time.Now()

	// Rising edge counts
	d.Observe(metricsAt(true, false), t0)
	if d.blinkTotal != 1 {
		t.Fatalf("first edge: got %d blinks, want 1", d.blinkTotal)
	}

	// Flutter inside the cooldown: falls, rises again at +100ms
	d.Observe(metricsAt(false, false), t0.Add(50*time.Millisecond))
	d.Observe(metricsAt(true, false), t0.Add(100*time.Millisecond))
	if d.blinkTotal != 1 {
		t.Errorf("edge inside cooldown: got %d blinks, want 1", d.blinkTotal)
	}

	// Edge after the cooldown counts
	d.Observe(metricsAt(false, false), t0.Add(200*time.Millisecond))
	d.Observe(metricsAt(true, false), t0.Add(500*time.Millisecond))
	if d.blinkTotal != 2 {
		t.Errorf("edge after cooldown: got %d blinks, want 2", d.blinkTotal)
	}
}

func TestBlinkSustainedClosureCountsOnce(t *testing.T) {
	d := New(DefaultConfig())
	t0 := time.Now()

	// Eyes stay closed across many frames
	for i := 0; i < 20; i++ {
		d.Observe(metricsAt(true, false), t0.Add(time.Duration(i)*100*time.Millisecond))
	}
	if d.blinkTotal != 1 {
		t.Errorf("sustained closure: got %d blinks, want 1", d.blinkTotal)
	}
}

func TestBlinkWindowPrune(t *testing.T) {
	d := New(DefaultConfig())
	t0 := time.Now()

	// Three blinks spaced one second apart
	for i := 0; i < 3; i++ {
		at := t0.Add(time.Duration(i) * time.Second)
		d.Observe(metricsAt(true, false), at)
		d.Observe(metricsAt(false, false), at.Add(400*time.Millisecond))
	}
	if got := d.BlinkRate(); got != 3 {
		t.Fatalf("window rate: got %d, want 3", got)
	}

	// 61 seconds later the first two have aged out, the third sits
	// exactly at the cutoff and is dropped too
	d.Observe(metricsAt(false, false), t0.Add(62*time.Second))
	if got := d.BlinkRate(); got != 0 {
		t.Errorf("after prune: got %d, want 0", got)
	}

	// The monotonic total is untouched by pruning
	if d.blinkTotal != 3 {
		t.Errorf("total after prune: got %d, want 3", d.blinkTotal)
	}
}

func TestHandTouchDebounce(t *testing.T) {
	d := New(DefaultConfig())
	t0 := time.Now()

	d.Observe(metricsAt(false, true), t0)
	if d.HandTouchTotal() != 1 {
		t.Fatalf("first touch: got %d, want 1", d.HandTouchTotal())
	}

	// Release and re-touch inside the two-second cooldown
	d.Observe(metricsAt(false, false), t0.Add(500*time.Millisecond))
	d.Observe(metricsAt(false, true), t0.Add(time.Second))
	if d.HandTouchTotal() != 1 {
		t.Errorf("re-touch inside cooldown: got %d, want 1", d.HandTouchTotal())
	}

	// Re-touch after the cooldown
	d.Observe(metricsAt(false, false), t0.Add(2*time.Second))
	d.Observe(metricsAt(false, true), t0.Add(3*time.Second))
	if d.HandTouchTotal() != 2 {
		t.Errorf("re-touch after cooldown: got %d, want 2", d.HandTouchTotal())
	}
}

func TestCycleBlinkCountResets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CycleLength = 10 * time.Second
	d := New(cfg)
	t0 := time.Now()

	d.Observe(metricsAt(true, false), t0)
	d.Observe(metricsAt(false, false), t0.Add(time.Second))
	d.Observe(metricsAt(true, false), t0.Add(2*time.Second))
	if d.cycleBlinkCount != 2 {
		t.Fatalf("cycle count: got %d, want 2", d.cycleBlinkCount)
	}

	// Past the cycle boundary the per-cycle counter resets
	d.Observe(metricsAt(false, false), t0.Add(11*time.Second))
	if d.cycleBlinkCount != 0 {
		t.Errorf("cycle count after roll: got %d, want 0", d.cycleBlinkCount)
	}
	if d.blinkTotal != 2 {
		t.Errorf("total after roll: got %d, want 2", d.blinkTotal)
	}
}

func TestSnapshotCadence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmitEvery = 5
	d := New(cfg)
	t0 := time.Now()

	emitted := 0
	for i := 0; i < 20; i++ {
		if snap := d.Observe(metricsAt(false, false), t0.Add(time.Duration(i)*33*time.Millisecond)); snap != nil {
			emitted++
			if snap.FrameCount%5 != 0 {
				t.Errorf("snapshot at frame %d, want multiple of 5", snap.FrameCount)
			}
		}
	}
	if emitted != 4 {
		t.Errorf("emitted %d snapshots over 20 frames, want 4", emitted)
	}
}

func TestNoFaceFramesLeaveEdgeStateAlone(t *testing.T) {
	d := New(DefaultConfig())
	t0 := time.Now()

	d.Observe(metricsAt(true, false), t0)
	if d.blinkTotal != 1 {
		t.Fatal("setup blink failed")
	}

	// A dropout frame must not register a false->true edge on recovery
	// while the eyes are still closed
	d.Observe(geometry.Metrics{}, t0.Add(400*time.Millisecond))
	d.Observe(metricsAt(true, false), t0.Add(800*time.Millisecond))
	if d.blinkTotal != 1 {
		t.Errorf("blink across dropout: got %d, want 1", d.blinkTotal)
	}
}

func TestShouldPoll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmitEvery = 3
	d := New(cfg)
	t0 := time.Now()

	want := []bool{false, false, true, false, false, true}
	for i, expect := range want {
		d.Observe(metricsAt(false, false), t0.Add(time.Duration(i)*time.Millisecond))
		if got := d.ShouldPoll(); got != expect {
			t.Errorf("frame %d: ShouldPoll got %v, want %v", i+1, got, expect)
		}
	}
}
