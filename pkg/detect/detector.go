// Package detect turns continuous per-frame geometric signals into discrete
// counted events and rates: debounced blink and hand-touch edges, a sliding
// one-minute blink window, and a fixed-cadence aggregated snapshot.
package detect

import (
	"time"

	"github.com/candormetrics/go-candor/pkg/geometry"
)

// Config holds the event-detection timing parameters.
type Config struct {
	// BlinkCooldown gates how soon after one blink edge another may fire.
	BlinkCooldown time.Duration

	// HandTouchCooldown gates hand-to-face contact edges.
	HandTouchCooldown time.Duration

	// Window is the trailing interval over which the blink rate is counted.
	Window time.Duration

	// CycleLength is the wall-clock length of one counting cycle; the
	// per-cycle blink counter resets when a cycle elapses.
	CycleLength time.Duration

	// EmitEvery is the frame cadence of snapshot emission. At a 30 fps
	// source the default of 30 emits roughly once per second.
	EmitEvery int
}

// DefaultConfig returns the canonical detection timings.
func DefaultConfig() Config {
	return Config{
		BlinkCooldown:     300 * time.Millisecond,
		HandTouchCooldown: 2 * time.Second,
		Window:            time.Minute,
		CycleLength:       time.Minute,
		EmitEvery:         30,
	}
}

// Snapshot is the aggregated metrics record emitted once per cadence.
// Every field is always present; zero means "nothing yet".
type Snapshot struct {
	// BlinkRate is the count of blinks inside the trailing window. With a
	// one-minute window it is already a per-minute rate.
	BlinkRate int `json:"blink_rate"`

	// CycleBlinkCount counts blinks in the current wall-clock cycle. This
	// is deliberately a separate metric from BlinkRate.
	CycleBlinkCount int `json:"cycle_blink_count"`

	// BlinkTotal and HandTouchTotal are monotonic session counters.
	BlinkTotal     int `json:"blink_total"`
	HandTouchTotal int `json:"hand_touch_total"`

	HandOnFace    bool    `json:"hand_on_face"`
	LipCompressed bool    `json:"lip_compressed"`
	GazeShift     float64 `json:"gaze_shift"`
	FaceDetected  bool    `json:"face_detected"`

	// FrameCount is the number of frames observed so far this session.
	FrameCount int `json:"frame_count"`
}

// Detector holds the only per-frame mutable state of a session. It is not
// safe for concurrent use; the session goroutine is its sole owner.
type Detector struct {
	cfg Config

	blinkingPrev  bool
	touchingPrev  bool
	lastBlink     time.Time
	lastHandTouch time.Time

	blinkTimes []time.Time

	blinkTotal     int
	handTouchTotal int

	cycleStart      time.Time
	cycleBlinkCount int

	frameCount int
}

// New creates a Detector.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Observe processes one frame's metrics. It returns a snapshot on every
// EmitEvery-th frame and nil otherwise. Frames without a detected face
// advance the frame counter and prune the window but leave edge-detection
// state untouched.
func (d *Detector) Observe(m geometry.Metrics, now time.Time) *Snapshot {
	d.frameCount++
	d.pruneWindow(now)
	d.rollCycle(now)

	if m.FaceDetected {
		d.observeBlink(m.Blinking, now)
		d.observeHandTouch(m.HandOnFace, now)
	}

	if d.frameCount%d.cfg.EmitEvery != 0 {
		return nil
	}
	return &Snapshot{
		BlinkRate:       len(d.blinkTimes),
		CycleBlinkCount: d.cycleBlinkCount,
		BlinkTotal:      d.blinkTotal,
		HandTouchTotal:  d.handTouchTotal,
		HandOnFace:      m.HandOnFace,
		LipCompressed:   m.LipCompressed,
		GazeShift:       m.GazeShift,
		FaceDetected:    m.FaceDetected,
		FrameCount:      d.frameCount,
	}
}

// BlinkRate returns the current sliding-window blink count without
// advancing any state. Used by calibration completion.
func (d *Detector) BlinkRate() int {
	return len(d.blinkTimes)
}

// HandTouchTotal returns the monotonic hand-touch counter.
func (d *Detector) HandTouchTotal() int {
	return d.handTouchTotal
}

// ShouldPoll reports whether this frame is on the classifier polling
// cadence. Polling shares the emission cadence.
func (d *Detector) ShouldPoll() bool {
	return d.frameCount%d.cfg.EmitEvery == 0
}

func (d *Detector) observeBlink(blinking bool, now time.Time) {
	if blinking && !d.blinkingPrev {
		if now.Sub(d.lastBlink) > d.cfg.BlinkCooldown {
			d.blinkTotal++
			d.cycleBlinkCount++
			d.blinkTimes = append(d.blinkTimes, now)
			d.lastBlink = now
		}
	}
	d.blinkingPrev = blinking
}

func (d *Detector) observeHandTouch(touching bool, now time.Time) {
	if touching && !d.touchingPrev {
		if now.Sub(d.lastHandTouch) > d.cfg.HandTouchCooldown {
			d.handTouchTotal++
			d.lastHandTouch = now
		}
	}
	d.touchingPrev = touching
}

func (d *Detector) pruneWindow(now time.Time) {
	cutoff := now.Add(-d.cfg.Window)
	i := 0
	for i < len(d.blinkTimes) && !d.blinkTimes[i].After(cutoff) {
		i++
	}
	if i > 0 {
		d.blinkTimes = append(d.blinkTimes[:0], d.blinkTimes[i:]...)
	}
}

func (d *Detector) rollCycle(now time.Time) {
	if d.cycleStart.IsZero() {
		d.cycleStart = now
		return
	}
	if now.Sub(d.cycleStart) > d.cfg.CycleLength {
		d.cycleStart = now
		d.cycleBlinkCount = 0
	}
}
