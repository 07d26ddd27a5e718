// Package calibrate runs the fixed-duration baseline-collection phase of a
// session and derives the immutable Baseline record used to normalize all
// later deviation rules.
package calibrate

import (
	"math"
	"math/rand"
	"time"

	"github.com/candormetrics/go-candor/pkg/emotion"
)

// State is the calibration phase.
type State string

const (
	StateIdle        State = "idle"
	StateCalibrating State = "calibrating"
	StateCalibrated  State = "calibrated"
)

// Fallback values used when calibration could not measure a signal.
const (
	defaultBlinkRate = 15
	defaultBpmLow    = 68
	defaultBpmHigh   = 82
)

// Config holds calibration timing.
type Config struct {
	// Duration is the wall-clock length of the calibration run.
	Duration time.Duration
}

// DefaultConfig returns the canonical 30-second calibration.
func DefaultConfig() Config {
	return Config{Duration: 30 * time.Second}
}

// Baseline is the personalized resting-state reference. Immutable once
// Calibrated is true.
type Baseline struct {
	Bpm                    float64       `json:"bpm"`
	BlinkRatePerMinute     float64       `json:"blink_rate_per_minute"`
	GazeStability          float64       `json:"gaze_stability"`
	DominantEmotion        emotion.Label `json:"dominant_emotion"`
	HandTouchBaselineCount int           `json:"hand_touch_baseline_count"`
	Calibrated             bool          `json:"calibrated"`
}

// Controller orchestrates one calibration run. It is owned by the session
// goroutine and is not safe for concurrent use.
type Controller struct {
	cfg   Config
	state State

	progress       int
	accumulator    emotion.Vector
	gazeSamples    []float64
	startHandTouch int

	baseline Baseline
}

// NewController creates an idle controller.
func NewController(cfg Config) *Controller {
	return &Controller{
		cfg:         cfg,
		state:       StateIdle,
		accumulator: emotion.ZeroVector(),
	}
}

// State returns the current phase.
func (c *Controller) State() State {
	return c.state
}

// Progress returns calibration progress in percent.
func (c *Controller) Progress() int {
	return c.progress
}

// Baseline returns the derived baseline. Only meaningful once calibrated.
func (c *Controller) Baseline() Baseline {
	return c.baseline
}

// TickInterval is the cadence at which Tick must be called so that 100
// ticks span the configured duration.
func (c *Controller) TickInterval() time.Duration {
	return c.cfg.Duration / 100
}

// Start enters the calibrating state, resetting all accumulated data. The
// caller supplies the hand-touch total at entry so completion can take the
// delta across the window.
func (c *Controller) Start(handTouchTotal int) {
	c.state = StateCalibrating
	c.progress = 0
	c.accumulator = emotion.ZeroVector()
	c.gazeSamples = c.gazeSamples[:0]
	c.startHandTouch = handTouchTotal
	c.baseline = Baseline{}
}

// Tick advances progress by one percent. It reports true when the run is
// complete and Complete should be called.
func (c *Controller) Tick() bool {
	if c.state != StateCalibrating {
		return false
	}
	if c.progress < 100 {
		c.progress++
	}
	return c.progress >= 100
}

// AddEmotion folds one classifier result into the accumulator. Raw
// percentage sums are kept across ticks, not averaged.
func (c *Controller) AddEmotion(v emotion.Vector) {
	if c.state != StateCalibrating {
		return
	}
	c.accumulator.Add(v)
}

// AddGaze records one gaze-shift sample for the stability estimate.
func (c *Controller) AddGaze(g float64) {
	if c.state != StateCalibrating {
		return
	}
	if g != 0 {
		c.gazeSamples = append(c.gazeSamples, g)
	}
}

// Complete derives the baseline from everything collected and transitions
// to calibrated. blinkRate is the latest sliding-window rate and
// handTouchTotal the monotonic counter at completion time. bpm may be nil
// when no heart-rate source exists; a jittered resting default stands in
// as a placeholder, not measured physiology. Completion never fails: missing
// signals fall back to defaults so the session always leaves the
// calibrating state.
func (c *Controller) Complete(blinkRate, handTouchTotal int, bpm *float64) Baseline {
	b := Baseline{
		BlinkRatePerMinute:     float64(blinkRate),
		GazeStability:          stddev(c.gazeSamples),
		DominantEmotion:        c.accumulator.Dominant(),
		HandTouchBaselineCount: handTouchTotal - c.startHandTouch,
		Calibrated:             true,
	}
	if b.BlinkRatePerMinute == 0 {
		b.BlinkRatePerMinute = defaultBlinkRate
	}
	if b.HandTouchBaselineCount < 0 {
		b.HandTouchBaselineCount = 0
	}
	if bpm != nil {
		b.Bpm = *bpm
	} else {
		b.Bpm = defaultBpmLow + rand.Float64()*(defaultBpmHigh-defaultBpmLow)
	}

	c.baseline = b
	c.state = StateCalibrated
	c.progress = 100
	return b
}

// Reset returns the controller to idle, discarding any baseline.
func (c *Controller) Reset() {
	c.state = StateIdle
	c.progress = 0
	c.accumulator = emotion.ZeroVector()
	c.gazeSamples = c.gazeSamples[:0]
	c.baseline = Baseline{}
}

func stddev(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))
	var sq float64
	for _, s := range samples {
		d := s - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(samples)))
}
