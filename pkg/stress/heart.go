package stress

import "math/rand"

// Heart-rate simulation bounds and rates.
const (
	bpmFloor   = 55.0
	bpmCeil    = 160.0
	bpmSwing   = 35.0 // target rise at full stress
	riseRate   = 0.15 // approach speed when stress pushes BPM up
	settleRate = 0.08 // approach speed otherwise
	jitterCalm = 1.2
	jitterHigh = 3.5
)

// Heart evolves a displayed BPM toward a stress-dependent target. It is a
// deliberate simulation standing in for real photoplethysmography: the
// adrenaline response is modeled as an asymmetric exponential approach with
// stress-scaled noise. Owned by the session goroutine; not safe for
// concurrent use.
type Heart struct {
	baseline float64
	bpm      float64
	set      bool
}

// NewHeart creates an unset model. Steps before SetBaseline are no-ops.
func NewHeart() *Heart {
	return &Heart{}
}

// SetBaseline anchors the model at the calibrated resting BPM.
func (h *Heart) SetBaseline(bpm float64) {
	h.baseline = bpm
	h.bpm = bpm
	h.set = true
}

// Current returns the displayed BPM, or 0 before calibration.
func (h *Heart) Current() float64 {
	if !h.set {
		return 0
	}
	return h.bpm
}

// Delta returns the absolute deviation from baseline, or 0 before
// calibration.
func (h *Heart) Delta() float64 {
	if !h.set {
		return 0
	}
	d := h.bpm - h.baseline
	if d < 0 {
		d = -d
	}
	return d
}

// Step advances the simulation one tick given the latest stress score.
func (h *Heart) Step(stressScore int) float64 {
	if !h.set {
		return 0
	}

	target := h.baseline + float64(stressScore)/100*bpmSwing

	rate := settleRate
	if stressScore > 50 && target > h.bpm {
		rate = riseRate
	}
	h.bpm += (target - h.bpm) * rate

	amp := jitterCalm
	if stressScore > 60 {
		amp = jitterHigh
	}
	h.bpm += (rand.Float64()*2 - 1) * amp

	if h.bpm < bpmFloor {
		h.bpm = bpmFloor
	}
	if h.bpm > bpmCeil {
		h.bpm = bpmCeil
	}
	return h.bpm
}
