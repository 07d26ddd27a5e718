// Package stress fuses the current behavioral metrics with the calibrated
// baseline into a bounded 0-100 stress score and a three-level
// classification. Scoring is a stateless additive rule set, recomputed
// fresh every cycle; the only inertia in the system comes through the
// smoothed heart-rate channel.
package stress

import (
	"fmt"

	"github.com/candormetrics/go-candor/pkg/calibrate"
	"github.com/candormetrics/go-candor/pkg/emotion"
)

// Level is the categorical stress classification.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Color returns the UI color conventionally attached to the level.
func (l Level) Color() string {
	switch l {
	case LevelHigh:
		return "red"
	case LevelMedium:
		return "yellow"
	default:
		return "green"
	}
}

// Level classification thresholds.
const (
	mediumThreshold = 35
	highThreshold   = 65
)

// Rule weights and trigger conditions. These are fixed: downstream
// consumers depend on score parity across deployments.
const (
	blinkHighFloor      = 30.0 // minimum rate to count as elevated
	blinkHighFactor     = 1.4  // times baseline
	blinkHighPoints     = 20
	blinkLowCeil        = 6.0 // staring threshold
	blinkLowFactor      = 0.5 // times baseline
	blinkLowPoints      = 15
	fearThreshold       = 18.0
	fearPoints          = 35
	angryThreshold      = 15.0
	angryPoints         = 20
	disgustThreshold    = 10.0
	disgustPoints       = 20
	sadThreshold        = 15.0
	sadPoints           = 10
	bpmDeltaMajor       = 15.0
	bpmDeltaMajorPoints = 25
	bpmDeltaMinor       = 8.0
	bpmDeltaMinorPoints = 10
	handPoints          = 15
	lipPoints           = 15
	gazeThreshold       = 0.15
	gazePoints          = 10
)

// Input carries the live metrics a scoring cycle consumes.
type Input struct {
	BlinkRate     int
	Emotion       emotion.Vector
	HandOnFace    bool
	LipCompressed bool
	GazeShift     float64
	BpmDelta      float64 // absolute deviation from baseline BPM
}

// Trigger records one rule that fired during scoring. Triggers feed the
// tell pipeline, keyed by Type for deduplication.
type Trigger struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Result is one scoring outcome.
type Result struct {
	Score    int       `json:"score"`
	Level    Level     `json:"level"`
	Triggers []Trigger `json:"triggers,omitempty"`
}

// Score applies the weighted rule set and clamps the sum to [0,100].
func Score(in Input, baseline calibrate.Baseline) Result {
	total := 0
	var triggers []Trigger
	fire := func(points int, typ, msg string) {
		total += points
		triggers = append(triggers, Trigger{Type: typ, Message: msg})
	}
	rate := float64(in.BlinkRate)

	high := blinkHighFloor
	if scaled := baseline.BlinkRatePerMinute * blinkHighFactor; scaled > high {
		high = scaled
	}
	if rate > high {
		fire(blinkHighPoints, "blink", fmt.Sprintf("Increased blinking (%d/min vs baseline %.0f/min)", in.BlinkRate, baseline.BlinkRatePerMinute))
	} else if rate < blinkLowCeil && rate < baseline.BlinkRatePerMinute*blinkLowFactor {
		fire(blinkLowPoints, "blink", fmt.Sprintf("Decreased blinking (%d/min vs baseline %.0f/min)", in.BlinkRate, baseline.BlinkRatePerMinute))
	}

	if in.Emotion != nil {
		if in.Emotion[emotion.Fear] > fearThreshold {
			fire(fearPoints, "emotion", fmt.Sprintf("Fear response (%.0f%%)", in.Emotion[emotion.Fear]))
		}
		if in.Emotion[emotion.Angry] > angryThreshold {
			fire(angryPoints, "anger", fmt.Sprintf("Anger detected (%.0f%%)", in.Emotion[emotion.Angry]))
		}
		if in.Emotion[emotion.Disgust] > disgustThreshold {
			fire(disgustPoints, "disgust", fmt.Sprintf("Disgust detected (%.0f%%)", in.Emotion[emotion.Disgust]))
		}
		if in.Emotion[emotion.Sad] > sadThreshold {
			fire(sadPoints, "sadness", fmt.Sprintf("Sadness detected (%.0f%%)", in.Emotion[emotion.Sad]))
		}
	}

	if in.BpmDelta > bpmDeltaMajor {
		fire(bpmDeltaMajorPoints, "bpm", fmt.Sprintf("Major heart rate deviation (+%.1f BPM)", in.BpmDelta))
	} else if in.BpmDelta > bpmDeltaMinor {
		fire(bpmDeltaMinorPoints, "bpm", fmt.Sprintf("Heart rate deviation (+%.1f BPM)", in.BpmDelta))
	}

	if in.HandOnFace {
		fire(handPoints, "hand", "Hand-to-face contact")
	}
	if in.LipCompressed {
		fire(lipPoints, "lips", "Lip compression")
	}
	if in.GazeShift > gazeThreshold {
		fire(gazePoints, "gaze", fmt.Sprintf("Gaze shift (%.2f)", in.GazeShift))
	}

	if total > 100 {
		total = 100
	}
	return Result{Score: total, Level: classify(total), Triggers: triggers}
}

func classify(score int) Level {
	switch {
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}
