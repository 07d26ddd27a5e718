// Package geometry derives per-frame behavioral measurements from raw
// landmark positions. Everything here is a pure function of one frame:
// no state is held between calls, and a frame with no usable face yields
// the zero Metrics value rather than an error.
package geometry

import (
	"math"

	"github.com/candormetrics/go-candor/pkg/landmark"
)

// Config holds the geometric thresholds. The defaults are the canonical
// values; all of them are tunable per deployment.
type Config struct {
	// EyeBlinkThreshold is the averaged eye-aspect-ratio below which the
	// eyes count as closed.
	EyeBlinkThreshold float64 `json:"eye_blink_threshold"`

	// LipCompressionRatio is the lip height/width ratio below which the
	// lips count as compressed.
	LipCompressionRatio float64 `json:"lip_compression_ratio"`

	// HandFaceDistance is the normalized distance from a fingertip to the
	// face contour within which a hand counts as touching the face.
	HandFaceDistance float64 `json:"hand_face_distance"`
}

// DefaultConfig returns the canonical thresholds.
func DefaultConfig() Config {
	return Config{
		EyeBlinkThreshold:   0.35,
		LipCompressionRatio: 0.35,
		HandFaceDistance:    0.06,
	}
}

// Metrics is the per-frame geometric measurement set. The zero value is the
// "no signal" result produced when no face is detected.
type Metrics struct {
	EyeAspectRatio float64 `json:"eye_aspect_ratio"`
	Blinking       bool    `json:"blinking"`
	LipRatio       float64 `json:"lip_ratio"`
	LipCompressed  bool    `json:"lip_compressed"`
	GazeShift      float64 `json:"gaze_shift"`
	HandOnFace     bool    `json:"hand_on_face"`
	FaceDetected   bool    `json:"face_detected"`
}

// Analyzer evaluates frames against a fixed threshold set.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an Analyzer with the given thresholds.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze extracts all geometric metrics from one frame.
func (a *Analyzer) Analyze(frame *landmark.Frame) Metrics {
	if !frame.HasFace() {
		return Metrics{}
	}
	face := frame.Face

	ear := EyeAspectRatio(face)
	lip := LipRatio(face)
	return Metrics{
		EyeAspectRatio: ear,
		Blinking:       ear < a.cfg.EyeBlinkThreshold,
		LipRatio:       lip,
		LipCompressed:  lip < a.cfg.LipCompressionRatio,
		GazeShift:      GazeShift(face),
		HandOnFace:     HandOnFace(face, frame.Hands, a.cfg.HandFaceDistance),
		FaceDetected:   true,
	}
}

// aspectRatio is vertical distance over horizontal distance, 0 when the
// horizontal distance is 0.
func aspectRatio(top, bottom, c1, c2 landmark.Point) float64 {
	width := landmark.Dist(c1, c2)
	if width == 0 {
		return 0
	}
	return landmark.Dist(top, bottom) / width
}

// EyeAspectRatio returns the mean eye aspect ratio of both eyes. A low
// value indicates closed eyelids.
func EyeAspectRatio(face landmark.Face) float64 {
	right := eyeAR(face, landmark.RightEye)
	left := eyeAR(face, landmark.LeftEye)
	return (right + left) / 2
}

func eyeAR(face landmark.Face, eye [4]int) float64 {
	return aspectRatio(face[eye[0]], face[eye[1]], face[eye[2]], face[eye[3]])
}

// LipRatio returns vertical lip distance over horizontal mouth width.
func LipRatio(face landmark.Face) float64 {
	return aspectRatio(
		face[landmark.LipVertical[0]], face[landmark.LipVertical[1]],
		face[landmark.LipHorizontal[0]], face[landmark.LipHorizontal[1]])
}

// GazeShift returns the mean normalized deviation of both irises from their
// eye-socket centers. Requires refined iris landmarks; faces without them
// read as 0.
func GazeShift(face landmark.Face) float64 {
	if !face.HasIris() {
		return 0
	}
	right := irisDeviation(face, landmark.RightIris, landmark.RightEyeSocket)
	left := irisDeviation(face, landmark.LeftIris, landmark.LeftEyeSocket)
	return (right + left) / 2
}

func irisDeviation(face landmark.Face, iris, socket [2]int) float64 {
	width := math.Abs(face[socket[0]].X - face[socket[1]].X)
	if width == 0 {
		return 0
	}
	irisCenter := landmark.Mid(face[iris[0]], face[iris[1]])
	socketCenter := landmark.Mid(face[socket[0]], face[socket[1]])
	return landmark.Dist(irisCenter, socketCenter) / width
}

// HandOnFace reports whether any fingertip probe of any hand lies within
// dist of the face-oval contour.
func HandOnFace(face landmark.Face, hands []landmark.Hand, dist float64) bool {
	if len(hands) == 0 {
		return false
	}
	for _, hand := range hands {
		if !hand.Valid() {
			continue
		}
		for _, tip := range landmark.FingertipProbes {
			if nearContour(face, hand[tip], dist) {
				return true
			}
		}
	}
	return false
}

func nearContour(face landmark.Face, p landmark.Point, dist float64) bool {
	for _, idx := range landmark.FaceOval {
		if landmark.Dist(face[idx], p) <= dist {
			return true
		}
	}
	return false
}
