// Package landmark defines the numeric contract with the upstream face-mesh
// and hand-landmark providers. Coordinates are normalized to [0,1] in both
// axes. The index constants below follow the MediaPipe face-mesh and
// hand-landmarker topologies and must not be changed: downstream geometry
// depends on these exact positions.
package landmark

import "math"

// Face mesh sizing. A standard face mesh has 468 points; with refined iris
// landmarks the provider delivers 478.
const (
	FaceMeshPoints    = 468
	FaceMeshIrisStart = 468
	FaceMeshRefined   = 478
)

// Hand landmark indices (MediaPipe convention).
const (
	Wrist      = 0
	ThumbTip   = 4
	IndexTip   = 8
	PinkyTip   = 20
	HandPoints = 21
)

// FingertipProbes are the hand landmarks tested against the face contour for
// hand-to-face contact.
var FingertipProbes = [3]int{ThumbTip, IndexTip, PinkyTip}

// Eye aspect-ratio quadruples: top eyelid, bottom eyelid, inner corner,
// outer corner.
var (
	RightEye = [4]int{159, 145, 133, 33}
	LeftEye  = [4]int{386, 374, 362, 263}
)

// Refined iris landmark pairs and the matching eye-socket corners.
var (
	RightIris      = [2]int{469, 471}
	RightEyeSocket = [2]int{33, 133}
	LeftIris       = [2]int{474, 476}
	LeftEyeSocket  = [2]int{362, 263}
)

// Lip landmarks: vertical pair then horizontal pair.
var (
	LipVertical   = [2]int{0, 17}
	LipHorizontal = [2]int{61, 291}
)

// FaceOval is the 36-point face contour used for hand-proximity testing.
var FaceOval = [36]int{
	10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288,
	397, 365, 379, 378, 400, 377, 152, 148, 176, 149, 150, 136,
	172, 58, 132, 93, 234, 127, 162, 21, 54, 103, 67, 109,
}

// Point is a normalized 2D landmark position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the planar Euclidean distance between two points.
func Dist(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Mid returns the midpoint of two points.
func Mid(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Face is one detected face's landmark set.
type Face []Point

// Valid reports whether the face carries the full mesh topology.
func (f Face) Valid() bool {
	return len(f) >= FaceMeshPoints
}

// HasIris reports whether refined iris landmarks are present.
func (f Face) HasIris() bool {
	return len(f) >= FaceMeshRefined
}

// Hand is one detected hand's 21-point landmark set.
type Hand []Point

// Valid reports whether the hand carries the full topology.
func (h Hand) Valid() bool {
	return len(h) >= HandPoints
}

// Frame is a single camera frame's worth of landmarks. Hands may be empty.
// Frames are ephemeral: the pipeline extracts metrics and discards them.
type Frame struct {
	Face        Face   `json:"face,omitempty"`
	Hands       []Hand `json:"hands,omitempty"`
	TimestampMs int64  `json:"ts,omitempty"`
}

// HasFace reports whether the frame carries a usable face.
func (f *Frame) HasFace() bool {
	return f != nil && f.Face.Valid()
}
