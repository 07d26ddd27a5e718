// Package emotion defines the emotion-classifier contract: the fixed
// seven-label set, the normalized percentage vector the pipeline consumes,
// and the Provider interface satisfied by classifier backends.
package emotion

// Label is one of the seven fixed emotion classes.
type Label string

const (
	Angry    Label = "angry"
	Disgust  Label = "disgust"
	Fear     Label = "fear"
	Happy    Label = "happy"
	Sad      Label = "sad"
	Surprise Label = "surprise"
	Neutral  Label = "neutral"
)

// Labels lists all classes in canonical order.
var Labels = [7]Label{Angry, Disgust, Fear, Happy, Sad, Surprise, Neutral}

// Valid reports whether l is one of the seven known labels.
func (l Label) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

// Scored is one classifier result entry. Scores are raw and need not sum
// to anything in particular.
type Scored struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// Vector maps every label to a percentage in [0,100]. A well-formed vector
// sums to 100; the zero Vector (all zeroes) means "no classification yet".
type Vector map[Label]float64

// ZeroVector returns a vector with every label present at 0.
func ZeroVector() Vector {
	v := make(Vector, len(Labels))
	for _, l := range Labels {
		v[l] = 0
	}
	return v
}

// NewVector renormalizes raw classifier scores into percentages summing to
// 100. Unknown labels are dropped; an empty or all-zero input yields the
// zero vector.
func NewVector(scores []Scored) Vector {
	v := ZeroVector()
	var total float64
	for _, s := range scores {
		if s.Label.Valid() && s.Score > 0 {
			total += s.Score
		}
	}
	if total == 0 {
		return v
	}
	for _, s := range scores {
		if s.Label.Valid() && s.Score > 0 {
			v[s.Label] += s.Score / total * 100
		}
	}
	return v
}

// Add accumulates other into v element-wise.
func (v Vector) Add(other Vector) {
	for _, l := range Labels {
		v[l] += other[l]
	}
}

// Dominant returns the label with the highest value. Ties break in
// canonical label order; an all-zero vector reads as Neutral.
func (v Vector) Dominant() Label {
	best := Neutral
	bestVal := 0.0
	zero := true
	for _, l := range Labels {
		if v[l] > 0 {
			zero = false
		}
		if v[l] > bestVal {
			best = l
			bestVal = v[l]
		}
	}
	if zero {
		return Neutral
	}
	return best
}

// Clone returns an independent copy with every label present.
func (v Vector) Clone() Vector {
	out := make(Vector, len(Labels))
	for _, l := range Labels {
		out[l] = v[l]
	}
	return out
}
