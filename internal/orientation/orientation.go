// Package orientation classifies which way a subject faces the camera from
// shoulder and hip separation.
package orientation

import (
	"math"

	"github.com/ayusman/gymcoach/internal/detector"
	"github.com/ayusman/gymcoach/internal/geometry"
)

// State describes the subject's facing relative to the camera.
type State string

const (
	Front     State = "front"
	LeftSide  State = "left-side"
	RightSide State = "right-side"
	Unknown   State = "unknown"
	Unclear   State = "unclear"
)

// IsSide reports whether s is one of the side views.
func (s State) IsSide() bool {
	return s == LeftSide || s == RightSide
}

// Evidence weights.
const (
	shoulderWeight = 2
	hipWeight      = 1
	singleWeight   = 1
)

// Thresholds are horizontal separations below which a pair of joints counts
// as side evidence, and at or above which it counts as front evidence.
// Separations in between count for neither.
type Thresholds struct {
	ShoulderSide  float64 `json:"shoulder_side"`
	ShoulderFront float64 `json:"shoulder_front"`
	HipSide       float64 `json:"hip_side"`
	HipFront      float64 `json:"hip_front"`

	// NormalizeByBodyScale divides separations by geometry.BodyScale before
	// comparing them. Thresholds must then be expressed in body-scale units.
	NormalizeByBodyScale bool `json:"normalize_by_body_scale"`
}

// DefaultThresholds returns absolute image-plane thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ShoulderSide:  0.08,
		ShoulderFront: 0.18,
		HipSide:       0.06,
		HipFront:      0.15,
	}
}

// Classifier determines orientation from a single frame.
type Classifier struct {
	th Thresholds
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{th: th}
}

// Thresholds returns the classifier configuration.
func (c *Classifier) Thresholds() Thresholds {
	return c.th
}

type tally struct {
	front, left, right int
}

// Classify returns the orientation for the frame behind acc.
//
// Shoulder evidence is weighted twice as much as hip evidence. When a pair is
// close together the more confident joint names the side facing the camera;
// equal confidence falls back to the joint with the smaller x being left. A
// pair with only one visible joint adds a single point to that joint's side.
func (c *Classifier) Classify(acc detector.Accessor) State {
	if !acc.HasPose() {
		return Unknown
	}

	scale := 1.0
	if c.th.NormalizeByBodyScale {
		scale = geometry.BodyScale(acc)
	}

	var t tally
	c.pair(&t, acc, detector.LeftShoulder, detector.RightShoulder,
		c.th.ShoulderSide, c.th.ShoulderFront, shoulderWeight, scale)
	c.pair(&t, acc, detector.LeftHip, detector.RightHip,
		c.th.HipSide, c.th.HipFront, hipWeight, scale)

	side := t.left + t.right
	switch {
	case side+t.front == 0:
		return Unknown
	case side > t.front:
		switch {
		case t.left > t.right:
			return LeftSide
		case t.right > t.left:
			return RightSide
		default:
			return Unknown
		}
	case t.front > side:
		return Front
	default:
		return Unclear
	}
}

func (c *Classifier) pair(t *tally, acc detector.Accessor, lj, rj detector.Joint, sideTh, frontTh float64, weight int, scale float64) {
	l, lok := acc.Get(lj)
	r, rok := acc.Get(rj)

	switch {
	case lok && rok:
		sep := math.Abs(l.X-r.X) / scale
		switch {
		case sep < sideTh:
			if facingLeft(l, r) {
				t.left += weight
			} else {
				t.right += weight
			}
		case sep >= frontTh:
			t.front += weight
		}
	case lok:
		t.left += singleWeight
	case rok:
		t.right += singleWeight
	}
}

func facingLeft(l, r detector.Observation) bool {
	if l.Visibility != r.Visibility {
		return l.Visibility > r.Visibility
	}
	return l.X < r.X
}
