// Package geometry provides confidence-gated joint angle and distance
// computations over detected poses.
package geometry

import (
	"math"

	"github.com/ayusman/gymcoach/internal/detector"
)

// Angle limits and smoothing defaults.
const (
	// MinAngle and MaxAngle bound anatomically plausible joint angles in degrees.
	MinAngle = 10.0
	MaxAngle = 180.0

	// DefaultSmoothing is the weight given to the previous angle.
	DefaultSmoothing = 0.7
	// DefaultSmoothingMaxDelta is the largest jump, in degrees, that is still smoothed.
	DefaultSmoothingMaxDelta = 45.0

	// DefaultMinConfidence3D is the mean visibility required for 3D angles.
	DefaultMinConfidence3D = 0.7
)

// Angle returns the 2D angle in degrees at vertex v formed by rays to a and b.
// Returns false when a ray has zero length or the result falls outside
// [MinAngle, MaxAngle].
func Angle(a, v, b detector.Observation) (float64, bool) {
	return angle(
		[3]float64{a.X - v.X, a.Y - v.Y, 0},
		[3]float64{b.X - v.X, b.Y - v.Y, 0},
	)
}

// Angle3D is the 3D variant of Angle using relative depth. It additionally
// rejects inputs whose mean visibility is below minConfidence.
func Angle3D(a, v, b detector.Observation, minConfidence float64) (float64, bool) {
	if (a.Visibility+v.Visibility+b.Visibility)/3 < minConfidence {
		return 0, false
	}
	return angle(
		[3]float64{a.X - v.X, a.Y - v.Y, a.Z - v.Z},
		[3]float64{b.X - v.X, b.Y - v.Y, b.Z - v.Z},
	)
}

func angle(v1, v2 [3]float64) (float64, bool) {
	m1 := math.Sqrt(v1[0]*v1[0] + v1[1]*v1[1] + v1[2]*v1[2])
	m2 := math.Sqrt(v2[0]*v2[0] + v2[1]*v2[1] + v2[2]*v2[2])
	if m1 == 0 || m2 == 0 || math.IsNaN(m1) || math.IsNaN(m2) || math.IsInf(m1, 0) || math.IsInf(m2, 0) {
		return 0, false
	}

	cos := (v1[0]*v2[0] + v1[1]*v2[1] + v1[2]*v2[2]) / (m1 * m2)
	if math.IsNaN(cos) {
		return 0, false
	}
	cos = math.Max(-1, math.Min(1, cos))

	deg := math.Acos(cos) * 180 / math.Pi
	if deg < MinAngle || deg > MaxAngle {
		return 0, false
	}
	return round2(deg), true
}

// Smooth blends the current angle with the previous one when the change is
// smaller than maxDelta; larger jumps are returned unchanged.
func Smooth(prev, cur, factor, maxDelta float64) float64 {
	if math.Abs(cur-prev) >= maxDelta {
		return cur
	}
	return round2(factor*prev + (1-factor)*cur)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
