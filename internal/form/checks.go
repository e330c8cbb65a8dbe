package form

import (
	"math"

	"github.com/ayusman/gymcoach/internal/detector"
	"github.com/ayusman/gymcoach/internal/geometry"
	"github.com/ayusman/gymcoach/internal/orientation"
)

// Issue messages.
const (
	IssueKneeForward = "Knee too far forward"
	IssueTorsoLean   = "Leaning too far forward"
	IssueKneeCave    = "Knees caving in"
)

// CheckConfig holds the auxiliary form tolerances.
type CheckConfig struct {
	// KneeForward is the allowed horizontal knee-over-ankle offset in body
	// scale units.
	KneeForward float64 `json:"knee_forward"`
	// TorsoLean is the allowed excess of knee angle over hip angle, in degrees.
	TorsoLean float64 `json:"torso_lean"`
	// KneeCave is how much narrower than the ankles the knees may be, in
	// normalized image units.
	KneeCave float64 `json:"knee_cave"`
}

// DefaultCheckConfig returns the default tolerances.
func DefaultCheckConfig() CheckConfig {
	return CheckConfig{
		KneeForward: 0.35,
		TorsoLean:   40,
		KneeCave:    0.04,
	}
}

// SideChecks inspects a side view. view selects which leg is facing the
// camera; leg and hip are the current knee and hip angles.
func SideChecks(acc detector.Accessor, view orientation.State, leg, hip float64, cfg CheckConfig) []string {
	knee, ankle := detector.LeftKnee, detector.LeftAnkle
	if view == orientation.RightSide {
		knee, ankle = detector.RightKnee, detector.RightAnkle
	}

	var issues []string
	k, kok := acc.Get(knee)
	a, aok := acc.Get(ankle)
	if kok && aok {
		if math.Abs(k.X-a.X)/geometry.BodyScale(acc) > cfg.KneeForward {
			issues = append(issues, IssueKneeForward)
		}
	}
	if leg-hip > cfg.TorsoLean {
		issues = append(issues, IssueTorsoLean)
	}
	return issues
}

// FrontChecks inspects a front view for knees collapsing inward relative to
// the ankles.
func FrontChecks(acc detector.Accessor, cfg CheckConfig) []string {
	if !acc.Visible(detector.LeftKnee, detector.RightKnee, detector.LeftAnkle, detector.RightAnkle) {
		return nil
	}
	kneeGap := geometry.Distance(acc, detector.LeftKnee, detector.RightKnee)
	ankleGap := geometry.Distance(acc, detector.LeftAnkle, detector.RightAnkle)
	if ankleGap-kneeGap > cfg.KneeCave {
		return []string{IssueKneeCave}
	}
	return nil
}
