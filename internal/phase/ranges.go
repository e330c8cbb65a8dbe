// Package phase turns joint angle streams into discrete movement phases,
// repetition counts and movement sessions.
package phase

import (
	"errors"
	"fmt"
)

// Phase is a named segment of a repetition cycle.
type Phase string

const (
	// Unknown is reported when an angle matches no range in its table.
	Unknown Phase = "unknown"
	// Transition is reported when driving signals disagree.
	Transition Phase = "transition"
)

// Range binds a phase to an angle interval in degrees.
type Range struct {
	Phase Phase   `json:"phase"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// RangeTable is an ordered list of ranges, highest angles first. The first
// range is closed on both ends; every other range is [Min, Max).
type RangeTable []Range

var errEmptyTable = errors.New("range table is empty")

// Validate checks that ranges are well formed, descending and disjoint.
// Gaps between ranges are allowed and classify as Unknown.
func (t RangeTable) Validate() error {
	if len(t) == 0 {
		return errEmptyTable
	}
	seen := make(map[Phase]bool, len(t))
	for i, r := range t {
		if r.Phase == "" || r.Phase == Unknown || r.Phase == Transition {
			return fmt.Errorf("range %d: invalid phase name %q", i, r.Phase)
		}
		if seen[r.Phase] {
			return fmt.Errorf("range %d: duplicate phase %q", i, r.Phase)
		}
		seen[r.Phase] = true
		if r.Min >= r.Max {
			return fmt.Errorf("range %d (%s): min %.2f not below max %.2f", i, r.Phase, r.Min, r.Max)
		}
		if i > 0 && r.Max > t[i-1].Min {
			return fmt.Errorf("range %d (%s) overlaps %s", i, r.Phase, t[i-1].Phase)
		}
	}
	return nil
}

// Classify returns the phase whose range contains angle, or Unknown.
func (t RangeTable) Classify(angle float64) Phase {
	for i, r := range t {
		if angle < r.Min {
			continue
		}
		if angle < r.Max || (i == 0 && angle == r.Max) {
			return r.Phase
		}
	}
	return Unknown
}

// Rest returns the resting phase, the top range of the table.
func (t RangeTable) Rest() Range {
	if len(t) == 0 {
		return Range{Phase: Unknown}
	}
	return t[0]
}

// Bottom returns the deepest phase, the last range of the table.
func (t RangeTable) Bottom() Range {
	if len(t) == 0 {
		return Range{Phase: Unknown}
	}
	return t[len(t)-1]
}

// Contains reports whether angle lies in r, treating Max as inclusive.
func (r Range) Contains(angle float64) bool {
	return angle >= r.Min && angle <= r.Max
}

// Signal is a named driving angle and its range table.
type Signal struct {
	Name  string     `json:"name"`
	Table RangeTable `json:"table"`
}

// SquatHip is the hip angle (shoulder-hip-knee) table for squats.
var SquatHip = RangeTable{
	{Phase: "standing", Min: 165, Max: 180},
	{Phase: "quarterSquat", Min: 140, Max: 165},
	{Phase: "halfSquat", Min: 110, Max: 140},
	{Phase: "deepSquat", Min: 85, Max: 110},
	{Phase: "bottomPosition", Min: 70, Max: 85},
}

// SquatLeg is the knee angle (hip-knee-ankle) table for squats.
var SquatLeg = RangeTable{
	{Phase: "standing", Min: 170, Max: 180},
	{Phase: "quarterSquat", Min: 145, Max: 170},
	{Phase: "halfSquat", Min: 120, Max: 145},
	{Phase: "deepSquat", Min: 90, Max: 120},
	{Phase: "bottomPosition", Min: 70, Max: 90},
}

// PushUpElbow is the elbow angle (shoulder-elbow-wrist) table for push-ups.
var PushUpElbow = RangeTable{
	{Phase: "up", Min: 155, Max: 180},
	{Phase: "lowering", Min: 110, Max: 155},
	{Phase: "halfway", Min: 90, Max: 110},
	{Phase: "down", Min: 45, Max: 90},
}

// PlankBody is the body line angle (shoulder-hip-ankle) table for planks.
var PlankBody = RangeTable{
	{Phase: "aligned", Min: 165, Max: 180},
	{Phase: "drifting", Min: 140, Max: 165},
	{Phase: "broken", Min: 10, Max: 140},
}
