package form

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/gymcoach/internal/phase"
)

// Profile is the reference description of correct form for one exercise:
// a range table per driving signal and, optionally, an ideal curve per
// signal. Profiles are read-only once built and may be shared.
type Profile struct {
	Name           string
	Signals        []phase.Signal
	Curves         map[string]Curve
	Messages       map[phase.Phase]string
	IdealDuration  time.Duration
	TempoTolerance float64
}

// Validate checks every range table and that curves refer to known signals.
func (p *Profile) Validate() error {
	if len(p.Signals) == 0 {
		return errors.New("profile has no signals")
	}
	names := make(map[string]bool, len(p.Signals))
	for _, s := range p.Signals {
		if err := s.Table.Validate(); err != nil {
			return fmt.Errorf("signal %s: %w", s.Name, err)
		}
		names[s.Name] = true
	}
	for name, c := range p.Curves {
		if !names[name] {
			return fmt.Errorf("curve for unknown signal %q", name)
		}
		if c == nil || c.Duration() <= 0 {
			return fmt.Errorf("curve %s has no duration", name)
		}
	}
	if p.TempoTolerance < 0 || p.TempoTolerance >= 1 {
		return fmt.Errorf("tempo tolerance %.2f out of range", p.TempoTolerance)
	}
	return nil
}

// Message returns the display text for a phase.
func (p *Profile) Message(ph phase.Phase) string {
	if m, ok := p.Messages[ph]; ok {
		return m
	}
	return string(ph)
}

// WithCurves returns a copy of p whose curves are replaced by the given
// ones where present.
func (p *Profile) WithCurves(curves map[string]Curve) *Profile {
	cp := *p
	cp.Curves = make(map[string]Curve, len(p.Curves)+len(curves))
	for k, v := range p.Curves {
		cp.Curves[k] = v
	}
	for k, v := range curves {
		cp.Curves[k] = v
	}
	return &cp
}

// SquatProfile returns the built-in squat reference.
func SquatProfile() *Profile {
	return &Profile{
		Name: "squat",
		Signals: []phase.Signal{
			{Name: "hip", Table: phase.SquatHip},
			{Name: "leg", Table: phase.SquatLeg},
		},
		Curves: map[string]Curve{
			"hip": PeriodicCurve{Period: DefaultIdealDuration, Top: 175, Bottom: 75},
			"leg": PeriodicCurve{Period: DefaultIdealDuration, Top: 177, Bottom: 80},
		},
		Messages: map[phase.Phase]string{
			"standing":       "Standing",
			"quarterSquat":   "Quarter squat",
			"halfSquat":      "Half squat",
			"deepSquat":      "Deep squat",
			"bottomPosition": "Bottom position",
			phase.Transition: "Moving",
			phase.Unknown:    "Adjust your position",
		},
		IdealDuration:  DefaultIdealDuration,
		TempoTolerance: DefaultTempoTolerance,
	}
}

// PushUpProfile returns the built-in push-up reference.
func PushUpProfile() *Profile {
	return &Profile{
		Name: "pushup",
		Signals: []phase.Signal{
			{Name: "elbow", Table: phase.PushUpElbow},
		},
		Curves: map[string]Curve{
			"elbow": PeriodicCurve{Period: 2 * time.Second, Top: 170, Bottom: 75},
		},
		Messages: map[phase.Phase]string{
			"up":          "Arms extended",
			"lowering":    "Lowering",
			"halfway":     "Halfway",
			"down":        "Chest down",
			phase.Unknown: "Adjust your position",
		},
		IdealDuration:  2 * time.Second,
		TempoTolerance: DefaultTempoTolerance,
	}
}

// PlankProfile returns the built-in plank reference. Planks are held, so
// there is no curve.
func PlankProfile() *Profile {
	return &Profile{
		Name: "plank",
		Signals: []phase.Signal{
			{Name: "body", Table: phase.PlankBody},
		},
		Messages: map[phase.Phase]string{
			"aligned":     "Body aligned",
			"drifting":    "Straighten your body",
			"broken":      "Hips out of line",
			phase.Unknown: "Adjust your position",
		},
	}
}
