package form

import (
	"fmt"
	"sort"

	"github.com/ayusman/gymcoach/internal/phase"
)

// Recording holds the angle series of one repetition keyed by signal name.
// It is the persisted form of both recorded reps and trained curves.
type Recording map[string][]CurvePoint

// RecordSession extracts a Recording from a completed session. Offsets are
// relative to the session start.
func RecordSession(s *phase.Session) Recording {
	if s == nil {
		return nil
	}
	rec := make(Recording, len(s.Signals))
	for _, name := range s.Signals {
		offsets, angles, ok := s.Series(name)
		if !ok || len(offsets) == 0 {
			continue
		}
		points := make([]CurvePoint, len(offsets))
		for i := range offsets {
			points[i] = CurvePoint{T: offsets[i], Angle: angles[i]}
		}
		rec[name] = points
	}
	return rec
}

// Signals returns the recorded signal names in sorted order.
func (r Recording) Signals() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Curves builds a sampled curve for every signal in the recording.
func (r Recording) Curves() (map[string]Curve, error) {
	out := make(map[string]Curve, len(r))
	for _, name := range r.Signals() {
		c, err := NewSampledCurve(r[name])
		if err != nil {
			return nil, fmt.Errorf("signal %s: %w", name, err)
		}
		out[name] = c
	}
	return out, nil
}

// TrainRecording trains one curve per profile signal from recorded reps.
// Every rep must carry every signal that has a curve in base. The returned
// distances hold each rep's shape distance to the trained curve per signal.
func (t *Trainer) TrainRecording(base *Profile, reps []Recording) (Recording, map[string][]float64, error) {
	if len(reps) == 0 {
		return nil, nil, fmt.Errorf("no samples provided")
	}

	trained := make(Recording)
	distances := make(map[string][]float64)
	for _, sig := range base.Signals {
		if _, ok := base.Curves[sig.Name]; !ok {
			continue
		}
		series := make([][]CurvePoint, len(reps))
		for i, rep := range reps {
			pts, ok := rep[sig.Name]
			if !ok {
				return nil, nil, fmt.Errorf("sample %d: missing signal %s", i, sig.Name)
			}
			series[i] = pts
		}
		res, err := t.TrainCurve(series)
		if err != nil {
			return nil, nil, fmt.Errorf("signal %s: %w", sig.Name, err)
		}
		trained[sig.Name] = res.Curve.Points()
		distances[sig.Name] = res.Distances
	}

	if len(trained) == 0 {
		return nil, nil, fmt.Errorf("profile %s has no curves to train", base.Name)
	}
	return trained, distances, nil
}
