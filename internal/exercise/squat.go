package exercise

import (
	"github.com/ayusman/gymcoach/internal/detector"
	"github.com/ayusman/gymcoach/internal/form"
	"github.com/ayusman/gymcoach/internal/geometry"
	"github.com/ayusman/gymcoach/internal/orientation"
	"github.com/ayusman/gymcoach/internal/phase"
)

// Squat evaluates squats from the hip (shoulder-hip-knee) and leg
// (hip-knee-ankle) angles.
//
// In a side view the 2D angles of the leg facing the camera drive the phase
// machine and auxiliary checks. In a front view both legs are measured in 3D
// and averaged, and the last completed rep is scored against the reference
// curves.
type Squat struct {
	cfg        Config
	classifier *orientation.Classifier
	calc       *geometry.Calculator
	cycle      *cycle
}

// NewSquat creates a squat evaluator.
func NewSquat(cfg Config) (*Squat, error) {
	p, err := profileOrDefault(cfg, form.SquatProfile())
	if err != nil {
		return nil, err
	}
	c, err := newCycle(p, cfg, "hip", "leg")
	if err != nil {
		return nil, err
	}
	return &Squat{
		cfg:        cfg,
		classifier: orientation.NewClassifier(cfg.Orientation),
		calc:       geometry.NewCalculator(cfg.Geometry),
		cycle:      c,
	}, nil
}

// Name returns "squat".
func (s *Squat) Name() string { return "squat" }

// Profile returns the reference profile in use.
func (s *Squat) Profile() *form.Profile { return s.cycle.profile }

// LastSession returns the most recent completed movement session.
func (s *Squat) LastSession() *phase.Session { return s.cycle.lastSession() }

// Reset clears all per-run state.
func (s *Squat) Reset() {
	s.calc.Reset()
	s.cycle.reset()
}

// Evaluate processes one frame.
func (s *Squat) Evaluate(p *detector.Pose) Report {
	r := Report{
		Exercise:    s.Name(),
		Phase:       s.cycle.current(),
		RepCount:    s.cycle.reps.Count(),
		Orientation: orientation.Unknown,
		Issues:      []string{},
		DebugAngles: map[string]*float64{"hip": nil, "leg": nil, "yaw": nil},
	}
	if p == nil {
		r.FormStatus = StatusNoPose
		r.FormClass = form.Warning
		return r
	}
	r.Timestamp = p.Timestamp

	acc := detector.NewAccessor(p, s.cfg.Visibility)
	view := s.classifier.Classify(acc)
	r.Orientation = view
	r.DebugAngles["yaw"] = angleRef(orientation.EstimateYaw(acc))

	var hip, leg float64
	var ok bool
	switch {
	case view == orientation.Front:
		hip, leg, ok = s.frontAngles(acc)
	case view.IsSide():
		hip, leg, ok = s.sideAngles(acc, view)
	default:
		r.FormStatus = StatusTurn
		r.FormClass = form.Warning
		return r
	}
	if !ok {
		r.FormStatus = StatusOutOfFrame
		r.FormClass = form.Warning
		return r
	}
	r.DebugAngles["hip"] = angleRef(hip, true)
	r.DebugAngles["leg"] = angleRef(leg, true)

	ph := s.cycle.update(p.Timestamp, hip, leg)
	r.Phase = ph
	r.RepCount = s.cycle.reps.Count()
	r.FormStatus = s.cycle.profile.Message(ph)
	r.Tempo = s.cycle.lastTempo

	var issues []string
	if view == orientation.Front {
		issues = form.FrontChecks(acc, s.cfg.Checks)
		r.Score = s.cycle.score()
	} else {
		issues = form.SideChecks(acc, view, leg, hip, s.cfg.Checks)
	}
	if issues != nil {
		r.Issues = issues
	}

	r.FormClass = form.Good
	if ph == phase.Unknown || len(issues) > 0 {
		r.FormClass = form.Warning
	}
	r.FormClass = form.Worst(r.FormClass, form.TempoClass(r.Tempo))
	r.FormClass = form.Worst(r.FormClass, scoreClass(r.Score))
	return r
}

func (s *Squat) sideAngles(acc detector.Accessor, view orientation.State) (hip, leg float64, ok bool) {
	shoulder, hipJ, knee, ankle := detector.LeftShoulder, detector.LeftHip, detector.LeftKnee, detector.LeftAnkle
	if view == orientation.RightSide {
		shoulder, hipJ, knee, ankle = detector.RightShoulder, detector.RightHip, detector.RightKnee, detector.RightAnkle
	}
	angles, ok := s.calc.Joints(acc,
		geometry.Request{Name: "hip", A: shoulder, Vertex: hipJ, B: knee},
		geometry.Request{Name: "leg", A: hipJ, Vertex: knee, B: ankle},
	)
	if !ok {
		return 0, 0, false
	}
	return angles[0], angles[1], true
}

// frontAngles averages both sides in 3D. Smoothing state is committed only
// when both the hip and leg angle are available from at least one side.
func (s *Squat) frontAngles(acc detector.Accessor) (hip, leg float64, ok bool) {
	lh, lhok := s.calc.Raw3D(acc, detector.LeftShoulder, detector.LeftHip, detector.LeftKnee)
	rh, rhok := s.calc.Raw3D(acc, detector.RightShoulder, detector.RightHip, detector.RightKnee)
	ll, llok := s.calc.Raw3D(acc, detector.LeftHip, detector.LeftKnee, detector.LeftAnkle)
	rl, rlok := s.calc.Raw3D(acc, detector.RightHip, detector.RightKnee, detector.RightAnkle)
	if !(lhok || rhok) || !(llok || rlok) {
		return 0, 0, false
	}

	commit := func(name string, deg float64, ok bool) float64 {
		if !ok {
			return 0
		}
		return s.calc.Commit(name, deg)
	}
	lh, rh = commit("hip_left", lh, lhok), commit("hip_right", rh, rhok)
	ll, rl = commit("leg_left", ll, llok), commit("leg_right", rl, rlok)

	hip, _ = mean(lh, lhok, rh, rhok)
	leg, _ = mean(ll, llok, rl, rlok)
	return hip, leg, true
}

func mean(a float64, aok bool, b float64, bok bool) (float64, bool) {
	switch {
	case aok && bok:
		return (a + b) / 2, true
	case aok:
		return a, true
	case bok:
		return b, true
	}
	return 0, false
}
