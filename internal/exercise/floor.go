package exercise

import (
	"time"

	"github.com/ayusman/gymcoach/internal/detector"
	"github.com/ayusman/gymcoach/internal/form"
	"github.com/ayusman/gymcoach/internal/geometry"
	"github.com/ayusman/gymcoach/internal/orientation"
	"github.com/ayusman/gymcoach/internal/phase"
)

// Floor exercises are performed lying horizontally, where shoulder and hip
// separation says nothing about facing. The side nearer the camera is picked
// by joint confidence instead.
func floorSide(acc detector.Accessor, left, right []detector.Joint) orientation.State {
	score := func(joints []detector.Joint) (float64, int) {
		var sum float64
		var n int
		for _, j := range joints {
			if o, ok := acc.Get(j); ok {
				sum += o.Visibility
				n++
			}
		}
		return sum, n
	}
	ls, ln := score(left)
	rs, rn := score(right)
	switch {
	case ln == len(left) && (rn < len(right) || ls >= rs):
		return orientation.LeftSide
	case rn == len(right):
		return orientation.RightSide
	}
	return orientation.Unknown
}

// PushUp counts push-ups from the elbow angle (shoulder-elbow-wrist) of the
// arm nearer the camera.
type PushUp struct {
	cfg   Config
	calc  *geometry.Calculator
	cycle *cycle
}

// NewPushUp creates a push-up evaluator.
func NewPushUp(cfg Config) (*PushUp, error) {
	p, err := profileOrDefault(cfg, form.PushUpProfile())
	if err != nil {
		return nil, err
	}
	c, err := newCycle(p, cfg, "elbow")
	if err != nil {
		return nil, err
	}
	return &PushUp{cfg: cfg, calc: geometry.NewCalculator(cfg.Geometry), cycle: c}, nil
}

// Name returns "pushup".
func (e *PushUp) Name() string { return "pushup" }

// Profile returns the reference profile in use.
func (e *PushUp) Profile() *form.Profile { return e.cycle.profile }

// LastSession returns the most recent completed movement session.
func (e *PushUp) LastSession() *phase.Session { return e.cycle.lastSession() }

// Reset clears all per-run state.
func (e *PushUp) Reset() {
	e.calc.Reset()
	e.cycle.reset()
}

// Evaluate processes one frame.
func (e *PushUp) Evaluate(p *detector.Pose) Report {
	r := Report{
		Exercise:    e.Name(),
		Phase:       e.cycle.current(),
		RepCount:    e.cycle.reps.Count(),
		Orientation: orientation.Unknown,
		Issues:      []string{},
		DebugAngles: map[string]*float64{"elbow": nil},
	}
	if p == nil {
		r.FormStatus = StatusNoPose
		r.FormClass = form.Warning
		return r
	}
	r.Timestamp = p.Timestamp

	acc := detector.NewAccessor(p, e.cfg.Visibility)
	left := []detector.Joint{detector.LeftShoulder, detector.LeftElbow, detector.LeftWrist}
	right := []detector.Joint{detector.RightShoulder, detector.RightElbow, detector.RightWrist}
	view := floorSide(acc, left, right)
	r.Orientation = view

	arm := left
	if view == orientation.RightSide {
		arm = right
	}
	if view == orientation.Unknown {
		r.FormStatus = StatusOutOfFrame
		r.FormClass = form.Warning
		return r
	}
	elbow, ok := e.calc.Joint("elbow", acc, arm[0], arm[1], arm[2])
	if !ok {
		r.FormStatus = StatusOutOfFrame
		r.FormClass = form.Warning
		return r
	}
	r.DebugAngles["elbow"] = angleRef(elbow, true)

	ph := e.cycle.update(p.Timestamp, elbow)
	r.Phase = ph
	r.RepCount = e.cycle.reps.Count()
	r.FormStatus = e.cycle.profile.Message(ph)
	r.Tempo = e.cycle.lastTempo
	r.Score = e.cycle.score()

	r.FormClass = form.Good
	if ph == phase.Unknown {
		r.FormClass = form.Warning
	}
	r.FormClass = form.Worst(r.FormClass, form.TempoClass(r.Tempo))
	r.FormClass = form.Worst(r.FormClass, scoreClass(r.Score))
	return r
}

// Plank reports the body line angle (shoulder-hip-ankle) and how long it has
// been held in the aligned range. Planks have no reps.
type Plank struct {
	cfg     Config
	profile *form.Profile
	calc    *geometry.Calculator
	machine *phase.Machine

	held      time.Duration
	lastAlign time.Time
	aligned   bool
}

// NewPlank creates a plank evaluator.
func NewPlank(cfg Config) (*Plank, error) {
	p, err := profileOrDefault(cfg, form.PlankProfile())
	if err != nil {
		return nil, err
	}
	return &Plank{
		cfg:     cfg,
		profile: p,
		calc:    geometry.NewCalculator(cfg.Geometry),
		machine: phase.NewMachine(p.Signals[0]),
	}, nil
}

// Name returns "plank".
func (e *Plank) Name() string { return "plank" }

// Profile returns the reference profile in use.
func (e *Plank) Profile() *form.Profile { return e.profile }

// Held returns the accumulated time spent in the aligned range.
func (e *Plank) Held() time.Duration { return e.held }

// Reset clears all per-run state.
func (e *Plank) Reset() {
	e.calc.Reset()
	e.machine.Reset()
	e.held = 0
	e.aligned = false
	e.lastAlign = time.Time{}
}

// Evaluate processes one frame.
func (e *Plank) Evaluate(p *detector.Pose) Report {
	cur, _ := e.machine.Current()
	r := Report{
		Exercise:    e.Name(),
		Phase:       cur,
		Orientation: orientation.Unknown,
		Issues:      []string{},
		DebugAngles: map[string]*float64{"body": nil},
	}
	if p == nil {
		e.aligned = false
		r.FormStatus = StatusNoPose
		r.FormClass = form.Warning
		r.HoldSeconds = e.held.Seconds()
		return r
	}
	r.Timestamp = p.Timestamp

	acc := detector.NewAccessor(p, e.cfg.Visibility)
	left := []detector.Joint{detector.LeftShoulder, detector.LeftHip, detector.LeftAnkle}
	right := []detector.Joint{detector.RightShoulder, detector.RightHip, detector.RightAnkle}
	view := floorSide(acc, left, right)
	r.Orientation = view

	line := left
	if view == orientation.RightSide {
		line = right
	}
	var body float64
	ok := view != orientation.Unknown
	if ok {
		body, ok = e.calc.Joint("body", acc, line[0], line[1], line[2])
	}
	if !ok {
		e.aligned = false
		r.FormStatus = StatusOutOfFrame
		r.FormClass = form.Warning
		r.HoldSeconds = e.held.Seconds()
		return r
	}
	r.DebugAngles["body"] = angleRef(body, true)

	ph := e.machine.Update(body)
	rest := e.profile.Signals[0].Table.Rest().Phase
	if ph == rest {
		if e.aligned && p.Timestamp.After(e.lastAlign) {
			e.held += p.Timestamp.Sub(e.lastAlign)
		}
		e.aligned = true
		e.lastAlign = p.Timestamp
	} else {
		e.aligned = false
	}

	r.Phase = ph
	r.FormStatus = e.profile.Message(ph)
	r.HoldSeconds = e.held.Seconds()
	switch {
	case ph == rest:
		r.FormClass = form.Good
	case ph == e.profile.Signals[0].Table.Bottom().Phase:
		r.FormClass = form.Error
	default:
		r.FormClass = form.Warning
	}
	return r
}
