package exercise

import (
	"fmt"
	"time"

	"github.com/ayusman/gymcoach/internal/form"
	"github.com/ayusman/gymcoach/internal/phase"
)

// cycle composes the phase machine, rep counter, session tracker and curve
// scorer for one set of driving signals.
type cycle struct {
	profile  *form.Profile
	machine  *phase.Machine
	reps     *phase.RepCounter
	sessions *phase.SessionTracker
	scorer   *form.CurveScorer

	last      *phase.Session
	lastScore *form.CurveResult
	lastTempo form.Tempo
}

func newCycle(p *form.Profile, cfg Config, signals ...string) (*cycle, error) {
	if len(p.Signals) != len(signals) {
		return nil, fmt.Errorf("profile %s: want signals %v", p.Name, signals)
	}
	for i, s := range p.Signals {
		if s.Name != signals[i] {
			return nil, fmt.Errorf("profile %s: signal %d is %q, want %q", p.Name, i, s.Name, signals[i])
		}
	}

	primary := p.Signals[0].Table
	return &cycle{
		profile:  p,
		machine:  phase.NewMachine(p.Signals...),
		reps:     phase.NewRepCounter(primary.Rest().Phase, primary.Bottom().Phase),
		sessions: phase.NewSessionTracker(cfg.Session, p.Signals...),
		scorer:   form.NewCurveScorer(cfg.Scorer),
	}, nil
}

// update feeds one frame of driving angles and returns the current phase.
func (c *cycle) update(ts time.Time, angles ...float64) phase.Phase {
	ph := c.machine.Update(angles...)
	c.reps.Observe(ph)

	if s, ok := c.sessions.Update(ts, angles...); ok {
		c.last = s
		c.lastTempo = form.ClassifyTempo(s.Duration(), c.profile.IdealDuration, c.profile.TempoTolerance)
		if r, ok := c.scorer.Score(s, c.profile); ok {
			c.lastScore = &r
		} else {
			c.lastScore = nil
		}
	}
	return ph
}

func (c *cycle) current() phase.Phase {
	ph, _ := c.machine.Current()
	return ph
}

func (c *cycle) score() *float64 {
	if c.lastScore == nil {
		return nil
	}
	v := c.lastScore.Score
	return &v
}

// lastSession returns the most recent completed session.
func (c *cycle) lastSession() *phase.Session {
	return c.last
}

func (c *cycle) reset() {
	c.machine.Reset()
	c.reps.Reset()
	c.sessions.Reset()
	c.last = nil
	c.lastScore = nil
	c.lastTempo = form.TempoNone
}

// scoreClass maps a curve score to a display class.
func scoreClass(score *float64) form.Class {
	switch {
	case score == nil || *score >= 75:
		return form.Good
	case *score >= 50:
		return form.Warning
	default:
		return form.Error
	}
}
