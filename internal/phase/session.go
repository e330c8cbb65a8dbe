package phase

import (
	"math"
	"time"
)

// Session thresholds in degrees of deviation from the standing baseline.
const (
	DefaultStartThreshold = 20.0
	DefaultEndThreshold   = 10.0
)

// SessionConfig configures a SessionTracker.
type SessionConfig struct {
	// StartThreshold is the deviation any signal must exceed to start a session.
	StartThreshold float64
	// EndThreshold is the deviation every signal must be within to end it.
	EndThreshold float64
}

// DefaultSessionConfig returns the default thresholds.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		StartThreshold: DefaultStartThreshold,
		EndThreshold:   DefaultEndThreshold,
	}
}

// Sample is the set of driving angles recorded for one frame.
type Sample struct {
	T      time.Time `json:"t"`
	Angles []float64 `json:"angles"`
}

// Session is one continuous excursion away from the standing baseline.
type Session struct {
	Signals []string  `json:"signals"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Samples []Sample  `json:"samples"`
}

// Duration returns the elapsed time between start and end.
func (s *Session) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Series returns the sample times, as offsets from Start, and the angles of
// the named signal. ok is false if the session has no such signal.
func (s *Session) Series(name string) (offsets []time.Duration, angles []float64, ok bool) {
	idx := -1
	for i, n := range s.Signals {
		if n == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, false
	}

	offsets = make([]time.Duration, 0, len(s.Samples))
	angles = make([]float64, 0, len(s.Samples))
	for _, smp := range s.Samples {
		if idx >= len(smp.Angles) {
			continue
		}
		offsets = append(offsets, smp.T.Sub(s.Start))
		angles = append(angles, smp.Angles[idx])
	}
	return offsets, angles, true
}

// SessionTracker detects movement sessions relative to a standing baseline.
//
// The baseline is captured whenever every signal is inside the rest range of
// its table and no baseline is held. A session starts on the first frame where
// any signal deviates from the baseline by more than StartThreshold and ends on
// the first later frame where every signal is back within EndThreshold. The
// baseline is dropped when a session ends so the next standing frame
// recaptures it.
type SessionTracker struct {
	cfg     SessionConfig
	signals []Signal

	baseline []float64
	active   *Session
	last     time.Time
	lastSet  bool
}

// NewSessionTracker creates a tracker over the given driving signals.
func NewSessionTracker(cfg SessionConfig, signals ...Signal) *SessionTracker {
	return &SessionTracker{cfg: cfg, signals: signals}
}

// Update feeds one frame. angles must be ordered like the tracker's signals.
// When the frame ends a session the sealed session is returned.
//
// Frames with the wrong number of angles or a timestamp earlier than the
// previous frame are ignored.
func (t *SessionTracker) Update(ts time.Time, angles ...float64) (*Session, bool) {
	if len(angles) != len(t.signals) || len(angles) == 0 {
		return nil, false
	}
	if t.lastSet && ts.Before(t.last) {
		return nil, false
	}
	t.last, t.lastSet = ts, true

	if t.baseline == nil {
		if t.standing(angles) {
			t.baseline = append([]float64(nil), angles...)
		}
		return nil, false
	}

	if t.active == nil {
		if t.maxDeviation(angles) > t.cfg.StartThreshold {
			names := make([]string, len(t.signals))
			for i, s := range t.signals {
				names[i] = s.Name
			}
			t.active = &Session{Signals: names, Start: ts}
			t.record(ts, angles)
		}
		return nil, false
	}

	t.record(ts, angles)
	if t.maxDeviation(angles) <= t.cfg.EndThreshold {
		s := t.active
		s.End = ts
		t.active = nil
		t.baseline = nil
		return s, true
	}
	return nil, false
}

// Active reports whether a session is in progress.
func (t *SessionTracker) Active() bool {
	return t.active != nil
}

// Baseline returns a copy of the current baseline angles, if any.
func (t *SessionTracker) Baseline() ([]float64, bool) {
	if t.baseline == nil {
		return nil, false
	}
	return append([]float64(nil), t.baseline...), true
}

// Reset drops the baseline and any session in progress.
func (t *SessionTracker) Reset() {
	t.baseline = nil
	t.active = nil
	t.lastSet = false
	t.last = time.Time{}
}

func (t *SessionTracker) record(ts time.Time, angles []float64) {
	t.active.Samples = append(t.active.Samples, Sample{
		T:      ts,
		Angles: append([]float64(nil), angles...),
	})
}

func (t *SessionTracker) standing(angles []float64) bool {
	for i, a := range angles {
		if !t.signals[i].Table.Rest().Contains(a) {
			return false
		}
	}
	return true
}

func (t *SessionTracker) maxDeviation(angles []float64) float64 {
	var d float64
	for i, a := range angles {
		d = math.Max(d, math.Abs(a-t.baseline[i]))
	}
	return d
}
