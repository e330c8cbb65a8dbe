package form

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/gymcoach/internal/detector"
	"github.com/ayusman/gymcoach/internal/orientation"
	"github.com/ayusman/gymcoach/internal/phase"
)

func floatEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestClassifyTempo(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want Tempo
	}{
		{"ideal", 3 * time.Second, TempoGood},
		{"lower edge", 2400 * time.Millisecond, TempoGood},
		{"just too fast", 2399 * time.Millisecond, TempoTooFast},
		{"upper edge", 3600 * time.Millisecond, TempoGood},
		{"just too slow", 3601 * time.Millisecond, TempoTooSlow},
		{"no duration", 0, TempoNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyTempo(tt.d, DefaultIdealDuration, DefaultTempoTolerance)
			if got != tt.want {
				t.Errorf("ClassifyTempo(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestWorst(t *testing.T) {
	if got := Worst(Good, Warning); got != Warning {
		t.Errorf("Worst(good, warning) = %s", got)
	}
	if got := Worst(Error, Warning); got != Error {
		t.Errorf("Worst(error, warning) = %s", got)
	}
	if got := Worst(Good, Good); got != Good {
		t.Errorf("Worst(good, good) = %s", got)
	}
}

func TestPeriodicCurve(t *testing.T) {
	c := PeriodicCurve{Period: 2 * time.Second, Top: 170, Bottom: 80}

	tests := []struct {
		t    time.Duration
		want float64
	}{
		{0, 170},
		{500 * time.Millisecond, 125},
		{time.Second, 80},
		{2 * time.Second, 170},
		{-time.Second, 170},
		{5 * time.Second, 170},
	}
	for _, tt := range tests {
		if got := c.At(tt.t); !floatEqual(got, tt.want, 1e-9) {
			t.Errorf("At(%v) = %f, want %f", tt.t, got, tt.want)
		}
	}
}

func TestSampledCurve(t *testing.T) {
	base := 10 * time.Second
	c, err := NewSampledCurve([]CurvePoint{
		{T: base, Angle: 180},
		{T: base + time.Second, Angle: 90},
		{T: base + time.Second, Angle: 60}, // duplicate time, dropped
		{T: base + 2*time.Second, Angle: 180},
	})
	if err != nil {
		t.Fatalf("NewSampledCurve() error = %v", err)
	}

	if c.Duration() != 2*time.Second {
		t.Errorf("Duration() = %v, want 2s", c.Duration())
	}

	tests := []struct {
		t    time.Duration
		want float64
	}{
		{0, 180},
		{500 * time.Millisecond, 135},
		{time.Second, 90},
		{1500 * time.Millisecond, 135},
		{-time.Second, 180},
		{3 * time.Second, 180},
	}
	for _, tt := range tests {
		if got := c.At(tt.t); !floatEqual(got, tt.want, 1e-9) {
			t.Errorf("At(%v) = %f, want %f", tt.t, got, tt.want)
		}
	}

	want := []CurvePoint{
		{T: 0, Angle: 180},
		{T: time.Second, Angle: 90},
		{T: 2 * time.Second, Angle: 180},
	}
	if diff := cmp.Diff(want, c.Points()); diff != "" {
		t.Errorf("Points() mismatch (-want +got):\n%s", diff)
	}

	t.Run("too few points", func(t *testing.T) {
		if _, err := NewSampledCurve([]CurvePoint{{T: 0, Angle: 90}}); err != ErrTooFewPoints {
			t.Errorf("error = %v, want ErrTooFewPoints", err)
		}
		if _, err := NewSampledCurve([]CurvePoint{{T: 0, Angle: 90}, {T: 0, Angle: 100}}); err != ErrTooFewPoints {
			t.Errorf("error = %v, want ErrTooFewPoints", err)
		}
	})
}

// sessionFrom samples profile curves over d at the given spacing, adding
// offset degrees to every angle.
func sessionFrom(p *Profile, d, step time.Duration, offset float64) *phase.Session {
	t0 := time.Unix(500, 0)
	s := &phase.Session{Start: t0, End: t0.Add(d)}
	for _, sig := range p.Signals {
		s.Signals = append(s.Signals, sig.Name)
	}
	for t := time.Duration(0); t <= d; t += step {
		var angles []float64
		for _, sig := range p.Signals {
			c := p.Curves[sig.Name]
			ref := c.At(time.Duration(float64(t) * float64(c.Duration()) / float64(d)))
			angles = append(angles, ref+offset)
		}
		s.Samples = append(s.Samples, phase.Sample{T: t0.Add(t), Angles: angles})
	}
	return s
}

func TestCurveScorer(t *testing.T) {
	scorer := NewCurveScorer(DefaultScorerConfig())
	profile := SquatProfile()

	t.Run("exact match scores 100", func(t *testing.T) {
		r, ok := scorer.Score(sessionFrom(profile, 3*time.Second, 100*time.Millisecond, 0), profile)
		if !ok {
			t.Fatal("expected a score")
		}
		if r.Score != 100 || r.MeanError != 0 {
			t.Errorf("Score = %f, MeanError = %f; want 100, 0", r.Score, r.MeanError)
		}
		if r.Shape != 0 {
			t.Errorf("Shape = %f, want 0", r.Shape)
		}
		// 31 comparison points for each of two signals.
		if r.Samples != 62 {
			t.Errorf("Samples = %d, want 62", r.Samples)
		}
	})

	t.Run("reference stretches to session duration", func(t *testing.T) {
		r, ok := scorer.Score(sessionFrom(profile, 6*time.Second, 200*time.Millisecond, 0), profile)
		if !ok {
			t.Fatal("expected a score")
		}
		if r.Score < 99 {
			t.Errorf("Score = %f, want > 99 for a slow but correct rep", r.Score)
		}
	})

	t.Run("constant error decays linearly", func(t *testing.T) {
		r, _ := scorer.Score(sessionFrom(profile, 3*time.Second, 100*time.Millisecond, 9), profile)
		if !floatEqual(r.Score, 80, 1e-9) {
			t.Errorf("Score = %f, want 80", r.Score)
		}
		if !floatEqual(r.MeanError, 9, 1e-9) {
			t.Errorf("MeanError = %f, want 9", r.MeanError)
		}
	})

	t.Run("error at cap scores zero", func(t *testing.T) {
		r, _ := scorer.Score(sessionFrom(profile, 3*time.Second, 100*time.Millisecond, -60), profile)
		if r.Score != 0 {
			t.Errorf("Score = %f, want 0", r.Score)
		}
	})

	t.Run("no comparable signal", func(t *testing.T) {
		s := sessionFrom(profile, 3*time.Second, 100*time.Millisecond, 0)
		if _, ok := scorer.Score(s, PlankProfile()); ok {
			t.Error("expected no score without curves")
		}
		s.End = s.Start
		if _, ok := scorer.Score(s, profile); ok {
			t.Error("expected no score for zero duration session")
		}
		if _, ok := scorer.Score(nil, profile); ok {
			t.Error("expected no score for nil session")
		}
	})
}

func TestShapeDistance(t *testing.T) {
	t.Run("identical series", func(t *testing.T) {
		a := []float64{180, 150, 100, 150, 180}
		if d := ShapeDistance(a, a); d != 0 {
			t.Errorf("ShapeDistance() = %f, want 0", d)
		}
	})

	t.Run("different series", func(t *testing.T) {
		a := []float64{180, 150, 100, 150, 180}
		b := []float64{180, 170, 160, 170, 180}
		if d := ShapeDistance(a, b); d <= 0 {
			t.Errorf("ShapeDistance() = %f, want > 0", d)
		}
	})

	t.Run("speed invariant", func(t *testing.T) {
		fast := []float64{180, 130, 80, 130, 180}
		slow := []float64{180, 180, 130, 130, 80, 80, 130, 130, 180, 180}
		different := []float64{180, 175, 170, 175, 180}

		same := ShapeDistance(fast, slow)
		other := ShapeDistance(fast, different)
		if same != 0 {
			t.Errorf("ShapeDistance(fast, slow) = %f, want 0", same)
		}
		if other <= same {
			t.Errorf("different shape %f should be farther than %f", other, same)
		}
	})

	t.Run("empty series", func(t *testing.T) {
		if d := ShapeDistance(nil, []float64{1}); !math.IsInf(d, 1) {
			t.Errorf("ShapeDistance() = %f, want +Inf", d)
		}
	})
}

func repFrom(c Curve, d time.Duration) []CurvePoint {
	var out []CurvePoint
	start := 42 * time.Second
	for t := time.Duration(0); t <= d; t += 100 * time.Millisecond {
		out = append(out, CurvePoint{
			T:     start + t,
			Angle: c.At(time.Duration(float64(t) * float64(c.Duration()) / float64(d))),
		})
	}
	return out
}

func TestTrainer_TrainCurve(t *testing.T) {
	ref := PeriodicCurve{Period: 3 * time.Second, Top: 175, Bottom: 75}
	trainer := NewTrainer(DefaultTrainingPoints)

	res, err := trainer.TrainCurve([][]CurvePoint{
		repFrom(ref, 3*time.Second),
		repFrom(ref, 2*time.Second),
	})
	if err != nil {
		t.Fatalf("TrainCurve() error = %v", err)
	}

	if got := res.Curve.Duration(); got != 2500*time.Millisecond {
		t.Errorf("Duration() = %v, want 2.5s", got)
	}
	if got := res.Curve.At(1250 * time.Millisecond); !floatEqual(got, 75, 1) {
		t.Errorf("At(mid) = %f, want ~75", got)
	}
	if got := res.Curve.At(0); !floatEqual(got, 175, 0.01) {
		t.Errorf("At(0) = %f, want 175", got)
	}
	if len(res.Distances) != 2 {
		t.Fatalf("Distances len = %d, want 2", len(res.Distances))
	}
	for i, d := range res.Distances {
		if d > 1 {
			t.Errorf("Distances[%d] = %f, want < 1", i, d)
		}
	}
}

func TestTrainer_TrainCurve_Errors(t *testing.T) {
	trainer := NewTrainer(0)

	if _, err := trainer.TrainCurve(nil); err == nil {
		t.Error("expected error for no samples")
	}
	if _, err := trainer.TrainCurve([][]CurvePoint{{{T: 0, Angle: 170}}}); err == nil {
		t.Error("expected error for single point sample")
	}
}

func TestProfiles_Validate(t *testing.T) {
	for _, p := range []*Profile{SquatProfile(), PushUpProfile(), PlankProfile()} {
		if err := p.Validate(); err != nil {
			t.Errorf("%s: Validate() error = %v", p.Name, err)
		}
	}

	bad := SquatProfile().WithCurves(map[string]Curve{
		"elbow": PeriodicCurve{Period: time.Second, Top: 170, Bottom: 90},
	})
	if err := bad.Validate(); err == nil {
		t.Error("expected error for curve on unknown signal")
	}

	if _, ok := SquatProfile().Curves["elbow"]; ok {
		t.Error("WithCurves modified the original profile")
	}
}

func TestProfile_Message(t *testing.T) {
	p := SquatProfile()
	if got := p.Message("bottomPosition"); got != "Bottom position" {
		t.Errorf("Message(bottomPosition) = %q", got)
	}
	if got := p.Message("hovering"); got != "hovering" {
		t.Errorf("Message(hovering) = %q, want phase name", got)
	}
}

func TestSideChecks(t *testing.T) {
	cfg := DefaultCheckConfig()
	access := func(p *detector.Pose) detector.Accessor {
		return detector.NewAccessor(p, detector.DefaultVisibility)
	}

	t.Run("good standing", func(t *testing.T) {
		issues := SideChecks(access(detector.SideViewPose(170, 170)), orientation.LeftSide, 170, 170, cfg)
		if len(issues) != 0 {
			t.Errorf("issues = %v, want none", issues)
		}
	})

	t.Run("torso lean", func(t *testing.T) {
		issues := SideChecks(access(detector.SideViewPose(130, 80)), orientation.LeftSide, 130, 80, cfg)
		if diff := cmp.Diff([]string{IssueTorsoLean}, issues); diff != "" {
			t.Errorf("issues mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("knee forward", func(t *testing.T) {
		p := detector.SideViewPose(120, 110)
		knee := *p.Joints[detector.LeftKnee]
		knee.X += 0.15
		p.Set(detector.LeftKnee, knee)

		issues := SideChecks(access(p), orientation.LeftSide, 120, 110, cfg)
		if diff := cmp.Diff([]string{IssueKneeForward}, issues); diff != "" {
			t.Errorf("issues mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("occluded leg is not checked", func(t *testing.T) {
		p := detector.SideViewPose(120, 110)
		knee := *p.Joints[detector.RightKnee]
		knee.X += 0.15
		p.Set(detector.RightKnee, knee)

		if issues := SideChecks(access(p), orientation.RightSide, 120, 110, cfg); len(issues) != 0 {
			t.Errorf("issues = %v, want none", issues)
		}
	})
}

func TestFrontChecks(t *testing.T) {
	cfg := DefaultCheckConfig()

	p := detector.FrontViewPose(120, 110)
	if issues := FrontChecks(detector.NewAccessor(p, detector.DefaultVisibility), cfg); len(issues) != 0 {
		t.Errorf("aligned knees: issues = %v", issues)
	}

	for j, x := range map[detector.Joint]float64{detector.LeftKnee: 0.45, detector.RightKnee: 0.55} {
		o := *p.Joints[j]
		o.X = x
		p.Set(j, o)
	}
	issues := FrontChecks(detector.NewAccessor(p, detector.DefaultVisibility), cfg)
	if diff := cmp.Diff([]string{IssueKneeCave}, issues); diff != "" {
		t.Errorf("caved knees mismatch (-want +got):\n%s", diff)
	}

	p.Clear(detector.RightKnee)
	if issues := FrontChecks(detector.NewAccessor(p, detector.DefaultVisibility), cfg); issues != nil {
		t.Errorf("hidden knee: issues = %v, want nil", issues)
	}
}
