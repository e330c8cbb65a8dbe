package chart

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ayusman/gymcoach/internal/form"
	"github.com/ayusman/gymcoach/internal/phase"
)

func testSession() *phase.Session {
	t0 := time.Unix(100, 0)
	s := &phase.Session{Signals: []string{"hip", "leg"}, Start: t0, End: t0.Add(3 * time.Second)}
	ref := form.SquatProfile()
	for t := time.Duration(0); t <= 3*time.Second; t += 100 * time.Millisecond {
		s.Samples = append(s.Samples, phase.Sample{
			T:      t0.Add(t),
			Angles: []float64{ref.Curves["hip"].At(t) + 3, ref.Curves["leg"].At(t)},
		})
	}
	return s
}

func TestSessionPlot(t *testing.T) {
	pl, err := SessionPlot(testSession(), form.SquatProfile())
	if err != nil {
		t.Fatalf("SessionPlot() error = %v", err)
	}
	if pl.Title.Text != "squat: last rep (3.0s)" {
		t.Errorf("Title = %q", pl.Title.Text)
	}
}

func TestSessionPlot_NoSession(t *testing.T) {
	if _, err := SessionPlot(nil, form.SquatProfile()); !errors.Is(err, ErrNoSession) {
		t.Errorf("SessionPlot(nil) error = %v, want ErrNoSession", err)
	}
	empty := &phase.Session{Signals: []string{"hip"}}
	if _, err := SessionPlot(empty, form.SquatProfile()); !errors.Is(err, ErrNoSession) {
		t.Errorf("SessionPlot(empty) error = %v, want ErrNoSession", err)
	}
}

func TestReferencePoints(t *testing.T) {
	ref := form.PeriodicCurve{Period: 3 * time.Second, Top: 175, Bottom: 75}
	pts := referencePoints(ref, 1500*time.Millisecond)

	if len(pts) != 31 {
		t.Fatalf("got %d points, want 31", len(pts))
	}
	if pts[15].Y != 75 {
		t.Errorf("midpoint = %v, want 75", pts[15].Y)
	}
	if pts[30].X != 1.5 {
		t.Errorf("last X = %v, want 1.5", pts[30].X)
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, testSession(), form.SquatProfile(), DefaultWidth, DefaultHeight); err != nil {
		t.Fatalf("WritePNG() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}
