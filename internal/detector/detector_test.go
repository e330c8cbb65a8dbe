package detector

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

const epsilon = 1e-9

func TestAccessor_VisibilityGate(t *testing.T) {
	tests := []struct {
		name       string
		visibility float64
		want       bool
	}{
		{"well below threshold", 0.1, false},
		{"just below threshold", DefaultVisibility - 1e-6, false},
		{"exactly at threshold", DefaultVisibility, false},
		{"just above threshold", DefaultVisibility + 1e-6, true},
		{"fully visible", 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Pose{}
			p.Set(LeftKnee, Observation{X: 0.5, Y: 0.5, Visibility: tt.visibility})

			acc := NewAccessor(p, DefaultVisibility)
			_, got := acc.Get(LeftKnee)
			if got != tt.want {
				t.Errorf("Get(LeftKnee) visible = %v, want %v", got, tt.want)
			}

			// GetRaw ignores the gate.
			if _, ok := acc.GetRaw(LeftKnee); !ok {
				t.Error("GetRaw(LeftKnee) should return the observation")
			}
		})
	}
}

func TestAccessor_MissingJoints(t *testing.T) {
	t.Run("nil pose", func(t *testing.T) {
		acc := NewAccessor(nil, DefaultVisibility)
		if acc.HasPose() {
			t.Error("HasPose() should be false for nil pose")
		}
		if _, ok := acc.Get(Nose); ok {
			t.Error("Get() should report absent for nil pose")
		}
		if n := acc.CountVisible(); n != 0 {
			t.Errorf("CountVisible() = %d, want 0", n)
		}
	})

	t.Run("joint not reported", func(t *testing.T) {
		acc := NewAccessor(&Pose{}, DefaultVisibility)
		if _, ok := acc.GetRaw(LeftWrist); ok {
			t.Error("GetRaw() should report absent for unreported joint")
		}
	})

	t.Run("out of range joint", func(t *testing.T) {
		acc := NewAccessor(&Pose{}, DefaultVisibility)
		if _, ok := acc.Get(NumJoints); ok {
			t.Error("Get(NumJoints) should report absent")
		}
		if _, ok := acc.Get(Joint(-1)); ok {
			t.Error("Get(-1) should report absent")
		}
	})

	t.Run("cleared joint", func(t *testing.T) {
		p := SideViewPose(180, 180)
		p.Clear(LeftKnee)
		acc := NewAccessor(p, DefaultVisibility)
		if acc.Visible(LeftHip, LeftKnee, LeftAnkle) {
			t.Error("Visible() should be false when a joint is cleared")
		}
		if !acc.Visible(LeftHip, LeftAnkle) {
			t.Error("Visible() should be true for remaining joints")
		}
	})
}

func TestAccessor_WithThreshold(t *testing.T) {
	p := &Pose{}
	p.Set(LeftHip, Observation{Visibility: 0.6})

	acc := NewAccessor(p, DefaultVisibility)
	if _, ok := acc.Get(LeftHip); !ok {
		t.Fatal("expected hip visible at default threshold")
	}

	strict := acc.WithThreshold(0.7)
	if _, ok := strict.Get(LeftHip); ok {
		t.Error("expected hip hidden at strict threshold")
	}
	if strict.Threshold() != 0.7 {
		t.Errorf("Threshold() = %f, want 0.7", strict.Threshold())
	}
}

func TestJoint_String(t *testing.T) {
	if got := LeftKnee.String(); got != "left_knee" {
		t.Errorf("LeftKnee.String() = %q, want left_knee", got)
	}
	if got := RightFootIndex.String(); got != "right_foot_index" {
		t.Errorf("RightFootIndex.String() = %q, want right_foot_index", got)
	}
	if got := Joint(99).String(); got != "joint(99)" {
		t.Errorf("Joint(99).String() = %q", got)
	}
}

func TestLayout_Normalize(t *testing.T) {
	ts := time.Unix(100, 0)

	t.Run("empty result is no pose", func(t *testing.T) {
		if p := BlazePose33.Normalize(Result{}, ts); p != nil {
			t.Errorf("expected nil pose, got %+v", p)
		}
		if p := BlazePose33.Normalize(Result{Landmarks: [][]*Landmark{{}}}, ts); p != nil {
			t.Errorf("expected nil pose for empty instance, got %+v", p)
		}
	})

	t.Run("coco17 indices map to named joints", func(t *testing.T) {
		raw := make([]*Landmark, 17)
		for i := range raw {
			raw[i] = &Landmark{X: float64(i) / 100, Visibility: 0.9}
		}
		raw[3] = nil // left ear missing

		p := COCO17.Normalize(Result{Landmarks: [][]*Landmark{raw}}, ts)
		if p == nil {
			t.Fatal("expected pose")
		}
		if !p.Timestamp.Equal(ts) {
			t.Errorf("Timestamp = %v, want %v", p.Timestamp, ts)
		}

		acc := NewAccessor(p, DefaultVisibility)
		knee, ok := acc.Get(LeftKnee)
		if !ok {
			t.Fatal("left knee should be present")
		}
		if math.Abs(knee.X-0.13) > epsilon {
			t.Errorf("left knee X = %f, want 0.13 (coco index 13)", knee.X)
		}
		if _, ok := acc.GetRaw(LeftEar); ok {
			t.Error("nil landmark should be absent")
		}
		if _, ok := acc.GetRaw(LeftHeel); ok {
			t.Error("joints outside the layout should be absent")
		}
	})

	t.Run("coco17 score is used as visibility", func(t *testing.T) {
		var r Result
		if err := json.Unmarshal([]byte(`{"landmarks":[[{"x":0.5,"y":0.2,"score":0.9}]]}`), &r); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		p := COCO17.Normalize(r, ts)
		if p == nil {
			t.Fatal("expected pose")
		}
		nose, ok := NewAccessor(p, DefaultVisibility).Get(Nose)
		if !ok {
			t.Fatal("nose keyed by score should pass the visibility gate")
		}
		if math.Abs(nose.Visibility-0.9) > epsilon {
			t.Errorf("nose visibility = %f, want 0.9", nose.Visibility)
		}
	})

	t.Run("visibility wins over score", func(t *testing.T) {
		lm := &Landmark{Visibility: 0.3, Score: 0.9}
		if got := lm.Confidence(); got != 0.3 {
			t.Errorf("Confidence() = %f, want 0.3", got)
		}
	})

	t.Run("blazepose ignores extra landmarks", func(t *testing.T) {
		raw := make([]*Landmark, 40)
		for i := range raw {
			raw[i] = &Landmark{Visibility: 1}
		}
		p := BlazePose33.Normalize(Result{Landmarks: [][]*Landmark{raw}}, ts)
		if p == nil {
			t.Fatal("expected pose")
		}
		if n := NewAccessor(p, DefaultVisibility).CountVisible(); n != int(NumJoints) {
			t.Errorf("CountVisible() = %d, want %d", n, NumJoints)
		}
	})
}

func TestLayoutByName(t *testing.T) {
	for _, name := range []string{"", "blazepose33", "coco17"} {
		if _, err := LayoutByName(name); err != nil {
			t.Errorf("LayoutByName(%q) error = %v", name, err)
		}
	}
	if _, err := LayoutByName("openpose25"); err == nil {
		t.Error("expected error for unknown layout")
	}
}

func TestLayout_Quality(t *testing.T) {
	full := &Pose{}
	for j := Joint(0); j < NumJoints; j++ {
		full.Set(j, Observation{Visibility: 0.9})
	}

	if q := BlazePose33.Quality(NewAccessor(full, DefaultVisibility)); q != QualityHigh {
		t.Errorf("full pose quality = %s, want high", q)
	}

	medium := *full
	for j := Joint(0); j < 11; j++ {
		medium.Clear(j)
	}
	if q := BlazePose33.Quality(NewAccessor(&medium, DefaultVisibility)); q != QualityMedium {
		t.Errorf("22/33 pose quality = %s, want medium", q)
	}

	if q := BlazePose33.Quality(NewAccessor(&Pose{}, DefaultVisibility)); q != QualityLow {
		t.Errorf("empty pose quality = %s, want low", q)
	}

	if q := BlazePose33.Quality(NewAccessor(nil, DefaultVisibility)); q != QualityNone {
		t.Errorf("nil pose quality = %s, want none", q)
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty result by default", func(t *testing.T) {
		mock := NewMockDetector()

		r, err := mock.Detect(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(r.Landmarks) != 0 {
			t.Errorf("expected no landmarks, got %d", len(r.Landmarks))
		}
	})

	t.Run("plays back a sequence and holds the last result", func(t *testing.T) {
		mock := NewMockDetector()
		first := ResultFromPose(SideViewPose(180, 180))
		second := ResultFromPose(SideViewPose(90, 90))
		mock.SetSequence([]Result{first, second})

		for i, want := range []Result{first, second, second} {
			got, err := mock.Detect(nil)
			if err != nil {
				t.Fatalf("call %d: unexpected error: %v", i, err)
			}
			if got.Landmarks[0][LeftHip].Y != want.Landmarks[0][LeftHip].Y {
				t.Errorf("call %d: unexpected result", i)
			}
		}
		if mock.Calls() != 3 {
			t.Errorf("Calls() = %d, want 3", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		_, err := mock.Detect(nil)
		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

// angleAt returns the 3D angle at vertex v in degrees.
func angleAt(a, v, b Observation) float64 {
	ax, ay, az := a.X-v.X, a.Y-v.Y, a.Z-v.Z
	bx, by, bz := b.X-v.X, b.Y-v.Y, b.Z-v.Z
	dot := ax*bx + ay*by + az*bz
	n := math.Sqrt(ax*ax+ay*ay+az*az) * math.Sqrt(bx*bx+by*by+bz*bz)
	return math.Acos(math.Max(-1, math.Min(1, dot/n))) * 180 / math.Pi
}

func TestFixtures_Angles(t *testing.T) {
	tests := []struct {
		name      string
		pose      func(k, h float64) *Pose
		knee, hip float64
	}{
		{"side standing", SideViewPose, 178, 178},
		{"side bottom", SideViewPose, 75, 75},
		{"side half squat", SideViewPose, 130, 120},
		{"front standing", FrontViewPose, 178, 178},
		{"front bottom", FrontViewPose, 80, 78},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.pose(tt.knee, tt.hip)
			acc := NewAccessor(p, DefaultVisibility)

			hip, _ := acc.Get(LeftHip)
			knee, _ := acc.Get(LeftKnee)
			ankle, _ := acc.Get(LeftAnkle)
			shoulder, _ := acc.Get(LeftShoulder)

			if got := angleAt(hip, knee, ankle); math.Abs(got-tt.knee) > 1e-6 {
				t.Errorf("knee angle = %f, want %f", got, tt.knee)
			}
			if got := angleAt(shoulder, hip, knee); math.Abs(got-tt.hip) > 1e-6 {
				t.Errorf("hip angle = %f, want %f", got, tt.hip)
			}
		})
	}
}
