package app

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/gymcoach/internal/capture"
	"github.com/ayusman/gymcoach/internal/config"
	"github.com/ayusman/gymcoach/internal/detector"
	"github.com/ayusman/gymcoach/internal/exercise"
	"github.com/ayusman/gymcoach/internal/form"
	"github.com/ayusman/gymcoach/internal/store"
)

func ptr[T any](v T) *T { return &v }

func quiet(t *testing.T) {
	t.Helper()
	orig := Logf
	Logf = func(string, ...any) {}
	t.Cleanup(func() { Logf = orig })
}

func newTestApp(t *testing.T, tuning *config.Tuning, st *store.Store) (*App, *detector.MockDetector) {
	t.Helper()
	quiet(t)
	a, err := New(Config{Store: st, Tuning: tuning, Exercise: "squat"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	det := detector.NewMockDetector()
	a.SetDetector(det)
	return a, det
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// squatResults returns detector results for one side-view squat rep.
func squatResults() []detector.Result {
	var angles []float64
	for i := 0; i < 5; i++ {
		angles = append(angles, 178)
	}
	for a := 168.0; a > 75; a -= 10 {
		angles = append(angles, a)
	}
	for i := 0; i < 8; i++ {
		angles = append(angles, 75)
	}
	for a := 85.0; a < 178; a += 10 {
		angles = append(angles, a)
	}
	for i := 0; i < 6; i++ {
		angles = append(angles, 178)
	}

	out := make([]detector.Result, len(angles))
	for i, a := range angles {
		out[i] = detector.ResultFromPose(detector.SideViewPose(a, a))
	}
	return out
}

func TestApp_ProcessFrame_CountsReps(t *testing.T) {
	a, det := newTestApp(t, &config.Tuning{FrameStride: ptr(1)}, nil)
	results := squatResults()
	det.SetSequence(results)

	var reports []exercise.Report
	a.OnReport(func(r exercise.Report) { reports = append(reports, r) })

	frame := gocv.NewMat()
	defer frame.Close()

	ts := time.Unix(1000, 0)
	for range results {
		ts = ts.Add(100 * time.Millisecond)
		if _, ok := a.ProcessFrame(&frame, ts); !ok {
			t.Fatal("ProcessFrame() skipped a frame with stride 1")
		}
	}

	if len(reports) != len(results) {
		t.Fatalf("callback saw %d reports, want %d", len(reports), len(results))
	}
	last, ok := a.LastReport()
	if !ok {
		t.Fatal("LastReport() not set")
	}
	if last.RepCount != 1 {
		t.Errorf("RepCount = %d, want 1", last.RepCount)
	}
	if !last.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", last.Timestamp, ts)
	}
	if last.Quality == detector.QualityNone || last.Quality == "" {
		t.Errorf("Quality = %q, want a graded quality", last.Quality)
	}

	rec, err := a.LastRecording()
	if err != nil {
		t.Fatalf("LastRecording() error = %v", err)
	}
	if len(rec["hip"]) == 0 || len(rec["leg"]) == 0 {
		t.Errorf("recording missing signals: %v", rec.Signals())
	}
}

func TestApp_ProcessFrame_Stride(t *testing.T) {
	a, det := newTestApp(t, &config.Tuning{FrameStride: ptr(3)}, nil)
	det.SetResult(detector.ResultFromPose(detector.SideViewPose(178, 178)))

	frame := gocv.NewMat()
	defer frame.Close()

	var evaluated []int
	for i := 0; i < 7; i++ {
		if _, ok := a.ProcessFrame(&frame, time.Unix(int64(i), 0)); ok {
			evaluated = append(evaluated, i)
		}
	}

	if len(evaluated) != 3 || evaluated[0] != 0 || evaluated[1] != 3 || evaluated[2] != 6 {
		t.Errorf("evaluated frames = %v, want [0 3 6]", evaluated)
	}
	if det.Calls() != 3 {
		t.Errorf("detector called %d times, want 3", det.Calls())
	}
}

func TestApp_ProcessFrame_ZeroStrideEvaluatesEveryFrame(t *testing.T) {
	a, det := newTestApp(t, &config.Tuning{FrameStride: ptr(0), MaxDetectFailures: ptr(0)}, nil)
	det.SetResult(detector.ResultFromPose(detector.SideViewPose(178, 178)))

	frame := gocv.NewMat()
	defer frame.Close()

	for i := 0; i < 3; i++ {
		if _, ok := a.ProcessFrame(&frame, time.Unix(int64(i), 0)); !ok {
			t.Errorf("frame %d was not evaluated", i)
		}
	}
}

func TestApp_ProcessFrame_DegradesAfterFailures(t *testing.T) {
	a, det := newTestApp(t, &config.Tuning{FrameStride: ptr(1), MaxDetectFailures: ptr(3)}, nil)
	det.SetResult(detector.ResultFromPose(detector.SideViewPose(178, 178)))

	frame := gocv.NewMat()
	defer frame.Close()

	r, ok := a.ProcessFrame(&frame, time.Unix(1, 0))
	if !ok || r.Phase != "standing" {
		t.Fatalf("first frame = %+v, %v; want standing", r, ok)
	}

	det.SetError(errors.New("service crashed"))
	for i := 0; i < 2; i++ {
		if _, ok := a.ProcessFrame(&frame, time.Unix(2, 0)); ok {
			t.Fatalf("failure %d should be skipped", i+1)
		}
	}

	ts := time.Unix(3, 0)
	r, ok = a.ProcessFrame(&frame, ts)
	if !ok {
		t.Fatal("third consecutive failure should produce a report")
	}
	if r.FormStatus != exercise.StatusNoPose {
		t.Errorf("FormStatus = %q, want %q", r.FormStatus, exercise.StatusNoPose)
	}
	if r.Quality != detector.QualityNone {
		t.Errorf("Quality = %q, want none", r.Quality)
	}
	if !r.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", r.Timestamp, ts)
	}

	// Empty results count the same as errors, and a good frame clears the run.
	det.SetError(nil)
	det.SetSequence([]detector.Result{{}, detector.ResultFromPose(detector.SideViewPose(178, 178))})
	if _, ok := a.ProcessFrame(&frame, time.Unix(4, 0)); !ok {
		t.Error("empty result after reaching the limit should still report no pose")
	}
	if r, ok := a.ProcessFrame(&frame, time.Unix(5, 0)); !ok || r.FormStatus == exercise.StatusNoPose {
		t.Errorf("good frame = %+v, %v", r, ok)
	}
	if _, ok := a.ProcessFrame(&frame, time.Unix(6, 0)); !ok {
		t.Error("repeated good result should report")
	}
}

func TestApp_SetExercise(t *testing.T) {
	a, det := newTestApp(t, &config.Tuning{FrameStride: ptr(1)}, nil)
	det.SetResult(detector.ResultFromPose(detector.SideViewPose(178, 178)))

	frame := gocv.NewMat()
	defer frame.Close()
	a.ProcessFrame(&frame, time.Unix(1, 0))

	if err := a.SetExercise("burpee"); !errors.Is(err, exercise.ErrUnknownExercise) {
		t.Errorf("SetExercise(burpee) error = %v, want ErrUnknownExercise", err)
	}
	if a.ExerciseName() != "squat" {
		t.Errorf("failed switch changed exercise to %s", a.ExerciseName())
	}

	if err := a.SetExercise("pushup"); err != nil {
		t.Fatalf("SetExercise(pushup) error = %v", err)
	}
	if a.ExerciseName() != "pushup" {
		t.Errorf("ExerciseName() = %s, want pushup", a.ExerciseName())
	}
	if _, ok := a.LastReport(); ok {
		t.Error("switching exercise should clear the last report")
	}
	if a.Profile().Name != "pushup" {
		t.Errorf("Profile().Name = %s, want pushup", a.Profile().Name)
	}
	if a.LastSession() != nil {
		t.Error("fresh exercise should have no session")
	}

	if err := a.SetExercise("plank"); err != nil {
		t.Fatal(err)
	}
	if a.LastSession() != nil {
		t.Error("plank has no sessions")
	}
	if _, err := a.LastRecording(); !errors.Is(err, ErrNoSession) {
		t.Errorf("LastRecording() error = %v, want ErrNoSession", err)
	}
}

func TestNew_UnknownExercise(t *testing.T) {
	quiet(t)
	if _, err := New(Config{Exercise: "burpee"}); err == nil {
		t.Error("expected error for unknown exercise")
	}
}

func storedCurves(t *testing.T) json.RawMessage {
	t.Helper()
	rec := form.Recording{
		"hip": {{T: 0, Angle: 172}, {T: 1 * time.Second, Angle: 80}, {T: 2 * time.Second, Angle: 172}},
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestLoadProfile(t *testing.T) {
	quiet(t)
	st := newTestStore(t)
	tuning := &config.Tuning{IdealRepDuration: ptr("4s")}

	p, err := LoadProfile(st, tuning, "squat")
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if p.Name != "squat" || p.IdealDuration != 4*time.Second {
		t.Errorf("without stored profile got %s/%v, want squat/4s", p.Name, p.IdealDuration)
	}

	stored := &store.Profile{
		ID:             "p1",
		Name:           "my squat",
		Exercise:       "squat",
		IdealDuration:  2 * time.Second,
		TempoTolerance: 0.3,
		Curves:         storedCurves(t),
	}
	if err := st.Profiles().Create(stored); err != nil {
		t.Fatal(err)
	}

	p, err = LoadProfile(st, tuning, "squat")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "squat" {
		t.Errorf("inactive stored profile was applied: %s", p.Name)
	}

	if err := st.Profiles().Activate("p1"); err != nil {
		t.Fatal(err)
	}
	p, err = LoadProfile(st, tuning, "squat")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "my squat" {
		t.Errorf("Name = %s, want my squat", p.Name)
	}
	if p.IdealDuration != 2*time.Second || p.TempoTolerance != 0.3 {
		t.Errorf("tempo = %v ± %v, want 2s ± 0.3", p.IdealDuration, p.TempoTolerance)
	}
	if got := p.Curves["hip"].At(time.Second); got != 80 {
		t.Errorf("hip curve at 1s = %v, want 80", got)
	}
	if _, ok := p.Curves["leg"].(form.PeriodicCurve); !ok {
		t.Error("leg curve should stay built-in")
	}

	pushup, err := LoadProfile(st, tuning, "pushup")
	if err != nil || pushup.Name != "pushup" {
		t.Errorf("push-up profile = %v, %v", pushup, err)
	}
}

func TestLoadProfile_BadStoredCurvesFallBack(t *testing.T) {
	quiet(t)
	st := newTestStore(t)
	bad := &store.Profile{
		ID:       "p1",
		Name:     "broken",
		Exercise: "squat",
		Curves:   json.RawMessage(`{"elbow":[{"t":0,"angle":170},{"t":1000000000,"angle":90}]}`),
	}
	if err := st.Profiles().Create(bad); err != nil {
		t.Fatal(err)
	}
	if err := st.Profiles().Activate("p1"); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(st, nil, "squat")
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if p.Name != "squat" {
		t.Errorf("Name = %s, want built-in squat", p.Name)
	}
}

func TestApp_StartStop_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a, det := newTestApp(t, &config.Tuning{FrameStride: ptr(1), FrameInterval: ptr("5ms")}, nil)
	det.SetResult(detector.ResultFromPose(detector.SideViewPose(178, 178)))

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	a.SetCamera(cam)

	got := make(chan exercise.Report, 64)
	a.OnReport(func(r exercise.Report) {
		select {
		case got <- r:
		default:
		}
	})

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !a.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}

	select {
	case r := <-got:
		if r.Exercise != "squat" {
			t.Errorf("report exercise = %s", r.Exercise)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no report within 2s")
	}

	if _, ok := a.LatestJPEG(); !ok {
		t.Error("LatestJPEG() empty while running")
	}

	a.Stop()
	if a.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	if cam.IsOpen() {
		t.Error("camera still open after Stop")
	}
	if _, ok := a.LastReport(); ok {
		t.Error("Stop should reset the last report")
	}
	a.Stop()
}
