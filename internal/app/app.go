// Package app wires camera capture, pose detection and exercise evaluation
// into one pipeline per camera.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/gymcoach/internal/capture"
	"github.com/ayusman/gymcoach/internal/config"
	"github.com/ayusman/gymcoach/internal/detector"
	"github.com/ayusman/gymcoach/internal/exercise"
	"github.com/ayusman/gymcoach/internal/form"
	"github.com/ayusman/gymcoach/internal/phase"
	"github.com/ayusman/gymcoach/internal/store"
)

// Logf is the package logger. Tests may replace it.
var Logf = log.Printf

// DefaultExercise is evaluated when none is configured.
const DefaultExercise = "squat"

// Config holds configuration options for the application.
type Config struct {
	Store    *store.Store
	Tuning   *config.Tuning
	CameraID int
	Exercise string
}

// ReportFunc receives every evaluated frame.
type ReportFunc func(exercise.Report)

// App owns the camera, detector and exercise for one camera.
type App struct {
	config   Config
	tuning   *config.Tuning
	layout   detector.Layout
	camera   capture.Camera
	detector detector.Detector

	mu        sync.RWMutex
	enabled   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	exercise  exercise.Exercise
	profile   *form.Profile
	callbacks []ReportFunc

	// Pipeline state, guarded by mu.
	frames   int
	failures int
	last     *exercise.Report
	jpeg     []byte
}

// New creates an App. The MediaPipe detector is used when available, else a
// mock detector that never finds a person.
func New(cfg Config) (*App, error) {
	if cfg.Tuning == nil {
		cfg.Tuning = config.EmptyTuning()
	}
	if cfg.Exercise == "" {
		cfg.Exercise = DefaultExercise
	}

	interval := cfg.Tuning.GetFrameInterval()
	camCfg := capture.DefaultConfig(cfg.CameraID)
	camCfg.FPS = int(time.Second / interval)

	a := &App{
		config:  cfg,
		tuning:  cfg.Tuning,
		layout:  cfg.Tuning.GetLandmarkLayout(),
		camera:  capture.NewCamera(camCfg),
		enabled: true,
	}

	if err := a.SetExercise(cfg.Exercise); err != nil {
		return nil, err
	}

	detCfg := detector.DefaultConfig()
	detCfg.Model = cfg.Tuning.GetDetectorModel()
	if mp, err := detector.NewMediaPipeDetector(detCfg); err == nil {
		a.detector = mp
		Logf("using MediaPipe pose detection (%s model)", detCfg.Model)
	} else {
		Logf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a, nil
}

// CameraID returns the id of the camera this app reads from.
func (a *App) CameraID() int {
	return a.config.CameraID
}

// SetEnabled enables or disables evaluation. Frames are still captured
// while disabled so the preview stream keeps working.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether evaluation is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the pose detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// SetCamera replaces the camera. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Camera returns the camera.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// OnReport registers a callback invoked with every report. Callbacks run on
// the pipeline goroutine and must not block.
func (a *App) OnReport(fn ReportFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, fn)
}

// SetExercise switches to the named exercise, loading its active profile
// from the store. All per-run state starts fresh.
func (a *App) SetExercise(name string) error {
	profile, err := LoadProfile(a.config.Store, a.tuning, name)
	if err != nil {
		return err
	}

	cfg := a.tuning.ExerciseConfig()
	cfg.Profile = profile
	ex, err := exercise.New(name, cfg)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.exercise = ex
	a.profile = profile
	a.resetLocked()
	Logf("exercise set to %s (profile %s)", name, profile.Name)
	return nil
}

// ReloadProfile re-reads the active profile for the current exercise.
func (a *App) ReloadProfile() error {
	return a.SetExercise(a.ExerciseName())
}

// ExerciseName returns the current exercise.
func (a *App) ExerciseName() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.exercise.Name()
}

// Profile returns the reference profile in use.
func (a *App) Profile() *form.Profile {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.profile
}

// LastReport returns the most recent report.
func (a *App) LastReport() (exercise.Report, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return exercise.Report{}, false
	}
	return *a.last, true
}

// LastSession returns the last completed movement session, or nil when the
// exercise has none.
func (a *App) LastSession() *phase.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if src, ok := a.exercise.(interface{ LastSession() *phase.Session }); ok {
		return src.LastSession()
	}
	return nil
}

// LatestJPEG returns the most recently captured frame encoded as JPEG.
func (a *App) LatestJPEG() ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.jpeg, a.jpeg != nil
}

// Reset clears exercise state and the rep count.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
}

func (a *App) resetLocked() {
	a.exercise.Reset()
	a.frames = 0
	a.failures = 0
	a.last = nil
}

// Start opens the camera and begins the capture loop. Exercise state is
// reset so counts start from zero.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera %d: %w", a.config.CameraID, err)
	}

	a.resetLocked()
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	Logf("pipeline started on camera %d", a.config.CameraID)
	return nil
}

// Stop halts the capture loop, waits for it to exit and releases the camera.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.camera.Close(); err != nil {
		Logf("error closing camera: %v", err)
	}
	a.resetLocked()
	Logf("pipeline stopped on camera %d", a.config.CameraID)
}

// Close stops the pipeline and releases the detector.
func (a *App) Close() error {
	a.Stop()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detector == nil {
		return nil
	}
	return a.detector.Close()
}

// IsRunning reports whether the capture loop is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// ErrNoSession is returned when a rep is requested before one completed.
var ErrNoSession = errors.New("no completed rep")

// LastRecording returns the angle series of the last completed rep.
func (a *App) LastRecording() (form.Recording, error) {
	s := a.LastSession()
	if s == nil {
		return nil, ErrNoSession
	}
	return form.RecordSession(s), nil
}

// encodeJPEG keeps the frame for the preview stream.
func (a *App) encodeJPEG(frame *gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.mu.Lock()
	a.jpeg = data
	a.mu.Unlock()
}
