// Package exercise implements per-exercise evaluation strategies on top of
// the geometry, orientation, phase and form packages.
package exercise

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ayusman/gymcoach/internal/detector"
	"github.com/ayusman/gymcoach/internal/form"
	"github.com/ayusman/gymcoach/internal/geometry"
	"github.com/ayusman/gymcoach/internal/orientation"
	"github.com/ayusman/gymcoach/internal/phase"
)

// ErrUnknownExercise is returned by New for unregistered names.
var ErrUnknownExercise = errors.New("unknown exercise")

// Status messages shared by all exercises.
const (
	StatusNoPose     = "No pose detected"
	StatusTurn       = "Turn to the side or face the camera"
	StatusOutOfFrame = "Move fully into view"
)

// Exercise evaluates one frame at a time. Implementations keep per-instance
// state and are not safe for concurrent use.
type Exercise interface {
	Name() string
	// Evaluate processes one frame. A nil pose means no person was detected.
	Evaluate(p *detector.Pose) Report
	// Reset returns the exercise to its initial state.
	Reset()
}

// Report is the per-frame output consumed by the display layer.
type Report struct {
	Exercise    string              `json:"exercise"`
	Phase       phase.Phase         `json:"phase"`
	RepCount    int                 `json:"repCount"`
	Orientation orientation.State   `json:"orientation"`
	FormStatus  string              `json:"formStatus"`
	FormClass   form.Class          `json:"formClass"`
	Issues      []string            `json:"issues"`
	Score       *float64            `json:"score"`
	Tempo       form.Tempo          `json:"tempo,omitempty"`
	HoldSeconds float64             `json:"holdSeconds,omitempty"`
	Quality     detector.Quality    `json:"quality,omitempty"`
	DebugAngles map[string]*float64 `json:"debugAngles"`
	Timestamp   time.Time           `json:"timestamp"`
}

// Config carries the tunables shared by every exercise.
type Config struct {
	Visibility  float64
	Geometry    geometry.Options
	Orientation orientation.Thresholds
	Session     phase.SessionConfig
	Scorer      form.ScorerConfig
	Checks      form.CheckConfig
	// Profile overrides the exercise's built-in reference when set.
	Profile *form.Profile
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Visibility:  detector.DefaultVisibility,
		Geometry:    geometry.DefaultOptions(),
		Orientation: orientation.DefaultThresholds(),
		Session:     phase.DefaultSessionConfig(),
		Scorer:      form.DefaultScorerConfig(),
		Checks:      form.DefaultCheckConfig(),
	}
}

// Factory creates an exercise.
type Factory func(cfg Config) (Exercise, error)

var registry = map[string]Factory{
	"squat":  func(cfg Config) (Exercise, error) { return NewSquat(cfg) },
	"pushup": func(cfg Config) (Exercise, error) { return NewPushUp(cfg) },
	"plank":  func(cfg Config) (Exercise, error) { return NewPlank(cfg) },
}

// New creates the named exercise.
func New(name string, cfg Config) (Exercise, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, name)
	}
	return f(cfg)
}

// Names returns the registered exercise names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultProfile returns the built-in reference profile for an exercise.
func DefaultProfile(name string) (*form.Profile, error) {
	switch name {
	case "squat":
		return form.SquatProfile(), nil
	case "pushup":
		return form.PushUpProfile(), nil
	case "plank":
		return form.PlankProfile(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownExercise, name)
}

func profileOrDefault(cfg Config, fallback *form.Profile) (*form.Profile, error) {
	p := fallback
	if cfg.Profile != nil {
		p = cfg.Profile
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.Name, err)
	}
	return p, nil
}

func angleRef(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
