// Package config loads tuning parameters for the pose pipeline from JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/gymcoach/internal/detector"
	"github.com/ayusman/gymcoach/internal/exercise"
	"github.com/ayusman/gymcoach/internal/form"
	"github.com/ayusman/gymcoach/internal/geometry"
	"github.com/ayusman/gymcoach/internal/orientation"
	"github.com/ayusman/gymcoach/internal/phase"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Tuning holds every empirically tuned threshold. Omitted fields fall back
// to built-in defaults through the Get* accessors, so partial files are safe.
type Tuning struct {
	// Detection
	VisibilityThreshold *float64 `json:"visibility_threshold,omitempty"`
	LandmarkLayout      *string  `json:"landmark_layout,omitempty"`
	DetectorModel       *string  `json:"detector_model,omitempty"`
	FrameInterval       *string  `json:"frame_interval,omitempty"` // duration string like "33ms"
	FrameStride         *int     `json:"frame_stride,omitempty"`
	MaxDetectFailures   *int     `json:"max_detect_failures,omitempty"`

	// Angles
	SmoothingFactor   *float64 `json:"smoothing_factor,omitempty"`
	SmoothingMaxDelta *float64 `json:"smoothing_max_delta,omitempty"`
	MinConfidence3D   *float64 `json:"min_confidence_3d,omitempty"`

	// Orientation
	ShoulderSideThreshold  *float64 `json:"shoulder_side_threshold,omitempty"`
	ShoulderFrontThreshold *float64 `json:"shoulder_front_threshold,omitempty"`
	HipSideThreshold       *float64 `json:"hip_side_threshold,omitempty"`
	HipFrontThreshold      *float64 `json:"hip_front_threshold,omitempty"`
	NormalizeByBodyScale   *bool    `json:"normalize_by_body_scale,omitempty"`

	// Sessions and scoring
	MovementStartThreshold *float64 `json:"movement_start_threshold,omitempty"`
	MovementEndThreshold   *float64 `json:"movement_end_threshold,omitempty"`
	ScoreInterval          *string  `json:"score_interval,omitempty"`
	ScoreErrorCap          *float64 `json:"score_error_cap,omitempty"`
	IdealRepDuration       *string  `json:"ideal_rep_duration,omitempty"`
	TempoTolerance         *float64 `json:"tempo_tolerance,omitempty"`

	// Form checks
	KneeForwardTolerance *float64 `json:"knee_forward_tolerance,omitempty"`
	TorsoLeanTolerance   *float64 `json:"torso_lean_tolerance,omitempty"`
	KneeCaveTolerance    *float64 `json:"knee_cave_tolerance,omitempty"`
}

// EmptyTuning returns a Tuning with every field unset.
func EmptyTuning() *Tuning {
	return &Tuning{}
}

// LoadTuning loads a Tuning from a JSON file. The file must have a .json
// extension and be under 1MB.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDefaultTuning looks for DefaultConfigPath in the working directory and
// its parents, for use from tests and the repository root.
func LoadDefaultTuning() (*Tuning, error) {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	var lastErr error
	for _, path := range candidates {
		cfg, err := LoadTuning(path)
		if err == nil {
			return cfg, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("cannot find %s: %w", DefaultConfigPath, lastErr)
}

// Validate checks that set values are in range.
func (c *Tuning) Validate() error {
	unit := map[string]*float64{
		"visibility_threshold": c.VisibilityThreshold,
		"smoothing_factor":     c.SmoothingFactor,
		"min_confidence_3d":    c.MinConfidence3D,
		"tempo_tolerance":      c.TempoTolerance,
	}
	for name, v := range unit {
		if v != nil && (*v < 0 || *v >= 1) {
			return fmt.Errorf("%s must be in [0, 1), got %f", name, *v)
		}
	}

	positive := map[string]*float64{
		"smoothing_max_delta":      c.SmoothingMaxDelta,
		"shoulder_side_threshold":  c.ShoulderSideThreshold,
		"shoulder_front_threshold": c.ShoulderFrontThreshold,
		"hip_side_threshold":       c.HipSideThreshold,
		"hip_front_threshold":      c.HipFrontThreshold,
		"movement_start_threshold": c.MovementStartThreshold,
		"movement_end_threshold":   c.MovementEndThreshold,
		"score_error_cap":          c.ScoreErrorCap,
		"knee_forward_tolerance":   c.KneeForwardTolerance,
		"torso_lean_tolerance":     c.TorsoLeanTolerance,
		"knee_cave_tolerance":      c.KneeCaveTolerance,
	}
	for name, v := range positive {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
	}

	if c.GetShoulderSideThreshold() > c.GetShoulderFrontThreshold() {
		return fmt.Errorf("shoulder_side_threshold %.3f exceeds shoulder_front_threshold %.3f",
			c.GetShoulderSideThreshold(), c.GetShoulderFrontThreshold())
	}
	if c.GetHipSideThreshold() > c.GetHipFrontThreshold() {
		return fmt.Errorf("hip_side_threshold %.3f exceeds hip_front_threshold %.3f",
			c.GetHipSideThreshold(), c.GetHipFrontThreshold())
	}
	if c.GetMovementEndThreshold() >= c.GetMovementStartThreshold() {
		return fmt.Errorf("movement_end_threshold %.1f must be below movement_start_threshold %.1f",
			c.GetMovementEndThreshold(), c.GetMovementStartThreshold())
	}

	if c.FrameStride != nil && *c.FrameStride < 1 {
		return fmt.Errorf("frame_stride must be at least 1, got %d", *c.FrameStride)
	}
	if c.MaxDetectFailures != nil && *c.MaxDetectFailures < 1 {
		return fmt.Errorf("max_detect_failures must be at least 1, got %d", *c.MaxDetectFailures)
	}
	if c.LandmarkLayout != nil {
		if _, err := detector.LayoutByName(*c.LandmarkLayout); err != nil {
			return err
		}
	}

	durations := map[string]*string{
		"frame_interval":     c.FrameInterval,
		"score_interval":     c.ScoreInterval,
		"ideal_rep_duration": c.IdealRepDuration,
	}
	for name, v := range durations {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}
	return nil
}

func getFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func getDuration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetVisibilityThreshold returns the joint visibility gate.
func (c *Tuning) GetVisibilityThreshold() float64 {
	return getFloat(c.VisibilityThreshold, detector.DefaultVisibility)
}

// GetLandmarkLayout returns the upstream model's landmark layout.
func (c *Tuning) GetLandmarkLayout() detector.Layout {
	if c.LandmarkLayout == nil {
		return detector.BlazePose33
	}
	l, err := detector.LayoutByName(*c.LandmarkLayout)
	if err != nil {
		return detector.BlazePose33
	}
	return l
}

// GetDetectorModel returns the pose model variant.
func (c *Tuning) GetDetectorModel() string {
	if c.DetectorModel == nil || *c.DetectorModel == "" {
		return "lite"
	}
	return *c.DetectorModel
}

// GetFrameInterval returns the capture interval.
func (c *Tuning) GetFrameInterval() time.Duration {
	return getDuration(c.FrameInterval, 33*time.Millisecond)
}

// GetFrameStride returns N where every Nth frame is evaluated.
func (c *Tuning) GetFrameStride() int {
	if c.FrameStride == nil {
		return 3
	}
	return max(*c.FrameStride, 1)
}

// GetMaxDetectFailures returns how many consecutive failed detections are
// tolerated before the report degrades to no pose.
func (c *Tuning) GetMaxDetectFailures() int {
	if c.MaxDetectFailures == nil {
		return 5
	}
	return max(*c.MaxDetectFailures, 1)
}

// GetShoulderSideThreshold returns the shoulder side cutoff.
func (c *Tuning) GetShoulderSideThreshold() float64 {
	return getFloat(c.ShoulderSideThreshold, orientation.DefaultThresholds().ShoulderSide)
}

// GetShoulderFrontThreshold returns the shoulder front cutoff.
func (c *Tuning) GetShoulderFrontThreshold() float64 {
	return getFloat(c.ShoulderFrontThreshold, orientation.DefaultThresholds().ShoulderFront)
}

// GetHipSideThreshold returns the hip side cutoff.
func (c *Tuning) GetHipSideThreshold() float64 {
	return getFloat(c.HipSideThreshold, orientation.DefaultThresholds().HipSide)
}

// GetHipFrontThreshold returns the hip front cutoff.
func (c *Tuning) GetHipFrontThreshold() float64 {
	return getFloat(c.HipFrontThreshold, orientation.DefaultThresholds().HipFront)
}

// GetMovementStartThreshold returns the session start deviation.
func (c *Tuning) GetMovementStartThreshold() float64 {
	return getFloat(c.MovementStartThreshold, phase.DefaultStartThreshold)
}

// GetMovementEndThreshold returns the session end deviation.
func (c *Tuning) GetMovementEndThreshold() float64 {
	return getFloat(c.MovementEndThreshold, phase.DefaultEndThreshold)
}

// GetIdealRepDuration returns the ideal duration of one rep.
func (c *Tuning) GetIdealRepDuration() time.Duration {
	return getDuration(c.IdealRepDuration, form.DefaultIdealDuration)
}

// GetTempoTolerance returns the accepted tempo deviation as a fraction.
func (c *Tuning) GetTempoTolerance() float64 {
	return getFloat(c.TempoTolerance, form.DefaultTempoTolerance)
}

// ExerciseConfig builds the exercise configuration.
func (c *Tuning) ExerciseConfig() exercise.Config {
	return exercise.Config{
		Visibility: c.GetVisibilityThreshold(),
		Geometry: geometry.Options{
			Smoothing:       getFloat(c.SmoothingFactor, geometry.DefaultSmoothing),
			MaxSmoothDelta:  getFloat(c.SmoothingMaxDelta, geometry.DefaultSmoothingMaxDelta),
			MinConfidence3D: getFloat(c.MinConfidence3D, geometry.DefaultMinConfidence3D),
		},
		Orientation: orientation.Thresholds{
			ShoulderSide:         c.GetShoulderSideThreshold(),
			ShoulderFront:        c.GetShoulderFrontThreshold(),
			HipSide:              c.GetHipSideThreshold(),
			HipFront:             c.GetHipFrontThreshold(),
			NormalizeByBodyScale: c.NormalizeByBodyScale != nil && *c.NormalizeByBodyScale,
		},
		Session: phase.SessionConfig{
			StartThreshold: c.GetMovementStartThreshold(),
			EndThreshold:   c.GetMovementEndThreshold(),
		},
		Scorer: form.ScorerConfig{
			Interval: getDuration(c.ScoreInterval, form.DefaultSampleInterval),
			ErrorCap: getFloat(c.ScoreErrorCap, form.DefaultErrorCap),
		},
		Checks: form.CheckConfig{
			KneeForward: getFloat(c.KneeForwardTolerance, form.DefaultCheckConfig().KneeForward),
			TorsoLean:   getFloat(c.TorsoLeanTolerance, form.DefaultCheckConfig().TorsoLean),
			KneeCave:    getFloat(c.KneeCaveTolerance, form.DefaultCheckConfig().KneeCave),
		},
	}
}

// TuneProfile returns a copy of p with the configured tempo window. The
// squat window comes from ideal_rep_duration; other exercises keep their own
// ideal duration unless p has none.
func (c *Tuning) TuneProfile(p *form.Profile) *form.Profile {
	cp := *p
	if cp.Name == "squat" || cp.IdealDuration == 0 {
		cp.IdealDuration = c.GetIdealRepDuration()
	}
	cp.TempoTolerance = c.GetTempoTolerance()
	return &cp
}
