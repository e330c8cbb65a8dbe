package form

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/interp"
)

// Curve is an ideal angle trajectory over one nominal repetition.
type Curve interface {
	// Duration is the nominal length of one repetition.
	Duration() time.Duration
	// At returns the ideal angle at offset t, clamped to [0, Duration].
	At(t time.Duration) float64
}

// CurvePoint is one sample of an angle trajectory.
type CurvePoint struct {
	T     time.Duration `json:"t"`
	Angle float64       `json:"angle"`
}

// ErrTooFewPoints is returned when a series has fewer than two distinct times.
var ErrTooFewPoints = errors.New("at least two distinct points are required")

// SampledCurve interpolates linearly between recorded points.
type SampledCurve struct {
	points []CurvePoint
	fit    interp.PiecewiseLinear
}

// NewSampledCurve builds a curve from points ordered by time. The first point
// is taken as offset zero. Points that do not advance in time are dropped.
func NewSampledCurve(points []CurvePoint) (*SampledCurve, error) {
	xs, ys, kept := monotonic(points)
	if len(xs) < 2 {
		return nil, ErrTooFewPoints
	}

	c := &SampledCurve{points: kept}
	if err := c.fit.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fit curve: %w", err)
	}
	return c, nil
}

// Duration returns the offset of the last point.
func (c *SampledCurve) Duration() time.Duration {
	return c.points[len(c.points)-1].T
}

// At returns the interpolated angle at t.
func (c *SampledCurve) At(t time.Duration) float64 {
	t = clampOffset(t, c.Duration())
	return c.fit.Predict(t.Seconds())
}

// Points returns the curve's samples, starting at offset zero.
func (c *SampledCurve) Points() []CurvePoint {
	return append([]CurvePoint(nil), c.points...)
}

func monotonic(points []CurvePoint) (xs, ys []float64, kept []CurvePoint) {
	if len(points) == 0 {
		return nil, nil, nil
	}
	origin := points[0].T
	for _, p := range points {
		if math.IsNaN(p.Angle) || math.IsInf(p.Angle, 0) {
			continue
		}
		off := p.T - origin
		if len(kept) > 0 && off <= kept[len(kept)-1].T {
			continue
		}
		kept = append(kept, CurvePoint{T: off, Angle: p.Angle})
		xs = append(xs, off.Seconds())
		ys = append(ys, p.Angle)
	}
	return xs, ys, kept
}

// PeriodicCurve is a half-cosine dip from Top down to Bottom and back over
// one Period.
type PeriodicCurve struct {
	Period time.Duration `json:"period"`
	Top    float64       `json:"top"`
	Bottom float64       `json:"bottom"`
}

// Duration returns the period.
func (c PeriodicCurve) Duration() time.Duration {
	return c.Period
}

// At returns the ideal angle at t.
func (c PeriodicCurve) At(t time.Duration) float64 {
	if c.Period <= 0 {
		return c.Top
	}
	t = clampOffset(t, c.Period)
	theta := 2 * math.Pi * float64(t) / float64(c.Period)
	return c.Top - (c.Top-c.Bottom)*(1-math.Cos(theta))/2
}

func clampOffset(t, limit time.Duration) time.Duration {
	if t < 0 {
		return 0
	}
	if t > limit {
		return limit
	}
	return t
}

// Sample evaluates c at n evenly spaced offsets across its duration.
func Sample(c Curve, n int) []CurvePoint {
	if n < 2 {
		n = 2
	}
	d := c.Duration()
	out := make([]CurvePoint, n)
	for i := range out {
		t := time.Duration(float64(d) * float64(i) / float64(n-1))
		out[i] = CurvePoint{T: t, Angle: c.At(t)}
	}
	return out
}
