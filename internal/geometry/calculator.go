package geometry

import (
	"math"

	"github.com/ayusman/gymcoach/internal/detector"
)

// Body scale bounds, in normalized image units.
const (
	DefaultBodyScale = 0.25
	MinBodyScale     = 0.05
)

// Options configures a Calculator.
type Options struct {
	Smoothing       float64 // weight of the previous angle, 0 disables smoothing
	MaxSmoothDelta  float64 // jumps at or above this are not smoothed
	MinConfidence3D float64
}

// DefaultOptions returns the standard smoothing configuration.
func DefaultOptions() Options {
	return Options{
		Smoothing:       DefaultSmoothing,
		MaxSmoothDelta:  DefaultSmoothingMaxDelta,
		MinConfidence3D: DefaultMinConfidence3D,
	}
}

// Calculator computes named joint angles and remembers the previous value of
// each one for temporal smoothing. It is not safe for concurrent use; each
// tracked subject owns its own Calculator.
type Calculator struct {
	opts Options
	prev map[string]float64
}

// NewCalculator creates a Calculator with the given options.
func NewCalculator(opts Options) *Calculator {
	return &Calculator{
		opts: opts,
		prev: make(map[string]float64),
	}
}

// Joint computes the smoothed 2D angle at vertex for the named signal.
// A missing joint or rejected angle leaves the previous value untouched.
func (c *Calculator) Joint(name string, acc detector.Accessor, a, vertex, b detector.Joint) (float64, bool) {
	deg, ok := Raw(acc, a, vertex, b)
	if !ok {
		return 0, false
	}
	return c.Commit(name, deg), true
}

// Joint3D computes the smoothed 3D angle at vertex for the named signal.
func (c *Calculator) Joint3D(name string, acc detector.Accessor, a, vertex, b detector.Joint) (float64, bool) {
	deg, ok := c.Raw3D(acc, a, vertex, b)
	if !ok {
		return 0, false
	}
	return c.Commit(name, deg), true
}

// Request names one 2D joint angle for Joints.
type Request struct {
	Name         string
	A, Vertex, B detector.Joint
}

// Joints computes several smoothed 2D angles as a unit. If any of them is
// missing, ok is false and no smoothing state changes.
func (c *Calculator) Joints(acc detector.Accessor, reqs ...Request) ([]float64, bool) {
	raw := make([]float64, len(reqs))
	for i, r := range reqs {
		deg, ok := Raw(acc, r.A, r.Vertex, r.B)
		if !ok {
			return nil, false
		}
		raw[i] = deg
	}
	for i, r := range reqs {
		raw[i] = c.Commit(r.Name, raw[i])
	}
	return raw, true
}

// Raw returns the unsmoothed 2D angle at vertex.
func Raw(acc detector.Accessor, a, vertex, b detector.Joint) (float64, bool) {
	pa, pv, pb, ok := points(acc, a, vertex, b)
	if !ok {
		return 0, false
	}
	return Angle(pa, pv, pb)
}

// Raw3D returns the unsmoothed 3D angle at vertex, gated by the calculator's
// minimum confidence.
func (c *Calculator) Raw3D(acc detector.Accessor, a, vertex, b detector.Joint) (float64, bool) {
	pa, pv, pb, ok := points(acc, a, vertex, b)
	if !ok {
		return 0, false
	}
	return Angle3D(pa, pv, pb, c.opts.MinConfidence3D)
}

// Commit smooths deg against the previous value of the named signal and
// stores the result.
func (c *Calculator) Commit(name string, deg float64) float64 {
	if prev, ok := c.prev[name]; ok && c.opts.Smoothing > 0 {
		deg = Smooth(prev, deg, c.opts.Smoothing, c.opts.MaxSmoothDelta)
	}
	c.prev[name] = deg
	return deg
}

// Reset forgets all previous angles.
func (c *Calculator) Reset() {
	c.prev = make(map[string]float64)
}

func points(acc detector.Accessor, a, v, b detector.Joint) (pa, pv, pb detector.Observation, ok bool) {
	if pa, ok = acc.Get(a); !ok {
		return
	}
	if pv, ok = acc.Get(v); !ok {
		return
	}
	pb, ok = acc.Get(b)
	return
}

// Distance returns the 2D distance between two joints, or 0 if either is not visible.
func Distance(acc detector.Accessor, a, b detector.Joint) float64 {
	pa, ok := acc.Get(a)
	if !ok {
		return 0
	}
	pb, ok := acc.Get(b)
	if !ok {
		return 0
	}
	return math.Hypot(pa.X-pb.X, pa.Y-pb.Y)
}

// Distance3D returns the 3D distance between two joints, or 0 if either is not visible.
func Distance3D(acc detector.Accessor, a, b detector.Joint) float64 {
	pa, ok := acc.Get(a)
	if !ok {
		return 0
	}
	pb, ok := acc.Get(b)
	if !ok {
		return 0
	}
	dx, dy, dz := pa.X-pb.X, pa.Y-pb.Y, pa.Z-pb.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// BodyScale returns the vertical shoulder-to-hip distance used to normalize
// thresholds. Visible sides are averaged; with neither side visible it
// returns DefaultBodyScale. The result is never below MinBodyScale.
func BodyScale(acc detector.Accessor) float64 {
	var sum float64
	var n int

	for _, side := range [][2]detector.Joint{
		{detector.LeftShoulder, detector.LeftHip},
		{detector.RightShoulder, detector.RightHip},
	} {
		s, ok := acc.Get(side[0])
		if !ok {
			continue
		}
		h, ok := acc.Get(side[1])
		if !ok {
			continue
		}
		sum += math.Abs(h.Y - s.Y)
		n++
	}

	scale := DefaultBodyScale
	if n > 0 {
		scale = sum / float64(n)
	}
	return math.Max(scale, MinBodyScale)
}
