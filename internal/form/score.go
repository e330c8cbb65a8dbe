package form

import (
	"math"
	"time"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/gymcoach/internal/phase"
)

// Scorer defaults.
const (
	DefaultSampleInterval = 100 * time.Millisecond
	DefaultErrorCap       = 45.0
)

// ScorerConfig configures a CurveScorer.
type ScorerConfig struct {
	// Interval is the spacing of comparison points along the session.
	Interval time.Duration
	// ErrorCap is the mean absolute error, in degrees, that scores zero.
	ErrorCap float64
}

// DefaultScorerConfig returns the default scorer configuration.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Interval: DefaultSampleInterval,
		ErrorCap: DefaultErrorCap,
	}
}

// CurveResult is the outcome of comparing one session with a profile.
type CurveResult struct {
	Score     float64 `json:"score"`
	MeanError float64 `json:"mean_error"`
	// Shape is the DTW distance between the observed and ideal series,
	// independent of timing.
	Shape   float64 `json:"shape"`
	Samples int     `json:"samples"`
}

// CurveScorer scores movement sessions against reference curves.
type CurveScorer struct {
	cfg ScorerConfig
}

// NewCurveScorer creates a scorer.
func NewCurveScorer(cfg ScorerConfig) *CurveScorer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSampleInterval
	}
	if cfg.ErrorCap <= 0 {
		cfg.ErrorCap = DefaultErrorCap
	}
	return &CurveScorer{cfg: cfg}
}

// Score compares every session signal that has a curve in p. The session is
// resampled at the configured interval and each reference curve is stretched
// to the session's duration before absolute errors are averaged. The mean
// error maps linearly to a score of 100 at zero error down to 0 at ErrorCap.
// ok is false when no signal could be compared.
func (s *CurveScorer) Score(sess *phase.Session, p *Profile) (CurveResult, bool) {
	if sess == nil || p == nil {
		return CurveResult{}, false
	}
	d := sess.Duration()
	if d <= 0 {
		return CurveResult{}, false
	}

	var errs, shapes []float64
	for _, sig := range p.Signals {
		ref, ok := p.Curves[sig.Name]
		if !ok {
			continue
		}
		offsets, angles, ok := sess.Series(sig.Name)
		if !ok {
			continue
		}
		observed, err := fitSeries(offsets, angles)
		if err != nil {
			continue
		}

		scale := float64(ref.Duration()) / float64(d)
		var obsSeries, refSeries []float64
		for t := time.Duration(0); t <= d; t += s.cfg.Interval {
			o := observed.Predict(t.Seconds())
			r := ref.At(time.Duration(float64(t) * scale))
			errs = append(errs, math.Abs(o-r))
			obsSeries = append(obsSeries, o)
			refSeries = append(refSeries, r)
		}
		shapes = append(shapes, ShapeDistance(obsSeries, refSeries))
	}

	if len(errs) == 0 {
		return CurveResult{}, false
	}

	mean := stat.Mean(errs, nil)
	score := 100 * (1 - mean/s.cfg.ErrorCap)
	score = math.Max(0, math.Min(100, score))

	return CurveResult{
		Score:     math.Round(score*10) / 10,
		MeanError: math.Round(mean*100) / 100,
		Shape:     math.Round(stat.Mean(shapes, nil)*100) / 100,
		Samples:   len(errs),
	}, true
}

func fitSeries(offsets []time.Duration, angles []float64) (*interp.PiecewiseLinear, error) {
	points := make([]CurvePoint, len(offsets))
	for i := range offsets {
		points[i] = CurvePoint{T: offsets[i], Angle: angles[i]}
	}
	xs, ys, _ := monotonic(points)
	if len(xs) < 2 {
		return nil, ErrTooFewPoints
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, err
	}
	return &pl, nil
}

// ShapeDistance returns the dynamic time warping distance between two angle
// series, normalized by the longer length. It is +Inf if either is empty.
func ShapeDistance(a, b []float64) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	cost := make([][]float64, n+1)
	for i := range cost {
		cost[i] = make([]float64, m+1)
		for j := range cost[i] {
			cost[i][j] = math.Inf(1)
		}
	}
	cost[0][0] = 0

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			d := math.Abs(a[i-1] - b[j-1])
			cost[i][j] = d + min(cost[i-1][j], cost[i][j-1], cost[i-1][j-1])
		}
	}

	return cost[n][m] / float64(max(n, m))
}
