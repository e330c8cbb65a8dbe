package form

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DefaultTrainingPoints is the resolution of trained curves.
const DefaultTrainingPoints = 31

// Trainer averages recorded repetitions into reference curves.
type Trainer struct {
	points int
}

// NewTrainer creates a trainer producing curves with the given number of points.
func NewTrainer(points int) *Trainer {
	if points < 2 {
		points = DefaultTrainingPoints
	}
	return &Trainer{points: points}
}

// TrainResult is a trained curve and how far each input rep was from it.
type TrainResult struct {
	Curve     *SampledCurve
	Distances []float64
}

// TrainCurve resamples every rep onto the same relative time grid, averages
// the angles point by point and stretches the result to the mean rep
// duration. Each rep's DTW distance to the average is reported so callers
// can spot outliers.
func (t *Trainer) TrainCurve(reps [][]CurvePoint) (TrainResult, error) {
	if len(reps) == 0 {
		return TrainResult{}, errors.New("no samples provided")
	}

	resampled := make([][]float64, len(reps))
	var total time.Duration
	for i, rep := range reps {
		c, err := NewSampledCurve(rep)
		if err != nil {
			return TrainResult{}, fmt.Errorf("sample %d: %w", i, err)
		}
		total += c.Duration()

		series := make([]float64, t.points)
		for j, p := range Sample(c, t.points) {
			series[j] = p.Angle
		}
		resampled[i] = series
	}

	n := float64(len(reps))
	duration := time.Duration(float64(total) / n)

	averaged := make([]CurvePoint, t.points)
	mean := make([]float64, t.points)
	for j := 0; j < t.points; j++ {
		var sum float64
		for _, series := range resampled {
			sum += series[j]
		}
		mean[j] = sum / n
		averaged[j] = CurvePoint{
			T:     time.Duration(float64(duration) * float64(j) / float64(t.points-1)),
			Angle: math.Round(mean[j]*100) / 100,
		}
	}

	curve, err := NewSampledCurve(averaged)
	if err != nil {
		return TrainResult{}, fmt.Errorf("build curve: %w", err)
	}

	distances := make([]float64, len(resampled))
	for i, series := range resampled {
		distances[i] = ShapeDistance(series, mean)
	}

	return TrainResult{Curve: curve, Distances: distances}, nil
}
