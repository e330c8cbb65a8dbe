// Package form evaluates exercise form against reference ranges and ideal
// angle curves.
package form

import (
	"math"
	"time"
)

// Class is the severity tag shown alongside a status.
type Class string

const (
	Good    Class = "good"
	Warning Class = "warning"
	Error   Class = "error"
)

// Tempo classifies the duration of one movement session.
type Tempo string

const (
	TempoNone    Tempo = ""
	TempoTooFast Tempo = "too-fast"
	TempoGood    Tempo = "good"
	TempoTooSlow Tempo = "too-slow"
)

// Tempo defaults.
const (
	DefaultIdealDuration  = 3 * time.Second
	DefaultTempoTolerance = 0.2
)

// Feedback is the result of evaluating one frame.
type Feedback struct {
	Status string   `json:"status"`
	Class  Class    `json:"class"`
	Score  *float64 `json:"score,omitempty"`
	Tempo  Tempo    `json:"tempo,omitempty"`
	Issues []string `json:"issues"`
}

// Worst returns the more severe of a and b.
func Worst(a, b Class) Class {
	rank := func(c Class) int {
		switch c {
		case Error:
			return 2
		case Warning:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// ClassifyTempo compares d with ideal ± tolerance (a fraction of ideal).
// Durations exactly on the window edges are good.
func ClassifyTempo(d, ideal time.Duration, tolerance float64) Tempo {
	if d <= 0 || ideal <= 0 {
		return TempoNone
	}
	lo := time.Duration(math.Round(float64(ideal) * (1 - tolerance)))
	hi := time.Duration(math.Round(float64(ideal) * (1 + tolerance)))
	switch {
	case d < lo:
		return TempoTooFast
	case d > hi:
		return TempoTooSlow
	default:
		return TempoGood
	}
}

// TempoClass maps a tempo to a display class.
func TempoClass(t Tempo) Class {
	switch t {
	case TempoTooFast, TempoTooSlow:
		return Warning
	}
	return Good
}
