// Package api provides the HTTP handlers for exercises, reference profiles
// and recorded reps.
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/gymcoach/internal/exercise"
	"github.com/ayusman/gymcoach/internal/form"
)

// Logf is the package logger.
var Logf = log.Printf

const timeLayout = "2006-01-02T15:04:05Z07:00"

// Pipeline is the per-camera evaluation pipeline the handlers drive.
type Pipeline interface {
	CameraID() int
	ExerciseName() string
	SetExercise(name string) error
	ReloadProfile() error
	LastReport() (exercise.Report, bool)
	LastRecording() (form.Recording, error)
}

// Pipelines is the set of running pipelines, one per camera.
type Pipelines []Pipeline

// ForRequest picks the pipeline named by the "camera" query parameter, or
// the first one when the parameter is absent.
func (ps Pipelines) ForRequest(r *http.Request) (Pipeline, error) {
	if len(ps) == 0 {
		return nil, fmt.Errorf("no camera pipeline running")
	}
	raw := r.URL.Query().Get("camera")
	if raw == "" {
		return ps[0], nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid camera %q", raw)
	}
	for _, p := range ps {
		if p.CameraID() == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("camera %d not found", id)
}

// Reload re-reads the active profile on every pipeline running exercise.
func (ps Pipelines) Reload(exerciseName string) {
	for _, p := range ps {
		if p.ExerciseName() != exerciseName {
			continue
		}
		if err := p.ReloadProfile(); err != nil {
			Logf("reload profile on camera %d: %v", p.CameraID(), err)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}
