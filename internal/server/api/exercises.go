package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/gymcoach/internal/exercise"
	"github.com/ayusman/gymcoach/internal/store"
)

// ExerciseHandler lists exercises and switches the active one.
type ExerciseHandler struct {
	store     *store.Store
	pipelines Pipelines
}

// NewExerciseHandler creates an ExerciseHandler. The store may be nil, in
// which case the selection is not persisted.
func NewExerciseHandler(s *store.Store, ps Pipelines) *ExerciseHandler {
	return &ExerciseHandler{store: s, pipelines: ps}
}

type exercisesResponse struct {
	Exercises []string `json:"exercises"`
	Current   string   `json:"current"`
	Camera    int      `json:"camera"`
}

type selectExerciseRequest struct {
	Exercise string `json:"exercise"`
}

// ServeHTTP handles GET and PUT /api/exercises.
func (h *ExerciseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, err := h.pipelines.ForRequest(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, exercisesResponse{
			Exercises: exercise.Names(),
			Current:   p.ExerciseName(),
			Camera:    p.CameraID(),
		})
	case http.MethodPut:
		h.selectExercise(w, r, p)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ExerciseHandler) selectExercise(w http.ResponseWriter, r *http.Request, p Pipeline) {
	var req selectExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := p.SetExercise(req.Exercise); err != nil {
		if errors.Is(err, exercise.ErrUnknownExercise) {
			writeError(w, http.StatusBadRequest, "Unknown exercise")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to switch exercise")
		return
	}

	if h.store != nil {
		if err := h.store.Settings().Set(store.SettingExercise, req.Exercise); err != nil {
			Logf("failed to persist exercise selection: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, exercisesResponse{
		Exercises: exercise.Names(),
		Current:   p.ExerciseName(),
		Camera:    p.CameraID(),
	})
}

// ReportHandler serves the most recent report of a pipeline.
type ReportHandler struct {
	pipelines Pipelines
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(ps Pipelines) *ReportHandler {
	return &ReportHandler{pipelines: ps}
}

// ServeHTTP handles GET /api/report.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	p, err := h.pipelines.ForRequest(r)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	report, ok := p.LastReport()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
