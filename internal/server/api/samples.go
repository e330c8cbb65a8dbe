package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayusman/gymcoach/internal/app"
	"github.com/ayusman/gymcoach/internal/exercise"
	"github.com/ayusman/gymcoach/internal/form"
	"github.com/ayusman/gymcoach/internal/store"
)

// SamplesHandler handles recorded reps of a profile and trains its curves
// from them.
type SamplesHandler struct {
	store     *store.Store
	pipelines Pipelines
	trainer   *form.Trainer
}

// NewSamplesHandler creates a new SamplesHandler.
func NewSamplesHandler(s *store.Store, ps Pipelines) *SamplesHandler {
	return &SamplesHandler{
		store:     s,
		pipelines: ps,
		trainer:   form.NewTrainer(form.DefaultTrainingPoints),
	}
}

// ServeHTTP routes /api/profiles/{id}/samples and /api/profiles/{id}/train.
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	profile, err := h.store.Profiles().GetByID(parts[0])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify profile")
		return
	}

	switch {
	case parts[1] == "samples" && r.Method == http.MethodGet:
		h.list(w, profile)
	case parts[1] == "samples" && r.Method == http.MethodPost:
		h.create(w, r, profile)
	case parts[1] == "samples" && r.Method == http.MethodDelete:
		h.deleteAll(w, profile)
	case parts[1] == "train" && r.Method == http.MethodPost:
		h.train(w, profile)
	case parts[1] == "samples" || parts[1] == "train":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// createSamplesRequest carries explicit recordings, or asks for the last
// completed rep of a camera pipeline to be captured.
type createSamplesRequest struct {
	Samples []form.Recording `json:"samples"`
	LastRep bool             `json:"last_rep"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	ProfileID   string          `json:"profile_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

type trainResponse struct {
	Profile   profileResponse      `json:"profile"`
	Distances map[string][]float64 `json:"distances"`
}

// list handles GET /api/profiles/{id}/samples.
func (h *SamplesHandler) list(w http.ResponseWriter, p *store.Profile) {
	samples, err := h.store.Samples().GetByProfileID(p.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			ProfileID:   s.ProfileID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   formatTime(s.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/profiles/{id}/samples.
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, p *store.Profile) {
	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	recordings := req.Samples
	if req.LastRep {
		pl, err := h.pipelines.ForRequest(r)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if pl.ExerciseName() != p.Exercise {
			writeError(w, http.StatusConflict, "Camera is running a different exercise")
			return
		}
		rec, err := pl.LastRecording()
		if err != nil {
			writeError(w, http.StatusConflict, "No completed rep to record")
			return
		}
		recordings = append(recordings, rec)
	}

	if len(recordings) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	base, err := exercise.DefaultProfile(p.Exercise)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Profile has unknown exercise")
		return
	}
	data := make([]json.RawMessage, len(recordings))
	for i, rec := range recordings {
		if err := checkRecording(base, rec); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Sample %d: %v", i, err))
			return
		}
		data[i], err = json.Marshal(rec)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encode sample")
			return
		}
	}

	if err := h.store.Samples().Add(p.ID, data); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int{"added": len(data)})
}

// checkRecording requires every curve signal of the exercise with at least
// two points.
func checkRecording(base *form.Profile, rec form.Recording) error {
	for _, sig := range base.Signals {
		if _, ok := base.Curves[sig.Name]; !ok {
			continue
		}
		if len(rec[sig.Name]) < 2 {
			return fmt.Errorf("signal %s needs at least two points", sig.Name)
		}
	}
	return nil
}

// deleteAll handles DELETE /api/profiles/{id}/samples.
func (h *SamplesHandler) deleteAll(w http.ResponseWriter, p *store.Profile) {
	if err := h.store.Samples().DeleteByProfileID(p.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// train handles POST /api/profiles/{id}/train: the recorded reps are
// averaged into new curves which replace the profile's.
func (h *SamplesHandler) train(w http.ResponseWriter, p *store.Profile) {
	samples, err := h.store.Samples().GetByProfileID(p.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}
	if len(samples) == 0 {
		writeError(w, http.StatusBadRequest, "Profile has no samples")
		return
	}

	reps := make([]form.Recording, len(samples))
	for i, s := range samples {
		if err := json.Unmarshal(s.Data, &reps[i]); err != nil {
			writeError(w, http.StatusInternalServerError, "Corrupt sample data")
			return
		}
	}

	base, err := exercise.DefaultProfile(p.Exercise)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Profile has unknown exercise")
		return
	}
	trained, distances, err := h.trainer.TrainRecording(base, reps)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Training failed: "+err.Error())
		return
	}

	curves, err := json.Marshal(trained)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode curves")
		return
	}
	p.Curves = curves
	if _, err := app.ApplyStoredProfile(base, p); err != nil {
		writeError(w, http.StatusInternalServerError, "Trained profile is invalid")
		return
	}
	if err := h.store.Profiles().Update(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}
	if p.Active {
		h.pipelines.Reload(p.Exercise)
	}

	Logf("trained profile %s from %d samples", p.Name, len(samples))
	writeJSON(w, http.StatusOK, trainResponse{Profile: toResponse(p), Distances: distances})
}
