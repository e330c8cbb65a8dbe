package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/gymcoach/internal/app"
	"github.com/ayusman/gymcoach/internal/exercise"
	"github.com/ayusman/gymcoach/internal/store"
)

// ProfileHandler handles HTTP requests for reference profile resources.
type ProfileHandler struct {
	store     *store.Store
	pipelines Pipelines
}

// NewProfileHandler creates a new ProfileHandler. Pipelines running an
// exercise whose active profile changes are told to reload it.
func NewProfileHandler(s *store.Store, ps Pipelines) *ProfileHandler {
	return &ProfileHandler{store: s, pipelines: ps}
}

// ServeHTTP routes /api/profiles, /api/profiles/{id} and
// /api/profiles/{id}/{activate,deactivate}.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]
	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		switch parts[1] {
		case "activate":
			h.setActive(w, id, true)
		case "deactivate":
			h.setActive(w, id, false)
		default:
			writeError(w, http.StatusNotFound, "Not found")
		}
		return
	}
	if len(parts) > 2 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type profileRequest struct {
	Name           string          `json:"name"`
	Exercise       string          `json:"exercise"`
	IdealMs        int64           `json:"ideal_ms"`
	TempoTolerance float64         `json:"tempo_tolerance"`
	Curves         json.RawMessage `json:"curves,omitempty"`
}

type profileResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Exercise       string          `json:"exercise"`
	IdealMs        int64           `json:"ideal_ms"`
	TempoTolerance float64         `json:"tempo_tolerance"`
	Curves         json.RawMessage `json:"curves"`
	Active         bool            `json:"active"`
	Samples        int             `json:"samples"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

func toResponse(p *store.Profile) profileResponse {
	return profileResponse{
		ID:             p.ID,
		Name:           p.Name,
		Exercise:       p.Exercise,
		IdealMs:        p.IdealDuration.Milliseconds(),
		TempoTolerance: p.TempoTolerance,
		Curves:         p.Curves,
		Active:         p.Active,
		Samples:        p.Samples,
		CreatedAt:      formatTime(p.CreatedAt),
		UpdatedAt:      formatTime(p.UpdatedAt),
	}
}

// validate checks the profile against its exercise's built-in reference.
func validate(p *store.Profile) error {
	base, err := exercise.DefaultProfile(p.Exercise)
	if err != nil {
		return err
	}
	_, err = app.ApplyStoredProfile(base, p)
	return err
}

// list handles GET /api/profiles, optionally filtered by ?exercise=.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List(r.URL.Query().Get("exercise"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	response := listProfilesResponse{
		Profiles: make([]profileResponse, 0, len(profiles)),
	}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/profiles/{id}.
func (h *ProfileHandler) get(w http.ResponseWriter, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(p))
}

// create handles POST /api/profiles.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	base, err := exercise.DefaultProfile(req.Exercise)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown exercise")
		return
	}

	p := &store.Profile{
		ID:             uuid.New().String(),
		Name:           req.Name,
		Exercise:       req.Exercise,
		IdealDuration:  base.IdealDuration,
		TempoTolerance: base.TempoTolerance,
		Curves:         req.Curves,
	}
	if req.IdealMs > 0 {
		p.IdealDuration = time.Duration(req.IdealMs) * time.Millisecond
	}
	if req.TempoTolerance > 0 {
		p.TempoTolerance = req.TempoTolerance
	}
	if err := validate(p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid profile: "+err.Error())
		return
	}

	if err := h.store.Profiles().Create(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}

	// Read back so the response carries the stored representation.
	stored, err := h.store.Profiles().GetByID(p.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(stored))
}

// update handles PUT /api/profiles/{id}. The exercise cannot change.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Exercise != "" && req.Exercise != p.Exercise {
		writeError(w, http.StatusBadRequest, "Exercise cannot be changed")
		return
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.IdealMs > 0 {
		p.IdealDuration = time.Duration(req.IdealMs) * time.Millisecond
	}
	if req.TempoTolerance > 0 {
		p.TempoTolerance = req.TempoTolerance
	}
	if len(req.Curves) > 0 {
		p.Curves = req.Curves
	}
	if err := validate(p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid profile: "+err.Error())
		return
	}

	if err := h.store.Profiles().Update(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	if p.Active {
		h.pipelines.Reload(p.Exercise)
	}

	writeJSON(w, http.StatusOK, toResponse(p))
}

// delete handles DELETE /api/profiles/{id}.
func (h *ProfileHandler) delete(w http.ResponseWriter, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	if err := h.store.Profiles().Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}
	if p.Active {
		h.pipelines.Reload(p.Exercise)
	}

	w.WriteHeader(http.StatusNoContent)
}

// setActive handles POST /api/profiles/{id}/activate and /deactivate.
func (h *ProfileHandler) setActive(w http.ResponseWriter, id string, active bool) {
	repo := h.store.Profiles()
	var err error
	if active {
		err = repo.Activate(id)
	} else {
		err = repo.Deactivate(id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to change profile state")
		return
	}

	p, err := repo.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}
	h.pipelines.Reload(p.Exercise)

	writeJSON(w, http.StatusOK, toResponse(p))
}
