package api

import (
	"net/http"

	"github.com/ayusman/gymcoach/internal/hook"
)

// HookHandler lists discovered hooks and rescans the hook directory.
type HookHandler struct {
	manager *hook.Manager
}

// NewHookHandler creates a new HookHandler.
func NewHookHandler(m *hook.Manager) *HookHandler {
	return &HookHandler{manager: m}
}

type hookResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Events      []string `json:"events"`
}

type listHooksResponse struct {
	Dir   string         `json:"dir"`
	Hooks []hookResponse `json:"hooks"`
}

// ServeHTTP handles GET /api/hooks and POST /api/hooks/reload.
func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/hooks" && r.Method == http.MethodGet:
	case r.URL.Path == "/api/hooks/reload" && r.Method == http.MethodPost:
		if err := h.manager.Discover(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to scan hook directory")
			return
		}
	case r.URL.Path == "/api/hooks" || r.URL.Path == "/api/hooks/reload":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	hooks := h.manager.List()
	response := listHooksResponse{
		Dir:   h.manager.Dir(),
		Hooks: make([]hookResponse, 0, len(hooks)),
	}
	for _, hk := range hooks {
		response.Hooks = append(response.Hooks, hookResponse{
			Name:        hk.Manifest.Name,
			Version:     hk.Manifest.Version,
			Description: hk.Manifest.Description,
			Events:      hk.Manifest.Events,
		})
	}
	writeJSON(w, http.StatusOK, response)
}
