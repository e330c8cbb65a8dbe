// Package server provides the HTTP server for live exercise feedback.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ayusman/gymcoach/internal/app"
	"github.com/ayusman/gymcoach/internal/exercise"
	"github.com/ayusman/gymcoach/internal/hook"
	"github.com/ayusman/gymcoach/internal/server/api"
	"github.com/ayusman/gymcoach/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	// Apps are the camera pipelines, one per camera.
	Apps  []*app.App
	Hooks *hook.Manager
}

// Server represents the HTTP server for the coaching application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	hub    *ReportHub
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	pipelines := make(api.Pipelines, 0, len(s.config.Apps))
	for _, a := range s.config.Apps {
		pipelines = append(pipelines, a)
	}

	if len(s.config.Apps) > 0 {
		s.mux.Handle("/api/exercises", api.NewExerciseHandler(s.config.Store, pipelines))
		s.mux.Handle("/api/report", api.NewReportHandler(pipelines))

		s.hub = NewReportHub()
		frames := make([]FrameSource, 0, len(s.config.Apps))
		charts := make([]SessionSource, 0, len(s.config.Apps))
		for _, a := range s.config.Apps {
			id := a.CameraID()
			a.OnReport(func(r exercise.Report) {
				s.hub.Publish(id, r)
			})
			frames = append(frames, a)
			charts = append(charts, a)
		}
		s.mux.Handle("/api/reports", s.hub)
		s.mux.Handle("/api/stream", NewStreamHandler(frames...))
		s.mux.Handle("/api/chart", NewChartHandler(charts...))
	}

	if s.config.Store != nil {
		profileHandler := api.NewProfileHandler(s.config.Store, pipelines)
		samplesHandler := api.NewSamplesHandler(s.config.Store, pipelines)

		// /api/profiles/{id}/samples and /api/profiles/{id}/train go to the
		// samples handler; everything else is profile CRUD.
		profileRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/samples") || strings.HasSuffix(r.URL.Path, "/train") {
				samplesHandler.ServeHTTP(w, r)
				return
			}
			profileHandler.ServeHTTP(w, r)
		})

		s.mux.Handle("/api/profiles", profileRouter)
		s.mux.Handle("/api/profiles/", profileRouter)
	}

	if s.config.Hooks != nil {
		hookHandler := api.NewHookHandler(s.config.Hooks)
		s.mux.Handle("/api/hooks", hookHandler)
		s.mux.Handle("/api/hooks/", hookHandler)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cameras := make([]int, 0, len(s.config.Apps))
	running := 0
	for _, a := range s.config.Apps {
		cameras = append(cameras, a.CameraID())
		if a.IsRunning() {
			running++
		}
	}

	response := map[string]interface{}{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"cameras": cameras,
		"running": running,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// Close disconnects report subscribers.
func (s *Server) Close() {
	if s.hub != nil {
		s.hub.Close()
	}
}

type cameraSource interface {
	CameraID() int
}

// pick returns the source named by the "camera" query parameter, or the
// first one when absent.
func pick[T cameraSource](sources []T, r *http.Request) (T, error) {
	var zero T
	if len(sources) == 0 {
		return zero, fmt.Errorf("no camera pipeline running")
	}
	raw := r.URL.Query().Get("camera")
	if raw == "" {
		return sources[0], nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return zero, fmt.Errorf("invalid camera %q", raw)
	}
	for _, src := range sources {
		if src.CameraID() == id {
			return src, nil
		}
	}
	return zero, fmt.Errorf("camera %d not found", id)
}
