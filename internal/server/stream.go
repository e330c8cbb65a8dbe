package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/gymcoach/internal/chart"
	"github.com/ayusman/gymcoach/internal/form"
	"github.com/ayusman/gymcoach/internal/phase"
)

// streamInterval paces the preview at about 15 FPS.
const streamInterval = 66 * time.Millisecond

// FrameSource supplies the latest captured frame of a camera.
type FrameSource interface {
	CameraID() int
	LatestJPEG() ([]byte, bool)
}

// StreamHandler serves MJPEG frames captured by the pipelines.
type StreamHandler struct {
	sources  []FrameSource
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler over the given sources.
func NewStreamHandler(sources ...FrameSource) *StreamHandler {
	return &StreamHandler{sources: sources, interval: streamInterval}
}

// ServeHTTP streams MJPEG frames to connected clients until they disconnect.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	src, err := pick(h.sources, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, ok := src.LatestJPEG()
		if !ok || bytes.Equal(frame, last) {
			continue
		}
		last = frame

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
		if _, err := w.Write(frame); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

// SessionSource supplies the last completed rep of a camera and the profile
// it was scored against.
type SessionSource interface {
	CameraID() int
	LastSession() *phase.Session
	Profile() *form.Profile
}

// ChartHandler renders the last rep against its reference curves as a PNG.
type ChartHandler struct {
	sources []SessionSource
}

// NewChartHandler creates a new ChartHandler over the given sources.
func NewChartHandler(sources ...SessionSource) *ChartHandler {
	return &ChartHandler{sources: sources}
}

// ServeHTTP handles GET /api/chart.
func (h *ChartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	src, err := pick(h.sources, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	err = chart.WritePNG(&buf, src.LastSession(), src.Profile(), chart.DefaultWidth, chart.DefaultHeight)
	if errors.Is(err, chart.ErrNoSession) {
		http.Error(w, "No completed rep", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to render chart", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}
