package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/gymcoach/internal/exercise"
)

const (
	// hubBuffer is how many reports may queue before new ones are dropped.
	hubBuffer = 64

	writeWait = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// reportMessage is one report as sent to subscribers.
type reportMessage struct {
	Camera int             `json:"camera"`
	Report exercise.Report `json:"report"`
}

// ReportHub pushes every evaluated report to WebSocket subscribers.
type ReportHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool

	msgs      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewReportHub creates a ReportHub and starts its broadcast loop.
func NewReportHub() *ReportHub {
	h := &ReportHub{
		clients: make(map[*websocket.Conn]bool),
		msgs:    make(chan []byte, hubBuffer),
		done:    make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// Publish queues a report for broadcast. It never blocks the pipeline: when
// the queue is full or nobody listens the report is dropped.
func (h *ReportHub) Publish(camera int, r exercise.Report) {
	if h.Clients() == 0 {
		return
	}
	msg, err := json.Marshal(reportMessage{Camera: camera, Report: r})
	if err != nil {
		log.Printf("encode report: %v", err)
		return
	}
	select {
	case h.msgs <- msg:
	case <-h.done:
	default:
	}
}

// Clients returns the number of connected subscribers.
func (h *ReportHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *ReportHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends queued reports to all connected clients.
func (h *ReportHub) broadcast() {
	for {
		select {
		case <-h.done:
			return
		case msg := <-h.msgs:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Close stops broadcasting and disconnects every subscriber.
func (h *ReportHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for conn := range h.clients {
			conn.Close()
			delete(h.clients, conn)
		}
	})
}
