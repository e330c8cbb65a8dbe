package hook

import (
	"context"
	"log"
	"sync"

	"github.com/ayusman/gymcoach/internal/detector"
	"github.com/ayusman/gymcoach/internal/exercise"
	"github.com/ayusman/gymcoach/internal/form"
)

// Logf is the package logger.
var Logf = log.Printf

// queueSize is how many events may wait for execution before new ones are
// dropped.
const queueSize = 16

// Dispatcher turns a camera's report stream into hook events and runs the
// subscribed hooks one at a time off the pipeline goroutine.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	camera   int

	mu   sync.Mutex
	prev *exercise.Report

	queue  chan Event
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDispatcher creates a Dispatcher and starts its worker.
func NewDispatcher(m *Manager, e *Executor, camera int) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		manager:  m,
		executor: e,
		camera:   camera,
		queue:    make(chan Event, queueSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Observe compares r with the previous report and queues events for what
// changed. It never blocks.
func (d *Dispatcher) Observe(r exercise.Report) {
	d.mu.Lock()
	types := Changes(d.prev, r)
	d.prev = &r
	d.mu.Unlock()

	for _, t := range types {
		if len(d.manager.Subscribers(t)) == 0 {
			continue
		}
		select {
		case d.queue <- Event{Type: t, Camera: d.camera, Report: r}:
		default:
			Logf("hook queue full, dropping %s event", t)
		}
	}
}

// Changes returns the event types implied by going from prev to cur. An
// exercise switch is a fresh start and emits nothing.
func Changes(prev *exercise.Report, cur exercise.Report) []string {
	if prev == nil || prev.Exercise != cur.Exercise {
		return nil
	}
	var out []string
	if cur.RepCount > prev.RepCount {
		out = append(out, EventRep)
	}
	if cur.FormClass == form.Error && prev.FormClass != form.Error {
		out = append(out, EventFormIssue)
	}
	if cur.Quality == detector.QualityNone && prev.Quality != detector.QualityNone {
		out = append(out, EventNoPose)
	}
	return out
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case <-d.ctx.Done():
			return
		case ev := <-d.queue:
			for _, h := range d.manager.Subscribers(ev.Type) {
				resp, err := d.executor.Execute(d.ctx, h, ev)
				if err != nil {
					Logf("%v", err)
					continue
				}
				if !resp.Success {
					Logf("hook %s reported failure: %s", h.Manifest.Name, resp.Error)
				}
			}
		}
	}
}

// Close stops the worker, cancelling a running hook.
func (d *Dispatcher) Close() {
	d.cancel()
	<-d.done
}
