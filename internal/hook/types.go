// Package hook runs external programs when notable things happen during a
// workout, such as a completed rep or a form error.
package hook

import (
	"encoding/json"

	"github.com/ayusman/gymcoach/internal/exercise"
)

// Event types a hook can subscribe to.
const (
	EventRep       = "rep"
	EventFormIssue = "form_issue"
	EventNoPose    = "no_pose"
)

// ManifestFile is the manifest looked for in each hook directory.
const ManifestFile = "hook.json"

// Manifest describes a hook's metadata and the events it wants.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Wants reports whether the hook subscribes to the event type.
func (m Manifest) Wants(event string) bool {
	for _, e := range m.Events {
		if e == event {
			return true
		}
	}
	return false
}

// Event is sent to a hook on stdin.
type Event struct {
	Type   string          `json:"event"`
	Camera int             `json:"camera"`
	Report exercise.Report `json:"report"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response is what a hook prints on stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}
