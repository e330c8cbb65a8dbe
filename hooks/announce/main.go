// Package main is a hook that speaks workout events aloud.
// It uses `say` on macOS and `espeak` elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Event is the input from the hook executor.
type Event struct {
	Type   string          `json:"event"`
	Camera int             `json:"camera"`
	Report Report          `json:"report"`
	Config json.RawMessage `json:"config"`
}

// Report carries the fields of an exercise report this hook reads.
type Report struct {
	Exercise   string   `json:"exercise"`
	RepCount   int      `json:"repCount"`
	FormStatus string   `json:"formStatus"`
	Issues     []string `json:"issues"`
}

// Response is the output to the hook executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is read from the manifest.
type Config struct {
	// Every announces only every Nth rep.
	Every int `json:"every"`
	// DryRun prints the phrase instead of speaking it.
	DryRun bool `json:"dryRun"`
}

func main() {
	var ev Event
	if err := json.NewDecoder(os.Stdin).Decode(&ev); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode event: %v", err))
		return
	}

	var cfg Config
	if len(ev.Config) > 0 {
		if err := json.Unmarshal(ev.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	phrase, ok := phraseFor(ev, cfg)
	if !ok {
		writeSuccessResponse(nil)
		return
	}
	if cfg.DryRun {
		data, _ := json.Marshal(map[string]string{"phrase": phrase})
		writeSuccessResponse(data)
		return
	}
	if err := speak(phrase); err != nil {
		writeErrorResponse(fmt.Sprintf("speak failed: %v", err))
		return
	}
	writeSuccessResponse(nil)
}

// phraseFor returns what to say for ev, or false to stay quiet.
func phraseFor(ev Event, cfg Config) (string, bool) {
	switch ev.Type {
	case "rep":
		if cfg.Every > 1 && ev.Report.RepCount%cfg.Every != 0 {
			return "", false
		}
		return fmt.Sprintf("%d", ev.Report.RepCount), true
	case "form_issue":
		if len(ev.Report.Issues) > 0 {
			return strings.Join(ev.Report.Issues, ". "), true
		}
		return "Check your form", true
	case "no_pose":
		return "I can't see you", true
	}
	return "", false
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

func speak(phrase string) error {
	name := "espeak"
	if runtime.GOOS == "darwin" {
		name = "say"
	}
	cmd := exec.Command(name, phrase)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
