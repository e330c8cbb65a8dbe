// Package tray provides a system tray interface showing live rep counts.
package tray

import (
	"fmt"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/gymcoach/internal/exercise"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onExercise func(name string) error
	onSettings func()
	onQuit     func()
	enabled    bool
	exercises  []string
	current    string
	status     string
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuStatus    *systray.MenuItem
	menuExercises map[string]*systray.MenuItem
}

// New creates a new Tray offering the given exercises, with current
// selected and evaluation enabled.
func New(exercises []string, current string) *Tray {
	return &Tray{
		enabled:   true,
		exercises: exercises,
		current:   current,
		status:    "Waiting for pose",
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnExercise sets the callback invoked when another exercise is picked. The
// selection only changes when it returns nil.
func (t *Tray) OnExercise(fn func(name string) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExercise = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("GymCoach")
	systray.SetTooltip("GymCoach exercise feedback")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle exercise feedback")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(t.status, "Latest feedback")
	t.menuStatus.Disable()
	systray.AddSeparator()

	menuExercise := systray.AddMenuItem("Exercise", "Choose the exercise to coach")
	t.menuExercises = make(map[string]*systray.MenuItem, len(t.exercises))
	for _, name := range t.exercises {
		item := menuExercise.AddSubMenuItemCheckbox(displayName(name), "Coach "+name, name == t.current)
		t.menuExercises[name] = item
		go func(name string, item *systray.MenuItem) {
			for range item.ClickedCh {
				t.handleExercise(name)
			}
		}(name, item)
	}
	systray.AddSeparator()
	t.mu.Unlock()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit GymCoach")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleExercise switches the checked exercise once the callback accepts it.
func (t *Tray) handleExercise(name string) {
	t.mu.RLock()
	callback := t.onExercise
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(name); err != nil {
			return
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = name
	for n, item := range t.menuExercises {
		if n == name {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetReport shows the report's rep count and form status in the menu. It
// is safe to call from the pipeline goroutine.
func (t *Tray) SetReport(r exercise.Report) {
	line := StatusLine(r)

	t.mu.Lock()
	defer t.mu.Unlock()
	if line == t.status {
		return
	}
	t.status = line
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(line)
	}
}

// Status returns the text of the status line.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Current returns the selected exercise.
func (t *Tray) Current() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// StatusLine formats a report for the tray: reps or hold time, then the form
// status.
func StatusLine(r exercise.Report) string {
	var b strings.Builder
	b.WriteString(displayName(r.Exercise))
	b.WriteString(": ")
	if r.HoldSeconds > 0 || (r.RepCount == 0 && r.Exercise == "plank") {
		fmt.Fprintf(&b, "%.0fs held", r.HoldSeconds)
	} else if r.RepCount == 1 {
		b.WriteString("1 rep")
	} else {
		fmt.Fprintf(&b, "%d reps", r.RepCount)
	}
	if r.FormStatus != "" {
		b.WriteString(" - ")
		b.WriteString(r.FormStatus)
	}
	return b.String()
}

func displayName(name string) string {
	switch name {
	case "pushup":
		return "Push-up"
	case "":
		return "Exercise"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
