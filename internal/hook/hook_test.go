package hook

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/gymcoach/internal/detector"
	"github.com/ayusman/gymcoach/internal/exercise"
	"github.com/ayusman/gymcoach/internal/form"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
}

// writeHook creates dir/name with a manifest and an executable script.
func writeHook(t *testing.T, dir, name, script string, events ...string) string {
	t.Helper()

	hookDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(hookDir, 0755))
	manifest := Manifest{
		Name:       name,
		Version:    "1.0.0",
		Executable: "run.sh",
		Events:     events,
		Config:     json.RawMessage(`{"voice":"low"}`),
	}
	data, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(hookDir, ManifestFile), data, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(hookDir, "run.sh"), []byte(script), 0755))
	return hookDir
}

const okScript = `#!/bin/sh
cat > last-event.json
echo '{"success":true}'
`

func TestManager_Discover(t *testing.T) {
	dir := t.TempDir()
	writeHook(t, dir, "announce", okScript, EventRep)
	writeHook(t, dir, "alarm", okScript, EventFormIssue, EventNoPose)

	// Invalid entries are skipped.
	os.MkdirAll(filepath.Join(dir, "broken"), 0755)
	os.WriteFile(filepath.Join(dir, "broken", ManifestFile), []byte("{not json"), 0644)
	os.MkdirAll(filepath.Join(dir, "silent"), 0755)
	os.WriteFile(filepath.Join(dir, "silent", ManifestFile), []byte(`{"name":"silent","executable":"x"}`), 0644)
	os.MkdirAll(filepath.Join(dir, "empty"), 0755)
	os.WriteFile(filepath.Join(dir, "README"), []byte("hooks"), 0644)

	m := NewManager(dir)
	require.NoError(t, m.Discover())

	var names []string
	for _, h := range m.List() {
		names = append(names, h.Manifest.Name)
	}
	assert.Equal(t, []string{"alarm", "announce"}, names)

	h, err := m.Get("announce")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "announce", "run.sh"), h.Executable)

	_, err = m.Get("broken")
	assert.ErrorIs(t, err, ErrHookNotFound)

	subs := m.Subscribers(EventNoPose)
	require.Len(t, subs, 1)
	assert.Equal(t, "alarm", subs[0].Manifest.Name)
	assert.Empty(t, m.Subscribers("unknown"))
}

func TestManager_Discover_MissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, m.Discover())
	assert.Empty(t, m.List())
}

func TestExecutor_Execute(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	hookDir := writeHook(t, dir, "announce", okScript, EventRep)
	m := NewManager(dir)
	m.Discover()
	h, _ := m.Get("announce")

	ev := Event{Type: EventRep, Camera: 1, Report: exercise.Report{Exercise: "squat", RepCount: 2}}
	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), h, ev)
	require.NoError(t, err)
	assert.True(t, resp.Success)

	// The hook runs in its own directory and receives the event on stdin.
	data, err := os.ReadFile(filepath.Join(hookDir, "last-event.json"))
	require.NoError(t, err)
	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, EventRep, got.Type)
	assert.Equal(t, 1, got.Camera)
	assert.Equal(t, 2, got.Report.RepCount)
	assert.JSONEq(t, `{"voice":"low"}`, string(got.Config))
}

func TestExecutor_Errors(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{"exit status", "#!/bin/sh\necho boom >&2\nexit 3\n", "stderr: boom"},
		{"bad output", "#!/bin/sh\necho not-json\n", "parse hook"},
		{"timeout", "#!/bin/sh\nsleep 5\n", "timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeHook(t, dir, "h", tt.script, EventRep)
			m := NewManager(dir)
			m.Discover()
			h, _ := m.Get("h")

			_, err := NewExecutor(200*time.Millisecond).Execute(context.Background(), h, Event{Type: EventRep})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestChanges(t *testing.T) {
	base := exercise.Report{Exercise: "squat", RepCount: 1, FormClass: form.Good, Quality: detector.QualityHigh}
	with := func(f func(r *exercise.Report)) exercise.Report {
		r := base
		f(&r)
		return r
	}

	tests := []struct {
		name string
		prev *exercise.Report
		cur  exercise.Report
		want []string
	}{
		{"first report", nil, base, nil},
		{"unchanged", &base, base, nil},
		{"rep", &base, with(func(r *exercise.Report) { r.RepCount = 2 }), []string{EventRep}},
		{"form error", &base, with(func(r *exercise.Report) { r.FormClass = form.Error }), []string{EventFormIssue}},
		{"pose lost", &base, with(func(r *exercise.Report) { r.Quality = detector.QualityNone }), []string{EventNoPose}},
		{"exercise switch", &base, with(func(r *exercise.Report) { r.Exercise = "pushup"; r.RepCount = 5 }), nil},
		{"rep with bad form", &base, with(func(r *exercise.Report) {
			r.RepCount = 2
			r.FormClass = form.Error
		}), []string{EventRep, EventFormIssue}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Changes(tt.prev, tt.cur))
		})
	}

	stillError := with(func(r *exercise.Report) { r.FormClass = form.Error })
	assert.Empty(t, Changes(&stillError, stillError), "repeated form error")
}

func TestDispatcher(t *testing.T) {
	skipOnWindows(t)

	orig := Logf
	Logf = func(string, ...any) {}
	defer func() { Logf = orig }()

	dir := t.TempDir()
	hookDir := writeHook(t, dir, "counter", "#!/bin/sh\ncat >> events.log\necho >> events.log\necho '{\"success\":true}'\n", EventRep)
	m := NewManager(dir)
	require.NoError(t, m.Discover())

	d := NewDispatcher(m, NewExecutor(time.Second), 0)
	defer d.Close()

	for reps := 0; reps <= 2; reps++ {
		d.Observe(exercise.Report{Exercise: "squat", RepCount: reps})
		d.Observe(exercise.Report{Exercise: "squat", RepCount: reps})
	}

	logPath := filepath.Join(hookDir, "events.log")
	assert.Eventually(t, func() bool {
		data, _ := os.ReadFile(logPath)
		return strings.Count(string(data), `"event":"rep"`) == 2
	}, 5*time.Second, 20*time.Millisecond, "want two rep events")
}
