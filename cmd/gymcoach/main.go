package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/ayusman/gymcoach/internal/app"
	"github.com/ayusman/gymcoach/internal/config"
	"github.com/ayusman/gymcoach/internal/exercise"
	"github.com/ayusman/gymcoach/internal/hook"
	"github.com/ayusman/gymcoach/internal/server"
	"github.com/ayusman/gymcoach/internal/store"
	"github.com/ayusman/gymcoach/internal/tray"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cameras := flag.String("camera", "0", "comma-separated camera device ids")
	exerciseName := flag.String("exercise", "", "exercise to coach (default: last selected, else squat)")
	tuningPath := flag.String("tuning", "", "tuning JSON file (default: "+config.DefaultConfigPath+" if present)")
	dbPath := flag.String("db", "", "SQLite database path (default: ~/.gymcoach/gymcoach.db)")
	hookDir := flag.String("hooks", "", "hook directory (default: hooks/ next to the database)")
	noTray := flag.Bool("no-tray", false, "run without the system tray")
	flag.Parse()

	fmt.Println("GymCoach - Exercise Form Feedback")

	tuning, err := loadTuning(*tuningPath)
	if err != nil {
		log.Fatalf("Failed to load tuning: %v", err)
	}

	cameraIDs, err := parseCameras(*cameras)
	if err != nil {
		log.Fatalf("Invalid -camera: %v", err)
	}

	if *dbPath == "" {
		*dbPath, err = defaultDBPath()
		if err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}
	st, err := store.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	name := initialExercise(*exerciseName, st)

	if *hookDir == "" {
		*hookDir = filepath.Join(filepath.Dir(*dbPath), "hooks")
	}
	hooks := hook.NewManager(*hookDir)
	if err := hooks.Discover(); err != nil {
		log.Printf("Failed to scan hooks in %s: %v", *hookDir, err)
	}
	executor := hook.NewExecutor(hook.DefaultTimeout)

	apps := make([]*app.App, 0, len(cameraIDs))
	for _, id := range cameraIDs {
		a, err := app.New(app.Config{Store: st, Tuning: tuning, CameraID: id, Exercise: name})
		if err != nil {
			log.Fatalf("Failed to create pipeline for camera %d: %v", id, err)
		}
		d := hook.NewDispatcher(hooks, executor, id)
		defer d.Close()
		a.OnReport(d.Observe)
		if err := a.Start(); err != nil {
			log.Printf("Camera %d not started: %v", id, err)
		}
		defer a.Close()
		apps = append(apps, a)
	}

	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Apps:      apps,
		Hooks:     hooks,
	})
	defer srv.Close()

	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		if err := srv.ListenAndServe(*addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if *noTray {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return
	}
	runTray(apps, st, name, *addr)
}

// runTray blocks in the system tray until Quit. Toggling and exercise
// changes apply to every camera; the status line follows the first.
func runTray(apps []*app.App, st *store.Store, current, addr string) {
	t := tray.New(exercise.Names(), current)
	t.OnToggle(func(enabled bool) {
		for _, a := range apps {
			a.SetEnabled(enabled)
		}
	})
	t.OnExercise(func(name string) error {
		pipelines := make([]exerciseSetter, len(apps))
		for i, a := range apps {
			pipelines[i] = a
		}
		if err := switchExercise(pipelines, name); err != nil {
			return err
		}
		if err := st.Settings().Set(store.SettingExercise, name); err != nil {
			log.Printf("failed to persist exercise selection: %v", err)
		}
		return nil
	})
	t.OnSettings(func() {
		fmt.Printf("Settings: http://localhost%s/\n", addr)
	})
	if len(apps) > 0 {
		apps[0].OnReport(t.SetReport)
	}
	t.Run()
}

type exerciseSetter interface {
	SetExercise(name string) error
}

// switchExercise checks name before touching any pipeline so that an unknown
// exercise leaves every camera on its current one.
func switchExercise(pipelines []exerciseSetter, name string) error {
	if _, err := exercise.DefaultProfile(name); err != nil {
		return err
	}
	for _, p := range pipelines {
		if err := p.SetExercise(name); err != nil {
			return err
		}
	}
	return nil
}

// loadTuning reads path, or the default tuning file when path is empty.
// A missing default file means built-in defaults.
func loadTuning(path string) (*config.Tuning, error) {
	if path != "" {
		return config.LoadTuning(path)
	}
	t, err := config.LoadDefaultTuning()
	if err != nil {
		log.Printf("Using built-in tuning defaults: %v", err)
		return config.EmptyTuning(), nil
	}
	return t, nil
}

// parseCameras parses a comma-separated list of distinct camera ids.
func parseCameras(s string) ([]int, error) {
	var ids []int
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("bad camera id %q", part)
		}
		if seen[id] {
			return nil, fmt.Errorf("camera %d listed twice", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("no camera ids")
	}
	return ids, nil
}

// initialExercise picks the flag value, else the last selection saved in
// the store, else the default.
func initialExercise(flagValue string, st *store.Store) string {
	if flagValue != "" {
		return flagValue
	}
	if saved, err := st.Settings().Get(store.SettingExercise); err == nil {
		if _, err := exercise.DefaultProfile(saved); err == nil {
			return saved
		}
	}
	return app.DefaultExercise
}

func defaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dbDir := filepath.Join(homeDir, ".gymcoach")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(dbDir, "gymcoach.db"), nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.gymcoach/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".gymcoach", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
