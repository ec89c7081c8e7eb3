// Package build optionally supervises a background LaTeX build of the
// source file, so the PDF exists and stays fresh while the viewer is open.
//
// Two modes: delegate continuous rebuilding to the build tool itself
// (latexmk -pvc, spawned detached), or watch the source directory with
// fsnotify and run a one-shot build after each burst of changes.
package build

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vandalt/evince-synctex/internal/launcher"
)

// Config holds configuration for the build supervisor.
type Config struct {
	// Command is the argv of the continuous build tool. The source file
	// is appended. Used when Watch is false.
	Command []string

	// Watch switches to the internal fsnotify watcher, which runs
	// OneShotCommand after each change to a .tex file in the source
	// directory.
	Watch bool

	// OneShotCommand is the argv of the single-run build used in watch
	// mode. The source file is appended.
	OneShotCommand []string

	// Debounce batches rapid editor writes into one rebuild.
	Debounce time.Duration

	// Logger for build activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Command:        []string{"latexmk", "-pvc", "-pdf", "-interaction=nonstopmode"},
		OneShotCommand: []string{"latexmk", "-pdf", "-interaction=nonstopmode"},
		Debounce:       200 * time.Millisecond,
		Logger:         log.New(os.Stderr, "[build] ", log.LstdFlags),
	}
}

// Supervisor starts and owns the background build for one source file.
// Build failures never abort viewer/editor coordination; a stale PDF is
// still viewable.
type Supervisor struct {
	source   string
	launcher launcher.Launcher
	config   *Config

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewSupervisor creates a supervisor for source. An empty source is
// allowed and turns Start into a no-op.
func NewSupervisor(source string, l launcher.Launcher, config *Config) *Supervisor {
	if config == nil {
		config = DefaultConfig()
	}
	if len(config.Command) == 0 {
		config.Command = DefaultConfig().Command
	}
	if len(config.OneShotCommand) == 0 {
		config.OneShotCommand = DefaultConfig().OneShotCommand
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	return &Supervisor{source: source, launcher: l, config: config}
}

// Start launches the background build. With no source file it returns
// (nil, nil) and does nothing. In continuous mode the returned record
// describes the detached build process; in watch mode the watcher runs
// until ctx is cancelled and the record is nil.
func (s *Supervisor) Start(ctx context.Context) (*launcher.Record, error) {
	if s.source == "" {
		return nil, nil
	}

	if s.config.Watch {
		return nil, s.startWatch(ctx)
	}

	argv := append(append([]string(nil), s.config.Command...), s.source)
	rec, err := s.launcher.Spawn(argv, true)
	if err != nil {
		return nil, fmt.Errorf("continuous build: %w", err)
	}
	s.config.Logger.Printf("Continuous build running (pid %d)", rec.PID)
	return rec, nil
}

// Wait blocks until the watch goroutine has exited. A no-op in continuous
// mode; the detached build process is left running on purpose.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) startWatch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(s.source)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.watcher = watcher

	// Initial build so the PDF exists before the viewer opens it.
	s.runOnce()

	s.wg.Add(1)
	go s.watchLoop(ctx)
	s.config.Logger.Printf("Watching %s for changes", dir)
	return nil
}

// watchLoop debounces change events and triggers one rebuild per burst.
// Builds run attached inside this goroutine so they never overlap.
func (s *Supervisor) watchLoop(ctx context.Context) {
	defer s.wg.Done()
	defer s.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.config.Debounce)
				fire = timer.C
			} else {
				timer.Reset(s.config.Debounce)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.config.Logger.Printf("Watcher error: %v", err)
		case <-fire:
			timer = nil
			fire = nil
			s.runOnce()
		}
	}
}

// relevant reports whether the event should trigger a rebuild: a write,
// create, or rename of any .tex file in the watched directory (multi-file
// documents rebuild when an included file changes too).
func relevant(ev fsnotify.Event) bool {
	if filepath.Ext(ev.Name) != ".tex" {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (s *Supervisor) runOnce() {
	argv := append(append([]string(nil), s.config.OneShotCommand...), s.source)
	if _, err := s.launcher.Spawn(argv, false); err != nil {
		s.config.Logger.Printf("Build failed to start: %v", err)
	}
}
