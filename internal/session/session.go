// Package session ensures that exactly one viewer instance is showing the
// target document, reusing a registered instance when one exists.
package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/vandalt/evince-synctex/internal/launcher"
	"github.com/vandalt/evince-synctex/internal/viewer"
)

// Handle identifies the viewer session bound to the document.
type Handle struct {
	// Owner is the bus name of the viewer instance serving the document.
	Owner string
	// Spawned reports whether this coordinator launched the viewer, as
	// opposed to reusing a pre-existing instance.
	Spawned bool
}

// SessionTimeoutError indicates a launched viewer never registered the
// document within the deadline. Usually a misconfigured viewer command;
// reported to the user, not retried.
type SessionTimeoutError struct {
	URI     string
	Timeout time.Duration
}

func (e *SessionTimeoutError) Error() string {
	return fmt.Sprintf("viewer did not register %s within %s", e.URI, e.Timeout)
}

// Config holds configuration for the session manager.
type Config struct {
	// ViewerCommand is the argv used to open the document when no running
	// viewer has it. The document URI is appended.
	ViewerCommand []string

	// PollInterval is how often to re-check the registry after spawning
	// the viewer. Registration takes nonzero time.
	PollInterval time.Duration

	// Timeout bounds the whole wait for registration.
	Timeout time.Duration

	// Logger for session activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ViewerCommand: []string{"evince"},
		PollInterval:  500 * time.Millisecond,
		Timeout:       10 * time.Second,
		Logger:        log.New(os.Stderr, "[session] ", log.LstdFlags),
	}
}

// Manager resolves the document to a running viewer session. It is a
// non-exclusive participant in the viewer's registry: sessions started by
// anything else are reused as-is and never killed or mutated.
type Manager struct {
	uri       string
	transport viewer.Transport
	launcher  launcher.Launcher
	config    *Config

	handle *Handle
}

// NewManager creates a manager for the document with the given URI.
func NewManager(uri string, transport viewer.Transport, l launcher.Launcher, config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	return &Manager{uri: uri, transport: transport, launcher: l, config: config}
}

// Ensure returns the handle of the viewer session showing the document,
// launching a viewer when the registry has no exact match for the URI.
// Repeated calls within one coordinator run return the cached handle and
// spawn nothing.
func (m *Manager) Ensure(ctx context.Context) (Handle, error) {
	if m.handle != nil {
		return *m.handle, nil
	}

	owner, err := m.transport.FindDocument(m.uri, false)
	if err != nil {
		return Handle{}, fmt.Errorf("registry lookup for %s: %w", m.uri, err)
	}
	if owner != "" {
		m.config.Logger.Printf("Reusing viewer %s for %s", owner, m.uri)
		m.handle = &Handle{Owner: owner}
		return *m.handle, nil
	}

	argv := append(append([]string(nil), m.config.ViewerCommand...), m.uri)
	if _, err := m.launcher.Spawn(argv, true); err != nil {
		return Handle{}, err
	}
	m.config.Logger.Printf("Launched viewer, waiting for it to register %s", m.uri)

	deadline := time.Now().Add(m.config.Timeout)
	ticker := time.NewTicker(m.config.PollInterval)
	defer ticker.Stop()
	for {
		owner, err := m.transport.FindDocument(m.uri, false)
		if err != nil {
			return Handle{}, fmt.Errorf("registry lookup for %s: %w", m.uri, err)
		}
		if owner != "" {
			m.config.Logger.Printf("Viewer %s registered %s", owner, m.uri)
			m.handle = &Handle{Owner: owner, Spawned: true}
			return *m.handle, nil
		}
		if time.Now().After(deadline) {
			return Handle{}, &SessionTimeoutError{URI: m.uri, Timeout: m.config.Timeout}
		}
		select {
		case <-ctx.Done():
			return Handle{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
