// Package bridge is the coordination core. It relays backward-search
// notifications from the viewer to the editor, and forward-search requests
// from the command line to the viewer.
//
// One bridge serves one document for one coordinator run. It confirms the
// viewer session before touching the notification channel, then either
// issues a single forward-search call (Forward) or keeps dispatching editor
// launches for every click until cancelled (Listen).
package bridge

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/vandalt/evince-synctex/internal/launcher"
	"github.com/vandalt/evince-synctex/internal/session"
	"github.com/vandalt/evince-synctex/internal/synctex"
	"github.com/vandalt/evince-synctex/internal/template"
	"github.com/vandalt/evince-synctex/internal/viewer"
)

// Config holds configuration for the bridge.
type Config struct {
	// Logger for bridge activity, including dropped notifications.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Logger: log.New(os.Stderr, "[bridge] ", log.LstdFlags),
	}
}

// Bridge wires the session manager, the viewer transport, the command
// templater, and the process launcher together.
type Bridge struct {
	session   *session.Manager
	transport viewer.Transport
	editor    *template.Template
	launcher  launcher.Launcher
	logger    *log.Logger
}

// New creates a bridge. editor may be nil when the bridge is only used for
// forward search.
func New(mgr *session.Manager, transport viewer.Transport, editor *template.Template, l launcher.Launcher, config *Config) *Bridge {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	return &Bridge{
		session:   mgr,
		transport: transport,
		editor:    editor,
		launcher:  l,
		logger:    config.Logger,
	}
}

// Forward ensures the viewer session and issues exactly one sync-view call
// for the location. It never subscribes to notifications.
func (b *Bridge) Forward(ctx context.Context, loc synctex.Location) error {
	if err := loc.Validate(); err != nil {
		return fmt.Errorf("forward search target: %w", err)
	}
	h, err := b.session.Ensure(ctx)
	if err != nil {
		return err
	}
	if err := b.transport.SyncView(h.Owner, loc.File, loc.Line, loc.Column); err != nil {
		return fmt.Errorf("forward search to %s: %w", loc, err)
	}
	b.logger.Printf("Forward search: viewer moved to %s", loc)
	return nil
}

// Listen ensures the viewer session, subscribes to its backward-search
// notifications, and launches the editor for every valid one. Malformed
// notifications and per-click launch failures are logged and dropped; one
// bad click must not end an otherwise working interactive session.
//
// Listen returns nil when the notification channel closes (the viewer went
// away), and ctx.Err() when cancelled. Editors it spawned keep running
// either way.
func (b *Bridge) Listen(ctx context.Context) error {
	if b.editor == nil {
		return fmt.Errorf("no editor command configured")
	}

	h, err := b.session.Ensure(ctx)
	if err != nil {
		return err
	}

	// The session must be confirmed before subscribing; a subscription
	// against an unregistered document could miss or mis-address clicks.
	events, err := b.transport.SyncSource(ctx, h.Owner)
	if err != nil {
		return fmt.Errorf("subscribing to sync notifications: %w", err)
	}

	b.logger.Printf("Listening for clicks on %s (editor: %s)", h.Owner, b.editor)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case loc, ok := <-events:
			if !ok {
				b.logger.Printf("Viewer session ended")
				return nil
			}
			b.dispatch(loc)
		}
	}
}

// dispatch handles one backward-search notification. Notifications are
// handled one at a time, in arrival order.
func (b *Bridge) dispatch(loc synctex.Location) {
	if err := loc.Validate(); err != nil {
		b.logger.Printf("Dropping malformed notification: %v", err)
		return
	}
	argv, err := b.editor.Expand(loc)
	if err != nil {
		b.logger.Printf("Cannot build editor command for %s: %v", loc, err)
		return
	}
	if _, err := b.launcher.Spawn(argv, true); err != nil {
		b.logger.Printf("Editor launch failed: %v", err)
		return
	}
	b.logger.Printf("Editor opened at %s", loc)
}
