// Package viewer defines the capability interface to the PDF viewer's IPC
// surface, with a D-Bus implementation for Evince and an in-memory fake for
// tests.
//
// The coordinator never reads SyncTeX data itself. It only relays document
// URIs, source locations, and session identifiers through the interface
// below; the coordinate mapping lives entirely in the viewer and the build
// tool.
package viewer

import (
	"context"

	"github.com/vandalt/evince-synctex/internal/synctex"
)

// Transport is the viewer's remote-call surface. A session is identified by
// the bus name of the viewer instance that owns the document ("owner").
type Transport interface {
	// FindDocument looks up the viewer instance showing the document with
	// the given URI. The match is exact on the URI string, mirroring the
	// viewer's own registry semantics. An empty owner with a nil error
	// means no instance has the document. When spawn is true the viewer
	// daemon opens the document itself instead of reporting absence.
	FindDocument(uri string, spawn bool) (owner string, err error)

	// SyncView asks the session to highlight and scroll to the rendered
	// position of the given source line (forward search). Column may be 0.
	SyncView(owner, sourceFile string, line, column int) error

	// SyncSource subscribes to the session's backward-search notifications.
	// Each user gesture in the viewer delivers one Location on the channel,
	// in arrival order. The channel is closed when ctx is cancelled or the
	// transport shuts down.
	SyncSource(ctx context.Context, owner string) (<-chan synctex.Location, error)

	// Close releases the transport. Subscriptions end; viewer processes
	// are left untouched.
	Close() error
}
