package viewer

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/vandalt/evince-synctex/internal/synctex"
)

// Evince's D-Bus surface. The daemon owns the document registry; each viewer
// instance exposes its first window at a fixed object path.
const (
	evDaemonName  = "org.gnome.evince.Daemon"
	evDaemonPath  = "/org/gnome/evince/Daemon"
	evDaemonIface = "org.gnome.evince.Daemon"

	evWindowPath  = "/org/gnome/evince/Window/0"
	evWindowIface = "org.gnome.evince.Window"

	syncSourceSignal = evWindowIface + ".SyncSource"
)

// signalBuffer bounds how many undelivered viewer signals we hold. Clicks
// are human-paced, so this never fills in practice.
const signalBuffer = 16

// DBusTransport implements Transport against the Evince daemon on the
// session bus.
type DBusTransport struct {
	conn *dbus.Conn
}

// NewDBusTransport connects to the session bus.
func NewDBusTransport() (*DBusTransport, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("cannot connect to session bus: %w", err)
	}
	return &DBusTransport{conn: conn}, nil
}

// FindDocument implements Transport via the daemon's registry. The daemon
// returns the owning bus name, or the empty string if the document is not
// open anywhere.
func (t *DBusTransport) FindDocument(uri string, spawn bool) (string, error) {
	var owner string
	obj := t.conn.Object(evDaemonName, evDaemonPath)
	if err := obj.Call(evDaemonIface+".FindDocument", 0, uri, spawn).Store(&owner); err != nil {
		return "", fmt.Errorf("FindDocument(%s): %w", uri, err)
	}
	return owner, nil
}

// SyncView implements Transport. Evince takes the source file, a
// (line, column) pair, and an X11 timestamp it uses for focus stealing; 0
// lets it pick.
func (t *DBusTransport) SyncView(owner, sourceFile string, line, column int) error {
	point := struct{ Line, Column int32 }{int32(line), int32(column)}
	obj := t.conn.Object(owner, evWindowPath)
	if call := obj.Call(evWindowIface+".SyncView", 0, sourceFile, point, uint32(0)); call.Err != nil {
		return fmt.Errorf("SyncView(%s:%d): %w", sourceFile, line, call.Err)
	}
	return nil
}

// SyncSource implements Transport. It installs a match rule for the window's
// SyncSource signal restricted to the session owner and decodes each
// delivery into a Location. Signals that do not decode are skipped; semantic
// validation is the caller's job.
func (t *DBusTransport) SyncSource(ctx context.Context, owner string) (<-chan synctex.Location, error) {
	opts := []dbus.MatchOption{
		dbus.WithMatchInterface(evWindowIface),
		dbus.WithMatchMember("SyncSource"),
		dbus.WithMatchSender(owner),
	}
	if err := t.conn.AddMatchSignal(opts...); err != nil {
		return nil, fmt.Errorf("cannot subscribe to SyncSource from %s: %w", owner, err)
	}

	raw := make(chan *dbus.Signal, signalBuffer)
	t.conn.Signal(raw)

	out := make(chan synctex.Location, signalBuffer)
	go func() {
		defer close(out)
		defer t.conn.RemoveSignal(raw)
		defer t.conn.RemoveMatchSignal(opts...)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-raw:
				if !ok {
					return
				}
				loc, err := decodeSyncSource(sig)
				if err != nil {
					continue
				}
				select {
				case out <- loc:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close implements Transport.
func (t *DBusTransport) Close() error {
	return t.conn.Close()
}

// decodeSyncSource unpacks a SyncSource signal body: the source file URI, a
// (line, column) point, and a timestamp we ignore. Evince reports column -1
// when it has none; that becomes 0 (absent).
func decodeSyncSource(sig *dbus.Signal) (synctex.Location, error) {
	if sig.Name != syncSourceSignal || len(sig.Body) < 2 {
		return synctex.Location{}, fmt.Errorf("not a SyncSource signal: %s", sig.Name)
	}
	uri, ok := sig.Body[0].(string)
	if !ok {
		return synctex.Location{}, fmt.Errorf("SyncSource body[0] is %T, want string", sig.Body[0])
	}
	point, ok := sig.Body[1].([]interface{})
	if !ok || len(point) < 2 {
		return synctex.Location{}, fmt.Errorf("SyncSource body[1] is not a (line, column) pair")
	}
	line, ok := point[0].(int32)
	if !ok {
		return synctex.Location{}, fmt.Errorf("SyncSource line is %T, want int32", point[0])
	}
	column, _ := point[1].(int32)
	if column < 0 {
		column = 0
	}

	path, err := PathFromURI(uri)
	if err != nil {
		return synctex.Location{}, err
	}
	return synctex.Location{File: path, Line: int(line), Column: int(column)}, nil
}
