package viewer

import (
	"context"
	"sync"

	"github.com/vandalt/evince-synctex/internal/synctex"
)

// SyncViewCall records one forward-search request made against a Fake.
type SyncViewCall struct {
	Owner  string
	File   string
	Line   int
	Column int
}

// Fake is an in-memory Transport. Tests script the registry with Register
// and deliver backward-search gestures with Emit.
type Fake struct {
	mu            sync.Mutex
	registry      map[string]string
	findErr       error
	syncViews     []SyncViewCall
	signals       chan synctex.Location
	subscriptions int
}

// NewFake returns an empty Fake with a buffered signal channel.
func NewFake() *Fake {
	return &Fake{
		registry: make(map[string]string),
		signals:  make(chan synctex.Location, signalBuffer),
	}
}

// Register scripts the registry: uri is now owned by the given bus name.
func (f *Fake) Register(uri, owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registry[uri] = owner
}

// FailFind makes every FindDocument return err.
func (f *Fake) FailFind(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findErr = err
}

// Emit delivers a backward-search gesture to the current subscriber.
func (f *Fake) Emit(loc synctex.Location) {
	f.signals <- loc
}

// CloseSignals ends the subscription channel, as if the viewer went away.
func (f *Fake) CloseSignals() {
	close(f.signals)
}

// SyncViews returns a copy of every recorded forward-search call.
func (f *Fake) SyncViews() []SyncViewCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SyncViewCall(nil), f.syncViews...)
}

// Subscriptions returns how many times SyncSource was called.
func (f *Fake) Subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscriptions
}

// FindDocument implements Transport.
func (f *Fake) FindDocument(uri string, spawn bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return "", f.findErr
	}
	return f.registry[uri], nil
}

// SyncView implements Transport.
func (f *Fake) SyncView(owner, sourceFile string, line, column int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncViews = append(f.syncViews, SyncViewCall{Owner: owner, File: sourceFile, Line: line, Column: column})
	return nil
}

// SyncSource implements Transport.
func (f *Fake) SyncSource(ctx context.Context, owner string) (<-chan synctex.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscriptions++
	return f.signals, nil
}

// Close implements Transport.
func (f *Fake) Close() error { return nil }
