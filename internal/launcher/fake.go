package launcher

import "sync"

// Fake is an in-memory Launcher for tests. It records every Spawn call and
// never creates a real process.
type Fake struct {
	mu      sync.Mutex
	calls   []Record
	err     error
	nextPID int
}

// NewFake returns a Fake that succeeds on every Spawn.
func NewFake() *Fake {
	return &Fake{nextPID: 1000}
}

// Fail makes every subsequent Spawn return err wrapped in a LaunchError.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Spawn implements Launcher.
func (f *Fake) Spawn(argv []string, detach bool) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, &LaunchError{Argv: argv, Err: f.err}
	}
	f.nextPID++
	rec := Record{PID: f.nextPID, Argv: append([]string(nil), argv...), Detached: detach}
	f.calls = append(f.calls, rec)
	return &rec, nil
}

// Calls returns a copy of every recorded Spawn, in order.
func (f *Fake) Calls() []Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Record(nil), f.calls...)
}
