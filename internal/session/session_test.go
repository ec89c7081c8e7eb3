package session

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/vandalt/evince-synctex/internal/launcher"
	"github.com/vandalt/evince-synctex/internal/viewer"
)

const testURI = "file:///home/user/paper.pdf"

func testConfig() *Config {
	return &Config{
		ViewerCommand: []string{"evince"},
		PollInterval:  time.Millisecond,
		Timeout:       50 * time.Millisecond,
		Logger:        log.New(io.Discard, "", 0),
	}
}

func TestEnsureReusesExistingSession(t *testing.T) {
	fake := viewer.NewFake()
	fake.Register(testURI, ":1.42")
	launch := launcher.NewFake()

	mgr := NewManager(testURI, fake, launch, testConfig())
	h, err := mgr.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if h.Owner != ":1.42" {
		t.Errorf("Owner = %q, want :1.42", h.Owner)
	}
	if h.Spawned {
		t.Error("Spawned = true for a pre-existing session")
	}
	if len(launch.Calls()) != 0 {
		t.Errorf("viewer was spawned despite existing session: %v", launch.Calls())
	}
}

func TestEnsureSpawnsAndWaitsForRegistration(t *testing.T) {
	fake := viewer.NewFake()
	launch := launcher.NewFake()
	mgr := NewManager(testURI, fake, launch, testConfig())

	// Registration appears shortly after the spawn, like a real viewer.
	go func() {
		time.Sleep(5 * time.Millisecond)
		fake.Register(testURI, ":1.7")
	}()

	h, err := mgr.Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if h.Owner != ":1.7" || !h.Spawned {
		t.Errorf("handle = %+v, want spawned :1.7", h)
	}

	calls := launch.Calls()
	if len(calls) != 1 {
		t.Fatalf("got %d spawns, want 1", len(calls))
	}
	if !calls[0].Detached {
		t.Error("viewer was not spawned detached")
	}
	if got := calls[0].Argv[len(calls[0].Argv)-1]; got != testURI {
		t.Errorf("viewer argv ends with %q, want the document URI", got)
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	fake := viewer.NewFake()
	fake.Register(testURI, ":1.42")
	launch := launcher.NewFake()
	mgr := NewManager(testURI, fake, launch, testConfig())

	first, err := mgr.Ensure(context.Background())
	if err != nil {
		t.Fatalf("first Ensure failed: %v", err)
	}

	// Second call must not hit the registry again, even if it would fail.
	fake.FailFind(errors.New("bus gone"))
	second, err := mgr.Ensure(context.Background())
	if err != nil {
		t.Fatalf("second Ensure failed: %v", err)
	}
	if first != second {
		t.Errorf("handles differ: %+v vs %+v", first, second)
	}
	if len(launch.Calls()) != 0 {
		t.Error("idempotent Ensure spawned a viewer")
	}
}

func TestEnsureTimesOut(t *testing.T) {
	fake := viewer.NewFake() // never registers
	launch := launcher.NewFake()
	mgr := NewManager(testURI, fake, launch, testConfig())

	_, err := mgr.Ensure(context.Background())
	var te *SessionTimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("Ensure = %v, want *SessionTimeoutError", err)
	}
	if len(launch.Calls()) != 1 {
		t.Errorf("got %d spawns, want exactly 1 (no retries)", len(launch.Calls()))
	}
}

func TestEnsurePropagatesLaunchError(t *testing.T) {
	fake := viewer.NewFake()
	launch := launcher.NewFake()
	launch.Fail(errors.New("no such binary"))
	mgr := NewManager(testURI, fake, launch, testConfig())

	_, err := mgr.Ensure(context.Background())
	var le *launcher.LaunchError
	if !errors.As(err, &le) {
		t.Fatalf("Ensure = %v, want *LaunchError", err)
	}
}

func TestEnsureStopsOnCancel(t *testing.T) {
	fake := viewer.NewFake() // never registers
	launch := launcher.NewFake()
	cfg := testConfig()
	cfg.Timeout = time.Minute
	mgr := NewManager(testURI, fake, launch, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := mgr.Ensure(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Ensure = %v, want context.Canceled", err)
	}
}
