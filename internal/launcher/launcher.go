// Package launcher starts viewer, editor, and build processes on behalf of
// the coordinator.
package launcher

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Record describes a process started by a Launcher.
type Record struct {
	// PID is the operating system process id.
	PID int
	// Argv is the argument list the process was started with.
	Argv []string
	// Detached reports whether the process survives the coordinator.
	Detached bool
}

// LaunchError indicates that a process could not be created, either because
// the executable could not be resolved or because the OS rejected the
// launch. It is never retried; a wrong editor path should surface, not be
// masked by retries.
type LaunchError struct {
	Argv []string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %q: %v", strings.Join(e.Argv, " "), e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Launcher starts OS processes. The exec implementation spawns real
// processes; tests inject a Fake that records calls instead.
type Launcher interface {
	// Spawn starts argv[0] with the remaining arguments, inheriting the
	// working directory and environment. When detach is true the child is
	// decoupled from the coordinator's lifetime and Spawn returns as soon
	// as the process exists; otherwise Spawn blocks until the child
	// terminates.
	Spawn(argv []string, detach bool) (*Record, error)
}

// ExecLauncher runs processes with os/exec.
type ExecLauncher struct{}

// Spawn implements Launcher. Detached children are placed in their own
// session with no inherited stdio, so killing the coordinator leaves them
// running. A non-zero exit of a non-detached child is not a LaunchError;
// only failure to create the process is.
func (ExecLauncher) Spawn(argv []string, detach bool) (*Record, error) {
	if len(argv) == 0 {
		return nil, &LaunchError{Argv: argv, Err: fmt.Errorf("empty argument list")}
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, &LaunchError{Argv: argv, Err: err}
	}

	cmd := exec.Command(path, argv[1:]...)
	if detach {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		if err := cmd.Start(); err != nil {
			return nil, &LaunchError{Argv: argv, Err: err}
		}
		rec := &Record{PID: cmd.Process.Pid, Argv: argv, Detached: true}
		// Reap the child if it happens to exit before we do. Its exit
		// status is its own business.
		go cmd.Wait()
		return rec, nil
	}

	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Argv: argv, Err: err}
	}
	rec := &Record{PID: cmd.Process.Pid, Argv: argv}
	cmd.Wait()
	return rec, nil
}
