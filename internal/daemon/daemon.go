// Package daemon manages the pid-file lifecycle and the re-exec-based
// daemonization Go substitutes for fork(2): acquire an exclusive
// non-blocking lock on the pid-file, write the pid into the locked file,
// and register removal for shutdown.
package daemon

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gofrs/flock"

	"github.com/blin/zabby-agent/internal/errors"
)

// reexecEnvVar marks a process as the already-daemonized child so Daemonize
// does not re-exec itself a second time.
const reexecEnvVar = "ZABBY_AGENT_DAEMON_CHILD"

// PidFile holds the exclusive lock acquired on a pid-file for the lifetime
// of the process.
type PidFile struct {
	path string
	lock *flock.Flock
}

// AcquirePidFile takes an exclusive, non-blocking lock on path and writes
// the current pid into that same file in place, so the lock stays on the
// file found at path. It fails if the file is already
// locked by another process — spec.md's "refuse to start if pid-file
// already exists".
func AcquirePidFile(path string) (*PidFile, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, &errors.ConfigError{Field: "PidFile", Value: path, Message: "failed to lock pid-file", Err: err}
	}
	if !locked {
		return nil, &errors.ConfigError{Field: "PidFile", Value: path, Message: "pid-file is already locked by a running instance"}
	}

	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0o644); err != nil {
		lock.Unlock()
		return nil, &errors.ConfigError{Field: "PidFile", Value: path, Message: "failed to write pid-file", Err: err}
	}

	return &PidFile{path: path, lock: lock}, nil
}

// Release unlocks and removes the pid-file. Call on shutdown.
func (p *PidFile) Release() error {
	if err := p.lock.Unlock(); err != nil {
		return err
	}
	return os.Remove(p.path)
}

// IsDaemonChild reports whether this process is already the re-exec'd
// daemon child (set by Daemonize before it execs).
func IsDaemonChild() bool {
	return os.Getenv(reexecEnvVar) == "1"
}

// Daemonize re-executes the current binary with the same arguments, stdin
// closed and stdout/stderr redirected to errorLogPath, then exits the
// parent once the child has started. The child continues running with
// IsDaemonChild() true.
//
// Go has no portable fork(2); re-exec into a detached session is the
// idiomatic substitute.
func Daemonize(errorLogPath string) error {
	if IsDaemonChild() {
		return nil
	}

	logFile, err := os.OpenFile(errorLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &errors.ConfigError{Field: "ErrorLog", Value: errorLogPath, Message: "failed to open error log", Err: err}
	}
	defer logFile.Close()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("daemonize: resolve executable: %w", err)
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return fmt.Errorf("daemonize: open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	proc, err := os.StartProcess(exe, os.Args, &os.ProcAttr{
		Env:   append(os.Environ(), reexecEnvVar+"=1"),
		Files: []*os.File{devNull, logFile, logFile},
		Sys:   sysProcAttrDetached(),
	})
	if err != nil {
		return fmt.Errorf("daemonize: start child: %w", err)
	}

	fmt.Fprintf(os.Stderr, "zabby-agent daemonized as pid %d\n", proc.Pid)
	os.Exit(0)
	return nil
}
