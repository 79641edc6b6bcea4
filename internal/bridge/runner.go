package bridge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"syscall"
)

// Exit statuses reported when the command never produced its own.
const (
	StatusGeneralFailure = 1
	StatusInvalidRequest = 1
	StatusNotExecutable  = 126
	StatusNotFound       = 127
	statusSignalBase     = 128
)

// Result is the outcome of one command invocation.
type Result struct {
	Status int
	// Err describes why Status was synthesized (spawn failure or signal). It is
	// nil when the command ran and exited on its own, including nonzero exits.
	Err error
}

// Runner invokes the external command on one file.
type Runner interface {
	Run(ctx context.Context, command string, file string) Result
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, command string, file string) Result

func (f RunnerFunc) Run(ctx context.Context, command string, file string) Result {
	return f(ctx, command, file)
}

// ExecRunner spawns `<command> <file>` with standard streams on the null device
// and waits for it without a timeout.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, command string, file string) Result {
	cmd := exec.CommandContext(ctx, command, file)
	// Stdin, Stdout and Stderr stay nil, which os/exec binds to the null device.

	if err := cmd.Start(); err != nil {
		return Result{Status: spawnStatus(err), Err: fmt.Errorf("start command %s: %w", command, err)}
	}

	err := cmd.Wait()
	if err == nil {
		return Result{Status: 0}
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return Result{Status: StatusGeneralFailure, Err: fmt.Errorf("wait for %s: %w", command, err)}
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return Result{Status: code}
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return Result{Status: statusSignalBase + int(ws.Signal()), Err: fmt.Errorf("%s terminated by signal: %v", command, ws.Signal())}
	}
	return Result{Status: StatusGeneralFailure, Err: fmt.Errorf("%s terminated abnormally: %w", command, err)}
}

// spawnStatus maps a start failure onto the shell's conventional statuses.
func spawnStatus(err error) int {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return StatusNotFound
	case errors.Is(err, fs.ErrPermission):
		return StatusNotExecutable
	default:
		return StatusGeneralFailure
	}
}
