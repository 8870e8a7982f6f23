package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// CommandRunner executes a fully substituted command line and reports its
// exit code. A non-nil error means the command could not be launched at all;
// a nonzero exit code is the sole failure signal for a launched command.
//
// Implemented by ShellRunner (production) and RunnerFunc (tests).
type CommandRunner interface {
	Run(ctx context.Context, command string) (exitCode int, err error)
}

// ShellRunner runs commands through the shell, inheriting the process
// environment. Output streams default to the parent's stdout/stderr.
type ShellRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements CommandRunner.
func (r ShellRunner) Run(ctx context.Context, command string) (int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Env = os.Environ()

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

// RunnerFunc adapts a function to the CommandRunner interface. Tests use it
// to observe dispatched commands without spawning processes.
type RunnerFunc func(ctx context.Context, command string) (int, error)

// Run implements CommandRunner.
func (f RunnerFunc) Run(ctx context.Context, command string) (int, error) {
	return f(ctx, command)
}
