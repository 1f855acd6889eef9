// Package command runs local CLI processes such as az.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"
)

// ExitError reports a process that ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// ShellProcess runs a single binary with arguments parsed shell style.
type ShellProcess struct {
	Command string
	Timeout time.Duration
	// Env is appended to the current process environment.
	Env []string
}

// NewShellProcess creates a process for command with a timeout in seconds.
func NewShellProcess(command string, timeout int) *ShellProcess {
	return &ShellProcess{
		Command: command,
		Timeout: time.Duration(timeout) * time.Second,
	}
}

// Run splits args with shell quoting rules and executes the command.
// stdout is returned even when the process fails.
func (s *ShellProcess) Run(ctx context.Context, args string) (string, error) {
	argv, err := shlex.Split(args)
	if err != nil {
		return "", fmt.Errorf("failed to parse arguments for %s: %w", s.Command, err)
	}
	return s.Exec(ctx, argv...)
}

// Exec runs the command with already split arguments.
func (s *ShellProcess) Exec(ctx context.Context, argv ...string) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.Command, argv...)
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return stdout.String(), fmt.Errorf("%s timed out after %s", s.Command, s.Timeout)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), &ExitError{
			Command:  s.Command,
			ExitCode: exitErr.ExitCode(),
			Stderr:   stderr.String(),
		}
	}
	return stdout.String(), fmt.Errorf("failed to run %s: %w", s.Command, err)
}

// Quote makes value survive Run's argument splitting as a single word.
func Quote(value string) string {
	if value == "" {
		return "''"
	}
	if !strings.ContainsAny(value, " \t\n'\"\\#") {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
