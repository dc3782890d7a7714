// Package executor runs shell commands one at a time on the host. This is
// the execute half of the install protocol: the dashboard drives each
// planned command through Execute so it can report per-command progress.
package executor

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"cortex/internal/logging"
)

// DefaultTimeout bounds a single command. Package installs can be slow;
// the dashboard and the CLI install path both run with this default.
const DefaultTimeout = 300 * time.Second

// Result is the outcome of one command.
type Result struct {
	Success bool
	Stdout  string
	Stderr  string
}

// Executor runs a single shell command with optional stdin payload. The
// engine depends on this interface; tests substitute fakes.
type Executor interface {
	Execute(ctx context.Context, command string, stdin string) (Result, error)
}

// Shell executes commands via `sh -c` on the host.
type Shell struct {
	Timeout time.Duration
}

// NewShell returns a host executor with the default timeout.
func NewShell() *Shell {
	return &Shell{Timeout: DefaultTimeout}
}

// Execute runs command under sh. A non-zero exit is reported as
// Success=false with a nil error; errors are reserved for failures to run
// the command at all.
func (s *Shell) Execute(ctx context.Context, command string, stdin string) (Result, error) {
	timeout := s.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	// A grandchild that inherited the output pipes would otherwise keep Run
	// waiting past the deadline; stop waiting for it shortly after the kill.
	cmd.WaitDelay = time.Second
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debugf(logging.CategoryExecutor, "executing: %s", command)
	err := cmd.Run()
	res := Result{
		Success: err == nil,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok || ctx.Err() != nil {
			logging.Warnf(logging.CategoryExecutor, "command failed: %s: %v", command, err)
			return res, nil
		}
		logging.Errorf(logging.CategoryExecutor, "command could not run: %s: %v", command, err)
		return res, err
	}
	return res, nil
}

// NeedsElevation reports whether a command begins with the elevation token.
func NeedsElevation(command string) bool {
	return strings.HasPrefix(strings.TrimSpace(command), "sudo ") ||
		strings.TrimSpace(command) == "sudo"
}

// AnyNeedsElevation reports whether any command in the plan requires sudo.
func AnyNeedsElevation(commands []string) bool {
	for _, c := range commands {
		if NeedsElevation(c) {
			return true
		}
	}
	return false
}

// RewriteElevated rewrites a sudo command to read the password from stdin
// with no prompt printed. The caller feeds the cached secret, newline
// terminated, on the child's standard input; the secret never appears on a
// command line or in the environment.
func RewriteElevated(command string) string {
	trimmed := strings.TrimSpace(command)
	rest := strings.TrimPrefix(trimmed, "sudo")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return `sudo -S -p ""`
	}
	return `sudo -S -p "" ` + rest
}
