// Package planner turns a package request into an ordered shell-command
// plan by invoking the external LLM-backed interpreter in dry-run JSON
// mode. The dashboard never lets the interpreter execute anything; it runs
// the returned commands itself, one at a time.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"cortex/internal/logging"
)

// callTimeout bounds one interpreter invocation. The interpreter applies
// its own LLM timeouts underneath; exceeding this is treated as a failure.
const callTimeout = 120 * time.Second

// Result is the parsed interpreter response.
type Result struct {
	Success  bool     `json:"success"`
	Commands []string `json:"commands"`
	Error    string   `json:"error,omitempty"`
}

// Planner produces a command plan for a package request.
type Planner interface {
	Plan(ctx context.Context, pkg string) (Result, error)
}

// CredentialsPresent reports whether an LLM API key is configured. Install
// planning refuses to start without one.
func CredentialsPresent() bool {
	return os.Getenv("ANTHROPIC_API_KEY") != "" || os.Getenv("OPENAI_API_KEY") != ""
}

// Subprocess invokes the interpreter binary with dry_run and json_output
// set, and parses the single JSON object it prints on stdout.
type Subprocess struct {
	// Binary is the interpreter executable. Empty means this process's own
	// binary, which carries the interpreter as the `interpret` subcommand.
	Binary string
	Args   []string
}

// NewSubprocess returns a planner that shells out to this binary's
// `interpret` subcommand.
func NewSubprocess() *Subprocess {
	exe, err := os.Executable()
	if err != nil {
		exe = "cortex"
	}
	return &Subprocess{Binary: exe, Args: []string{"interpret", "--json"}}
}

// Plan runs the interpreter and parses its output. Non-zero exit, JSON
// parse failure, or success=false are all surfaced as errors with a
// cleaned, display-ready message.
func (p *Subprocess) Plan(ctx context.Context, pkg string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	args := append(append([]string(nil), p.Args...), pkg)
	cmd := exec.CommandContext(ctx, p.Binary, args...)
	// Tell the interpreter to keep decorative output off stdout so the
	// JSON object is the only thing printed there.
	cmd.Env = append(os.Environ(), "CORTEX_SILENT_OUTPUT=1")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debugf(logging.CategoryPlanner, "planning %q via %s", pkg, p.Binary)
	runErr := cmd.Run()

	var res Result
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &res); err != nil {
		if runErr != nil {
			return Result{}, fmt.Errorf("%s", CleanMessage(firstUseful(stderr.String(), runErr.Error())))
		}
		return Result{}, fmt.Errorf("invalid planner output: %s", CleanMessage(err.Error()))
	}
	if runErr != nil {
		msg := firstUseful(res.Error, stderr.String(), runErr.Error())
		return Result{}, fmt.Errorf("%s", CleanMessage(msg))
	}
	if !res.Success {
		return Result{}, fmt.Errorf("%s", CleanMessage(firstUseful(res.Error, "planner reported failure")))
	}
	if len(res.Commands) == 0 {
		return Result{}, fmt.Errorf("no commands generated")
	}
	return res, nil
}

func firstUseful(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return "unknown planner error"
}

// colorTagPattern matches rich-style [tag] color markers embedded in
// interpreter error text.
var colorTagPattern = regexp.MustCompile(`\[[^\]]*\]`)

// CleanMessage strips color-tag markers, keeps the first non-empty line,
// and clips the result to 80 characters for status display.
func CleanMessage(msg string) string {
	msg = colorTagPattern.ReplaceAllString(msg, "")
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 80 {
			return line[:77] + "..."
		}
		return line
	}
	return ""
}
