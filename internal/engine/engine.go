// Package engine drives the dashboard's three user operations through the
// shared state machine: Install (two-phase plan/execute with elevation
// capture), Bench, and Doctor. Workers run on their own goroutines, mutate
// the state store under its mutex, and check the cancellation flag at
// every safe point.
package engine

import (
	"regexp"
	"sync"
	"time"

	"cortex/internal/audit"
	"cortex/internal/executor"
	"cortex/internal/planner"
	"cortex/internal/state"
)

// packageNamePattern admits package identifiers for install planning.
var packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Defaults for worker timing. Tests shrink these.
const (
	defaultPasswordTimeout = 5 * time.Minute
	defaultPollInterval    = 100 * time.Millisecond
	defaultStepDelay       = 200 * time.Millisecond
)

// Monitor is the telemetry admission surface the engine flips on when an
// operation needs live sampling.
type Monitor interface {
	EnableAll(gpu bool)
}

// CommandLog receives commands the engine has executed, for the history
// panel. Optional.
type CommandLog interface {
	Add(cmd string)
}

// Options configures an Engine.
type Options struct {
	Store    *state.Store
	Planner  planner.Planner
	Executor executor.Executor
	Audit    audit.Sink
	Monitor  Monitor
	Commands CommandLog

	// CredentialsPresent overrides the env-based check. Nil means the
	// planner package's default.
	CredentialsPresent func() bool

	PasswordTimeout time.Duration
	PollInterval    time.Duration
	StepDelay       time.Duration
}

// Engine owns the operation workers. At most one worker is in flight; the
// store's check-and-set admission enforces that.
type Engine struct {
	store    *state.Store
	planner  planner.Planner
	exec     executor.Executor
	audit    audit.Sink
	monitor  Monitor
	commands CommandLog
	creds    func() bool

	passwordTimeout time.Duration
	pollInterval    time.Duration
	stepDelay       time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	workers      sync.WaitGroup
}

// New builds an engine. Nil optional collaborators are tolerated.
func New(opts Options) *Engine {
	e := &Engine{
		store:           opts.Store,
		planner:         opts.Planner,
		exec:            opts.Executor,
		audit:           opts.Audit,
		monitor:         opts.Monitor,
		commands:        opts.Commands,
		creds:           opts.CredentialsPresent,
		passwordTimeout: opts.PasswordTimeout,
		pollInterval:    opts.PollInterval,
		stepDelay:       opts.StepDelay,
		shutdown:        make(chan struct{}),
	}
	if e.creds == nil {
		e.creds = planner.CredentialsPresent
	}
	if e.passwordTimeout == 0 {
		e.passwordTimeout = defaultPasswordTimeout
	}
	if e.pollInterval == 0 {
		e.pollInterval = defaultPollInterval
	}
	if e.stepDelay == 0 {
		e.stepDelay = defaultStepDelay
	}
	return e
}

// Shutdown releases any worker blocked on password capture and marks the
// engine as closing. Idempotent.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() { close(e.shutdown) })
}

// Wait blocks until all in-flight workers have returned. Test helper.
func (e *Engine) Wait() { e.workers.Wait() }

func (e *Engine) record(action, target, outcome string) {
	if e.audit != nil {
		e.audit.Record(action, target, outcome)
	}
}

// ValidPackageName reports whether name is an acceptable package
// identifier for planning.
func ValidPackageName(name string) bool {
	return packageNamePattern.MatchString(name)
}
