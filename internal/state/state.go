// Package state holds the authoritative dashboard state shared between the
// renderer, the sampler scheduler, and the operation workers. All mutation
// goes through a single mutex; cancellation is a separate atomic flag so
// workers can poll it without contending for the lock.
package state

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tab identifies the visible dashboard tab.
type Tab int

const (
	TabHome Tab = iota
	TabProgress
)

func (t Tab) String() string {
	if t == TabProgress {
		return "Progress"
	}
	return "Home"
}

// Next cycles Home -> Progress -> Home.
func (t Tab) Next() Tab {
	if t == TabHome {
		return TabProgress
	}
	return TabHome
}

// OpState is the operation state machine. Exactly one state holds at a time.
type OpState int

const (
	Idle OpState = iota
	WaitingInput
	WaitingConfirmation
	WaitingPassword
	Processing
	InProgress
	Completed
	Failed
)

func (s OpState) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitingInput:
		return "waiting_input"
	case WaitingConfirmation:
		return "waiting_confirmation"
	case WaitingPassword:
		return "waiting_password"
	case Processing:
		return "processing"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Busy reports whether an operation worker is in flight or a modal is open.
// Starting a new operation in a busy state is a no-op.
func (s OpState) Busy() bool {
	switch s {
	case WaitingInput, WaitingConfirmation, WaitingPassword, Processing, InProgress:
		return true
	}
	return false
}

// Terminal reports whether the state is an observable end state.
func (s OpState) Terminal() bool {
	return s == Completed || s == Failed
}

// Progress is the record rendered on the Progress tab.
type Progress struct {
	State           OpState
	OperationLabel  string
	CurrentStep     int
	TotalSteps      int
	StepDescription string
	Items           []string // auxiliary strings shown in-panel
	ErrorMessage    string
	SuccessMessage  string
	StartTime       time.Time
	Elapsed         time.Duration
	ETA             time.Duration
}

// DoctorResult is one diagnostic check outcome.
type DoctorResult struct {
	Name   string
	Passed bool
	Detail string
}

// Data is the aggregate guarded by the Store mutex.
type Data struct {
	CurrentTab      Tab
	Progress        Progress
	InputBuffer     string
	PendingCommands []string
	SudoPassword    string // cached for the session, never persisted
	LastKeyLabel    string // unused; the dashboard keeps its key hint in its own model
	DoctorResults   []DoctorResult
	BenchStatus     string
	DoctorRunning   bool
	BenchRunning    bool
}

// Store serializes all access to Data and carries the one-way cancel flag.
type Store struct {
	mu        sync.Mutex
	data      Data
	cancelled atomic.Bool
}

// New returns a Store in the Idle state.
func New() *Store {
	return &Store{}
}

// WithLock runs f under the store mutex. Keep critical sections short.
func (s *Store) WithLock(f func(d *Data)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.data)
}

// Snapshot returns a consistent copy for rendering. Slices are copied so the
// renderer never aliases worker-owned memory.
func (s *Store) Snapshot() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.data
	d.Progress.Items = append([]string(nil), s.data.Progress.Items...)
	d.PendingCommands = append([]string(nil), s.data.PendingCommands...)
	d.DoctorResults = append([]DoctorResult(nil), s.data.DoctorResults...)
	return d
}

// State returns the current machine state.
func (s *Store) State() OpState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Progress.State
}

// TryStart performs the check-and-set admission for an operation starter.
// If the machine is busy it returns false without touching anything. On
// success it resets the progress record, clears the cancel flag, and leaves
// the machine in next.
func (s *Store) TryStart(label string, next OpState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Progress.State.Busy() {
		return false
	}
	s.data.Progress = Progress{
		State:          next,
		OperationLabel: label,
		StartTime:      time.Now(),
	}
	s.data.InputBuffer = ""
	s.data.PendingCommands = nil
	s.cancelled.Store(false)
	return true
}

// Cancelled reports the cancel flag. Safe without the mutex.
func (s *Store) Cancelled() bool { return s.cancelled.Load() }

// SetCancelled raises the cancel flag. Only operation starters clear it,
// via TryStart.
func (s *Store) SetCancelled() { s.cancelled.Store(true) }

// RefreshTiming recomputes elapsed and ETA from the progress record. No-op
// unless an operation has started.
func (s *Store) RefreshTiming(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &s.data.Progress
	if p.StartTime.IsZero() {
		return
	}
	p.Elapsed = now.Sub(p.StartTime)
	p.ETA = estimateRemaining(p.Elapsed, p.CurrentStep, p.TotalSteps)
}

// estimateRemaining projects the remaining time from per-step averages.
// Zero until the first step completes and zero again once all steps are done.
func estimateRemaining(elapsed time.Duration, current, total int) time.Duration {
	if current <= 0 || total <= 0 || current >= total {
		return 0
	}
	perStep := elapsed / time.Duration(current)
	return perStep * time.Duration(total-current)
}
