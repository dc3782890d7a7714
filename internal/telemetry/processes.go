package telemetry

import (
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/process"

	"cortex/internal/logging"
)

// aiKeywords selects the processes worth showing on an AI workstation.
var aiKeywords = []string{
	"python", "node", "ollama", "llama", "bert", "gpt", "transformers",
	"inference", "pytorch", "tensorflow", "cortex", "cuda",
}

// ProcessInfo is one captured process. Only the identifier and name are
// retained; command-line arguments are never read into memory.
type ProcessInfo struct {
	PID  int32
	Name string
}

// ProcessLister enumerates AI/ML-related processes.
type ProcessLister struct {
	mu        sync.Mutex
	processes []ProcessInfo
	enabled   bool
}

// NewProcessLister returns a lister that collects nothing until enabled.
func NewProcessLister() *ProcessLister {
	return &ProcessLister{}
}

// Enable admits the lister for sampling.
func (l *ProcessLister) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = true
}

// Enabled reports whether sampling has been admitted.
func (l *ProcessLister) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Update enumerates processes and publishes those whose name matches the
// keyword set. No-op when disabled.
func (l *ProcessLister) Update() {
	l.mu.Lock()
	if !l.enabled {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	procs, err := process.Processes()
	if err != nil {
		logging.Warnf(logging.CategoryTelemetry, "process enumeration failed: %v", err)
		return
	}
	var matched []ProcessInfo
	for _, p := range procs {
		name, err := p.Name()
		if err != nil || name == "" {
			continue
		}
		if matchesKeyword(name) {
			matched = append(matched, ProcessInfo{PID: p.Pid, Name: name})
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.processes = matched
}

// Snapshot returns the last published process list.
func (l *ProcessLister) Snapshot() []ProcessInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ProcessInfo(nil), l.processes...)
}

func matchesKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range aiKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
