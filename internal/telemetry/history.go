package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// maxHistoryEntries bounds the shell-history buffer.
const maxHistoryEntries = 10

// historyFiles is the fixed search list, checked in order under $HOME.
var historyFiles = []string{".bash_history", ".zsh_history", ".history"}

// CommandHistory loads the tail of the user's shell history once and then
// accumulates commands executed from the dashboard. Loading is one-shot:
// repeat calls are no-ops.
type CommandHistory struct {
	mu       sync.Mutex
	commands []string
	enabled  bool
	loaded   bool
	home     string
}

// NewCommandHistory returns a history buffer rooted at the given home
// directory (empty means the current user's).
func NewCommandHistory(home string) *CommandHistory {
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return &CommandHistory{home: home}
}

// Enable admits the loader.
func (h *CommandHistory) Enable() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enabled = true
}

// Enabled reports whether loading has been admitted.
func (h *CommandHistory) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// Load reads the tail of the first shell-history file found. Idempotent:
// only the first call reads anything.
func (h *CommandHistory) Load() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.enabled || h.loaded {
		return
	}
	h.loaded = true

	for _, name := range historyFiles {
		data, err := os.ReadFile(filepath.Join(h.home, name))
		if err != nil {
			continue
		}
		lines := strings.Split(string(data), "\n")
		for i := len(lines) - 1; i >= 0 && len(h.commands) < maxHistoryEntries; i-- {
			cmd := cleanHistoryLine(lines[i])
			if cmd != "" {
				h.commands = append(h.commands, cmd)
			}
		}
		// Oldest first for display.
		for i, j := 0, len(h.commands)-1; i < j; i, j = i+1, j-1 {
			h.commands[i], h.commands[j] = h.commands[j], h.commands[i]
		}
		return
	}
}

// Add appends a command executed from the dashboard, dropping blanks and
// trimming the buffer to its maximum size.
func (h *CommandHistory) Add(cmd string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)
	if len(h.commands) > maxHistoryEntries {
		h.commands = h.commands[len(h.commands)-maxHistoryEntries:]
	}
}

// Snapshot returns the buffered commands, oldest first.
func (h *CommandHistory) Snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.commands...)
}

// cleanHistoryLine strips blanks, bash timestamp comments, and zsh
// extended-history metadata (": 1700000000:0;cmd").
func cleanHistoryLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	if strings.HasPrefix(line, ": ") {
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = strings.TrimSpace(line[idx+1:])
		}
	}
	return line
}
