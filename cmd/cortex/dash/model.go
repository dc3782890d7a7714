// Package dash implements the interactive operations dashboard: a
// bubbletea program composing the Home and Progress tabs, modal dialogs
// for input/password/confirmation, and the action menu that drives the
// operation engine. The program loop owns the terminal; background
// workers and samplers communicate through the shared state store, which
// the view re-reads on every tick.
package dash

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"cortex/cmd/cortex/ui"
	"cortex/internal/engine"
	"cortex/internal/state"
	"cortex/internal/telemetry"
)

// refreshInterval drives the render clock. Two frames per second keeps the
// clock and bars lively without hammering the terminal.
const refreshInterval = 500 * time.Millisecond

// maxInputLen bounds the package-name modal buffer.
const maxInputLen = 64

// tickMsg is the render clock.
type tickMsg time.Time

// Model is the bubbletea model for the dashboard.
type Model struct {
	store    *state.Store
	engine   *engine.Engine
	samplers *telemetry.Set
	styles   ui.Styles

	input    textinput.Model
	password textinput.Model

	width  int
	height int
	ready  bool

	// lastKey is a transient hint shown in the footer; cleared on the
	// next render cycle.
	lastKey string

	onQuit func()
}

// Config wires the dashboard to its collaborators.
type Config struct {
	Store    *state.Store
	Engine   *engine.Engine
	Samplers *telemetry.Set
	Styles   ui.Styles
	OnQuit   func()
}

// New builds the dashboard model.
func New(cfg Config) Model {
	input := textinput.New()
	input.Placeholder = "package name"
	input.CharLimit = maxInputLen
	input.Width = 40

	password := textinput.New()
	password.Placeholder = "sudo password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128
	password.Width = 40

	return Model{
		store:    cfg.Store,
		engine:   cfg.Engine,
		samplers: cfg.Samplers,
		styles:   cfg.Styles,
		input:    input,
		password: password,
		onQuit:   cfg.OnQuit,
	}
}

// Init starts the render clock.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// startInstall opens the package-name modal and focuses the input.
func (m *Model) startInstall() {
	if m.engine.StartInstallPrompt() {
		m.input.SetValue("")
		m.input.Focus()
	}
}
