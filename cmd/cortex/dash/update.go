package dash

import (
	tea "github.com/charmbracelet/bubbletea"

	"cortex/internal/state"
)

// Update routes messages. Key routing is state-sensitive: typing modals
// own the printable keys; everything else answers to the global bindings
// and the action map.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		// The footer hint lives for exactly one render cycle.
		m.lastKey = ""
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}

	m.lastKey = msg.String()
	st := m.store.State()

	switch st {
	case state.WaitingInput:
		return m.handleInputModal(msg)
	case state.WaitingPassword:
		return m.handlePasswordModal(msg)
	case state.WaitingConfirmation:
		return m.handleConfirmation(msg)
	}

	// Global bindings outside the typing modals.
	switch msg.String() {
	case "q":
		return m.quit()
	case "tab":
		m.store.WithLock(func(d *state.Data) {
			d.CurrentTab = d.CurrentTab.Next()
		})
		return m, nil
	}

	if a := lookupAction(msg.String()); a != nil {
		a.Run(&m)
		// Starting an operation lands the user on the progress tab.
		if msg.String() != "4" {
			m.store.WithLock(func(d *state.Data) {
				d.CurrentTab = state.TabProgress
			})
		}
		return m, nil
	}
	return m, nil
}

// handleInputModal processes keys while the package-name dialog is open.
func (m Model) handleInputModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.engine.SubmitPackageName(m.input.Value())
		m.syncInputFromStore()
		return m, nil
	case tea.KeyEsc:
		// Closing the dialog is not a failed operation; back to idle.
		m.store.WithLock(func(d *state.Data) {
			d.Progress = state.Progress{}
			d.InputBuffer = ""
		})
		m.input.SetValue("")
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.store.WithLock(func(d *state.Data) {
		d.InputBuffer = m.input.Value()
	})
	return m, cmd
}

// syncInputFromStore resets the text component when the engine cleared
// the buffer (invalid name) or left the input state.
func (m *Model) syncInputFromStore() {
	snap := m.store.Snapshot()
	if snap.Progress.State != state.WaitingInput {
		m.input.Blur()
		m.input.SetValue("")
		return
	}
	if snap.InputBuffer == "" {
		m.input.SetValue("")
	}
}

// handlePasswordModal processes keys while the sudo-password dialog is
// open. The echo is dots; Enter hands the secret to the engine.
func (m Model) handlePasswordModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.password.Focused() {
		m.password.Focus()
	}
	switch msg.Type {
	case tea.KeyEnter:
		m.engine.SubmitPassword(m.password.Value())
		m.password.SetValue("")
		m.password.Blur()
		return m, nil
	case tea.KeyEsc:
		m.engine.Cancel()
		m.password.SetValue("")
		m.password.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.password, cmd = m.password.Update(msg)
	return m, cmd
}

// handleConfirmation processes the y/n plan confirmation dialog.
func (m Model) handleConfirmation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.engine.ConfirmInstall()
	case "n", "N", "esc":
		m.engine.DeclineInstall()
	case "q":
		return m.quit()
	case "tab":
		m.store.WithLock(func(d *state.Data) {
			d.CurrentTab = d.CurrentTab.Next()
		})
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.onQuit != nil {
		m.onQuit()
	}
	return m, tea.Quit
}
