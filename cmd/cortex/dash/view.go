package dash

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"cortex/internal/state"
)

// Display limits per panel.
const (
	maxProcessRows  = 8
	maxRunningRows  = 5
	maxCatalogRows  = 3
	maxHistoryRows  = 10
	processNameLen  = 24
	historyEntryLen = 38
)

// View renders one frame from a consistent snapshot of the store. It never
// mutates state and performs no I/O beyond returning the frame.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	snap := m.store.Snapshot()

	header := m.renderHeader(snap)
	var body string
	if snap.CurrentTab == state.TabProgress {
		body = m.renderProgressTab(snap)
	} else {
		body = m.renderHomeTab(snap)
	}
	menu := m.renderMenu()
	footer := m.renderFooter(snap)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, menu, footer)
}

func (m Model) renderHeader(snap state.Data) string {
	title := m.styles.Header.Render(" CORTEX ")
	clock := m.styles.Muted.Render(time.Now().Format("15:04:05"))

	tabs := make([]string, 0, 2)
	for _, t := range []state.Tab{state.TabHome, state.TabProgress} {
		if t == snap.CurrentTab {
			tabs = append(tabs, m.styles.TabOn.Render(t.String()))
		} else {
			tabs = append(tabs, m.styles.TabOff.Render(t.String()))
		}
	}

	line := lipgloss.JoinHorizontal(lipgloss.Center,
		title, "  ", strings.Join(tabs, " · "), "  ", clock)
	return lipgloss.JoinVertical(lipgloss.Left, line, m.styles.RenderDivider(m.width))
}

// renderHomeTab composes the two 2-column rows: resources/processes and
// models/history.
func (m Model) renderHomeTab(snap state.Data) string {
	colWidth := m.width/2 - 2
	if colWidth < 30 {
		colWidth = 30
	}
	panel := m.styles.Panel.Width(colWidth)

	row1 := lipgloss.JoinHorizontal(lipgloss.Top,
		panel.Render(m.renderResources()),
		panel.Render(m.renderProcesses()),
	)
	row2 := lipgloss.JoinHorizontal(lipgloss.Top,
		panel.Render(m.renderModels()),
		panel.Render(m.renderHistory()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func (m Model) renderResources() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Resources") + "\n")

	if !m.samplers.Monitoring() {
		sb.WriteString(m.styles.Muted.Render("Monitoring off — press 2 or 3 to enable"))
		return sb.String()
	}
	metrics := m.samplers.System.Snapshot()
	sb.WriteString(fmt.Sprintf("CPU %s %5.1f%%\n", m.styles.RenderBar(metrics.CPUPercent), metrics.CPUPercent))
	sb.WriteString(fmt.Sprintf("RAM %s %5.1f%% (%.1f/%.1f GB)",
		m.styles.RenderBar(metrics.RAMPercent), metrics.RAMPercent, metrics.RAMUsedGB, metrics.RAMTotalGB))
	if metrics.GPUAvailable {
		sb.WriteString(fmt.Sprintf("\nGPU %s %5.1f%% (%.1f/%.1f GB)",
			m.styles.RenderBar(metrics.GPUPercent), metrics.GPUPercent, metrics.VRAMUsedGB, metrics.VRAMTotalGB))
	}
	return sb.String()
}

func (m Model) renderProcesses() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("AI Processes") + "\n")

	if !m.samplers.Processes.Enabled() {
		sb.WriteString(m.styles.Muted.Render("Not monitored"))
		return sb.String()
	}
	procs := m.samplers.Processes.Snapshot()
	if len(procs) == 0 {
		sb.WriteString(m.styles.Muted.Render("No AI processes found"))
		return sb.String()
	}
	for i, p := range procs {
		if i >= maxProcessRows {
			sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("… and %d more", len(procs)-maxProcessRows)))
			break
		}
		sb.WriteString(fmt.Sprintf("%6d  %s\n", p.PID, clipString(p.Name, processNameLen)))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderModels() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Models") + "\n")

	if !m.samplers.Models.Enabled() {
		sb.WriteString(m.styles.Muted.Render("Not monitored"))
		return sb.String()
	}
	models := m.samplers.Models.Snapshot()
	if !models.ServerAvailable {
		sb.WriteString(m.styles.Muted.Render("Ollama server unavailable"))
		return sb.String()
	}
	if len(models.Running) > 0 {
		for i, mod := range models.Running {
			if i >= maxRunningRows {
				break
			}
			sb.WriteString(fmt.Sprintf("● %s (%s)\n", mod.Name, formatBytes(mod.Size)))
		}
	} else if len(models.Available) > 0 {
		sb.WriteString(m.styles.Muted.Render("None running; available:") + "\n")
		for i, mod := range models.Available {
			if i >= maxCatalogRows {
				break
			}
			sb.WriteString(fmt.Sprintf("○ %s (%s)\n", mod.Name, formatBytes(mod.Size)))
		}
	} else {
		sb.WriteString(m.styles.Muted.Render("No models installed"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderHistory() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Recent Commands") + "\n")

	if !m.samplers.History.Enabled() {
		sb.WriteString(m.styles.Muted.Render("Not loaded"))
		return sb.String()
	}
	commands := m.samplers.History.Snapshot()
	if len(commands) == 0 {
		sb.WriteString(m.styles.Muted.Render("No history"))
		return sb.String()
	}
	start := 0
	if len(commands) > maxHistoryRows {
		start = len(commands) - maxHistoryRows
	}
	for _, cmd := range commands[start:] {
		sb.WriteString("$ " + clipString(cmd, historyEntryLen) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderProgressTab shows either a modal dialog (input, password,
// confirmation) or the progress panel, keyed directly on the machine state
// so the display can never disagree with the store.
func (m Model) renderProgressTab(snap state.Data) string {
	width := m.width - 4
	if width < 40 {
		width = 40
	}
	switch snap.Progress.State {
	case state.WaitingInput:
		return m.renderInputModal(snap)
	case state.WaitingPassword:
		return m.renderPasswordModal(snap)
	case state.WaitingConfirmation:
		return m.renderConfirmModal(snap)
	default:
		return m.styles.Panel.Width(width).Render(m.renderProgressPanel(snap))
	}
}

func (m Model) renderInputModal(snap state.Data) string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Install Package") + "\n\n")
	sb.WriteString(m.input.View() + "\n")
	if snap.Progress.ErrorMessage != "" {
		sb.WriteString(m.styles.Error.Render(snap.Progress.ErrorMessage) + "\n")
	}
	sb.WriteString(m.styles.Muted.Render("Enter to submit · Esc to close"))
	return m.styles.Modal.Render(sb.String())
}

func (m Model) renderPasswordModal(snap state.Data) string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Elevation Required") + "\n\n")
	sb.WriteString("The plan contains sudo commands.\n")
	sb.WriteString(m.password.View() + "\n")
	sb.WriteString(m.styles.Muted.Render("Enter to continue · Esc to cancel"))
	return m.styles.Modal.Render(sb.String())
}

func (m Model) renderConfirmModal(snap state.Data) string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Confirm Installation") + "\n\n")
	for _, item := range snap.Progress.Items {
		sb.WriteString(item + "\n")
	}
	sb.WriteString("\n")
	for i, cmd := range snap.PendingCommands {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, cmd))
	}
	sb.WriteString("\n" + m.styles.Muted.Render("y to proceed · n/Esc to cancel"))
	return m.styles.Modal.Render(sb.String())
}

func (m Model) renderProgressPanel(snap state.Data) string {
	p := snap.Progress
	var sb strings.Builder

	switch p.State {
	case state.Idle:
		sb.WriteString(m.styles.Muted.Render("No operation in progress"))
		return sb.String()
	case state.Completed:
		sb.WriteString(m.styles.Success.Render("✓ "+p.OperationLabel) + "\n")
	case state.Failed:
		sb.WriteString(m.styles.Error.Render("✗ "+p.OperationLabel) + "\n")
	default:
		sb.WriteString(m.styles.Title.Render(p.OperationLabel) + "\n")
	}

	if p.TotalSteps > 0 {
		percent := float64(p.CurrentStep) / float64(p.TotalSteps) * 100
		sb.WriteString(fmt.Sprintf("%s %d/%d\n", m.styles.RenderBar(percent), p.CurrentStep, p.TotalSteps))
	}
	if p.StepDescription != "" {
		sb.WriteString(p.StepDescription + "\n")
	}
	if !p.StartTime.IsZero() {
		sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("elapsed %s · eta %s",
			formatDuration(p.Elapsed), formatDuration(p.ETA))) + "\n")
	}
	for _, item := range p.Items {
		sb.WriteString(item + "\n")
	}
	for _, r := range snap.DoctorResults {
		mark := m.styles.Success.Render("✓")
		if !r.Passed {
			mark = m.styles.Error.Render("✗")
		}
		sb.WriteString(fmt.Sprintf("%s %s — %s\n", mark, r.Name, clipString(r.Detail, 50)))
	}
	if p.SuccessMessage != "" {
		sb.WriteString(m.styles.Success.Render(p.SuccessMessage) + "\n")
	}
	if p.ErrorMessage != "" && p.State == state.Failed {
		sb.WriteString(m.styles.Error.Render(p.ErrorMessage) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderMenu() string {
	parts := make([]string, 0, len(actionMap)+2)
	for _, a := range actionMap {
		parts = append(parts, m.styles.Key.Render("["+a.Key+"]")+" "+a.Label)
	}
	parts = append(parts, m.styles.Key.Render("[Tab]")+" Switch", m.styles.Key.Render("[q]")+" Quit")
	return "\n" + strings.Join(parts, "  ")
}

func (m Model) renderFooter(snap state.Data) string {
	hint := ""
	if m.lastKey != "" {
		hint = " · key: " + m.lastKey
	}
	return m.styles.Muted.Render(fmt.Sprintf("state: %s%s", snap.Progress.State, hint))
}

func clipString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.0f MB", float64(b)/(1<<20))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
