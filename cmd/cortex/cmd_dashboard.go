package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cortex/cmd/cortex/dash"
	"cortex/cmd/cortex/ui"
	"cortex/internal/audit"
	"cortex/internal/engine"
	"cortex/internal/executor"
	"cortex/internal/planner"
	"cortex/internal/prefs"
	"cortex/internal/state"
	"cortex/internal/telemetry"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive operations dashboard",
	Long: `A terminal dashboard for installs, benchmarks and diagnostics with
live system monitoring. Monitoring is off until you start an operation
that needs it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard()
	},
}

func runDashboard() error {
	dir := cortexDir()
	// The preferences watcher and audit sink both want the directory.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	store := state.New()

	samplers := telemetry.NewSet(prefs.ResolveOllamaBase(dir), "")
	scheduler := telemetry.NewScheduler(store, samplers)

	auditSink := audit.NewFileSink(filepath.Join(dir, "history.db"))

	eng := engine.New(engine.Options{
		Store:    store,
		Planner:  planner.NewSubprocess(),
		Executor: executor.NewShell(),
		Audit:    auditSink,
		Monitor:  samplers,
		Commands: samplers.History,
	})

	// Preferences edits repoint the model sampler without a restart.
	stopWatch, err := prefs.Watch(dir, samplers.Models.SetBaseURL)
	if err != nil {
		logger.Debug("preferences watch unavailable", zap.Error(err))
		stopWatch = func() {}
	}

	scheduler.Start()
	defer func() {
		stopWatch()
		scheduler.Stop()
		eng.Shutdown()
	}()

	model := dash.New(dash.Config{
		Store:    store,
		Engine:   eng,
		Samplers: samplers,
		Styles:   ui.NewStyles(ui.DetectTheme()),
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
