package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cortex/internal/engine"
	"cortex/internal/executor"
	"cortex/internal/history"
	"cortex/internal/interpreter"
	"cortex/internal/planner"
)

var (
	installExecute bool
	installDryRun  bool
)

var installCmd = &cobra.Command{
	Use:   "install <package>",
	Short: "Plan and install a package",
	Long: `Plan the shell commands for a package with the configured LLM, show
them for confirmation, and execute them one at a time.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runInstall(args[0]))
	},
}

func init() {
	installCmd.Flags().BoolVar(&installExecute, "execute", false, "skip confirmation and run the plan")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "plan only, do not execute")
}

func runInstall(pkg string) int {
	if !engine.ValidPackageName(pkg) {
		fmt.Fprintln(os.Stderr, "✗ Invalid package name format")
		return exitFailure
	}
	if !planner.CredentialsPresent() {
		fmt.Fprintln(os.Stderr, "✗ No LLM API key configured. Set ANTHROPIC_API_KEY or OPENAI_API_KEY.")
		return exitFailure
	}

	// Ctrl-C anywhere in the flow exits with the interrupted code.
	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt)
	defer signal.Stop(interrupted)
	go func() {
		<-interrupted
		fmt.Println("\nInstallation cancelled by user.")
		os.Exit(exitInterrupted)
	}()

	interp, err := interpreter.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗", err)
		return exitFailure
	}

	fmt.Println("🧠 Understanding request...")
	fmt.Println("📦 Planning installation...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	commands, err := interp.Interpret(ctx, pkg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗", planner.CleanMessage(err.Error()))
		return exitFailure
	}

	fmt.Println("\nGenerated commands:")
	for i, c := range commands {
		fmt.Printf("  %d. %s\n", i+1, c)
	}

	if installDryRun {
		fmt.Println("\n(Dry run mode - commands not executed)")
		recordInstall(pkg, commands, history.StatusSuccess, "")
		return exitOK
	}

	if !installExecute {
		fmt.Print("\nProceed with plan? [Y/n]: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nInstallation cancelled by user.")
			return exitOK
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "y", "yes":
			fmt.Println("Proceeding with installation...")
		case "n", "no":
			fmt.Println("Installation cancelled by user.")
			return exitOK
		default:
			fmt.Fprintln(os.Stderr, "Invalid response. Installation cancelled.")
			return exitFailure
		}
	}

	id := recordInstall(pkg, commands, history.StatusInProgress, "")
	start := time.Now()

	shell := executor.NewShell()
	fmt.Println("\nExecuting commands...")
	for i, c := range commands {
		fmt.Printf("[%d/%d] %s\n", i+1, len(commands), c)
		res, err := shell.Execute(context.Background(), c, "")
		if err != nil || !res.Success {
			detail := strings.TrimSpace(res.Stderr)
			if detail == "" && err != nil {
				detail = err.Error()
			}
			fmt.Fprintf(os.Stderr, "✗ Installation failed at step %d\n", i+1)
			if detail != "" {
				fmt.Fprintln(os.Stderr, "  Error:", planner.CleanMessage(detail))
			}
			updateInstall(id, history.StatusFailed, detail)
			return exitFailure
		}
	}

	fmt.Printf("\n✅ %s installed successfully!\n", pkg)
	fmt.Printf("Completed in %.2f seconds\n", time.Since(start).Seconds())
	updateInstall(id, history.StatusSuccess, "")
	if id != "" {
		fmt.Printf("\n📝 Installation recorded (ID: %s)\n", id)
	}
	return exitOK
}

// historyPath is the installations database location.
func historyPath() string {
	return filepath.Join(cortexDir(), "installations.db")
}

// recordInstall writes a history record; failures only log.
func recordInstall(pkg string, commands []string, status, errText string) string {
	store, err := history.Open(historyPath())
	if err != nil {
		logger.Warn("history unavailable", zap.Error(err))
		return ""
	}
	defer store.Close()
	id, err := store.Record("install", []string{pkg}, commands, time.Now())
	if err != nil {
		logger.Warn("failed to record installation", zap.Error(err))
		return ""
	}
	if status != history.StatusInProgress {
		store.Update(id, status, errText)
	}
	return id
}

func updateInstall(id, status, errText string) {
	if id == "" {
		return
	}
	store, err := history.Open(historyPath())
	if err != nil {
		return
	}
	defer store.Close()
	if err := store.Update(id, status, errText); err != nil {
		logger.Warn("failed to update installation", zap.Error(err))
	}
}
