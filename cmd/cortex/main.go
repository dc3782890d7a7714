// Package main implements the cortex CLI - an AI-assisted Linux package
// installer.
//
// This file is the entry point and command registration hub. Command
// implementations live in the cmd_*.go files:
//
//   - cmd_install.go   - installCmd, the plan/confirm/execute CLI path
//   - cmd_interpret.go - interpretCmd, the JSON planner surface the
//     dashboard shells out to
//   - cmd_dashboard.go - dashboardCmd, the interactive operations dashboard
//   - cmd_doctor.go    - doctorCmd, headless system diagnostics
//   - cmd_history.go   - historyCmd, installation history listing
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cortex/internal/logging"
)

// Exit codes for the CLI surface.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

var (
	// Global flags
	verbose bool

	// Logger
	logger *zap.Logger
)

const rootHelp = `# cortex

AI-assisted Linux package installer.

Describe what you want installed; cortex plans the shell commands with an
LLM, shows you the plan, and executes it step by step after you confirm.

## Commands

| Command | Description |
|---------|-------------|
| ` + "`cortex install <package>`" + ` | Plan and install a package |
| ` + "`cortex dashboard`" + ` | Interactive operations dashboard |
| ` + "`cortex doctor`" + ` | System health diagnostics |
| ` + "`cortex history`" + ` | Installation history |

## Credentials

Set ` + "`ANTHROPIC_API_KEY`" + ` or ` + "`OPENAI_API_KEY`" + ` for install planning.
`

var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "cortex - AI-assisted Linux package installer",
	Long:  "cortex plans package installations with an LLM and executes them under your confirmation.",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd == rootCmd {
			if rendered, err := renderMarkdown(rootHelp); err == nil {
				fmt.Print(rendered)
				return
			}
		}
		defaultHelp(cmd, args)
	})

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(interpretCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(historyCmd)
}

// renderMarkdown renders help text for the terminal.
func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

// cortexDir returns the application home directory (~/.cortex).
func cortexDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cortex"
	}
	return filepath.Join(home, ".cortex")
}

func initLogging() {
	logging.Initialize(filepath.Join(cortexDir(), "logs"))
	if verbose {
		logging.EnableDebug()
		l, err := zap.NewDevelopment()
		if err == nil {
			logger = l
		}
	} else {
		l, err := zap.NewProduction()
		if err == nil {
			logger = l
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
}

func main() {
	cobra.OnInitialize(initLogging)
	defer func() {
		if logger != nil {
			logger.Sync()
		}
		logging.Close()
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitFailure)
	}
}
