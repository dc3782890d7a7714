package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cortex/internal/engine"
)

// doctorCmd runs the dashboard's diagnostic checks headless and renders a
// markdown report.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run system health diagnostics",
	Run: func(cmd *cobra.Command, args []string) {
		runDoctor()
	},
}

func runDoctor() {
	var sb strings.Builder
	sb.WriteString("# System Doctor\n\n")
	sb.WriteString("| Check | Status | Detail |\n|---|---|---|\n")

	failures := 0
	for _, step := range engine.DoctorSteps() {
		detail, ok := engine.RunStep(step)
		status := "✅ pass"
		if !ok {
			status = "❌ fail"
			failures++
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", step.Label, status, detail))
	}

	sb.WriteString("\n")
	if failures == 0 {
		sb.WriteString("All checks passed.\n")
	} else {
		sb.WriteString(fmt.Sprintf("%d check(s) failed.\n", failures))
	}

	if rendered, err := renderMarkdown(sb.String()); err == nil {
		fmt.Print(rendered)
	} else {
		fmt.Print(sb.String())
	}
}
