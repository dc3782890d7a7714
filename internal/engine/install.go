package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cortex/internal/audit"
	"cortex/internal/executor"
	"cortex/internal/logging"
	"cortex/internal/planner"
	"cortex/internal/state"
)

// stepPreviewLen bounds the stdout preview appended to a completed step.
const stepPreviewLen = 40

// stepDescLen bounds the rendered command in a step description.
const stepDescLen = 60

// StartInstallPrompt opens the package-name modal. No-op while another
// operation is active.
func (e *Engine) StartInstallPrompt() bool {
	ok := e.store.TryStart("Install Package", state.WaitingInput)
	if ok {
		e.store.WithLock(func(d *state.Data) {
			d.Progress.Items = []string{"Enter the package to install"}
		})
	}
	return ok
}

// SubmitPackageName validates the typed name and starts the plan phase.
// Must be called in WaitingInput; an invalid name clears the buffer and
// keeps the modal open.
func (e *Engine) SubmitPackageName(name string) {
	name = strings.TrimSpace(name)
	if !ValidPackageName(name) {
		e.store.WithLock(func(d *state.Data) {
			if d.Progress.State != state.WaitingInput {
				return
			}
			d.InputBuffer = ""
			d.Progress.ErrorMessage = "Invalid package name format"
		})
		return
	}

	started := false
	e.store.WithLock(func(d *state.Data) {
		if d.Progress.State != state.WaitingInput {
			return
		}
		d.Progress.State = state.Processing
		d.Progress.OperationLabel = "Installing " + name
		d.Progress.StepDescription = "Generating installation plan..."
		d.Progress.ErrorMessage = ""
		d.Progress.Items = nil
		d.InputBuffer = ""
		started = true
	})
	if !started {
		return
	}

	e.record(audit.ActionInstall, name, audit.OutcomeStarted)
	e.workers.Add(1)
	go e.planWorker(name)
}

// planWorker runs install phase A: credentials check, interpreter call,
// plan publication.
func (e *Engine) planWorker(pkg string) {
	defer e.workers.Done()

	if !e.creds() {
		e.failInstall(audit.ActionInstall, pkg,
			"No LLM API key configured. Set ANTHROPIC_API_KEY or OPENAI_API_KEY.")
		return
	}

	res, err := e.planner.Plan(context.Background(), pkg)
	if err != nil {
		e.failInstall(audit.ActionInstall, pkg, planner.CleanMessage(err.Error()))
		return
	}
	if e.store.Cancelled() {
		e.cancelInstall(pkg)
		return
	}

	e.store.WithLock(func(d *state.Data) {
		d.PendingCommands = append([]string(nil), res.Commands...)
		d.Progress.State = state.WaitingConfirmation
		d.Progress.StepDescription = "Review the planned commands"
		d.Progress.Items = []string{
			"Package: " + pkg,
			fmt.Sprintf("Commands: %d", len(res.Commands)),
		}
	})
	logging.Infof(logging.CategoryEngine, "plan ready for %s: %d commands", pkg, len(res.Commands))
}

// ConfirmInstall starts phase B after the user accepted the plan.
func (e *Engine) ConfirmInstall() {
	var pkg string
	started := false
	e.store.WithLock(func(d *state.Data) {
		if d.Progress.State != state.WaitingConfirmation {
			return
		}
		pkg = installTarget(d.Progress.OperationLabel)
		d.Progress.State = state.Processing
		d.Progress.StepDescription = "Preparing execution..."
		started = true
	})
	if !started {
		return
	}

	e.record(audit.ActionInstallConfirmed, pkg, audit.OutcomeStarted)
	e.workers.Add(1)
	go e.executeWorker(pkg)
}

// DeclineInstall abandons the plan from the confirmation dialog.
func (e *Engine) DeclineInstall() {
	var pkg string
	declined := false
	e.store.WithLock(func(d *state.Data) {
		if d.Progress.State != state.WaitingConfirmation {
			return
		}
		pkg = installTarget(d.Progress.OperationLabel)
		declined = true
	})
	if !declined {
		return
	}
	e.cancelInstall(pkg)
}

// SubmitPassword stores the captured elevation secret. The execute worker
// polls for it and resumes. The secret is cached exactly once per session.
func (e *Engine) SubmitPassword(password string) {
	e.store.WithLock(func(d *state.Data) {
		if d.Progress.State != state.WaitingPassword {
			return
		}
		if d.SudoPassword == "" {
			d.SudoPassword = password
		}
		d.InputBuffer = ""
	})
}

// executeWorker runs install phase B: elevation capture if needed, then
// each planned command in order with cancellation checks in between.
func (e *Engine) executeWorker(pkg string) {
	defer e.workers.Done()

	var commands []string
	e.store.WithLock(func(d *state.Data) {
		commands = append([]string(nil), d.PendingCommands...)
	})

	password, ok := e.ensureElevation(pkg, commands)
	if !ok {
		return
	}

	e.store.WithLock(func(d *state.Data) {
		d.Progress.State = state.InProgress
		d.Progress.TotalSteps = len(commands)
		d.Progress.CurrentStep = 0
	})

	for i, cmd := range commands {
		if e.store.Cancelled() {
			e.cancelInstall(pkg)
			return
		}

		desc := fmt.Sprintf("[%d/%d] %s", i+1, len(commands), clip(cmd, stepDescLen))
		e.store.WithLock(func(d *state.Data) {
			d.Progress.CurrentStep = i
			d.Progress.StepDescription = desc
		})

		run := cmd
		stdin := ""
		if executor.NeedsElevation(cmd) {
			run = executor.RewriteElevated(cmd)
			stdin = password + "\n"
		}

		res, err := e.exec.Execute(context.Background(), run, stdin)
		if err != nil || !res.Success {
			msg := firstLine(res.Stderr)
			if msg == "" && err != nil {
				msg = err.Error()
			}
			if msg == "" {
				msg = "command failed"
			}
			e.store.WithLock(func(d *state.Data) {
				d.Progress.StepDescription = fmt.Sprintf("✗ [%d/%d] Failed", i+1, len(commands))
			})
			e.failInstall(audit.ActionInstallExecute, pkg, planner.CleanMessage(msg))
			return
		}

		preview := clip(firstLine(res.Stdout), stepPreviewLen)
		e.store.WithLock(func(d *state.Data) {
			d.Progress.CurrentStep = i + 1
			if preview != "" {
				d.Progress.StepDescription = desc + " → " + preview
			}
		})
		if e.commands != nil {
			e.commands.Add(cmd)
		}
	}

	// Clear pending commands only after the audit record is durable, so a
	// crash between the two leaves a correct trail.
	e.record(audit.ActionInstallExecute, pkg, audit.OutcomeSucceeded)
	e.store.WithLock(func(d *state.Data) {
		d.Progress.State = state.Completed
		d.Progress.SuccessMessage = pkg + " installed successfully!"
		d.Progress.StepDescription = ""
		d.PendingCommands = nil
	})
	logging.Infof(logging.CategoryEngine, "install of %s completed", pkg)
}

// ensureElevation transitions to WaitingPassword when the plan needs sudo
// and no secret is cached, then polls until the secret arrives, the user
// cancels, the engine shuts down, or the deadline passes.
func (e *Engine) ensureElevation(pkg string, commands []string) (string, bool) {
	var password string
	e.store.WithLock(func(d *state.Data) { password = d.SudoPassword })

	if !executor.AnyNeedsElevation(commands) {
		return password, true
	}
	if password != "" {
		return password, true
	}

	e.store.WithLock(func(d *state.Data) {
		d.Progress.State = state.WaitingPassword
		d.Progress.StepDescription = "Waiting for sudo password"
	})

	deadline := time.Now().Add(e.passwordTimeout)
	for {
		select {
		case <-e.shutdown:
			e.cancelInstall(pkg)
			return "", false
		case <-time.After(e.pollInterval):
		}
		if e.store.Cancelled() {
			e.cancelInstall(pkg)
			return "", false
		}
		e.store.WithLock(func(d *state.Data) { password = d.SudoPassword })
		if password != "" {
			return password, true
		}
		if time.Now().After(deadline) {
			e.failInstall(audit.ActionInstallExecute, pkg, "Timeout waiting for sudo password")
			return "", false
		}
	}
}

// failInstall records the failure then moves to Failed, clearing the plan
// after the audit write.
func (e *Engine) failInstall(action, pkg, msg string) {
	e.record(action, pkg, audit.OutcomeFailed)
	e.store.WithLock(func(d *state.Data) {
		d.Progress.State = state.Failed
		d.Progress.ErrorMessage = msg
		d.PendingCommands = nil
	})
	logging.Warnf(logging.CategoryEngine, "install of %s failed: %s", pkg, msg)
}

// cancelInstall records the cancellation then moves to Failed. When the
// cancel primitive already drove the transition (and wrote its audit
// record), the worker just stops.
func (e *Engine) cancelInstall(pkg string) {
	already := false
	e.store.WithLock(func(d *state.Data) {
		if d.Progress.State == state.Failed {
			already = true
		}
	})
	if already {
		return
	}
	e.record(audit.ActionCancel, pkg, audit.OutcomeCancelled)
	e.store.WithLock(func(d *state.Data) {
		d.Progress.State = state.Failed
		d.Progress.ErrorMessage = "cancelled by user"
		d.PendingCommands = nil
		d.InputBuffer = ""
	})
	logging.Infof(logging.CategoryEngine, "install of %s cancelled", pkg)
}

// installTarget recovers the package name from the operation label.
func installTarget(label string) string {
	return strings.TrimPrefix(label, "Installing ")
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			return strings.TrimSpace(line)
		}
	}
	return ""
}
