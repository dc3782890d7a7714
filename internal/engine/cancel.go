package engine

import (
	"cortex/internal/audit"
	"cortex/internal/logging"
	"cortex/internal/state"
)

// Cancel aborts whatever operation is active. It identifies the target
// under the store mutex, raises the cancellation flag and writes the audit
// record, and only then performs the terminal transition that clears the
// pending plan and input buffer — so a crash between the two leaves a
// correct audit trail. In-flight workers observe the flag at their next
// check point and stop; running subprocesses are not killed, the worker
// exits after they return.
func (e *Engine) Cancel() {
	var target string
	busy := false
	e.store.WithLock(func(d *state.Data) {
		if !d.Progress.State.Busy() {
			return
		}
		target = installTarget(d.Progress.OperationLabel)
		if target == "" {
			target = "operation"
		}
		busy = true
	})
	if !busy {
		return
	}

	e.store.SetCancelled()
	e.record(audit.ActionCancel, target, audit.OutcomeCancelled)

	e.store.WithLock(func(d *state.Data) {
		if !d.Progress.State.Busy() {
			return
		}
		d.Progress.State = state.Failed
		d.Progress.ErrorMessage = "cancelled by user"
		d.PendingCommands = nil
		d.InputBuffer = ""
		d.DoctorRunning = false
		d.BenchRunning = false
	})
	logging.Infof(logging.CategoryEngine, "cancelled: %s", target)
}
