package engine

import (
	"runtime"
	"testing"
	"time"

	"cortex/internal/audit"
	"cortex/internal/state"
)

func TestBenchEndToEnd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("bench probes target unix hosts")
	}
	r := newRig(t, planOf("unused"), &fakeExec{})

	if !r.engine.StartBench() {
		t.Fatal("bench did not start from idle")
	}
	r.engine.Wait()

	snap := r.store.Snapshot()
	if snap.Progress.State != state.Completed {
		t.Fatalf("expected Completed, got %v (%s)", snap.Progress.State, snap.Progress.ErrorMessage)
	}
	if len(snap.DoctorResults) != 4 {
		t.Fatalf("expected 4 bench results, got %d", len(snap.DoctorResults))
	}
	for _, res := range snap.DoctorResults {
		if !res.Passed {
			t.Errorf("bench step %q failed: %s", res.Name, res.Detail)
		}
		if res.Detail == "" {
			t.Errorf("bench step %q has no detail", res.Name)
		}
	}
	if snap.BenchRunning {
		t.Error("bench running flag not lowered")
	}
	if snap.BenchStatus != "complete" {
		t.Errorf("bench status = %q", snap.BenchStatus)
	}

	if !r.monitor.enabled || !r.monitor.gpu {
		t.Error("bench must enable monitoring including GPU sampling")
	}
	if !r.audit.has(audit.ActionBench, "System Benchmark", audit.OutcomeStarted) {
		t.Error("missing bench started audit record")
	}
}

func TestDoctorRunsAllChecks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("doctor probes target unix hosts")
	}
	r := newRig(t, planOf("unused"), &fakeExec{})

	if !r.engine.StartDoctor() {
		t.Fatal("doctor did not start from idle")
	}
	r.engine.Wait()

	snap := r.store.Snapshot()
	if snap.Progress.State != state.Completed {
		t.Fatalf("expected Completed, got %v", snap.Progress.State)
	}
	if len(snap.DoctorResults) != len(DoctorSteps()) {
		t.Fatalf("expected %d doctor results, got %d", len(DoctorSteps()), len(snap.DoctorResults))
	}
	if snap.DoctorRunning {
		t.Error("doctor running flag not lowered")
	}
	if r.monitor.gpu {
		t.Error("doctor must not enable GPU sampling")
	}
	if snap.Progress.CurrentStep != snap.Progress.TotalSteps {
		t.Errorf("progress not advanced in lock-step: %d/%d",
			snap.Progress.CurrentStep, snap.Progress.TotalSteps)
	}
}

func TestStepWorkerCancellation(t *testing.T) {
	r := newRig(t, planOf("unused"), &fakeExec{})

	steps := []Step{
		{"first", func() (string, error) {
			// Cancel lands while the step is still running; the worker
			// must stop before dispatching the next one.
			r.engine.Cancel()
			return "ok", nil
		}},
		{"second", func() (string, error) {
			t.Error("step executed after cancel point")
			return "", nil
		}},
	}

	if !r.store.TryStart("Custom", state.Processing) {
		t.Fatal("could not start")
	}
	r.engine.workers.Add(1)
	r.engine.stepWorker("Custom", audit.ActionDoctor, steps, func(d *state.Data, done bool) {})

	snap := r.store.Snapshot()
	if snap.Progress.State != state.Failed {
		t.Fatalf("expected Failed, got %v", snap.Progress.State)
	}
	if snap.Progress.ErrorMessage != "cancelled by user" {
		t.Errorf("wrong message: %q", snap.Progress.ErrorMessage)
	}
	if !r.audit.has(audit.ActionCancel, "Custom", audit.OutcomeCancelled) {
		t.Error("missing cancel audit record")
	}
}

func TestStepWorkerRecordsFailures(t *testing.T) {
	r := newRig(t, planOf("unused"), &fakeExec{})
	steps := []Step{
		{"good", func() (string, error) { return "fine", nil }},
		{"bad", func() (string, error) { return "", errFromString("broken probe") }},
	}

	if !r.store.TryStart("Diag", state.Processing) {
		t.Fatal("could not start")
	}
	r.engine.workers.Add(1)
	r.engine.stepWorker("Diag", audit.ActionDoctor, steps, func(d *state.Data, done bool) {})

	snap := r.store.Snapshot()
	if snap.Progress.State != state.Completed {
		t.Fatalf("failing checks still complete the run, got %v", snap.Progress.State)
	}
	if len(snap.DoctorResults) != 2 {
		t.Fatalf("expected 2 results, got %d", len(snap.DoctorResults))
	}
	if snap.DoctorResults[0].Passed != true || snap.DoctorResults[1].Passed != false {
		t.Errorf("pass/fail recording wrong: %+v", snap.DoctorResults)
	}
	if snap.DoctorResults[1].Detail != "broken probe" {
		t.Errorf("error detail lost: %q", snap.DoctorResults[1].Detail)
	}
	if !r.audit.has(audit.ActionDoctor, "Diag", audit.OutcomeFailed) {
		t.Error("failed outcome not audited")
	}
}

func TestStepDelayKeepsProgressionVisible(t *testing.T) {
	r := newRig(t, planOf("unused"), &fakeExec{})
	r.engine.stepDelay = 10 * time.Millisecond

	if !r.engine.StartDoctor() {
		t.Fatal("doctor did not start")
	}
	start := time.Now()
	r.engine.Wait()
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("doctor finished too fast for 5 delayed steps: %v", elapsed)
	}
}
