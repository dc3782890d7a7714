package engine

import (
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"cortex/internal/audit"
	"cortex/internal/logging"
	"cortex/internal/state"
)

// Health thresholds for the doctor checks.
const (
	diskWarnPercent = 90.0
	memWarnPercent  = 95.0
	cpuWarnPercent  = 90.0
)

// Step is one unit of a bench or doctor run. The thunk returns a detail
// string; an error marks the step as not passed.
type Step struct {
	Label string
	Run   func() (string, error)
}

// StartBench kicks off the read-only system benchmark. Enables monitoring
// including GPU sampling.
func (e *Engine) StartBench() bool {
	if !e.store.TryStart("System Benchmark", state.Processing) {
		return false
	}
	e.store.WithLock(func(d *state.Data) {
		d.BenchRunning = true
		d.BenchStatus = "running"
		d.DoctorResults = nil
	})
	if e.monitor != nil {
		e.monitor.EnableAll(true)
	}
	e.record(audit.ActionBench, "System Benchmark", audit.OutcomeStarted)

	e.workers.Add(1)
	go e.stepWorker("System Benchmark", audit.ActionBench, benchSteps(), func(d *state.Data, done bool) {
		d.BenchRunning = false
		if done {
			d.BenchStatus = "complete"
		} else {
			d.BenchStatus = "failed"
		}
	})
	return true
}

// StartDoctor kicks off the health diagnostics. Enables monitoring without
// touching the GPU.
func (e *Engine) StartDoctor() bool {
	if !e.store.TryStart("System Doctor", state.Processing) {
		return false
	}
	e.store.WithLock(func(d *state.Data) {
		d.DoctorRunning = true
		d.DoctorResults = nil
	})
	if e.monitor != nil {
		e.monitor.EnableAll(false)
	}
	e.record(audit.ActionDoctor, "System Doctor", audit.OutcomeStarted)

	e.workers.Add(1)
	go e.stepWorker("System Doctor", audit.ActionDoctor, DoctorSteps(), func(d *state.Data, done bool) {
		d.DoctorRunning = false
	})
	return true
}

// stepWorker runs a fixed ordered step list, advancing the progress record
// in lock-step and checking cancellation between steps.
func (e *Engine) stepWorker(label, action string, steps []Step, finish func(d *state.Data, done bool)) {
	defer e.workers.Done()

	e.store.WithLock(func(d *state.Data) {
		d.Progress.State = state.InProgress
		d.Progress.TotalSteps = len(steps)
	})

	failures := 0
	for i, st := range steps {
		if e.store.Cancelled() {
			already := false
			e.store.WithLock(func(d *state.Data) {
				already = d.Progress.State == state.Failed
			})
			if !already {
				e.record(audit.ActionCancel, label, audit.OutcomeCancelled)
			}
			e.store.WithLock(func(d *state.Data) {
				if d.Progress.State != state.Failed {
					d.Progress.State = state.Failed
					d.Progress.ErrorMessage = "cancelled by user"
				}
				finish(d, false)
			})
			return
		}

		e.store.WithLock(func(d *state.Data) {
			d.Progress.CurrentStep = i
			d.Progress.StepDescription = fmt.Sprintf("[%d/%d] %s", i+1, len(steps), st.Label)
		})

		detail, err := st.Run()
		result := state.DoctorResult{Name: st.Label, Passed: err == nil, Detail: detail}
		if err != nil {
			result.Detail = err.Error()
			failures++
			logging.Warnf(logging.CategoryEngine, "%s step failed: %s: %v", label, st.Label, err)
		}
		e.store.WithLock(func(d *state.Data) {
			d.DoctorResults = append(d.DoctorResults, result)
			d.Progress.CurrentStep = i + 1
		})

		// A brief pause keeps the step progression visible.
		time.Sleep(e.stepDelay)
	}

	outcome := audit.OutcomeSucceeded
	if failures > 0 {
		outcome = audit.OutcomeFailed
	}
	e.record(action, label, outcome)
	e.store.WithLock(func(d *state.Data) {
		d.Progress.State = state.Completed
		if failures == 0 {
			d.Progress.SuccessMessage = label + " complete: all checks passed"
		} else {
			d.Progress.ErrorMessage = fmt.Sprintf("%s complete: %d check(s) failed", label, failures)
		}
		finish(d, failures == 0)
	})
}

// DoctorSteps is the fixed diagnostic list. Exported for the headless
// `cortex doctor` command.
func DoctorSteps() []Step {
	return []Step{
		{"Shell runtime present", checkShell},
		{"Package tooling present", checkPackageTooling},
		{"Disk usage below 90%", checkDisk},
		{"Memory usage below 95%", checkMemory},
		{"CPU load below 90%", checkCPULoad},
	}
}

func benchSteps() []Step {
	return []Step{
		{"CPU", benchCPU},
		{"Memory", benchMemory},
		{"Disk", benchDisk},
		{"System", benchSystem},
	}
}

// RunStep executes one step directly. Helper for the headless doctor.
func RunStep(s Step) (string, bool) {
	detail, err := s.Run()
	if err != nil {
		return err.Error(), false
	}
	return detail, true
}

func checkShell() (string, error) {
	path, err := exec.LookPath("sh")
	if err != nil {
		return "", fmt.Errorf("sh not found on PATH")
	}
	return path, nil
}

func checkPackageTooling() (string, error) {
	for _, bin := range []string{"apt-get", "dpkg"} {
		if _, err := exec.LookPath(bin); err != nil {
			return "", fmt.Errorf("%s not found on PATH", bin)
		}
	}
	return "apt-get, dpkg available", nil
}

func checkDisk() (string, error) {
	usage, err := disk.Usage("/")
	if err != nil {
		return "", fmt.Errorf("disk stat failed: %w", err)
	}
	detail := fmt.Sprintf("%.1f%% used (%.1f GB free)", usage.UsedPercent, float64(usage.Free)/1024/1024/1024)
	if usage.UsedPercent >= diskWarnPercent {
		return "", fmt.Errorf("disk usage %.1f%% exceeds %.0f%%", usage.UsedPercent, diskWarnPercent)
	}
	return detail, nil
}

func checkMemory() (string, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return "", fmt.Errorf("memory stat failed: %w", err)
	}
	detail := fmt.Sprintf("%.1f%% used (%.1f/%.1f GB)", vm.UsedPercent,
		float64(vm.Used)/1024/1024/1024, float64(vm.Total)/1024/1024/1024)
	if vm.UsedPercent >= memWarnPercent {
		return "", fmt.Errorf("memory usage %.1f%% exceeds %.0f%%", vm.UsedPercent, memWarnPercent)
	}
	return detail, nil
}

func checkCPULoad() (string, error) {
	avg, err := load.Avg()
	if err != nil {
		return "", fmt.Errorf("load stat failed: %w", err)
	}
	cores := runtime.NumCPU()
	percent := avg.Load1 / float64(cores) * 100
	detail := fmt.Sprintf("load1 %.2f on %d cores (%.1f%%)", avg.Load1, cores, percent)
	if percent >= cpuWarnPercent {
		return "", fmt.Errorf("CPU load %.1f%% exceeds %.0f%%", percent, cpuWarnPercent)
	}
	return detail, nil
}

func benchCPU() (string, error) {
	counts, err := cpu.Counts(true)
	if err != nil {
		return "", err
	}
	desc := fmt.Sprintf("%d logical cores", counts)
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		desc = fmt.Sprintf("%s, %d logical cores @ %.0f MHz", infos[0].ModelName, counts, infos[0].Mhz)
	}
	if percents, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(percents) > 0 {
		desc += fmt.Sprintf(", %.1f%% load", percents[0])
	}
	return desc, nil
}

func benchMemory() (string, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.1f/%.1f GB used (%.1f%%)",
		float64(vm.Used)/1024/1024/1024, float64(vm.Total)/1024/1024/1024, vm.UsedPercent), nil
}

func benchDisk() (string, error) {
	usage, err := disk.Usage("/")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.1f/%.1f GB used (%.1f%%)",
		float64(usage.Used)/1024/1024/1024, float64(usage.Total)/1024/1024/1024, usage.UsedPercent), nil
}

func benchSystem() (string, error) {
	info, err := host.Info()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s (%s), up %s",
		info.Platform, info.PlatformVersion, info.KernelArch,
		(time.Duration(info.Uptime) * time.Second).String()), nil
}
