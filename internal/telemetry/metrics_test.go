package telemetry

import (
	"runtime"
	"testing"
)

func TestSystemMonitorDisabledByDefault(t *testing.T) {
	m := NewSystemMonitor()
	if m.Enabled() {
		t.Error("monitor must start disabled")
	}
	m.Update()
	metrics := m.Snapshot()
	if metrics.CPUPercent != 0 || metrics.RAMPercent != 0 {
		t.Errorf("disabled monitor collected metrics: %+v", metrics)
	}
}

func TestSystemMonitorUpdateWhenEnabled(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("metrics probes target unix hosts")
	}
	m := NewSystemMonitor()
	m.Enable()
	m.Update()

	metrics := m.Snapshot()
	if metrics.RAMTotalGB <= 0 {
		t.Errorf("RAM total not populated: %+v", metrics)
	}
	if metrics.RAMPercent <= 0 || metrics.RAMPercent > 100 {
		t.Errorf("RAM percent out of range: %v", metrics.RAMPercent)
	}
	if metrics.CPUPercent < 0 || metrics.CPUPercent > 100 {
		t.Errorf("CPU percent out of range: %v", metrics.CPUPercent)
	}
}

func TestSystemMonitorGPUOffByDefault(t *testing.T) {
	m := NewSystemMonitor()
	m.Enable()
	m.Update()
	if m.Snapshot().GPUAvailable {
		t.Error("GPU sampled without EnableGPU")
	}
}

func TestSetEnableAll(t *testing.T) {
	s := NewSet("http://localhost:11434", t.TempDir())
	if s.Monitoring() {
		t.Error("set must start with monitoring off")
	}
	s.EnableAll(false)
	if !s.Monitoring() {
		t.Error("EnableAll did not start monitoring")
	}
	if !s.System.Enabled() || !s.Processes.Enabled() || !s.Models.Enabled() || !s.History.Enabled() {
		t.Error("EnableAll must admit all four samplers")
	}
	s.System.mu.Lock()
	gpu := s.System.gpuEnabled
	s.System.mu.Unlock()
	if gpu {
		t.Error("GPU enabled without the bench flag")
	}
}

func TestSetEnableAllWithGPU(t *testing.T) {
	s := NewSet("http://localhost:11434", t.TempDir())
	s.EnableAll(true)
	s.System.mu.Lock()
	gpu := s.System.gpuEnabled
	s.System.mu.Unlock()
	if !gpu {
		t.Error("bench flag did not enable GPU sampling")
	}
}
