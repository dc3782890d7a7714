// Package telemetry contains the dashboard's background samplers and the
// scheduler that drives them. Every sampler is constructed disabled and
// collects nothing until the user starts an operation that needs it.
package telemetry

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"cortex/internal/logging"
)

// BytesPerGB converts byte counts for display.
const BytesPerGB = 1024 * 1024 * 1024

// Metrics is the last published system snapshot.
type Metrics struct {
	CPUPercent   float64
	RAMPercent   float64
	RAMUsedGB    float64
	RAMTotalGB   float64
	GPUPercent   float64
	VRAMUsedGB   float64
	VRAMTotalGB  float64
	GPUAvailable bool
}

// SystemMonitor samples CPU, RAM and optionally GPU utilization.
type SystemMonitor struct {
	mu         sync.Mutex
	metrics    Metrics
	enabled    bool
	gpuEnabled bool
	primed     bool // first CPU read must block to establish a baseline
}

// NewSystemMonitor returns a monitor that collects nothing until enabled.
func NewSystemMonitor() *SystemMonitor {
	return &SystemMonitor{}
}

// Enable admits the monitor for sampling.
func (m *SystemMonitor) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}

// EnableGPU additionally samples GPU utilization and VRAM. Only Bench
// turns this on; everything else leaves the GPU untouched.
func (m *SystemMonitor) EnableGPU() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gpuEnabled = true
}

// Enabled reports whether sampling has been admitted.
func (m *SystemMonitor) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// Update reads the OS and publishes a new snapshot. No-op when disabled.
// When both the CPU and memory reads come back empty the previous snapshot
// is kept; a single failed read publishes zero for its fields.
func (m *SystemMonitor) Update() {
	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return
	}
	primed := m.primed
	m.primed = true
	gpuEnabled := m.gpuEnabled
	m.mu.Unlock()

	// The first differential CPU read has no baseline, so block briefly
	// once; subsequent reads are non-blocking deltas since the last call.
	interval := time.Duration(0)
	if !primed {
		interval = 100 * time.Millisecond
	}

	next := Metrics{}
	if percents, err := cpu.Percent(interval, false); err == nil && len(percents) > 0 {
		next.CPUPercent = percents[0]
	} else if err != nil {
		logging.Warnf(logging.CategoryTelemetry, "cpu sample failed: %v", err)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		next.RAMPercent = vm.UsedPercent
		next.RAMUsedGB = float64(vm.Used) / BytesPerGB
		next.RAMTotalGB = float64(vm.Total) / BytesPerGB
	} else {
		logging.Warnf(logging.CategoryTelemetry, "memory sample failed: %v", err)
	}
	if gpuEnabled {
		if gpu, ok := queryGPU(); ok {
			next.GPUPercent = gpu.utilization
			next.VRAMUsedGB = gpu.vramUsedGB
			next.VRAMTotalGB = gpu.vramTotalGB
			next.GPUAvailable = true
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if next.CPUPercent == 0 && next.RAMPercent == 0 && m.metrics.RAMPercent != 0 {
		// Both reads failed this tick; keep the last known snapshot.
		return
	}
	m.metrics = next
}

// Snapshot returns the last published metrics.
func (m *SystemMonitor) Snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

type gpuSample struct {
	utilization float64
	vramUsedGB  float64
	vramTotalGB float64
}

// queryGPU shells out to nvidia-smi. A missing binary or parse failure
// means no GPU, silently.
func queryGPU() (gpuSample, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=utilization.gpu,memory.used,memory.total",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		return gpuSample{}, false
	}
	fields := strings.Split(strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0]), ",")
	if len(fields) < 3 {
		return gpuSample{}, false
	}
	util, err1 := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	usedMB, err2 := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	totalMB, err3 := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return gpuSample{}, false
	}
	return gpuSample{
		utilization: util,
		vramUsedGB:  usedMB / 1024,
		vramTotalGB: totalMB / 1024,
	}, true
}
