package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"cortex/internal/state"
)

// tickInterval is the sampler cadence.
const tickInterval = time.Second

// Set bundles the four samplers behind one admission surface. Operations
// enable monitoring; nothing samples before that.
type Set struct {
	System    *SystemMonitor
	Processes *ProcessLister
	Models    *ModelLister
	History   *CommandHistory

	monitoring atomic.Bool
}

// NewSet builds the samplers, all disabled.
func NewSet(ollamaBase, home string) *Set {
	return &Set{
		System:    NewSystemMonitor(),
		Processes: NewProcessLister(),
		Models:    NewModelLister(ollamaBase),
		History:   NewCommandHistory(home),
	}
}

// EnableAll admits every sampler and performs the one-shot history load.
// GPU sampling is added only when gpu is set (Bench); all other operations
// leave the GPU untouched.
func (s *Set) EnableAll(gpu bool) {
	s.System.Enable()
	if gpu {
		s.System.EnableGPU()
	}
	s.Processes.Enable()
	s.Models.Enable()
	s.History.Enable()
	s.History.Load()
	s.monitoring.Store(true)
}

// Monitoring reports whether the user has started monitoring.
func (s *Set) Monitoring() bool { return s.monitoring.Load() }

// update fans out to the enabled samplers concurrently; a slow model-server
// call must not delay the CPU sample.
func (s *Set) update() {
	var g errgroup.Group
	if s.System.Enabled() {
		g.Go(func() error { s.System.Update(); return nil })
	}
	if s.Processes.Enabled() {
		g.Go(func() error { s.Processes.Update(); return nil })
	}
	if s.Models.Enabled() {
		g.Go(func() error { s.Models.Update(); return nil })
	}
	g.Wait()
}

// Scheduler is the single cooperative loop refreshing samplers and the
// progress record's derived timing fields.
type Scheduler struct {
	store    *state.Store
	samplers *Set
	interval time.Duration
	running  atomic.Bool
	stop     chan struct{}
	done     sync.WaitGroup
}

// NewScheduler creates a scheduler ticking at the standard cadence.
func NewScheduler(store *state.Store, samplers *Set) *Scheduler {
	return &Scheduler{
		store:    store,
		samplers: samplers,
		interval: tickInterval,
		stop:     make(chan struct{}),
	}
}

// Start launches the background loop. Safe to call once.
func (s *Scheduler) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.done.Add(1)
	go s.loop()
}

// Stop signals the loop to exit and waits for it.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stop)
	s.done.Wait()
}

func (s *Scheduler) loop() {
	defer s.done.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			if s.samplers.Monitoring() {
				s.samplers.update()
			}
			if s.store.Snapshot().CurrentTab == state.TabProgress {
				s.store.RefreshTiming(now)
			}
		}
	}
}
