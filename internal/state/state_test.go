package state

import (
	"testing"
	"time"
)

func TestNewStoreStartsIdle(t *testing.T) {
	s := New()
	if got := s.State(); got != Idle {
		t.Errorf("expected Idle, got %v", got)
	}
	if s.Cancelled() {
		t.Error("new store must not be cancelled")
	}
}

func TestTryStartAdmission(t *testing.T) {
	busyStates := []OpState{WaitingInput, WaitingConfirmation, WaitingPassword, Processing, InProgress}
	for _, st := range busyStates {
		s := New()
		s.WithLock(func(d *Data) { d.Progress.State = st })
		if s.TryStart("op", Processing) {
			t.Errorf("TryStart must be a no-op while %v", st)
		}
		if got := s.State(); got != st {
			t.Errorf("state changed by rejected TryStart: %v -> %v", st, got)
		}
	}

	for _, st := range []OpState{Idle, Completed, Failed} {
		s := New()
		s.WithLock(func(d *Data) { d.Progress.State = st })
		if !s.TryStart("op", WaitingInput) {
			t.Errorf("TryStart must succeed from %v", st)
		}
		if got := s.State(); got != WaitingInput {
			t.Errorf("expected WaitingInput after start, got %v", got)
		}
	}
}

func TestTryStartResetsRecordAndCancelFlag(t *testing.T) {
	s := New()
	s.WithLock(func(d *Data) {
		d.Progress.State = Failed
		d.Progress.ErrorMessage = "previous failure"
		d.PendingCommands = []string{"echo stale"}
		d.InputBuffer = "stale"
	})
	s.SetCancelled()

	if !s.TryStart("Install Package", WaitingInput) {
		t.Fatal("TryStart failed from terminal state")
	}
	snap := s.Snapshot()
	if snap.Progress.ErrorMessage != "" {
		t.Error("progress record not reset")
	}
	if len(snap.PendingCommands) != 0 {
		t.Error("pending commands survived a new operation start")
	}
	if snap.InputBuffer != "" {
		t.Error("input buffer survived a new operation start")
	}
	if s.Cancelled() {
		t.Error("cancel flag must be cleared by the operation starter")
	}
	if snap.Progress.StartTime.IsZero() {
		t.Error("start time not set")
	}
}

func TestSnapshotDoesNotAliasStore(t *testing.T) {
	s := New()
	s.WithLock(func(d *Data) {
		d.PendingCommands = []string{"a", "b"}
		d.Progress.Items = []string{"x"}
	})
	snap := s.Snapshot()
	snap.PendingCommands[0] = "mutated"
	snap.Progress.Items[0] = "mutated"

	fresh := s.Snapshot()
	if fresh.PendingCommands[0] != "a" || fresh.Progress.Items[0] != "x" {
		t.Error("snapshot aliases store-owned slices")
	}
}

func TestEstimateRemainingBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		current int
		total   int
		want    time.Duration
	}{
		{"no steps done", time.Minute, 0, 10, 0},
		{"all steps done", time.Minute, 10, 10, 0},
		{"zero total", time.Minute, 0, 0, 0},
		{"halfway", 10 * time.Second, 5, 10, 10 * time.Second},
		{"one of four", 8 * time.Second, 1, 4, 24 * time.Second},
	}
	for _, tc := range cases {
		if got := estimateRemaining(tc.elapsed, tc.current, tc.total); got != tc.want {
			t.Errorf("%s: estimateRemaining = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRefreshTimingRequiresStartTime(t *testing.T) {
	s := New()
	s.RefreshTiming(time.Now())
	if got := s.Snapshot().Progress.Elapsed; got != 0 {
		t.Errorf("elapsed computed without start time: %v", got)
	}

	start := time.Now().Add(-30 * time.Second)
	s.WithLock(func(d *Data) {
		d.Progress.StartTime = start
		d.Progress.CurrentStep = 1
		d.Progress.TotalSteps = 3
	})
	s.RefreshTiming(time.Now())
	snap := s.Snapshot()
	if snap.Progress.Elapsed < 29*time.Second {
		t.Errorf("elapsed too small: %v", snap.Progress.Elapsed)
	}
	if snap.Progress.ETA == 0 {
		t.Error("expected non-zero ETA mid-operation")
	}
}

func TestTabCycle(t *testing.T) {
	if TabHome.Next() != TabProgress || TabProgress.Next() != TabHome {
		t.Error("tab cycle broken")
	}
}

func TestOpStateStrings(t *testing.T) {
	states := []OpState{Idle, WaitingInput, WaitingConfirmation, WaitingPassword, Processing, InProgress, Completed, Failed}
	seen := map[string]bool{}
	for _, st := range states {
		s := st.String()
		if s == "unknown" || seen[s] {
			t.Errorf("bad or duplicate state string %q", s)
		}
		seen[s] = true
	}
}
