package telemetry

import (
	"reflect"
	"testing"
)

func TestProcessInfoCarriesNoCmdline(t *testing.T) {
	// Privacy invariant: only identifier and name are captured. Any new
	// field here needs a privacy review before it ships.
	typ := reflect.TypeOf(ProcessInfo{})
	if typ.NumField() != 2 {
		t.Fatalf("ProcessInfo grew to %d fields; cmdline must never be captured", typ.NumField())
	}
	for _, want := range []string{"PID", "Name"} {
		if _, ok := typ.FieldByName(want); !ok {
			t.Errorf("ProcessInfo missing field %s", want)
		}
	}
}

func TestMatchesKeyword(t *testing.T) {
	matches := []string{"python3", "Ollama", "node", "llama-server", "pytorch_worker", "cortex"}
	for _, name := range matches {
		if !matchesKeyword(name) {
			t.Errorf("%q should match the AI keyword set", name)
		}
	}
	misses := []string{"bash", "systemd", "sshd", "postgres"}
	for _, name := range misses {
		if matchesKeyword(name) {
			t.Errorf("%q should not match", name)
		}
	}
}

func TestProcessListerDisabledByDefault(t *testing.T) {
	l := NewProcessLister()
	if l.Enabled() {
		t.Error("lister must start disabled")
	}
	l.Update()
	if got := l.Snapshot(); len(got) != 0 {
		t.Errorf("disabled lister collected %d processes", len(got))
	}
}

func TestProcessListerUpdateWhenEnabled(t *testing.T) {
	l := NewProcessLister()
	l.Enable()
	if !l.Enabled() {
		t.Fatal("Enable did not take")
	}
	// The test binary itself may or may not match the keyword set; just
	// verify the call publishes a well-formed snapshot.
	l.Update()
	for _, p := range l.Snapshot() {
		if p.PID <= 0 {
			t.Errorf("bad pid in snapshot: %+v", p)
		}
		if p.Name == "" {
			t.Errorf("empty name in snapshot: %+v", p)
		}
	}
}

func TestProcessSnapshotDoesNotAlias(t *testing.T) {
	l := NewProcessLister()
	l.mu.Lock()
	l.processes = []ProcessInfo{{PID: 1, Name: "python"}}
	l.mu.Unlock()

	snap := l.Snapshot()
	snap[0].Name = "mutated"
	if l.Snapshot()[0].Name != "python" {
		t.Error("snapshot aliases internal slice")
	}
}
