package dash

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cortex/cmd/cortex/ui"
	"cortex/internal/engine"
	"cortex/internal/executor"
	"cortex/internal/planner"
	"cortex/internal/state"
	"cortex/internal/telemetry"
)

type stubPlanner struct {
	commands []string
}

func (p stubPlanner) Plan(ctx context.Context, pkg string) (planner.Result, error) {
	return planner.Result{Success: true, Commands: p.commands}, nil
}

type stubExec struct{}

func (stubExec) Execute(ctx context.Context, command, stdin string) (executor.Result, error) {
	return executor.Result{Success: true, Stdout: "done"}, nil
}

type rig struct {
	model  Model
	store  *state.Store
	engine *engine.Engine
}

func newDashRig(t *testing.T, commands ...string) *rig {
	t.Helper()
	store := state.New()
	samplers := telemetry.NewSet("http://127.0.0.1:1", t.TempDir())
	eng := engine.New(engine.Options{
		Store:              store,
		Planner:            stubPlanner{commands: commands},
		Executor:           stubExec{},
		Monitor:            samplers,
		CredentialsPresent: func() bool { return true },
		PasswordTimeout:    200 * time.Millisecond,
		PollInterval:       5 * time.Millisecond,
		StepDelay:          time.Millisecond,
	})
	m := New(Config{
		Store:    store,
		Engine:   eng,
		Samplers: samplers,
		Styles:   ui.NewStyles(ui.LightTheme()),
	})
	m.width = 100
	m.height = 40
	m.ready = true
	return &rig{model: m, store: store, engine: eng}
}

func (r *rig) press(t *testing.T, msg tea.Msg) {
	t.Helper()
	next, _ := r.model.Update(msg)
	r.model = next.(Model)
}

func (r *rig) key(t *testing.T, s string) {
	t.Helper()
	r.press(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (r *rig) waitForState(t *testing.T, want state.OpState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.store.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %v, at %v", want, r.store.State())
}

func TestTabCyclesTabs(t *testing.T) {
	r := newDashRig(t)
	if r.store.Snapshot().CurrentTab != state.TabHome {
		t.Fatal("must start on home tab")
	}
	r.press(t, tea.KeyMsg{Type: tea.KeyTab})
	if r.store.Snapshot().CurrentTab != state.TabProgress {
		t.Error("tab did not advance")
	}
	r.press(t, tea.KeyMsg{Type: tea.KeyTab})
	if r.store.Snapshot().CurrentTab != state.TabHome {
		t.Error("tab did not cycle back")
	}
}

func TestInstallKeyOpensModal(t *testing.T) {
	r := newDashRig(t, "echo hi")
	r.key(t, "1")
	if got := r.store.State(); got != state.WaitingInput {
		t.Fatalf("expected WaitingInput after '1', got %v", got)
	}
	if r.store.Snapshot().CurrentTab != state.TabProgress {
		t.Error("starting an operation must land on the progress tab")
	}
}

func TestTypeAndSubmitPackage(t *testing.T) {
	r := newDashRig(t, "echo install")
	r.key(t, "1")
	for _, ch := range "jq" {
		r.key(t, string(ch))
	}
	if got := r.store.Snapshot().InputBuffer; got != "jq" {
		t.Errorf("input buffer not mirrored: %q", got)
	}
	r.press(t, tea.KeyMsg{Type: tea.KeyEnter})
	r.waitForState(t, state.WaitingConfirmation)

	if got := len(r.store.Snapshot().PendingCommands); got != 1 {
		t.Errorf("plan not published: %d commands", got)
	}
}

func TestEscClosesInputModal(t *testing.T) {
	r := newDashRig(t, "echo hi")
	r.key(t, "1")
	r.press(t, tea.KeyMsg{Type: tea.KeyEsc})
	if got := r.store.State(); got != state.Idle {
		t.Errorf("closing the dialog must return to Idle, got %v", got)
	}
}

func TestConfirmationYes(t *testing.T) {
	r := newDashRig(t, "echo one", "echo two")
	r.key(t, "1")
	for _, ch := range "curl" {
		r.key(t, string(ch))
	}
	r.press(t, tea.KeyMsg{Type: tea.KeyEnter})
	r.waitForState(t, state.WaitingConfirmation)

	r.key(t, "y")
	r.engine.Wait()
	if got := r.store.State(); got != state.Completed {
		t.Errorf("expected Completed after confirm, got %v", got)
	}
}

func TestConfirmationNo(t *testing.T) {
	r := newDashRig(t, "echo one")
	r.key(t, "1")
	for _, ch := range "curl" {
		r.key(t, string(ch))
	}
	r.press(t, tea.KeyMsg{Type: tea.KeyEnter})
	r.waitForState(t, state.WaitingConfirmation)

	r.key(t, "n")
	r.engine.Wait()
	snap := r.store.Snapshot()
	if snap.Progress.State != state.Failed {
		t.Errorf("expected Failed after decline, got %v", snap.Progress.State)
	}
	if len(snap.PendingCommands) != 0 {
		t.Error("pending commands survived decline")
	}
}

func TestQInsideInputIsTyped(t *testing.T) {
	r := newDashRig(t, "echo hi")
	r.key(t, "1")
	r.key(t, "q")
	if got := r.store.Snapshot().InputBuffer; got != "q" {
		t.Errorf("q must be typed inside the input modal, buffer=%q", got)
	}
}

func TestActionKeysDispatch(t *testing.T) {
	r := newDashRig(t)
	r.key(t, "2")
	// Bench starts and runs through the real probes.
	r.engine.Wait()
	snap := r.store.Snapshot()
	if len(snap.DoctorResults) != 4 {
		t.Errorf("bench results missing: %d", len(snap.DoctorResults))
	}
}

func TestCancelKeyIsTypedInsideInputModal(t *testing.T) {
	r := newDashRig(t, "echo hi")
	r.key(t, "1")
	r.key(t, "4") // typed into the modal: '4' is a valid package char
	if got := r.store.Snapshot().InputBuffer; got != "4" {
		t.Errorf("'4' must append inside input modal, buffer=%q", got)
	}
}

func TestActionMapMatchesMenu(t *testing.T) {
	keys := map[string]bool{}
	for _, a := range ActionMap() {
		if a.Key == "" || a.Label == "" || a.Run == nil {
			t.Errorf("incomplete action: %+v", a)
		}
		if keys[a.Key] {
			t.Errorf("duplicate action key %q", a.Key)
		}
		keys[a.Key] = true
	}
	for _, want := range []string{"1", "2", "3", "4"} {
		if !keys[want] {
			t.Errorf("missing action key %q", want)
		}
	}

	r := newDashRig(t)
	menu := r.model.renderMenu()
	for _, a := range ActionMap() {
		if !strings.Contains(menu, a.Label) {
			t.Errorf("menu missing label %q", a.Label)
		}
	}
}

func TestLastKeyHintClearsOnTick(t *testing.T) {
	r := newDashRig(t)
	r.press(t, tea.KeyMsg{Type: tea.KeyTab})
	if r.model.lastKey == "" {
		t.Fatal("key hint not recorded")
	}
	r.press(t, tickMsg(time.Now()))
	if r.model.lastKey != "" {
		t.Error("key hint survived the render cycle")
	}
}
