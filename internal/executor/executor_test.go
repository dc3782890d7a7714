package executor

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestNeedsElevation(t *testing.T) {
	cases := []struct {
		cmd  string
		want bool
	}{
		{"sudo apt-get update", true},
		{"  sudo apt-get update", true},
		{"sudo", true},
		{"apt-get update", false},
		{"echo sudo", false},
		{"sudoku-solver --run", false},
	}
	for _, tc := range cases {
		if got := NeedsElevation(tc.cmd); got != tc.want {
			t.Errorf("NeedsElevation(%q) = %v, want %v", tc.cmd, got, tc.want)
		}
	}
}

func TestAnyNeedsElevation(t *testing.T) {
	if AnyNeedsElevation([]string{"echo a", "echo b"}) {
		t.Error("no sudo commands present")
	}
	if !AnyNeedsElevation([]string{"echo a", "sudo systemctl restart nginx"}) {
		t.Error("sudo command not detected")
	}
}

func TestRewriteElevated(t *testing.T) {
	got := RewriteElevated("sudo apt-get install -y nginx")
	want := `sudo -S -p "" apt-get install -y nginx`
	if got != want {
		t.Errorf("RewriteElevated = %q, want %q", got, want)
	}
	if got := RewriteElevated("sudo"); got != `sudo -S -p ""` {
		t.Errorf("bare sudo rewrite = %q", got)
	}
}

func TestExecuteCapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sh executor targets unix hosts")
	}
	s := NewShell()
	res, err := s.Execute(context.Background(), "echo hello world", "")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.Success {
		t.Fatal("echo reported failure")
	}
	if strings.TrimSpace(res.Stdout) != "hello world" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestExecuteNonZeroExitIsNotAnError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sh executor targets unix hosts")
	}
	s := NewShell()
	res, err := s.Execute(context.Background(), "echo oops >&2; exit 3", "")
	if err != nil {
		t.Fatalf("non-zero exit must not be an error: %v", err)
	}
	if res.Success {
		t.Error("failure not reported")
	}
	if !strings.Contains(res.Stderr, "oops") {
		t.Errorf("stderr lost: %q", res.Stderr)
	}
}

func TestExecuteFeedsStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sh executor targets unix hosts")
	}
	s := NewShell()
	res, err := s.Execute(context.Background(), "cat", "secret-payload\n")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "secret-payload" {
		t.Errorf("stdin not delivered: %q", res.Stdout)
	}
}

func TestExecuteTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("sh executor targets unix hosts")
	}
	s := &Shell{Timeout: 100 * time.Millisecond}
	start := time.Now()
	res, _ := s.Execute(context.Background(), "sleep 5", "")
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout not enforced")
	}
	if res.Success {
		t.Error("timed-out command reported success")
	}
}
