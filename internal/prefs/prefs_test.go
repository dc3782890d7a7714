package prefs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveDefault(t *testing.T) {
	t.Setenv("OLLAMA_API_BASE", "")
	if got := ResolveOllamaBase(t.TempDir()); got != DefaultOllamaBase {
		t.Errorf("expected default, got %q", got)
	}
}

func TestResolveEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, Preferences{OllamaAPIBase: "http://file:1234"}); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OLLAMA_API_BASE", "http://env:5678/")
	if got := ResolveOllamaBase(dir); got != "http://env:5678" {
		t.Errorf("env override (with trailing slash stripped) expected, got %q", got)
	}
}

func TestResolveFileUsedWhenEnvMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OLLAMA_API_BASE", "")
	if err := Save(dir, Preferences{OllamaAPIBase: "http://file:1234/"}); err != nil {
		t.Fatal(err)
	}
	if got := ResolveOllamaBase(dir); got != "http://file:1234" {
		t.Errorf("file value expected, got %q", got)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte("::: not yaml {"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := Load(dir); got.OllamaAPIBase != "" {
		t.Errorf("malformed file must yield zero preferences, got %+v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	want := Preferences{OllamaAPIBase: "http://gpu-box:11434"}
	if err := Save(dir, want); err != nil {
		t.Fatal(err)
	}
	if got := Load(dir); got != want {
		t.Errorf("round trip mismatch: %+v != %+v", got, want)
	}
}

func TestWatchFiresOnChange(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OLLAMA_API_BASE", "")

	changes := make(chan string, 4)
	stop, err := Watch(dir, func(base string) { changes <- base })
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer stop()

	if err := Save(dir, Preferences{OllamaAPIBase: "http://updated:11434"}); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changes:
		if got != "http://updated:11434" {
			t.Errorf("wrong base delivered: %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never fired")
	}
}
