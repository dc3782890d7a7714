// Package prefs loads user preferences from ~/.cortex/preferences.yaml and
// resolves the model-server base URL with env > file > default precedence.
package prefs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"cortex/internal/logging"
)

// DefaultOllamaBase is used when neither the environment nor the
// preferences file provides a base URL.
const DefaultOllamaBase = "http://localhost:11434"

// fileName is the preferences file under the cortex home directory.
const fileName = "preferences.yaml"

// Preferences is the on-disk document.
type Preferences struct {
	OllamaAPIBase string `yaml:"ollama_api_base"`
}

// Dir returns the cortex home directory (~/.cortex).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cortex"
	}
	return filepath.Join(home, ".cortex")
}

// Load reads the preferences file from dir. A missing or malformed file
// yields zero-valued preferences.
func Load(dir string) Preferences {
	data, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		return Preferences{}
	}
	var p Preferences
	if err := yaml.Unmarshal(data, &p); err != nil {
		logging.Warnf(logging.CategoryDashboard, "malformed preferences file: %v", err)
		return Preferences{}
	}
	return p
}

// Save writes the preferences file, creating dir as needed.
func Save(dir string, p Preferences) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, fileName), data, 0o644)
}

// ResolveOllamaBase picks the model-server base URL: OLLAMA_API_BASE env,
// then the preferences file, then the default. A trailing slash is
// stripped so endpoint paths concatenate cleanly.
func ResolveOllamaBase(dir string) string {
	if env := os.Getenv("OLLAMA_API_BASE"); env != "" {
		return strings.TrimRight(env, "/")
	}
	if p := Load(dir); p.OllamaAPIBase != "" {
		return strings.TrimRight(p.OllamaAPIBase, "/")
	}
	return DefaultOllamaBase
}

// Watch re-resolves the base URL whenever the preferences file changes and
// invokes onChange with the new value. Returns a stop function. The env
// override still wins inside the callback, matching ResolveOllamaBase.
func Watch(dir string, onChange func(base string)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != fileName {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					onChange(ResolveOllamaBase(dir))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warnf(logging.CategoryDashboard, "preferences watch error: %v", err)
			}
		}
	}()
	return func() { watcher.Close() }, nil
}
