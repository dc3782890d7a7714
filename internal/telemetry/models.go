package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cortex/internal/logging"
)

// availableTTL caches the available-model listing; the running listing is
// always fetched fresh.
const availableTTL = 5 * time.Second

// httpTimeout bounds each model-server call.
const httpTimeout = 2 * time.Second

// Model is one entry reported by the local model server.
type Model struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Digest string `json:"digest,omitempty"`
}

// ModelLister queries a local Ollama-compatible server for running and
// available models. Network failures are treated as "server unavailable";
// there are no retries.
type ModelLister struct {
	mu          sync.Mutex
	baseURL     string
	client      *http.Client
	enabled     bool
	available   bool // server reachability, not sampler admission
	running     []Model
	models      []Model
	lastCatalog time.Time
}

// NewModelLister returns a lister pointed at baseURL, disabled.
func NewModelLister(baseURL string) *ModelLister {
	return &ModelLister{
		baseURL: baseURL,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Enable admits the lister for sampling.
func (l *ModelLister) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = true
}

// Enabled reports whether sampling has been admitted.
func (l *ModelLister) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// SetBaseURL repoints the lister, dropping the catalog cache. Used by the
// preferences hot-reload.
func (l *ModelLister) SetBaseURL(baseURL string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if baseURL == l.baseURL {
		return
	}
	l.baseURL = baseURL
	l.lastCatalog = time.Time{}
	l.models = nil
	l.running = nil
}

// Update refreshes the running-model list and, when the TTL has lapsed,
// the available-model catalog. No-op when disabled.
func (l *ModelLister) Update() {
	l.mu.Lock()
	if !l.enabled {
		l.mu.Unlock()
		return
	}
	base := l.baseURL
	refreshCatalog := time.Since(l.lastCatalog) >= availableTTL
	l.mu.Unlock()

	running, runErr := l.fetch(base + "/api/ps")

	var catalog []Model
	var catErr error
	if refreshCatalog {
		catalog, catErr = l.fetch(base + "/api/tags")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if runErr != nil {
		l.available = false
		l.running = nil
		return
	}
	l.available = true
	l.running = running
	if refreshCatalog {
		if catErr == nil {
			l.models = catalog
			l.lastCatalog = time.Now()
		} else {
			logging.Debugf(logging.CategoryTelemetry, "model catalog fetch failed: %v", catErr)
		}
	}
}

func (l *ModelLister) fetch(url string) ([]Model, error) {
	ctx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	var parsed struct {
		Models []Model `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parsed.Models, nil
}

// ModelsSnapshot is what the renderer consumes.
type ModelsSnapshot struct {
	ServerAvailable bool
	Running         []Model
	Available       []Model
}

// Snapshot returns the last published model listings.
func (l *ModelLister) Snapshot() ModelsSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ModelsSnapshot{
		ServerAvailable: l.available,
		Running:         append([]Model(nil), l.running...),
		Available:       append([]Model(nil), l.models...),
	}
}
