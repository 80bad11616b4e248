// Package lifecycle checks that the Ollama models a configuration needs
// are installed, and pulls the missing ones.
package lifecycle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Aman-CERP/choralmind/internal/config"
	"github.com/Aman-CERP/choralmind/internal/errors"
)

const (
	// DefaultHost is the default Ollama API endpoint.
	DefaultHost = "http://localhost:11434"

	// healthTimeout bounds the tag listing used as a liveness probe.
	healthTimeout = 5 * time.Second
)

// Manager talks to one Ollama host.
type Manager struct {
	host   string
	client *http.Client
}

// PullProgress is one status line of a model pull.
type PullProgress struct {
	Model     string
	Status    string
	Total     int64
	Completed int64
	Percent   float64
}

// Requirement is a model the configuration depends on.
type Requirement struct {
	// Role is "embeddings" or "completion".
	Role  string
	Model string
	Host  string
}

// ModelStatus is the outcome of ensuring one Requirement.
type ModelStatus struct {
	Requirement
	Installed bool
	Pulled    bool
}

// NewManager creates a manager for host.
func NewManager(host string) *Manager {
	if host == "" {
		host = DefaultHost
	}
	return &Manager{
		host:   strings.TrimRight(host, "/"),
		client: &http.Client{},
	}
}

// Host returns the configured Ollama host.
func (m *Manager) Host() string {
	return m.host
}

// Requirements lists the Ollama models cfg needs. Providers other than
// ollama need nothing.
func Requirements(cfg *config.Config) []Requirement {
	var reqs []Requirement
	if strings.EqualFold(cfg.Embeddings.Provider, "ollama") {
		reqs = append(reqs, Requirement{Role: "embeddings", Model: cfg.Embeddings.Model, Host: cfg.Embeddings.Host})
	}
	if strings.EqualFold(cfg.Completion.Provider, "ollama") {
		reqs = append(reqs, Requirement{Role: "completion", Model: cfg.Completion.Model, Host: cfg.Completion.Host})
	}
	return reqs
}

// IsRunning reports whether the host answers the tag listing.
func (m *Manager) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	_, err := m.ListModels(ctx)
	return err == nil
}

// ListModels returns the installed model names.
func (m *Manager) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.host+"/api/tags", nil)
	if err != nil {
		return nil, errors.InternalError("failed to create request", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.ProviderError("failed to connect to Ollama", err).
			WithDetail("host", m.host).
			WithSuggestion("Start Ollama with 'ollama serve'")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.ProviderError(fmt.Sprintf("ollama /api/tags returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.ProviderError("failed to decode Ollama model list", err)
	}

	models := make([]string, len(result.Models))
	for i, mod := range result.Models {
		models[i] = mod.Name
	}
	return models, nil
}

// HasModel reports whether model is installed. A name without a tag
// matches any installed tag of that model.
func (m *Manager) HasModel(ctx context.Context, model string) (bool, error) {
	models, err := m.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, available := range models {
		if sameModel(available, model) {
			return true, nil
		}
	}
	return false, nil
}

func sameModel(available, want string) bool {
	available, want = strings.ToLower(available), strings.ToLower(want)
	if available == want {
		return true
	}
	if strings.Contains(want, ":") {
		return strings.TrimSuffix(available, ":latest") == strings.TrimSuffix(want, ":latest")
	}
	base, _, _ := strings.Cut(available, ":")
	return base == want
}

// PullModel downloads model, streaming progress to progress (may be nil).
func (m *Manager) PullModel(ctx context.Context, model string, progress func(PullProgress)) error {
	body, err := json.Marshal(struct {
		Name   string `json:"name"`
		Stream bool   `json:"stream"`
	}{Name: model, Stream: true})
	if err != nil {
		return errors.InternalError("failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.host+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return errors.InternalError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return errors.ProviderError(fmt.Sprintf("failed to pull %s", model), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.ProviderError(fmt.Sprintf("pull of %s failed with status %d: %s", model, resp.StatusCode, strings.TrimSpace(string(msg))), nil)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var p struct {
			Status    string `json:"status"`
			Total     int64  `json:"total"`
			Completed int64  `json:"completed"`
			Error     string `json:"error"`
		}
		if err := json.Unmarshal(line, &p); err != nil {
			continue
		}
		if p.Error != "" {
			return errors.ProviderError(fmt.Sprintf("pull of %s failed: %s", model, p.Error), nil)
		}
		if progress != nil {
			percent := 0.0
			if p.Total > 0 {
				percent = float64(p.Completed) / float64(p.Total) * 100
			}
			progress(PullProgress{Model: model, Status: p.Status, Total: p.Total, Completed: p.Completed, Percent: percent})
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.ProviderError("error reading pull response", err)
	}
	return nil
}

// EnsureOptions configures Ensure.
type EnsureOptions struct {
	// Pull downloads missing models; otherwise they are only reported.
	Pull     bool
	Progress func(PullProgress)
}

// Ensure checks every requirement against its host and pulls missing
// models when asked. It stops at the first unreachable host.
func Ensure(ctx context.Context, reqs []Requirement, opts EnsureOptions) ([]ModelStatus, error) {
	statuses := make([]ModelStatus, 0, len(reqs))
	for _, req := range reqs {
		m := NewManager(req.Host)
		has, err := m.HasModel(ctx, req.Model)
		if err != nil {
			return statuses, err
		}

		st := ModelStatus{Requirement: req, Installed: has}
		if !has && opts.Pull {
			if err := m.PullModel(ctx, req.Model, opts.Progress); err != nil {
				return statuses, err
			}
			st.Installed, st.Pulled = true, true
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}
