package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Aman-CERP/choralmind/internal/errors"
)

// Default Ollama completion configuration.
const (
	DefaultHost    = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 90 * time.Second
)

// OllamaConfig configures the Ollama completer.
type OllamaConfig struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// OllamaCompleter generates text using Ollama's /api/generate endpoint.
type OllamaCompleter struct {
	client *http.Client
	config OllamaConfig
}

var _ Completer = (*OllamaCompleter)(nil)

// generateRequest is the Ollama /api/generate request body.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the Ollama /api/generate response body.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewOllamaCompleter creates an Ollama completer.
func NewOllamaCompleter(cfg OllamaConfig) *OllamaCompleter {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OllamaCompleter{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
	}
}

// Complete sends prompt to the model and returns the trimmed response.
func (o *OllamaCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: o.config.Model, Prompt: prompt})
	if err != nil {
		return "", errors.InternalError("failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.config.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", errors.InternalError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		if ctx.Err() == nil && strings.Contains(err.Error(), "Client.Timeout") {
			return "", errors.New(errors.ErrCodeProviderTimeout,
				fmt.Sprintf("completion timed out after %s", o.config.Timeout), err)
		}
		return "", errors.ProviderError("completion request failed", err).
			WithDetail("host", o.config.Host)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", errors.ProviderError(
			fmt.Sprintf("completion failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), nil)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.ProviderError("failed to decode completion response", err)
	}
	if out.Error != "" {
		return "", errors.ProviderError(out.Error, nil)
	}

	slog.Debug("completion_done",
		slog.String("model", o.config.Model),
		slog.Int("prompt_bytes", len(prompt)),
		slog.Duration("elapsed", time.Since(started)))
	return strings.TrimSpace(out.Response), nil
}

// Available checks if Ollama is reachable.
func (o *OllamaCompleter) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.config.Host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// ModelName returns the model being used.
func (o *OllamaCompleter) ModelName() string {
	return o.config.Model
}

// Close releases idle connections.
func (o *OllamaCompleter) Close() error {
	o.client.CloseIdleConnections()
	return nil
}
