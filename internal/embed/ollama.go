package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Aman-CERP/choralmind/internal/errors"
)

// DefaultOllamaHost is the default Ollama API endpoint.
const DefaultOllamaHost = "http://localhost:11434"

// DefaultOllamaModel is a general-purpose multilingual text embedding model.
const DefaultOllamaModel = "nomic-embed-text"

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	Host  string
	Model string

	// Dimensions overrides auto-detection (0 = detect from the first embedding).
	Dimensions int

	// BatchSize is the number of texts per /api/embed request.
	BatchSize int

	// Timeout bounds each request attempt.
	Timeout time.Duration

	// RateLimit caps requests per second (0 = unlimited).
	RateLimit float64

	// Retry controls backoff for transient failures.
	Retry errors.RetryConfig

	// SkipHealthCheck skips the model lookup at construction (tests).
	SkipHealthCheck bool
}

// DefaultOllamaConfig returns sensible defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:      DefaultOllamaHost,
		Model:     DefaultOllamaModel,
		BatchSize: DefaultBatchSize,
		Timeout:   DefaultTimeout,
		Retry:     errors.DefaultRetryConfig(),
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// OllamaEmbedder generates embeddings using Ollama's HTTP API.
type OllamaEmbedder struct {
	client  *http.Client
	config  OllamaConfig
	limiter *rate.Limiter

	mu     sync.RWMutex
	dims   int
	closed bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an Ollama embedder. Unless SkipHealthCheck is
// set it verifies the model is installed and detects its dimensions.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	cfg.BatchSize = min(cfg.BatchSize, MaxBatchSize)
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry.ShouldRetry = errors.IsRetryable
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	e := &OllamaEmbedder{
		// Per-attempt deadlines come from the context, not the client.
		client:  &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 4, IdleConnTimeout: 10 * time.Second}},
		config:  cfg,
		limiter: rate.NewLimiter(limit, 1),
		dims:    cfg.Dimensions,
	}

	if cfg.SkipHealthCheck {
		return e, nil
	}

	if err := e.checkModel(ctx); err != nil {
		return nil, err
	}
	if e.dims == 0 {
		if _, err := e.Embed(ctx, "dimension probe"); err != nil {
			return nil, fmt.Errorf("failed to detect embedding dimensions: %w", err)
		}
	}
	return e, nil
}

// checkModel confirms the configured model is installed.
func (e *OllamaEmbedder) checkModel(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return errors.InternalError("failed to create request", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return errors.ProviderError("failed to connect to Ollama", err).
			WithDetail("host", e.config.Host).
			WithSuggestion("Start Ollama with 'ollama serve' or set embeddings.provider: static")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.ProviderError(fmt.Sprintf("ollama /api/tags returned status %d", resp.StatusCode), nil)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return errors.ProviderError("failed to decode Ollama model list", err)
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, e.config.Model) {
			return nil
		}
	}
	return errors.New(errors.ErrCodeProviderUnavailable,
		fmt.Sprintf("embedding model %s is not installed", e.config.Model), nil).
		WithSuggestion(fmt.Sprintf("Run 'ollama pull %s'", e.config.Model))
}

// sameModel treats "name" and "name:latest" as the same model.
func sameModel(a, b string) bool {
	trim := func(s string) string { return strings.TrimSuffix(s, ":latest") }
	return trim(a) == trim(b)
}

// Embed generates the embedding for one text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in requests of BatchSize, retrying transient
// failures. Any batch that still fails aborts the whole call.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, errors.InternalError("embedder is closed", nil)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(texts))
		batch := texts[start:end]

		vecs, err := errors.RetryWithResult(ctx, e.config.Retry, func() ([][]float32, error) {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			return e.doEmbed(ctx, batch)
		})
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// doEmbed performs one /api/embed request.
func (e *OllamaEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, errors.InternalError("failed to marshal request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, errors.InternalError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.New(errors.ErrCodeProviderTimeout,
				fmt.Sprintf("embedding request timed out after %s", e.config.Timeout), err)
		}
		return nil, errors.ProviderError("embedding request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		text := fmt.Sprintf("embedding failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, errors.ProviderError(text, nil)
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, text, nil)
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.ProviderError("failed to decode embedding response", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, errors.ProviderError(fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(result.Embeddings)), nil)
	}

	e.mu.RLock()
	dims := e.dims
	e.mu.RUnlock()

	vecs := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		if dims > 0 && len(emb) != dims {
			return nil, errors.New(errors.ErrCodeDimensionMismatch,
				fmt.Sprintf("model returned %d dimensions, expected %d", len(emb), dims), nil)
		}
		v := make([]float32, len(emb))
		for j, x := range emb {
			v[j] = float32(x)
		}
		vecs[i] = Normalize(v)
	}

	if dims == 0 && len(vecs) > 0 {
		e.mu.Lock()
		if e.dims == 0 {
			e.dims = len(vecs[0])
		}
		e.mu.Unlock()
	}

	slog.Debug("embedding_batch",
		slog.Int("texts", len(texts)),
		slog.Duration("elapsed", time.Since(started)))
	return vecs, nil
}

// Dimensions returns the embedding dimension (0 until detected).
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier.
func (e *OllamaEmbedder) ModelName() string {
	return e.config.Model
}

// Available checks if Ollama is running and the model is installed.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	return !closed && e.checkModel(ctx) == nil
}

// Close releases idle connections.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}
