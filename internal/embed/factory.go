package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/choralmind/internal/config"
	"github.com/Aman-CERP/choralmind/internal/errors"
)

// ProviderType names an embedding provider.
type ProviderType string

const (
	// ProviderOllama uses the Ollama HTTP API.
	ProviderOllama ProviderType = "ollama"
	// ProviderStatic uses hash-based embeddings, offline.
	ProviderStatic ProviderType = "static"
)

// ParseProvider parses a provider name (case-insensitive).
func ParseProvider(s string) (ProviderType, error) {
	switch p := ProviderType(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderOllama, ProviderStatic:
		return p, nil
	default:
		return "", errors.ConfigError(fmt.Sprintf("unknown embedding provider %q", s), nil)
	}
}

// New builds the embedder described by cfg. The same settings must be used
// for ingestion and retrieval; index manifests record the model name and
// dimensions so a mismatch is caught at load time.
func New(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	provider, err := ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	switch provider {
	case ProviderStatic:
		return NewStaticEmbedder(cfg.Dimensions), nil
	default:
		return NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.Host,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			BatchSize:  cfg.BatchSize,
			Timeout:    cfg.Timeout,
			RateLimit:  cfg.RateLimit,
			Retry:      errors.DefaultRetryConfig(),
		})
	}
}
