// Package llm provides the text completion capability used for synthesis.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/choralmind/internal/config"
	"github.com/Aman-CERP/choralmind/internal/errors"
)

// Completer generates text from a prompt.
type Completer interface {
	// Complete returns the model's answer to prompt.
	Complete(ctx context.Context, prompt string) (string, error)

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the completion service is reachable.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// New builds the completer described by cfg.
// Provider "none" returns a Disabled completer.
func New(cfg config.CompletionConfig) (Completer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "ollama", "":
		return NewOllamaCompleter(OllamaConfig{
			Host:    cfg.Host,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil
	case "none":
		return Disabled{}, nil
	default:
		return nil, errors.ConfigError(fmt.Sprintf("unknown completion provider %q", cfg.Provider), nil)
	}
}

// Disabled is a Completer for retrieval-only deployments.
// Every call fails, so synthesis falls back to its apology message.
type Disabled struct{}

var _ Completer = Disabled{}

// Complete always fails.
func (Disabled) Complete(context.Context, string) (string, error) {
	return "", errors.New(errors.ErrCodeProviderUnavailable, "completion is disabled", nil).
		WithSuggestion("Set completion.provider: ollama in choralmind.yaml")
}

// ModelName returns "none".
func (Disabled) ModelName() string { return "none" }

// Available always reports false.
func (Disabled) Available(context.Context) bool { return false }

// Close is a no-op.
func (Disabled) Close() error { return nil }
