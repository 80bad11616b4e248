package preflight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/choralmind/internal/embed"
	"github.com/Aman-CERP/choralmind/internal/llm"
)

// providerTimeout bounds each provider probe.
const providerTimeout = 5 * time.Second

// CheckEmbedder checks that the embedding provider answers. Nothing can
// be ingested or searched without it.
func (c *Checker) CheckEmbedder(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "embedder",
		Required: true,
		Details:  c.cfg.Embeddings.Provider + " " + c.cfg.Embeddings.Host,
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	emb, err := embed.New(ctx, c.cfg.Embeddings)
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	defer func() { _ = emb.Close() }()

	if !emb.Available(ctx) {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not available", emb.ModelName())
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s ready", emb.ModelName())
	return result
}

// CheckCompleter checks the completion provider. Without it answers fall
// back to the apology message, so failures only warn.
func (c *Checker) CheckCompleter(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:    "completer",
		Details: c.cfg.Completion.Provider + " " + c.cfg.Completion.Host,
	}

	if strings.EqualFold(c.cfg.Completion.Provider, "none") {
		result.Status = StatusWarn
		result.Message = "disabled (answers will be apologies)"
		return result
	}

	completer, err := llm.New(c.cfg.Completion)
	if err != nil {
		result.Status = StatusWarn
		result.Message = err.Error()
		return result
	}
	defer func() { _ = completer.Close() }()

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	if !completer.Available(ctx) {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s is not available", completer.ModelName())
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s ready", completer.ModelName())
	return result
}
