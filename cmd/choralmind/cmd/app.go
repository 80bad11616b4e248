package cmd

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/Aman-CERP/choralmind/internal/config"
	"github.com/Aman-CERP/choralmind/internal/embed"
	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/llm"
	"github.com/Aman-CERP/choralmind/internal/retrieve"
	"github.com/Aman-CERP/choralmind/internal/service"
	"github.com/Aman-CERP/choralmind/internal/synth"
	"github.com/Aman-CERP/choralmind/internal/telemetry"
)

// runtime is the query-side object graph shared by search, ask, tui and
// serve: embedder, retrieval engine, completer and the hymnal service.
type runtime struct {
	cfg       *config.Config
	embedder  embed.Embedder
	completer llm.Completer
	engine    *retrieve.Engine
	synth     *synth.Synthesizer
	metrics   *telemetry.QueryMetrics
	hymnal    *service.Hymnal
}

// openRuntime builds and starts the query side for langs.
func openRuntime(ctx context.Context, cfg *config.Config, langs []hymn.Language) (*runtime, error) {
	emb, err := embed.New(ctx, cfg.Embeddings)
	if err != nil {
		return nil, err
	}

	completer, err := llm.New(cfg.Completion)
	if err != nil {
		_ = emb.Close()
		return nil, err
	}

	engine := retrieve.New(retrieve.Config{
		DataDir:     cfg.DataDir,
		DefaultK:    cfg.Retrieval.K,
		EfSearch:    cfg.Retrieval.EfSearch,
		PostgresURL: cfg.Store.PostgresURL,
		Languages:   langs,
	}, embed.NewCachedEmbedder(emb, cfg.Embeddings.CacheSize))

	if err := engine.Start(ctx); err != nil {
		_ = completer.Close()
		_ = emb.Close()
		return nil, err
	}

	breaker := errors.NewCircuitBreaker("completion",
		errors.WithMaxFailures(cfg.Completion.MaxFailures),
		errors.WithResetTimeout(cfg.Completion.ResetTimeout))
	s := synth.New(completer,
		synth.WithBreaker(breaker),
		synth.WithMaxPromptTokens(cfg.Completion.MaxPromptTokens),
		synth.WithTimeout(cfg.Completion.Timeout))

	var opts []service.Option
	metrics := openMetrics(cfg)
	if metrics != nil {
		opts = append(opts, service.WithRecorder(metrics))
	}

	slog.Debug("runtime_started",
		slog.String("embedder", emb.ModelName()),
		slog.String("completer", completer.ModelName()),
		slog.Int("languages", len(engine.Languages())))

	return &runtime{
		cfg:       cfg,
		embedder:  emb,
		completer: completer,
		engine:    engine,
		synth:     s,
		metrics:   metrics,
		hymnal:    service.New(engine, s, opts...),
	}, nil
}

// openMetrics opens the query telemetry store. Telemetry is best effort:
// a store that cannot be opened is logged and skipped.
func openMetrics(cfg *config.Config) *telemetry.QueryMetrics {
	if !cfg.Telemetry.Enabled {
		return nil
	}
	store, err := telemetry.OpenSQLiteStore(filepath.Join(cfg.DataDir, telemetry.FileName))
	if err != nil {
		slog.Warn("telemetry_disabled", slog.String("error", err.Error()))
		return nil
	}
	tcfg := telemetry.DefaultConfig()
	tcfg.FlushInterval = cfg.Telemetry.FlushInterval
	return telemetry.New(store, tcfg)
}

// Close stops the engine, flushes telemetry and releases providers.
func (r *runtime) Close() {
	r.engine.Stop()
	if r.metrics != nil {
		if err := r.metrics.Close(); err != nil {
			slog.Warn("telemetry_flush_failed", slog.String("error", err.Error()))
		}
	}
	_ = r.completer.Close()
	_ = r.embedder.Close()
}

