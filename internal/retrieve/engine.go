// Package retrieve answers line-fragment queries against the published
// language indexes.
package retrieve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Aman-CERP/choralmind/internal/embed"
	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/index"
)

// DefaultK is the number of results returned when k <= 0.
const DefaultK = 3

// MaxQueryLength is the longest accepted query, in runes.
const MaxQueryLength = 500

// Config configures the engine.
type Config struct {
	DataDir     string
	DefaultK    int
	EfSearch    int
	PostgresURL string
	// Languages to load at Start (default: all).
	Languages []hymn.Language
}

// Opener opens the published generation of a language.
type Opener func(ctx context.Context, lang hymn.Language) (*index.Generation, error)

// handle is one open generation plus the in-flight queries using it.
type handle struct {
	gen  *index.Generation
	refs sync.WaitGroup
}

// Engine is the process-wide retrieval resource. Start loads every
// language, Stop releases them, Reload swaps one language in place.
// Retrieve is safe for concurrent use.
type Engine struct {
	config   Config
	embedder embed.Embedder
	open     Opener

	mu      sync.RWMutex
	handles map[hymn.Language]*handle
	started bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithOpener replaces the default on-disk opener.
func WithOpener(o Opener) Option {
	return func(e *Engine) { e.open = o }
}

// New creates an engine. The embedder must be the one used at build time;
// Start checks its model against each manifest.
func New(cfg Config, embedder embed.Embedder, opts ...Option) *Engine {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = DefaultK
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = hymn.Languages()
	}
	e := &Engine{
		config:   cfg,
		embedder: embedder,
		handles:  make(map[hymn.Language]*handle),
	}
	e.open = func(ctx context.Context, lang hymn.Language) (*index.Generation, error) {
		return index.Open(ctx, cfg.DataDir, lang, index.OpenOptions{
			EfSearch:    cfg.EfSearch,
			PostgresURL: cfg.PostgresURL,
		})
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start loads the published index of every configured language.
// A language without an index is logged and left unavailable; any other
// failure stops the engine and is returned.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	for _, lang := range e.config.Languages {
		err := e.Reload(ctx, lang)
		if errors.HasCode(err, errors.ErrCodeIndexNotFound) {
			slog.Warn("retrieval_language_unavailable",
				slog.String("language", lang.String()),
				slog.String("reason", "no published index"))
			continue
		}
		if err != nil {
			e.Stop()
			return err
		}
	}
	return nil
}

// Stop releases every index, waiting for in-flight queries.
func (e *Engine) Stop() {
	e.mu.Lock()
	handles := e.handles
	e.handles = make(map[hymn.Language]*handle)
	e.started = false
	e.mu.Unlock()

	for lang, h := range handles {
		h.refs.Wait()
		if err := h.gen.Close(); err != nil {
			slog.Warn("retrieval_close_failed", slog.String("language", lang.String()), slog.String("error", err.Error()))
		}
	}
}

// Reload opens the currently published generation of lang and swaps it
// in. The previous generation is closed once its queries finish.
func (e *Engine) Reload(ctx context.Context, lang hymn.Language) error {
	gen, err := e.open(ctx, lang)
	if err != nil {
		return err
	}
	if err := e.checkCompatible(gen.Manifest); err != nil {
		_ = gen.Close()
		return err
	}

	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		_ = gen.Close()
		return errors.New(errors.ErrCodeIndexNotFound, "retrieval engine is not started", nil)
	}
	old := e.handles[lang]
	if old != nil && old.gen.Manifest.Generation == gen.Manifest.Generation {
		e.mu.Unlock()
		_ = gen.Close()
		return nil
	}
	e.handles[lang] = &handle{gen: gen}
	e.mu.Unlock()

	if old != nil {
		go func() {
			old.refs.Wait()
			_ = old.gen.Close()
		}()
	}

	slog.Info("retrieval_index_loaded",
		slog.String("language", lang.String()),
		slog.String("generation", gen.Manifest.Generation),
		slog.Int("chunks", gen.Manifest.Chunks))
	return nil
}

// checkCompatible rejects an index built with a different embedding model.
func (e *Engine) checkCompatible(m *index.Manifest) error {
	if m.Chunks == 0 || m.Model == e.embedder.ModelName() {
		return nil
	}
	return errors.New(errors.ErrCodeModelMismatch,
		fmt.Sprintf("%s index was built with %s, but the configured embedder is %s",
			m.Language, m.Model, e.embedder.ModelName()), nil).
		WithSuggestion(fmt.Sprintf("Re-run 'choralmind ingest --lang %s' or set embeddings.model: %s", m.Language, m.Model))
}

// acquire pins the current generation of lang for one query.
func (e *Engine) acquire(lang hymn.Language) (*handle, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h := e.handles[lang]
	if h == nil {
		return nil, errors.IndexNotFound(lang.String())
	}
	h.refs.Add(1)
	return h, nil
}

// ValidateQuery normalises a query and enforces the length bounds.
func ValidateQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", errors.New(errors.ErrCodeQueryEmpty, "query is empty", nil).
			WithSuggestion("Please enter a line from the hymn to search.")
	}
	if n := utf8.RuneCountInString(q); n > MaxQueryLength {
		return "", errors.New(errors.ErrCodeQueryTooLong,
			fmt.Sprintf("query is %d characters, the limit is %d", n, MaxQueryLength), nil)
	}
	return q, nil
}

// Retrieve returns up to k chunks nearest to query in lang, closest
// first. k <= 0 selects the default. There is no relevance threshold; an
// empty result is a miss, not an error.
func (e *Engine) Retrieve(ctx context.Context, query string, lang hymn.Language, k int) ([]hymn.RetrievalResult, error) {
	started := time.Now()
	if !lang.Valid() {
		return nil, errors.New(errors.ErrCodeUnknownLanguage, fmt.Sprintf("unknown language %d", int(lang)), nil)
	}
	q, err := ValidateQuery(query)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = e.config.DefaultK
	}

	h, err := e.acquire(lang)
	if err != nil {
		return nil, err
	}
	defer h.refs.Done()

	if h.gen.Manifest.Chunks == 0 {
		return []hymn.RetrievalResult{}, nil
	}

	vec, err := e.embedder.Embed(ctx, q)
	if err != nil {
		return nil, errors.New(errors.ErrCodeRetrievalFailed, "failed to embed query", err)
	}

	hits, err := h.gen.Vectors.Search(ctx, vec, k)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeDimensionMismatch) {
			return nil, err
		}
		return nil, errors.New(errors.ErrCodeRetrievalFailed, "vector search failed", err)
	}

	results := make([]hymn.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		ch, err := h.gen.Catalog.Chunk(ctx, hit.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, hymn.RetrievalResult{
			Text:     ch.Text,
			HymnID:   ch.HymnID,
			ChunkID:  ch.Index,
			Distance: hit.Distance,
			Score:    hit.Score,
		})
	}

	slog.Debug("retrieve_complete",
		slog.String("language", lang.String()),
		slog.Int("k", k),
		slog.Int("results", len(results)),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))
	return results, nil
}

// Hymn returns the full record of hymn id in lang.
func (e *Engine) Hymn(ctx context.Context, lang hymn.Language, id int) (hymn.Record, error) {
	h, err := e.acquire(lang)
	if err != nil {
		return hymn.Record{}, err
	}
	defer h.refs.Done()

	r, err := h.gen.Catalog.Hymn(ctx, id)
	r.Language = lang
	return r, err
}

// Manifest returns the manifest of the loaded generation of lang.
func (e *Engine) Manifest(lang hymn.Language) (*index.Manifest, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h := e.handles[lang]
	if h == nil {
		return nil, false
	}
	m := *h.gen.Manifest
	return &m, true
}

// Languages returns the languages with a loaded index.
func (e *Engine) Languages() []hymn.Language {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []hymn.Language
	for _, lang := range hymn.Languages() {
		if e.handles[lang] != nil {
			out = append(out, lang)
		}
	}
	return out
}
