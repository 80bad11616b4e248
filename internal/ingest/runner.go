// Package ingest runs the offline pipeline that turns a language's source
// documents into a published index: load, segment, chunk, embed, index.
package ingest

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/choralmind/internal/chunk"
	"github.com/Aman-CERP/choralmind/internal/config"
	"github.com/Aman-CERP/choralmind/internal/embed"
	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/index"
	"github.com/Aman-CERP/choralmind/internal/loader"
	"github.com/Aman-CERP/choralmind/internal/segment"
	"github.com/Aman-CERP/choralmind/internal/ui"
)

// Result is the outcome of ingesting one language.
type Result struct {
	Language hymn.Language
	Manifest *index.Manifest
	Hymns    int
	Chunks   int
	// Excluded lists header-shaped lines that did not open a hymn.
	Excluded []segment.ExcludedHeader
	// Ambiguous is set when non-empty text yielded no hymns.
	Ambiguous bool
	Duration  time.Duration
}

// Dependencies are the collaborators a Runner needs.
type Dependencies struct {
	// Config is the loaded configuration (required).
	Config *config.Config

	// Embedder embeds chunks (required).
	Embedder embed.Embedder

	// Renderer displays progress. Defaults to ui.Discard.
	Renderer ui.Renderer

	// Loader reads source documents. Defaults to loader.New().
	Loader *loader.Loader
}

// Runner executes ingestion with progress reporting.
type Runner struct {
	cfg      *config.Config
	embedder embed.Embedder
	renderer ui.Renderer
	loader   *loader.Loader
	splitter *chunk.Splitter
}

// NewRunner creates a Runner.
func NewRunner(deps Dependencies) (*Runner, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if deps.Renderer == nil {
		deps.Renderer = ui.Discard{}
	}
	if deps.Loader == nil {
		deps.Loader = loader.New()
	}

	splitter, err := chunk.New(
		chunk.WithSize(deps.Config.Chunk.Size),
		chunk.WithOverlap(deps.Config.Chunk.Overlap),
	)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:      deps.Config,
		embedder: deps.Embedder,
		renderer: deps.Renderer,
		loader:   deps.Loader,
		splitter: splitter,
	}, nil
}

// Run ingests one language. Any failure aborts the run and leaves the
// previously published index in place.
func (r *Runner) Run(ctx context.Context, lang hymn.Language) (*Result, error) {
	started := time.Now()
	src := r.cfg.Source(lang)
	log := slog.With(slog.String("language", lang.String()))
	log.Info("ingest_started", slog.String("source", src.Path), slog.String("layout", string(src.Layout)))

	r.progress(ui.StageLoading, lang, 0, 0, src.Path)
	doc, err := r.loader.Load(ctx, src.Path, src.Layout)
	if err != nil {
		return nil, r.fail(lang, err)
	}
	doc.Language = lang
	text := doc.Text()
	if strings.TrimSpace(text) == "" {
		// A scanned PDF without a text layer loads as blank pages.
		return nil, r.fail(lang, errors.New(errors.ErrCodeDocumentNotFound,
			fmt.Sprintf("no text could be extracted from %s", src.Path), nil).
			WithDetail("path", src.Path).
			WithDetail("pages", strconv.Itoa(len(doc.Pages))).
			WithSuggestion("Use a source with a text layer, or convert it to plain text"))
	}

	r.progress(ui.StageSegmenting, lang, 0, 0, fmt.Sprintf("%d pages", len(doc.Pages)))
	seg, err := segment.For(lang, segment.Options{
		Anchors:    r.cfg.Segment.Anchors,
		MinWords:   r.cfg.Segment.MinWords,
		TitleWords: r.cfg.Segment.TitleWords,
	})
	if err != nil {
		return nil, r.fail(lang, err)
	}
	segmented := seg.Segment(text)
	result := &Result{Language: lang, Hymns: len(segmented.Records), Excluded: segmented.Excluded}

	if n := len(segmented.Excluded); n > 0 {
		for _, ex := range segmented.Excluded {
			log.Debug("segment_header_excluded_line",
				slog.Int("offset", ex.Offset),
				slog.Int("number", ex.Number),
				slog.String("word", ex.Word))
		}
		log.Warn("segment_header_excluded", slog.Int("count", n))
		r.renderer.AddError(ui.ErrorEvent{
			Language: lang,
			Err:      fmt.Errorf("%d headers excluded (title word not in vocabulary)", n),
			IsWarn:   true,
		})
	}
	if segmented.Ambiguous(text) {
		result.Ambiguous = true
		log.Warn("segmentation_ambiguous", slog.Int("text_runes", len([]rune(text))))
		r.renderer.AddError(ui.ErrorEvent{
			Language: lang,
			Err:      fmt.Errorf("no hymns recognised in %s", src.Path),
			IsWarn:   true,
		})
	}

	r.progress(ui.StageChunking, lang, 0, 0, fmt.Sprintf("%d hymns", result.Hymns))
	chunks := slices.Collect(r.splitter.Records(segmented.Records))
	result.Chunks = len(chunks)

	builder := index.NewBuilder(r.builderConfig(), r.embedder,
		index.WithProgress(func(done, total int) {
			r.progress(ui.StageEmbedding, lang, done, total, "")
			if done == total {
				r.progress(ui.StageIndexing, lang, 0, 0, "writing index")
			}
		}))
	r.progress(ui.StageEmbedding, lang, 0, len(chunks), "")
	manifest, err := builder.Build(ctx, lang, segmented.Records, chunks)
	if err != nil {
		return nil, r.fail(lang, err)
	}
	result.Manifest = manifest
	result.Duration = time.Since(started)

	r.progress(ui.StageComplete, lang, 0, 0, manifest.Generation)
	log.Info("ingest_complete",
		slog.String("generation", manifest.Generation),
		slog.Int("hymns", result.Hymns),
		slog.Int("chunks", result.Chunks),
		slog.Int("excluded_headers", len(result.Excluded)),
		slog.Int64("duration_ms", result.Duration.Milliseconds()))
	return result, nil
}

// RunAll ingests langs one after another, or concurrently when parallel
// is set. It stops at the first failure; languages already published
// stay published.
func (r *Runner) RunAll(ctx context.Context, langs []hymn.Language, parallel bool) ([]*Result, error) {
	started := time.Now()
	if err := r.renderer.Start(ctx); err != nil {
		return nil, err
	}
	defer func() { _ = r.renderer.Stop() }()

	results := make([]*Result, len(langs))
	var err error
	if parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, lang := range langs {
			g.Go(func() error {
				res, err := r.Run(gctx, lang)
				results[i] = res
				return err
			})
		}
		err = g.Wait()
	} else {
		for i, lang := range langs {
			if results[i], err = r.Run(ctx, lang); err != nil {
				break
			}
		}
	}

	r.renderer.Complete(r.stats(results, time.Since(started), err))
	if err != nil {
		return compact(results), err
	}
	return results, nil
}

func (r *Runner) builderConfig() index.BuilderConfig {
	return index.BuilderConfig{
		DataDir:     r.cfg.DataDir,
		Backend:     r.cfg.Store.Backend,
		PostgresURL: r.cfg.Store.PostgresURL,
		M:           r.cfg.Retrieval.M,
		EfSearch:    r.cfg.Retrieval.EfSearch,
		BatchSize:   r.cfg.Embeddings.BatchSize,
		ChunkSize:   r.splitter.Size(),
		Overlap:     r.splitter.Overlap(),
	}
}

func (r *Runner) stats(results []*Result, elapsed time.Duration, err error) ui.CompletionStats {
	stats := ui.CompletionStats{
		Duration: elapsed,
		Embedder: ui.EmbedderInfo{
			Provider:   r.cfg.Embeddings.Provider,
			Model:      r.embedder.ModelName(),
			Dimensions: r.embedder.Dimensions(),
		},
	}
	for _, res := range compact(results) {
		stats.Languages = append(stats.Languages, ui.LanguageStats{
			Language:   res.Language,
			Generation: res.Manifest.Generation,
			Hymns:      res.Hymns,
			Chunks:     res.Chunks,
			Excluded:   len(res.Excluded),
			Duration:   res.Duration,
		})
		if len(res.Excluded) > 0 || res.Ambiguous {
			stats.Warnings++
		}
	}
	if err != nil {
		stats.Errors = 1
	}
	return stats
}

func (r *Runner) progress(stage ui.Stage, lang hymn.Language, current, total int, msg string) {
	r.renderer.UpdateProgress(ui.ProgressEvent{
		Stage:    stage,
		Language: lang,
		Current:  current,
		Total:    total,
		Message:  msg,
	})
}

// fail logs err and passes it through. Cancellation is not shown as a
// language failure.
func (r *Runner) fail(lang hymn.Language, err error) error {
	if !isCanceled(err) {
		r.renderer.AddError(ui.ErrorEvent{Language: lang, Err: err})
	}
	attrs := append([]slog.Attr{slog.String("language", lang.String())}, errors.LogAttrs(err)...)
	slog.LogAttrs(context.Background(), slog.LevelError, "ingest_failed", attrs...)
	return err
}

func isCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

func compact(results []*Result) []*Result {
	out := make([]*Result, 0, len(results))
	for _, res := range results {
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}
