// Package service is the single entry point the front ends use to search
// hymns and compose answers.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/telemetry"
)

// Retriever finds ranked chunks and full hymns.
type Retriever interface {
	Retrieve(ctx context.Context, query string, lang hymn.Language, k int) ([]hymn.RetrievalResult, error)
	Hymn(ctx context.Context, lang hymn.Language, id int) (hymn.Record, error)
	Languages() []hymn.Language
}

// Synthesizer composes an answer from retrieved chunks. It never fails.
type Synthesizer interface {
	Synthesize(ctx context.Context, results []hymn.RetrievalResult, query string, lang hymn.Language) string
}

// Answer is the result of Ask.
type Answer struct {
	Query    string                 `json:"query"`
	Language hymn.Language          `json:"language"`
	Text     string                 `json:"answer"`
	Matched  bool                   `json:"matched"`
	Results  []hymn.RetrievalResult `json:"results"`
}

// Recorder receives one event per answered query.
type Recorder interface {
	Record(event telemetry.QueryEvent)
}

// Hymnal combines retrieval and synthesis.
type Hymnal struct {
	retriever Retriever
	synth     Synthesizer
	recorder  Recorder
}

// Option configures a Hymnal.
type Option func(*Hymnal)

// WithRecorder reports every successful retrieval to r.
func WithRecorder(r Recorder) Option {
	return func(h *Hymnal) { h.recorder = r }
}

// New creates a Hymnal.
func New(r Retriever, s Synthesizer, opts ...Option) *Hymnal {
	h := &Hymnal{retriever: r, synth: s}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Retrieve returns up to k ranked chunks (k <= 0 selects the default).
func (h *Hymnal) Retrieve(ctx context.Context, query string, lang hymn.Language, k int) ([]hymn.RetrievalResult, error) {
	started := time.Now()
	results, err := h.retriever.Retrieve(ctx, query, lang, k)
	if err != nil {
		return nil, err
	}
	h.record(query, lang, len(results), started)
	return results, nil
}

func (h *Hymnal) record(query string, lang hymn.Language, n int, started time.Time) {
	if h.recorder == nil {
		return
	}
	h.recorder.Record(telemetry.QueryEvent{
		Query:       query,
		Language:    lang,
		ResultCount: n,
		Latency:     time.Since(started),
		Timestamp:   started,
	})
}

// Synthesize composes an answer from results.
func (h *Hymnal) Synthesize(ctx context.Context, results []hymn.RetrievalResult, query string, lang hymn.Language) string {
	return h.synth.Synthesize(ctx, results, query, lang)
}

// Ask retrieves with the default k and synthesizes the answer. Query
// validation and missing-index errors are returned; a miss or a failed
// synthesis is reported in the answer text.
func (h *Hymnal) Ask(ctx context.Context, query string, lang hymn.Language) (*Answer, error) {
	started := time.Now()
	results, err := h.retriever.Retrieve(ctx, query, lang, 0)
	if err != nil {
		return nil, err
	}

	text := h.synth.Synthesize(ctx, results, query, lang)
	h.record(query, lang, len(results), started)
	slog.Info("ask_complete",
		slog.String("language", lang.String()),
		slog.Int("results", len(results)),
		slog.Int64("duration_ms", time.Since(started).Milliseconds()))

	return &Answer{
		Query:    query,
		Language: lang,
		Text:     text,
		Matched:  len(results) > 0,
		Results:  results,
	}, nil
}

// Hymn returns the full record of hymn id in lang.
func (h *Hymnal) Hymn(ctx context.Context, lang hymn.Language, id int) (hymn.Record, error) {
	return h.retriever.Hymn(ctx, lang, id)
}

// Languages returns the languages that can be searched.
func (h *Hymnal) Languages() []hymn.Language {
	return h.retriever.Languages()
}
