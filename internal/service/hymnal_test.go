package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/choralmind/internal/embed"
	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/index"
	"github.com/Aman-CERP/choralmind/internal/retrieve"
	"github.com/Aman-CERP/choralmind/internal/synth"
	"github.com/Aman-CERP/choralmind/internal/telemetry"
)

type echoCompleter struct {
	calls atomic.Int32
}

func (c *echoCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.calls.Add(1)
	return "1. Rock of ages cleft for me", nil
}

func (c *echoCompleter) ModelName() string { return "echo" }

func (c *echoCompleter) Available(context.Context) bool { return true }

func (c *echoCompleter) Close() error { return nil }

func newTestHymnal(t *testing.T, texts map[hymn.Language][]string, opts ...Option) (*Hymnal, *echoCompleter) {
	t.Helper()
	dataDir := t.TempDir()
	e := embed.NewStaticEmbedder(64)
	for lang, hymns := range texts {
		records := make([]hymn.Record, len(hymns))
		chunks := make([]hymn.Chunk, len(hymns))
		for i, text := range hymns {
			records[i] = hymn.Record{ID: i, Text: text, Language: lang}
			chunks[i] = hymn.Chunk{HymnID: i, Text: text, End: len([]rune(text))}
		}
		_, err := index.NewBuilder(index.BuilderConfig{DataDir: dataDir}, e).
			Build(context.Background(), lang, records, chunks)
		require.NoError(t, err)
	}

	eng := retrieve.New(retrieve.Config{DataDir: dataDir}, e)
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(eng.Stop)

	c := &echoCompleter{}
	return New(eng, synth.New(c, synth.WithTokenCounter(synth.EstimateCounter{})), opts...), c
}

func TestAsk_Match(t *testing.T) {
	// Given: an English index
	h, c := newTestHymnal(t, map[hymn.Language][]string{
		hymn.English: {"Abide with me fast falls the eventide", "Rock of ages cleft for me"},
	})

	// When: asking for a line
	ans, err := h.Ask(context.Background(), "rock of ages", hymn.English)

	// Then: the answer is synthesized from the ranked chunks
	require.NoError(t, err)
	assert.True(t, ans.Matched)
	assert.Equal(t, "1. Rock of ages cleft for me", ans.Text)
	assert.Len(t, ans.Results, 2)
	assert.Equal(t, 1, ans.Results[0].HymnID)
	assert.Equal(t, int32(1), c.calls.Load())
}

func TestAsk_EmptyIndexIsNoMatch(t *testing.T) {
	h, c := newTestHymnal(t, map[hymn.Language][]string{hymn.Yoruba: nil})

	ans, err := h.Ask(context.Background(), "Jesu", hymn.Yoruba)

	require.NoError(t, err)
	assert.False(t, ans.Matched)
	assert.Equal(t, synth.NoMatchMessage(hymn.Yoruba), ans.Text)
	assert.Zero(t, c.calls.Load())
}

func TestAsk_EmptyQuery(t *testing.T) {
	h, _ := newTestHymnal(t, map[hymn.Language][]string{hymn.English: {"Abide with me"}})

	_, err := h.Ask(context.Background(), "   ", hymn.English)

	assert.True(t, errors.HasCode(err, errors.ErrCodeQueryEmpty))
}

func TestAsk_MissingLanguage(t *testing.T) {
	h, _ := newTestHymnal(t, map[hymn.Language][]string{hymn.English: {"Abide with me"}})

	_, err := h.Ask(context.Background(), "Jesu", hymn.Yoruba)

	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexNotFound))
	assert.Equal(t, []hymn.Language{hymn.English}, h.Languages())
}

func TestRetrieveAndHymn(t *testing.T) {
	h, _ := newTestHymnal(t, map[hymn.Language][]string{
		hymn.English: {"Abide with me fast falls the eventide", "Rock of ages cleft for me"},
	})

	results, err := h.Retrieve(context.Background(), "abide with me", hymn.English, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	rec, err := h.Hymn(context.Background(), hymn.English, results[0].HymnID)
	require.NoError(t, err)
	assert.Equal(t, "Abide with me fast falls the eventide", rec.Text)
	assert.Equal(t, hymn.English, rec.Language)
}

func TestRecorder_CountsAnsweredQueries(t *testing.T) {
	// Given: a hymnal reporting to an in-memory collector
	metrics := telemetry.New(nil, telemetry.Config{})
	t.Cleanup(func() { _ = metrics.Close() })
	h, _ := newTestHymnal(t, map[hymn.Language][]string{
		hymn.English: {"Abide with me fast falls the eventide"},
		hymn.Yoruba:  nil,
	}, WithRecorder(metrics))

	// When: one search, one ask, one miss and one rejected query
	_, err := h.Retrieve(context.Background(), "abide with me", hymn.English, 0)
	require.NoError(t, err)
	_, err = h.Ask(context.Background(), "eventide", hymn.English)
	require.NoError(t, err)
	_, err = h.Ask(context.Background(), "Jesu", hymn.Yoruba)
	require.NoError(t, err)
	_, err = h.Ask(context.Background(), "  ", hymn.English)
	require.Error(t, err)

	// Then: only the answered queries are counted
	snap := metrics.Snapshot()
	assert.Equal(t, int64(3), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.LanguageCounts["english"])
	assert.Equal(t, int64(1), snap.ZeroResultCount)
}
