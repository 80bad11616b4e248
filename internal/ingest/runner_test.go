package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/choralmind/internal/config"
	"github.com/Aman-CERP/choralmind/internal/embed"
	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/index"
	"github.com/Aman-CERP/choralmind/internal/ui"
)

const englishSource = "Tune - Abide with me fast falls the eventide the darkness deepens Lord with me abide\n" +
	"C.M. Rock of ages cleft for me let me hide myself in thee let the water and the blood\n" +
	"L.M. too short\n" +
	"S.S. Amazing grace how sweet the sound that saved a wretch like me I once was lost\n"

const yorubaSource = "1 OLORUN wa nibe o\nAwa yin O\n\n2 KABIYESI o\nOba wa\n\f3 JESU a feran mi\nJesu mo wa\n"

// recorder is a ui.Renderer that keeps every event.
type recorder struct {
	mu       sync.Mutex
	stages   []ui.Stage
	errors   []ui.ErrorEvent
	complete *ui.CompletionStats
}

func (r *recorder) Start(context.Context) error { return nil }

func (r *recorder) UpdateProgress(e ui.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, e.Stage)
}

func (r *recorder) AddError(e ui.ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, e)
}

func (r *recorder) Complete(s ui.CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = &s
}

func (r *recorder) Stop() error { return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	src := t.TempDir()
	enPath := filepath.Join(src, "english.txt")
	yoPath := filepath.Join(src, "yoruba.txt")
	require.NoError(t, os.WriteFile(enPath, []byte(englishSource), 0o644))
	require.NoError(t, os.WriteFile(yoPath, []byte(yorubaSource), 0o644))

	cfg := config.NewConfig()
	cfg.DataDir = t.TempDir()
	cfg.Embeddings.Provider = "static"
	cfg.Sources = map[string]config.SourceConfig{
		hymn.English.String(): {Path: enPath, Layout: hymn.LayoutSingle},
		hymn.Yoruba.String():  {Path: yoPath, Layout: hymn.LayoutSingle},
	}
	return cfg
}

func newTestRunner(t *testing.T, cfg *config.Config, r ui.Renderer) *Runner {
	t.Helper()
	runner, err := NewRunner(Dependencies{Config: cfg, Embedder: embed.NewStaticEmbedder(64), Renderer: r})
	require.NoError(t, err)
	return runner
}

func TestRun_English(t *testing.T) {
	// Given: an English source with three long and one short segment
	cfg := testConfig(t)
	rec := &recorder{}
	runner := newTestRunner(t, cfg, rec)

	// When: ingesting English
	res, err := runner.Run(context.Background(), hymn.English)

	// Then: three hymns are published and every stage is reported
	require.NoError(t, err)
	assert.Equal(t, 3, res.Hymns)
	assert.Equal(t, 3, res.Chunks)
	assert.False(t, res.Ambiguous)
	require.NotNil(t, res.Manifest)
	assert.Equal(t, 3, res.Manifest.Hymns)

	m, err := index.CurrentManifest(cfg.LanguageDir(hymn.English), hymn.English)
	require.NoError(t, err)
	assert.Equal(t, res.Manifest.Generation, m.Generation)

	for _, stage := range []ui.Stage{ui.StageLoading, ui.StageSegmenting, ui.StageChunking, ui.StageEmbedding, ui.StageIndexing, ui.StageComplete} {
		assert.Contains(t, rec.stages, stage)
	}
}

func TestRun_YorubaReportsExcludedHeaders(t *testing.T) {
	cfg := testConfig(t)
	rec := &recorder{}
	runner := newTestRunner(t, cfg, rec)

	res, err := runner.Run(context.Background(), hymn.Yoruba)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Hymns)
	require.Len(t, res.Excluded, 1)
	assert.Equal(t, "KABIYESI", res.Excluded[0].Word)
	require.Len(t, rec.errors, 1)
	assert.True(t, rec.errors[0].IsWarn)
}

func TestRun_MissingSourceFailsAndKeepsIndex(t *testing.T) {
	// Given: a published English index
	cfg := testConfig(t)
	runner := newTestRunner(t, cfg, nil)
	first, err := runner.Run(context.Background(), hymn.English)
	require.NoError(t, err)

	// When: the source disappears and ingestion runs again
	cfg.Sources[hymn.English.String()] = config.SourceConfig{Path: filepath.Join(t.TempDir(), "missing")}
	_, err = runner.Run(context.Background(), hymn.English)

	// Then: DocumentNotFound is returned and the old generation still serves
	assert.True(t, errors.HasCode(err, errors.ErrCodeDocumentNotFound))
	assert.True(t, errors.IsIngestionError(err))
	m, err := index.CurrentManifest(cfg.LanguageDir(hymn.English), hymn.English)
	require.NoError(t, err)
	assert.Equal(t, first.Manifest.Generation, m.Generation)
}

func TestRun_AmbiguousSourcePublishesEmptyIndex(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("Eyi ni orin kan\nlaisi akole\n"), 0o644))
	cfg.Sources[hymn.Yoruba.String()] = config.SourceConfig{Path: path, Layout: hymn.LayoutSingle}
	rec := &recorder{}
	runner := newTestRunner(t, cfg, rec)

	res, err := runner.Run(context.Background(), hymn.Yoruba)

	require.NoError(t, err)
	assert.True(t, res.Ambiguous)
	assert.Zero(t, res.Hymns)
	assert.Zero(t, res.Manifest.Chunks)
	require.NotEmpty(t, rec.errors)
	assert.True(t, rec.errors[len(rec.errors)-1].IsWarn)
}

func TestRun_BlankSourceFailsAndKeepsIndex(t *testing.T) {
	// Given: a published English index
	cfg := testConfig(t)
	runner := newTestRunner(t, cfg, nil)
	first, err := runner.Run(context.Background(), hymn.English)
	require.NoError(t, err)

	// When: the source is replaced by one with no text
	path := filepath.Join(t.TempDir(), "blank.txt")
	require.NoError(t, os.WriteFile(path, []byte("   \n\n\t\n"), 0o644))
	cfg.Sources[hymn.English.String()] = config.SourceConfig{Path: path, Layout: hymn.LayoutSingle}
	_, err = runner.Run(context.Background(), hymn.English)

	// Then: ingestion fails and the previous generation keeps serving
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDocumentNotFound))
	m, err := index.CurrentManifest(cfg.LanguageDir(hymn.English), hymn.English)
	require.NoError(t, err)
	assert.Equal(t, first.Manifest.Generation, m.Generation)
}

func TestRunAll_SequentialAndParallel(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(map[bool]string{false: "sequential", true: "parallel"}[parallel], func(t *testing.T) {
			cfg := testConfig(t)
			rec := &recorder{}
			runner := newTestRunner(t, cfg, rec)

			results, err := runner.RunAll(context.Background(), hymn.Languages(), parallel)

			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, hymn.English, results[0].Language)
			assert.Equal(t, hymn.Yoruba, results[1].Language)
			require.NotNil(t, rec.complete)
			assert.Equal(t, 5, rec.complete.Hymns())
			assert.Equal(t, 1, rec.complete.Warnings)
			assert.Zero(t, rec.complete.Errors)
		})
	}
}

func TestRunAll_StopsAtFirstFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sources[hymn.English.String()] = config.SourceConfig{Path: filepath.Join(t.TempDir(), "missing")}
	rec := &recorder{}
	runner := newTestRunner(t, cfg, rec)

	results, err := runner.RunAll(context.Background(), hymn.Languages(), false)

	require.Error(t, err)
	assert.Empty(t, results)
	require.NotNil(t, rec.complete)
	assert.Equal(t, 1, rec.complete.Errors)
	_, err = index.CurrentManifest(cfg.LanguageDir(hymn.Yoruba), hymn.Yoruba)
	assert.True(t, errors.HasCode(err, errors.ErrCodeIndexNotFound))
}

func TestNewRunner_RequiresDependencies(t *testing.T) {
	_, err := NewRunner(Dependencies{Embedder: embed.NewStaticEmbedder(8)})
	assert.Error(t, err)

	_, err = NewRunner(Dependencies{Config: config.NewConfig()})
	assert.Error(t, err)
}
