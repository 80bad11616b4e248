package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/choralmind/internal/embed"
	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/store"
)

// Backends for the vector store.
const (
	BackendHNSW     = "hnsw"
	BackendPGVector = "pgvector"
)

// BuilderConfig configures index builds.
type BuilderConfig struct {
	// DataDir holds one directory per language.
	DataDir string

	// Backend is "hnsw" (default) or "pgvector".
	Backend     string
	PostgresURL string

	// M and EfSearch tune the HNSW graph.
	M        int
	EfSearch int

	// BatchSize is the number of chunks embedded per call.
	BatchSize int

	// ChunkSize and Overlap are recorded in the manifest.
	ChunkSize int
	Overlap   int
}

// Progress receives (done, total) after each embedded batch.
type Progress func(done, total int)

// remoteVectors is a vector backend that lives outside the generation
// directory. Its rows are dropped when a build fails and older
// generations are pruned only once the new one is published.
type remoteVectors interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Drop(ctx context.Context) error
	PruneGenerations(ctx context.Context) error
	Close() error
}

type remoteOpener func(ctx context.Context, lang hymn.Language, generation string, dims int) (remoteVectors, error)

// Builder embeds chunks and publishes a language index.
type Builder struct {
	config     BuilderConfig
	embedder   embed.Embedder
	progress   Progress
	openRemote remoteOpener
	now        func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithProgress reports embedding progress.
func WithProgress(p Progress) BuilderOption {
	return func(b *Builder) { b.progress = p }
}

// NewBuilder creates a Builder.
func NewBuilder(cfg BuilderConfig, embedder embed.Embedder, opts ...BuilderOption) *Builder {
	if cfg.Backend == "" {
		cfg.Backend = BackendHNSW
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = embed.DefaultBatchSize
	}
	b := &Builder{config: cfg, embedder: embedder, now: time.Now}
	b.openRemote = func(ctx context.Context, lang hymn.Language, generation string, dims int) (remoteVectors, error) {
		pg, err := store.NewPGVectorStore(ctx, cfg.PostgresURL, lang.String(), generation, dims)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// LanguageDir returns <data>/<lang>.
func (b *Builder) LanguageDir(lang hymn.Language) string {
	return filepath.Join(b.config.DataDir, lang.String())
}

// Build replaces the index of lang with one built from records and
// chunks. The previous generation keeps serving until the new one is
// complete; any failure leaves it untouched and publishes nothing.
func (b *Builder) Build(ctx context.Context, lang hymn.Language, records []hymn.Record, chunks []hymn.Chunk) (*Manifest, error) {
	started := b.now()
	langDir := b.LanguageDir(lang)

	lock := NewFileLock(langDir)
	if err := lock.MustTryLock(); err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	generation := GenerationPfx + uuid.NewString()
	genDir := filepath.Join(langDir, generation)
	if err := os.MkdirAll(genDir, 0o755); err != nil {
		return nil, errors.New(errors.ErrCodeFilePermission, "failed to create generation directory", err).
			WithDetail("dir", genDir)
	}

	slog.Info("index_build_started",
		slog.String("language", lang.String()),
		slog.String("generation", generation),
		slog.Int("hymns", len(records)),
		slog.Int("chunks", len(chunks)))

	manifest, remote, err := b.write(ctx, lang, genDir, generation, records, chunks)
	if err != nil {
		discardRemote(ctx, remote)
		_ = os.RemoveAll(genDir)
		slog.Error("index_build_failed",
			slog.String("language", lang.String()),
			slog.String("generation", generation),
			slog.String("error", err.Error()))
		return nil, err
	}

	if err := publish(langDir, generation); err != nil {
		discardRemote(ctx, remote)
		_ = os.RemoveAll(genDir)
		return nil, errors.New(errors.ErrCodeIndexFailed, "failed to publish index", err)
	}
	pruneGenerations(langDir, generation)
	if remote != nil {
		if err := remote.PruneGenerations(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("pgvector_prune_failed", slog.String("error", err.Error()))
		}
		_ = remote.Close()
	}

	slog.Info("index_build_complete",
		slog.String("language", lang.String()),
		slog.String("generation", generation),
		slog.String("model", manifest.Model),
		slog.Int("dimensions", manifest.Dimensions),
		slog.Int("chunks", manifest.Chunks),
		slog.Int64("duration_ms", b.now().Sub(started).Milliseconds()))
	return manifest, nil
}

// discardRemote drops the rows of a generation that will not be
// published, then closes the store.
func discardRemote(ctx context.Context, remote remoteVectors) {
	if remote == nil {
		return
	}
	if err := remote.Drop(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("pgvector_drop_failed", slog.String("error", err.Error()))
	}
	_ = remote.Close()
}

// write fills genDir. A remote store it opened is returned open, even on
// failure, so Build can drop or prune it around the publish.
func (b *Builder) write(ctx context.Context, lang hymn.Language, genDir, generation string,
	records []hymn.Record, chunks []hymn.Chunk) (*Manifest, remoteVectors, error) {

	vectors, err := b.embedAll(ctx, chunks)
	if err != nil {
		return nil, nil, err
	}

	dims := b.embedder.Dimensions()
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	if dims <= 0 {
		dims = embed.StaticDimensions
	}

	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.VectorID()
	}

	var remote remoteVectors
	switch b.config.Backend {
	case BackendPGVector:
		remote, err = b.openRemote(ctx, lang, generation, dims)
		if err != nil {
			return nil, nil, errors.New(errors.ErrCodeIndexFailed, "failed to open pgvector store", err)
		}
		if err := remote.Add(ctx, ids, vectors); err != nil {
			return nil, remote, errors.New(errors.ErrCodeIndexFailed, "failed to write vectors", err)
		}
	default:
		hs, err := store.NewHNSWStore(store.VectorStoreConfig{
			Dimensions: dims,
			Metric:     store.MetricCosine,
			M:          b.config.M,
			EfSearch:   b.config.EfSearch,
		})
		if err != nil {
			return nil, nil, errors.New(errors.ErrCodeIndexFailed, "failed to create vector store", err)
		}
		defer func() { _ = hs.Close() }()
		if err := hs.Add(ctx, ids, vectors); err != nil {
			return nil, nil, errors.New(errors.ErrCodeIndexFailed, "failed to add vectors", err)
		}
		if err := hs.Save(filepath.Join(genDir, VectorFile)); err != nil {
			return nil, nil, errors.New(errors.ErrCodeIndexFailed, "failed to save vector index", err)
		}
	}

	if err := writeCatalog(ctx, filepath.Join(genDir, CatalogFile), records, chunks); err != nil {
		return nil, remote, errors.New(errors.ErrCodeIndexFailed, "failed to write catalog", err)
	}
	if err := store.WriteCorpus(filepath.Join(genDir, store.CorpusFile), records); err != nil {
		return nil, remote, errors.New(errors.ErrCodeIndexFailed, "failed to write corpus", err)
	}

	manifest := &Manifest{
		Language:   lang,
		Generation: generation,
		Backend:    b.config.Backend,
		Model:      b.embedder.ModelName(),
		Dimensions: dims,
		Hymns:      len(records),
		Chunks:     len(chunks),
		ChunkSize:  b.config.ChunkSize,
		Overlap:    b.config.Overlap,
		BuiltAt:    b.now().UTC(),
	}
	if err := writeManifest(genDir, manifest); err != nil {
		return nil, remote, errors.New(errors.ErrCodeIndexFailed, "failed to write manifest", err)
	}
	return manifest, remote, nil
}

// embedAll embeds chunk texts in batches. Any failure aborts the build.
func (b *Builder) embedAll(ctx context.Context, chunks []hymn.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += b.config.BatchSize {
		end := min(start+b.config.BatchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, ch := range chunks[start:end] {
			texts = append(texts, ch.Text)
		}

		batch, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.EmbeddingFailed(
				fmt.Sprintf("failed to embed chunks %d-%d", start, end-1), err).
				WithDetail("model", b.embedder.ModelName())
		}
		if len(batch) != len(texts) {
			return nil, errors.EmbeddingFailed(
				fmt.Sprintf("embedder returned %d vectors for %d texts", len(batch), len(texts)), nil)
		}
		for i, v := range batch {
			if len(v) == 0 || (len(vectors) > 0 && len(v) != len(vectors[0])) {
				return nil, errors.EmbeddingFailed(
					fmt.Sprintf("inconsistent embedding size for chunk %s", chunks[start+i].VectorID()), nil)
			}
			vectors = append(vectors, v)
		}

		if b.progress != nil {
			b.progress(end, len(chunks))
		}
	}
	return vectors, nil
}

func writeCatalog(ctx context.Context, path string, records []hymn.Record, chunks []hymn.Chunk) error {
	c, err := store.CreateCatalog(path)
	if err != nil {
		return err
	}
	if err := c.PutHymns(ctx, records); err != nil {
		_ = c.Close()
		return err
	}
	if err := c.PutChunks(ctx, chunks); err != nil {
		_ = c.Close()
		return err
	}
	return c.Close()
}

// Generations lists the generation directories present for lang, which
// is normally just the published one.
func (b *Builder) Generations(lang hymn.Language) ([]string, error) {
	entries, err := os.ReadDir(b.LanguageDir(lang))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), GenerationPfx) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
