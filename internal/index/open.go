package index

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
	"github.com/Aman-CERP/choralmind/internal/store"
)

// Generation is a published index opened for reading.
type Generation struct {
	Dir      string
	Manifest *Manifest
	Vectors  store.VectorStore
	Catalog  *store.Catalog
}

// OpenOptions configures how a generation is opened.
type OpenOptions struct {
	// EfSearch overrides the persisted HNSW search width when > 0.
	EfSearch int
	// PostgresURL is required for generations built with pgvector.
	PostgresURL string
}

// Open resolves CURRENT for lang under dataDir and opens that generation
// read-only. If the pointer moves while opening (a concurrent publish
// pruned the old generation), the new pointer is tried once more.
func Open(ctx context.Context, dataDir string, lang hymn.Language, opts OpenOptions) (*Generation, error) {
	langDir := filepath.Join(dataDir, lang.String())

	var lastErr error
	for range 2 {
		genDir, err := ResolveCurrent(langDir, lang)
		if err != nil {
			return nil, err
		}
		gen, err := openDir(ctx, genDir, lang, opts)
		if err == nil {
			return gen, nil
		}
		lastErr = err
		if _, statErr := os.Stat(genDir); statErr == nil {
			break
		}
	}
	return nil, lastErr
}

func openDir(ctx context.Context, genDir string, lang hymn.Language, opts OpenOptions) (*Generation, error) {
	m, err := ReadManifest(genDir)
	if err != nil {
		return nil, err
	}
	if m.Language != lang {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "manifest language does not match index directory", nil).
			WithDetail("dir", genDir)
	}

	var vectors store.VectorStore
	switch m.Backend {
	case BackendPGVector:
		if opts.PostgresURL == "" {
			return nil, errors.ConfigError("index was built with pgvector but store.postgres_url is not set", nil)
		}
		vectors, err = store.NewPGVectorStore(ctx, opts.PostgresURL, lang.String(), m.Generation, m.Dimensions)
	default:
		vectors, err = store.LoadHNSWStore(filepath.Join(genDir, VectorFile), opts.EfSearch)
	}
	if err != nil {
		return nil, err
	}

	catalog, err := store.OpenCatalog(filepath.Join(genDir, CatalogFile))
	if err != nil {
		_ = vectors.Close()
		return nil, err
	}

	return &Generation{Dir: genDir, Manifest: m, Vectors: vectors, Catalog: catalog}, nil
}

// Close releases the vector store and catalog.
func (g *Generation) Close() error {
	verr := g.Vectors.Close()
	cerr := g.Catalog.Close()
	if verr != nil {
		return verr
	}
	return cerr
}
