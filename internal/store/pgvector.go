package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/Aman-CERP/choralmind/internal/errors"
)

// PGVectorStore keeps the vectors of one language generation in Postgres
// with the pgvector extension. Rows are scoped by (language, generation),
// so a new generation can be written while the previous one serves.
type PGVectorStore struct {
	pool       *pgxpool.Pool
	language   string
	generation string
	dims       int

	mu    sync.RWMutex
	count int
}

var _ VectorStore = (*PGVectorStore)(nil)

const pgSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS choralmind_vectors (
	language   TEXT NOT NULL,
	generation TEXT NOT NULL,
	vector_id  TEXT NOT NULL,
	embedding  vector NOT NULL,
	PRIMARY KEY (language, generation, vector_id)
);
`

// NewPGVectorStore connects to Postgres and ensures the schema exists.
func NewPGVectorStore(ctx context.Context, connStr, language, generation string, dims int) (*PGVectorStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, errors.ConfigError("invalid postgres url", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.ProviderError("failed to connect to postgres", err).
			WithSuggestion("Check store.postgres_url and that the pgvector extension is installed")
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize pgvector schema: %w", err)
	}

	s := &PGVectorStore{pool: pool, language: language, generation: generation, dims: dims}
	if err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM choralmind_vectors WHERE language = $1 AND generation = $2`,
		language, generation).Scan(&s.count); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to count vectors: %w", err)
	}
	return s, nil
}

// Add inserts vectors with a single batch round trip.
func (s *PGVectorStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return errors.InternalError(fmt.Sprintf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors)), nil)
	}
	if len(ids) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, id := range ids {
		if len(vectors[i]) != s.dims {
			return dimensionMismatch(s.dims, len(vectors[i]))
		}
		batch.Queue(
			`INSERT INTO choralmind_vectors (language, generation, vector_id, embedding) VALUES ($1, $2, $3, $4)`,
			s.language, s.generation, id, pgvector.NewVector(vectors[i]))
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert vectors: %w", err)
	}

	s.mu.Lock()
	s.count += len(ids)
	s.mu.Unlock()
	return nil
}

// Search orders rows by cosine distance (<=>), closest first.
func (s *PGVectorStore) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != s.dims {
		return nil, dimensionMismatch(s.dims, len(query))
	}
	if k <= 0 {
		return []*VectorResult{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT vector_id, embedding <=> $1 AS distance
		FROM choralmind_vectors
		WHERE language = $2 AND generation = $3
		ORDER BY embedding <=> $1, vector_id
		LIMIT $4`,
		pgvector.NewVector(query), s.language, s.generation, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	defer rows.Close()

	results := make([]*VectorResult, 0, k)
	for rows.Next() {
		var r VectorResult
		var distance float64
		if err := rows.Scan(&r.ID, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan vector row: %w", err)
		}
		r.Distance = float32(distance)
		r.Score = distanceToScore(r.Distance, MetricCosine)
		results = append(results, &r)
	}
	return results, rows.Err()
}

// PruneGenerations deletes every other generation of this language.
func (s *PGVectorStore) PruneGenerations(ctx context.Context) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM choralmind_vectors WHERE language = $1 AND generation <> $2`,
		s.language, s.generation)
	if err != nil {
		return fmt.Errorf("failed to prune generations: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		slog.Info("pgvector_generations_pruned",
			slog.String("language", s.language),
			slog.Int64("rows", n))
	}
	return nil
}

// Drop deletes this generation's rows (used when a build fails).
func (s *PGVectorStore) Drop(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM choralmind_vectors WHERE language = $1 AND generation = $2`,
		s.language, s.generation)
	return err
}

// Count returns number of vectors.
func (s *PGVectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Dimensions returns the vector dimension.
func (s *PGVectorStore) Dimensions() int {
	return s.dims
}

// Close closes the connection pool.
func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return nil
}
