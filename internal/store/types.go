// Package store persists hymn vectors, chunk metadata and the hymn corpus.
package store

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/choralmind/internal/errors"
)

// Metric names a distance function.
const (
	MetricCosine = "cos"
	MetricL2     = "l2"
)

// VectorResult represents a single vector search result.
type VectorResult struct {
	ID       string  // Vector ID "<hymn_id>:<chunk_id>"
	Distance float32 // Lower is more similar (0-2 for cosine)
	Score    float32 // Normalized similarity (0-1)
}

// VectorStoreConfig configures the vector store.
type VectorStoreConfig struct {
	// Dimensions is the vector dimension (768 for nomic-embed-text, 256 for static)
	Dimensions int

	// Metric is the distance metric: "cos" (cosine), "l2" (euclidean) (default: "cos")
	Metric string

	// M is HNSW max connections per layer (default: 16)
	M int

	// EfSearch is HNSW query-time search width (default: 64)
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible defaults for vector store.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		Metric:     MetricCosine,
		M:          16,
		EfSearch:   64,
	}
}

// VectorStore holds the vectors of one language index.
// Results are always ordered best-first (ascending distance).
type VectorStore interface {
	// Add inserts vectors with their IDs.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds the k nearest neighbours of query.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Count returns number of vectors.
	Count() int

	// Dimensions returns the vector dimension.
	Dimensions() int

	// Close releases resources.
	Close() error
}

func dimensionMismatch(expected, got int) error {
	return errors.New(errors.ErrCodeDimensionMismatch,
		fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, got), nil).
		WithSuggestion("Re-run 'choralmind ingest' with the current embedding model")
}

// distanceToScore converts a distance value to a similarity score.
// For cosine distance: score = 1 - distance/2 (distance ranges 0-2)
// For L2 distance: score = 1 / (1 + distance)
func distanceToScore(distance float32, metric string) float32 {
	if metric == MetricL2 {
		return 1.0 / (1.0 + distance)
	}
	return 1.0 - distance/2.0
}
