package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/Aman-CERP/choralmind/internal/errors"
)

// ExactSearchLimit is the largest store searched by a full scan. Larger
// stores take candidates from the graph and re-rank them exactly.
const ExactSearchLimit = 20000

// candidateFactor widens the graph candidate set above ExactSearchLimit.
const candidateFactor = 8

// HNSWStore implements VectorStore using the coder/hnsw pure Go graph.
// A store is filled once during ingestion, saved, and then only read.
type HNSWStore struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config VectorStoreConfig

	// ID mapping (string <-> uint64)
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	closed bool
}

// hnswMetadata stores ID mappings for persistence.
type hnswMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Config  VectorStoreConfig
}

// NewHNSWStore creates a new HNSW-based vector store.
func NewHNSWStore(cfg VectorStoreConfig) (*HNSWStore, error) {
	if cfg.Dimensions <= 0 {
		return nil, errors.ValidationError(fmt.Sprintf("vector dimensions must be positive, got %d", cfg.Dimensions), nil)
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricCosine
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 64
	}

	return &HNSWStore{
		graph:  newGraph(cfg),
		config: cfg,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}, nil
}

func newGraph(cfg VectorStoreConfig) *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case MetricL2:
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25
	return graph
}

// Add inserts vectors with their IDs. Duplicate IDs are rejected; an index
// is always built from scratch.
func (s *HNSWStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return errors.InternalError(fmt.Sprintf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors)), nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.InternalError("store is closed", nil)
	}

	for _, v := range vectors {
		if len(v) != s.config.Dimensions {
			return dimensionMismatch(s.config.Dimensions, len(v))
		}
	}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, exists := s.idMap[id]; exists {
			return errors.InternalError(fmt.Sprintf("duplicate vector id %s", id), nil)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		if s.config.Metric == MetricCosine {
			normalizeVectorInPlace(vec)
		}

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[id] = key
		s.keyMap[key] = id
	}

	return nil
}

// Search finds the k nearest neighbours of query, closest first. Hymnal
// indexes are small, so below ExactSearchLimit every vector is scored
// and a query equal to a stored vector always ranks it first.
// A zero query vector has no meaningful neighbours and yields no results.
func (s *HNSWStore) Search(_ context.Context, query []float32, k int) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.InternalError("store is closed", nil)
	}
	if len(query) != s.config.Dimensions {
		return nil, dimensionMismatch(s.config.Dimensions, len(query))
	}
	if s.graph.Len() == 0 || k <= 0 {
		return []*VectorResult{}, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	if s.config.Metric == MetricCosine && !normalizeVectorInPlace(normalized) {
		return []*VectorResult{}, nil
	}

	var keys []uint64
	if len(s.keyMap) <= ExactSearchLimit {
		keys = make([]uint64, 0, len(s.keyMap))
		for key := range s.keyMap {
			keys = append(keys, key)
		}
	} else {
		// The graph only proposes candidates; ranking is always exact.
		for _, node := range s.graph.Search(normalized, max(k*candidateFactor, s.config.EfSearch)) {
			keys = append(keys, node.Key)
		}
	}

	return s.rank(normalized, keys, k), nil
}

// rank scores keys exactly against query and returns the k closest,
// ties broken by insertion order.
func (s *HNSWStore) rank(query []float32, keys []uint64, k int) []*VectorResult {
	type scored struct {
		key      uint64
		distance float32
	}
	candidates := make([]scored, 0, len(keys))
	for _, key := range keys {
		vec, ok := s.graph.Lookup(key)
		if !ok {
			continue
		}
		candidates = append(candidates, scored{key: key, distance: s.graph.Distance(query, vec)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].key < candidates[j].key
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]*VectorResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, &VectorResult{
			ID:       s.keyMap[c.key],
			Distance: c.distance,
			Score:    distanceToScore(c.distance, s.config.Metric),
		})
	}
	return results
}

// Contains checks if ID exists.
func (s *HNSWStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.idMap[id]
	return !s.closed && exists
}

// Count returns number of vectors.
func (s *HNSWStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	return len(s.idMap)
}

// Dimensions returns the vector dimension.
func (s *HNSWStore) Dimensions() int {
	return s.config.Dimensions
}

// Save persists the graph to path and the ID mappings to path+".meta".
// Both files are written to temp files and renamed into place.
func (s *HNSWStore) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.InternalError("store is closed", nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpIndexPath := path + ".tmp"
	file, err := os.Create(tmpIndexPath)
	if err != nil {
		return fmt.Errorf("failed to create index file: %w", err)
	}

	w := bufio.NewWriter(file)
	if err := s.graph.Export(w); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpIndexPath)
		return fmt.Errorf("failed to export graph: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpIndexPath)
		return fmt.Errorf("failed to flush index file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpIndexPath)
		return fmt.Errorf("failed to close index file: %w", err)
	}

	if err := os.Rename(tmpIndexPath, path); err != nil {
		_ = os.Remove(tmpIndexPath)
		return fmt.Errorf("failed to rename index file: %w", err)
	}

	if err := s.saveMetadata(path + ".meta"); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// saveMetadata saves ID mappings to a gob file.
func (s *HNSWStore) saveMetadata(path string) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp metadata file: %w", err)
	}

	meta := hnswMetadata{
		IDMap:   s.idMap,
		NextKey: s.nextKey,
		Config:  s.config,
	}

	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("failed to close temp file during cleanup", slog.String("error", closeErr.Error()))
		}
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode metadata: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close metadata file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// LoadHNSWStore opens a store previously written with Save.
// efSearch > 0 overrides the persisted search width.
func LoadHNSWStore(path string, efSearch int) (*HNSWStore, error) {
	meta, err := readMetadata(path + ".meta")
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to load vector metadata", err).
			WithDetail("path", path)
	}
	if efSearch > 0 {
		meta.Config.EfSearch = efSearch
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to open vector index", err).
			WithDetail("path", path)
	}
	defer func() { _ = file.Close() }()

	graph := newGraph(meta.Config)
	// coder/hnsw Import requires an io.ByteReader.
	if err := graph.Import(bufio.NewReader(file)); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to import vector graph", err).
			WithDetail("path", path)
	}

	s := &HNSWStore{
		graph:   graph,
		config:  meta.Config,
		idMap:   meta.IDMap,
		keyMap:  make(map[uint64]string, len(meta.IDMap)),
		nextKey: meta.NextKey,
	}
	for id, key := range s.idMap {
		s.keyMap[key] = id
	}
	return s, nil
}

// readMetadata loads ID mappings from a gob file.
func readMetadata(path string) (*hnswMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			slog.Warn("failed to close metadata file", slog.String("error", err.Error()))
		}
	}()

	var meta hnswMetadata
	if err := gob.NewDecoder(file).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode hnsw metadata: %w", err)
	}
	if meta.IDMap == nil {
		meta.IDMap = make(map[string]uint64)
	}
	return &meta, nil
}

// Close releases resources.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.graph = nil
	return nil
}

// Verify interface implementation
var _ VectorStore = (*HNSWStore)(nil)

// normalizeVectorInPlace normalizes a vector to unit length in place.
// It reports false for a zero vector, which is left unchanged.
func normalizeVectorInPlace(v []float32) bool {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return false
	}
	invMagnitude := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= invMagnitude
	}
	return true
}
