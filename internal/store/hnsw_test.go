package store

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/choralmind/internal/errors"
)

func newTestStore(t *testing.T, dims int) *HNSWStore {
	t.Helper()
	s, err := NewHNSWStore(DefaultVectorStoreConfig(dims))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHNSWStore_AddAndSearch(t *testing.T) {
	// Given: vectors a=[1,0,0,0], b=[0,1,0,0], c=[0.9,0.1,0,0]
	s := newTestStore(t, 4)
	err := s.Add(context.Background(), []string{"0:0", "1:0", "2:0"}, [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0.9, 0.1, 0, 0},
	})
	require.NoError(t, err)

	// When: searching for [1,0,0,0] with k=2
	results, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)

	// Then: the exact match comes first, then the near one
	require.Len(t, results, 2)
	assert.Equal(t, "0:0", results[0].ID)
	assert.Equal(t, "2:0", results[1].ID)
	assert.Greater(t, results[0].Score, float32(0.99))
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
}

func TestHNSWStore_ResultsAscendingDistance(t *testing.T) {
	// Given: twenty vectors at increasing angles from the x axis
	s := newTestStore(t, 2)
	ids := make([]string, 20)
	vecs := make([][]float32, 20)
	for i := range ids {
		angle := float64(i) * math.Pi / 40
		ids[i] = fmt.Sprintf("%d:0", i)
		vecs[i] = []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
	}
	require.NoError(t, s.Add(context.Background(), ids, vecs))

	// When: searching with k larger than the store
	results, err := s.Search(context.Background(), []float32{1, 0}, 50)
	require.NoError(t, err)

	// Then: results come back best first
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 20)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
	assert.Equal(t, "0:0", results[0].ID)
}

func TestHNSWStore_DuplicateIDRejected(t *testing.T) {
	s := newTestStore(t, 4)
	require.NoError(t, s.Add(context.Background(), []string{"a"}, [][]float32{{1, 0, 0, 0}}))

	err := s.Add(context.Background(), []string{"a"}, [][]float32{{0, 1, 0, 0}})

	assert.Error(t, err)
	assert.Equal(t, 1, s.Count())
}

func TestHNSWStore_SaveAndLoad(t *testing.T) {
	// Given: a saved store
	path := filepath.Join(t.TempDir(), "gen", "index.hnsw")
	s := newTestStore(t, 4)
	require.NoError(t, s.Add(context.Background(), []string{"a", "b"}, [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
	}))
	require.NoError(t, s.Save(path))

	// When: loading it back
	loaded, err := LoadHNSWStore(path, 0)
	require.NoError(t, err)
	defer func() { _ = loaded.Close() }()

	// Then: contents and search results match
	assert.Equal(t, 2, loaded.Count())
	assert.Equal(t, 4, loaded.Dimensions())
	assert.True(t, loaded.Contains("a"))
	results, err := loaded.Search(context.Background(), []float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)

	// And: no temp files are left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestHNSWStore_EveryStoredVectorFindsItself(t *testing.T) {
	// Given: a thousand random 384-dimensional vectors, saved and reloaded
	const n, dims = 1000, 384
	rng := rand.New(rand.NewSource(7))
	ids := make([]string, n)
	vecs := make([][]float32, n)
	for i := range vecs {
		ids[i] = fmt.Sprintf("%d:0", i)
		vecs[i] = make([]float32, dims)
		for j := range vecs[i] {
			vecs[i][j] = rng.Float32()*2 - 1
		}
	}
	s := newTestStore(t, dims)
	require.NoError(t, s.Add(context.Background(), ids, vecs))

	path := filepath.Join(t.TempDir(), "index.hnsw")
	require.NoError(t, s.Save(path))
	loaded, err := LoadHNSWStore(path, 0)
	require.NoError(t, err)
	defer func() { _ = loaded.Close() }()

	for name, store := range map[string]*HNSWStore{"built": s, "loaded": loaded} {
		// When: each stored vector is used as the query
		missed := 0
		for i, v := range vecs {
			results, err := store.Search(context.Background(), v, 3)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			if results[0].ID != ids[i] {
				missed++
			}
		}

		// Then: every vector is its own nearest neighbour
		assert.Zero(t, missed, "%s store", name)
	}
}

func TestLoadHNSWStore_Missing(t *testing.T) {
	_, err := LoadHNSWStore(filepath.Join(t.TempDir(), "index.hnsw"), 0)

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCorruptIndex))
}

func TestLoadHNSWStore_CorruptMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.hnsw")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(path+".meta", []byte("not gob"), 0o644))

	_, err := LoadHNSWStore(path, 0)

	assert.True(t, errors.HasCode(err, errors.ErrCodeCorruptIndex))
}

func TestHNSWStore_EmptySearch(t *testing.T) {
	s := newTestStore(t, 4)

	results, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, 10)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWStore_ZeroQueryHasNoNeighbours(t *testing.T) {
	s := newTestStore(t, 4)
	require.NoError(t, s.Add(context.Background(), []string{"a"}, [][]float32{{1, 0, 0, 0}}))

	results, err := s.Search(context.Background(), []float32{0, 0, 0, 0}, 3)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWStore_DimensionMismatch(t *testing.T) {
	s := newTestStore(t, 768)

	err := s.Add(context.Background(), []string{"a"}, [][]float32{make([]float32, 256)})
	assert.True(t, errors.HasCode(err, errors.ErrCodeDimensionMismatch))

	_, err = s.Search(context.Background(), make([]float32, 256), 1)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDimensionMismatch))
}

func TestHNSWStore_MismatchedIDsAndVectors(t *testing.T) {
	s := newTestStore(t, 4)

	err := s.Add(context.Background(), []string{"a", "b"}, [][]float32{{1, 0, 0, 0}})

	assert.Error(t, err)
}

func TestHNSWStore_InvalidDimensions(t *testing.T) {
	_, err := NewHNSWStore(DefaultVectorStoreConfig(0))
	assert.Error(t, err)
}

func TestHNSWStore_Closed(t *testing.T) {
	s, err := NewHNSWStore(DefaultVectorStoreConfig(4))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Zero(t, s.Count())
	assert.False(t, s.Contains("a"))
	_, err = s.Search(context.Background(), []float32{1, 0, 0, 0}, 1)
	assert.Error(t, err)
	assert.Error(t, s.Add(context.Background(), []string{"a"}, [][]float32{{1, 0, 0, 0}}))
	assert.Error(t, s.Save(filepath.Join(t.TempDir(), "x.hnsw")))
}

func TestHNSWStore_ConcurrentSearch(t *testing.T) {
	// Given: a filled store
	s := newTestStore(t, 8)
	for i := range 50 {
		vec := make([]float32, 8)
		vec[i%8] = 1
		vec[(i+3)%8] = float32(i) / 50
		require.NoError(t, s.Add(context.Background(), []string{fmt.Sprintf("%d:0", i)}, [][]float32{vec}))
	}

	// When: many goroutines search at once
	var wg sync.WaitGroup
	for g := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := make([]float32, 8)
			q[g%8] = 1
			results, err := s.Search(context.Background(), q, 3)
			// Then: every search succeeds
			assert.NoError(t, err)
			assert.Len(t, results, 3)
		}()
	}
	wg.Wait()
}

func TestNormalizeVectorInPlace(t *testing.T) {
	v := []float32{3, 4}
	assert.True(t, normalizeVectorInPlace(v))
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	assert.False(t, normalizeVectorInPlace(zero))
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestDistanceToScore(t *testing.T) {
	assert.InDelta(t, 1.0, distanceToScore(0, MetricCosine), 1e-6)
	assert.InDelta(t, 0.5, distanceToScore(1, MetricCosine), 1e-6)
	assert.InDelta(t, 0.0, distanceToScore(2, MetricCosine), 1e-6)
	assert.InDelta(t, 0.5, distanceToScore(1, MetricL2), 1e-6)
}
