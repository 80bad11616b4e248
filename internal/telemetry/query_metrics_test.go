package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{5 * time.Millisecond, BucketP50},
		{50 * time.Millisecond, BucketP250},
		{300 * time.Millisecond, BucketP1000},
		{2 * time.Second, BucketP5000},
		{9 * time.Second, BucketSlow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.latency), tt.latency.String())
	}
}

func TestExtractTerms(t *testing.T) {
	assert.Equal(t, []string{"abide", "with", "eventide"}, ExtractTerms("Abide WITH me, eventide!"))
	assert.Equal(t, []string{"olúwa", "ọba"}, ExtractTerms("Olúwa Ọba o"))
	assert.Nil(t, ExtractTerms("   "))
}

func TestCircularBuffer_EvictsOldest(t *testing.T) {
	b := NewCircularBuffer[int](3)
	for i := 1; i <= 5; i++ {
		b.Add(i)
	}
	assert.Equal(t, 3, b.Size())
	assert.Equal(t, []int{3, 4, 5}, b.Items())
}

func TestQueryMetrics_RecordAndSnapshot(t *testing.T) {
	// Given: an in-memory collector
	m := New(nil, Config{})
	defer func() { _ = m.Close() }()

	// When: recording a mix of queries
	m.Record(QueryEvent{Query: "abide with me", Language: hymn.English, ResultCount: 3, Latency: 20 * time.Millisecond})
	m.Record(QueryEvent{Query: "Abide  with me", Language: hymn.English, ResultCount: 3, Latency: 20 * time.Millisecond})
	m.Record(QueryEvent{Query: "olorun oba", Language: hymn.Yoruba, ResultCount: 0, Latency: 2 * time.Second})

	// Then: counts are split by language and repeats are detected
	s := m.Snapshot()
	assert.Equal(t, int64(3), s.TotalQueries)
	assert.Equal(t, int64(2), s.LanguageCounts["english"])
	assert.Equal(t, int64(1), s.LanguageCounts["yoruba"])
	assert.Equal(t, int64(1), s.ZeroResultCount)
	assert.Equal(t, int64(1), s.ExactRepeatCount)
	assert.Equal(t, int64(2), s.LatencyDistribution[BucketP50])
	require.Len(t, s.ZeroResultQueries, 1)
	assert.Equal(t, "yoruba", s.ZeroResultQueries[0].Language)
	require.NotEmpty(t, s.TopTerms)
	assert.Equal(t, TermCount{Term: "abide", Count: 2}, s.TopTerms[0])
	assert.InDelta(t, 33.3, s.ZeroResultPercentage(), 0.1)
}

func TestQueryMetrics_ConcurrentRecord(t *testing.T) {
	m := New(nil, Config{})
	defer func() { _ = m.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(QueryEvent{Query: "rock of ages", Language: hymn.English, ResultCount: 1})
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(20), m.Snapshot().TotalQueries)
}

func TestQueryMetrics_RecordAfterCloseIgnored(t *testing.T) {
	m := New(nil, Config{})
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	m.Record(QueryEvent{Query: "late", Language: hymn.English})

	assert.Zero(t, m.Snapshot().TotalQueries)
}
