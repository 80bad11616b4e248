// Package telemetry records query statistics for tuning the hymn indexes.
// All data stays in a local SQLite file; nothing is reported anywhere.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP50   LatencyBucket = "p50"   // <50ms
	BucketP250  LatencyBucket = "p250"  // 50-250ms
	BucketP1000 LatencyBucket = "p1000" // 250ms-1s
	BucketP5000 LatencyBucket = "p5000" // 1-5s
	BucketSlow  LatencyBucket = "slow"  // >=5s
)

// LatencyToBucket converts a duration to its histogram bucket.
// Asks include the completion call, hence the wide upper buckets.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 50:
		return BucketP50
	case ms < 250:
		return BucketP250
	case ms < 1000:
		return BucketP1000
	case ms < 5000:
		return BucketP5000
	default:
		return BucketSlow
	}
}

// QueryEvent is one answered query.
type QueryEvent struct {
	Query       string
	Language    hymn.Language
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult reports a query that matched nothing.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int
	size     int
	capacity int
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item to the buffer. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// ExtractTerms lowercases query and keeps words of at least three runes.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, `.,;:!?"'()`)
		if utf8.RuneCountInString(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// ZeroResultQuery is a query that matched nothing.
type ZeroResultQuery struct {
	Query     string    `json:"query"`
	Language  string    `json:"language"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is an immutable view of the collected metrics.
type Snapshot struct {
	LanguageCounts      map[string]int64        `json:"language_counts"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []ZeroResultQuery       `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// DailyCounts are the per-day aggregates added by one flush.
type DailyCounts struct {
	Languages   map[string]int64
	ZeroResults map[string]int64
	Latencies   map[LatencyBucket]int64
}

// Store persists flushed metrics.
type Store interface {
	// AddDaily adds one flush worth of counts to date.
	AddDaily(date string, d DailyCounts) error

	// AddTerms adds to the term frequency counts.
	AddTerms(terms map[string]int64) error

	// AddZeroResults appends zero-result queries, keeping the newest.
	AddZeroResults(queries []ZeroResultQuery) error

	// Summary reads the stored metrics for [from, to].
	Summary(from, to string, limit int) (*Snapshot, error)

	Close() error
}

// Config configures the collector.
type Config struct {
	TopTermsCapacity    int
	ZeroResultsCapacity int
	RecentCapacity      int
	// FlushInterval is the auto-flush period (0 = flush only on Close).
	FlushInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopTermsCapacity:    200,
		ZeroResultsCapacity: 100,
		RecentCapacity:      500,
		FlushInterval:       time.Minute,
	}
}

// pending holds what was recorded since the last flush, so a flush adds
// each query to the store exactly once.
type pending struct {
	daily DailyCounts
	terms map[string]int64
	zero  []ZeroResultQuery
}

func newPending() pending {
	return pending{
		daily: DailyCounts{
			Languages:   make(map[string]int64),
			ZeroResults: make(map[string]int64),
			Latencies:   make(map[LatencyBucket]int64),
		},
		terms: make(map[string]int64),
	}
}

// QueryMetrics collects query telemetry. Safe for concurrent use.
type QueryMetrics struct {
	mu sync.Mutex

	languages       map[string]int64
	latencies       map[LatencyBucket]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[ZeroResultQuery]
	recent          *lru.Cache[string, struct{}]
	totalQueries    int64
	zeroResultCount int64
	repeats         int64
	startTime       time.Time
	pending         pending

	store  Store
	config Config
	stopCh chan struct{}
	done   chan struct{}
	closed bool
}

// New creates a collector. A nil store keeps metrics in memory only.
func New(store Store, cfg Config) *QueryMetrics {
	def := DefaultConfig()
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = def.TopTermsCapacity
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = def.ZeroResultsCapacity
	}
	if cfg.RecentCapacity <= 0 {
		cfg.RecentCapacity = def.RecentCapacity
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentCapacity)

	m := &QueryMetrics{
		languages:   make(map[string]int64),
		latencies:   make(map[LatencyBucket]int64),
		topTerms:    topTerms,
		zeroResults: NewCircularBuffer[ZeroResultQuery](cfg.ZeroResultsCapacity),
		recent:      recent,
		startTime:   time.Now(),
		pending:     newPending(),
		store:       store,
		config:      cfg,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}

	if cfg.FlushInterval > 0 && store != nil {
		go m.flushLoop()
	} else {
		close(m.done)
	}
	return m
}

func (m *QueryMetrics) flushLoop() {
	defer close(m.done)
	ticker := time.NewTicker(m.config.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := m.Flush(); err != nil {
				slog.Warn("telemetry_flush_failed", slog.String("error", err.Error()))
			}
		case <-m.stopCh:
			return
		}
	}
}

// Record captures one query. It never blocks on the store.
func (m *QueryMetrics) Record(event QueryEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	lang := event.Language.String()
	bucket := LatencyToBucket(event.Latency)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.totalQueries++
	m.languages[lang]++
	m.latencies[bucket]++
	m.pending.daily.Languages[lang]++
	m.pending.daily.Latencies[bucket]++

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
		m.pending.terms[term]++
	}

	if event.IsZeroResult() {
		z := ZeroResultQuery{Query: event.Query, Language: lang, Timestamp: event.Timestamp}
		m.zeroResults.Add(z)
		m.pending.zero = append(m.pending.zero, z)
		m.pending.daily.ZeroResults[lang]++
		m.zeroResultCount++
	}

	key := hashQuery(lang, event.Query)
	if _, seen := m.recent.Get(key); seen {
		m.repeats++
	}
	m.recent.Add(key, struct{}{})
}

// hashQuery keys a normalized query for repeat detection.
func hashQuery(lang, query string) string {
	normalized := lang + "\x00" + strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

// Snapshot returns the in-memory metrics of this process.
func (m *QueryMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Snapshot{
		LanguageCounts:      make(map[string]int64, len(m.languages)),
		LatencyDistribution: make(map[LatencyBucket]int64, len(m.latencies)),
		ZeroResultQueries:   m.zeroResults.Items(),
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		ExactRepeatCount:    m.repeats,
		Since:               m.startTime,
	}
	for k, v := range m.languages {
		s.LanguageCounts[k] = v
	}
	for k, v := range m.latencies {
		s.LatencyDistribution[k] = v
	}
	for _, term := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(term); ok {
			s.TopTerms = append(s.TopTerms, TermCount{Term: term, Count: count})
		}
	}
	sort.SliceStable(s.TopTerms, func(i, j int) bool {
		if s.TopTerms[i].Count != s.TopTerms[j].Count {
			return s.TopTerms[i].Count > s.TopTerms[j].Count
		}
		return s.TopTerms[i].Term < s.TopTerms[j].Term
	})
	return s
}

// Flush writes everything recorded since the last flush to the store.
// On failure the batch is dropped rather than double counted later.
func (m *QueryMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	batch := m.pending
	m.pending = newPending()
	m.mu.Unlock()

	if len(batch.daily.Languages) == 0 {
		return nil
	}

	today := time.Now().Format(DateLayout)
	if err := m.store.AddDaily(today, batch.daily); err != nil {
		return err
	}
	if err := m.store.AddTerms(batch.terms); err != nil {
		return err
	}
	return m.store.AddZeroResults(batch.zero)
}

// Close stops auto-flush, flushes, and closes the store.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopCh)
	<-m.done

	err := m.Flush()
	if m.store != nil {
		if cerr := m.store.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
