package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// FileName is the telemetry database inside the data directory.
const FileName = "telemetry.db"

// MaxZeroResults is the number of zero-result queries kept on disk.
const MaxZeroResults = 100

// DateLayout formats the per-day keys of the daily tables.
const DateLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS query_language_stats (
	date TEXT NOT NULL,
	language TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	zero_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, language)
);

CREATE TABLE IF NOT EXISTS query_terms (
	term TEXT PRIMARY KEY,
	count INTEGER NOT NULL DEFAULT 1,
	last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

CREATE TABLE IF NOT EXISTS zero_result_queries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	query TEXT NOT NULL,
	language TEXT NOT NULL,
	timestamp TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS query_latency_stats (
	date TEXT NOT NULL,
	bucket TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date, bucket)
);
`

// SQLiteStore implements Store on a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (creating if needed) the telemetry database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 2000", schema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init telemetry schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// AddDaily implements Store.
func (s *SQLiteStore) AddDaily(date string, d DailyCounts) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for lang, count := range d.Languages {
		if _, err := tx.Exec(`
			INSERT INTO query_language_stats (date, language, count, zero_count) VALUES (?, ?, ?, ?)
			ON CONFLICT(date, language) DO UPDATE SET
				count = count + excluded.count,
				zero_count = zero_count + excluded.zero_count
		`, date, lang, count, d.ZeroResults[lang]); err != nil {
			return fmt.Errorf("insert language count: %w", err)
		}
	}
	for bucket, count := range d.Latencies {
		if _, err := tx.Exec(`
			INSERT INTO query_latency_stats (date, bucket, count) VALUES (?, ?, ?)
			ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count
		`, date, string(bucket), count); err != nil {
			return fmt.Errorf("insert latency count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AddTerms implements Store.
func (s *SQLiteStore) AddTerms(terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO query_terms (term, count, last_seen) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(term) DO UPDATE SET count = count + excluded.count, last_seen = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for term, count := range terms {
		if _, err := stmt.Exec(term, count); err != nil {
			return fmt.Errorf("upsert term count: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AddZeroResults implements Store.
func (s *SQLiteStore) AddZeroResults(queries []ZeroResultQuery) error {
	if len(queries) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range queries {
		if _, err := tx.Exec(`INSERT INTO zero_result_queries (query, language, timestamp) VALUES (?, ?, ?)`,
			q.Query, q.Language, q.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert zero-result query: %w", err)
		}
	}
	if _, err := tx.Exec(`
		DELETE FROM zero_result_queries
		WHERE id NOT IN (SELECT id FROM zero_result_queries ORDER BY id DESC LIMIT ?)
	`, MaxZeroResults); err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Summary implements Store. Term counts and the zero-result query list
// are all-time; counts and latencies cover [from, to].
func (s *SQLiteStore) Summary(from, to string, limit int) (*Snapshot, error) {
	snap := &Snapshot{
		LanguageCounts:      make(map[string]int64),
		LatencyDistribution: make(map[LatencyBucket]int64),
	}

	rows, err := s.db.Query(`
		SELECT language, SUM(count), SUM(zero_count) FROM query_language_stats
		WHERE date >= ? AND date <= ? GROUP BY language
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query language counts: %w", err)
	}
	for rows.Next() {
		var lang string
		var count, zero int64
		if err := rows.Scan(&lang, &count, &zero); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.LanguageCounts[lang] = count
		snap.TotalQueries += count
		snap.ZeroResultCount += zero
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`
		SELECT bucket, SUM(count) FROM query_latency_stats
		WHERE date >= ? AND date <= ? GROUP BY bucket
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query latency counts: %w", err)
	}
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.LatencyDistribution[LatencyBucket(bucket)] = count
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT term, count FROM query_terms ORDER BY count DESC, term LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.TopTerms = append(snap.TopTerms, tc)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT query, language, timestamp FROM zero_result_queries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	for rows.Next() {
		var z ZeroResultQuery
		var ts string
		if err := rows.Scan(&z.Query, &z.Language, &ts); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		z.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		snap.ZeroResultQueries = append(snap.ZeroResultQueries, z)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	return snap, nil
}

func closeRows(rows *sql.Rows) error {
	err := rows.Err()
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
