package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// Catalog maps vector IDs back to chunk text and hymns. One catalog is
// written per index generation and is read-only once published.
type Catalog struct {
	db       *sql.DB
	path     string
	readOnly bool
}

const catalogSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS hymns (
	id     INTEGER PRIMARY KEY,
	number INTEGER NOT NULL DEFAULT 0,
	title  TEXT NOT NULL DEFAULT '',
	text   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	vector_id  TEXT PRIMARY KEY,
	hymn_id    INTEGER NOT NULL REFERENCES hymns(id),
	chunk_id   INTEGER NOT NULL,
	text       TEXT NOT NULL,
	start_rune INTEGER NOT NULL,
	end_rune   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_hymn ON chunks(hymn_id, chunk_id);

INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`

// CreateCatalog creates a new catalog at path. An existing file is replaced.
func CreateCatalog(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale catalog %s: %w", p, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = DELETE",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(catalogSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Catalog{db: db, path: path}, nil
}

// OpenCatalog opens a published catalog read-only and checks its integrity.
func OpenCatalog(path string) (*Catalog, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "catalog missing", err).WithDetail("path", path)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex, "failed to open catalog", err).WithDetail("path", path)
	}

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil || result != "ok" {
		_ = db.Close()
		if err == nil {
			err = fmt.Errorf("integrity check: %s", result)
		}
		return nil, errors.New(errors.ErrCodeCorruptIndex, "catalog is corrupted", err).WithDetail("path", path)
	}

	return &Catalog{db: db, path: path, readOnly: true}, nil
}

// PutHymns inserts the corpus records in one transaction.
func (c *Catalog) PutHymns(ctx context.Context, records []hymn.Record) error {
	return c.inTx(ctx, `INSERT INTO hymns (id, number, title, text) VALUES (?, ?, ?, ?)`,
		len(records), func(stmt *sql.Stmt, i int) error {
			r := records[i]
			_, err := stmt.ExecContext(ctx, r.ID, r.Number, r.Title, r.Text)
			return err
		})
}

// PutChunks inserts chunk metadata in one transaction.
func (c *Catalog) PutChunks(ctx context.Context, chunks []hymn.Chunk) error {
	return c.inTx(ctx, `INSERT INTO chunks (vector_id, hymn_id, chunk_id, text, start_rune, end_rune) VALUES (?, ?, ?, ?, ?, ?)`,
		len(chunks), func(stmt *sql.Stmt, i int) error {
			ch := chunks[i]
			_, err := stmt.ExecContext(ctx, ch.VectorID(), ch.HymnID, ch.Index, ch.Text, ch.Start, ch.End)
			return err
		})
}

func (c *Catalog) inTx(ctx context.Context, query string, n int, exec func(*sql.Stmt, int) error) error {
	if c.readOnly {
		return errors.InternalError("catalog is read-only", nil)
	}
	if n == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range n {
		if err := exec(stmt, i); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Chunk returns the chunk stored under vectorID.
func (c *Catalog) Chunk(ctx context.Context, vectorID string) (hymn.Chunk, error) {
	var ch hymn.Chunk
	err := c.db.QueryRowContext(ctx,
		`SELECT hymn_id, chunk_id, text, start_rune, end_rune FROM chunks WHERE vector_id = ?`, vectorID).
		Scan(&ch.HymnID, &ch.Index, &ch.Text, &ch.Start, &ch.End)
	if stderrors.Is(err, sql.ErrNoRows) {
		return ch, errors.New(errors.ErrCodeCorruptIndex, fmt.Sprintf("vector %s has no catalog entry", vectorID), nil)
	}
	if err != nil {
		return ch, fmt.Errorf("failed to read chunk %s: %w", vectorID, err)
	}
	return ch, nil
}

// Hymn returns the hymn record with the given id.
func (c *Catalog) Hymn(ctx context.Context, id int) (hymn.Record, error) {
	r := hymn.Record{ID: id}
	err := c.db.QueryRowContext(ctx, `SELECT number, title, text FROM hymns WHERE id = ?`, id).
		Scan(&r.Number, &r.Title, &r.Text)
	if stderrors.Is(err, sql.ErrNoRows) {
		return r, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("hymn %d not found", id), nil)
	}
	if err != nil {
		return r, fmt.Errorf("failed to read hymn %d: %w", id, err)
	}
	return r, nil
}

// Counts returns the number of hymns and chunks.
func (c *Catalog) Counts(ctx context.Context) (hymns, chunks int, err error) {
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hymns`).Scan(&hymns); err != nil {
		return 0, 0, fmt.Errorf("failed to count hymns: %w", err)
	}
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&chunks); err != nil {
		return 0, 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return hymns, chunks, nil
}

// Path returns the catalog file path.
func (c *Catalog) Path() string {
	return c.path
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
