// Package catalog keeps an informational SQLite ledger of ingested documents
// and index builds. Retrieval never reads it.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNoBuild is returned by LatestBuild before any build was recorded.
var ErrNoBuild = errors.New("no index build recorded")

// Document is one row of the documents table.
type Document struct {
	Name       string
	CachePath  string
	SHA256     string
	Words      int
	IngestedAt time.Time
}

// Build is one row of the builds table.
type Build struct {
	ID        string
	BuiltAt   time.Time
	Documents int
	Chunks    int
	Dimension int
	Embedder  string
}

// Catalog is a SQLite-backed ledger.
type Catalog struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	name        TEXT PRIMARY KEY,
	cache_path  TEXT NOT NULL,
	sha256      TEXT NOT NULL,
	words       INTEGER NOT NULL,
	ingested_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS builds (
	id        TEXT PRIMARY KEY,
	built_at  TEXT NOT NULL,
	documents INTEGER NOT NULL,
	chunks    INTEGER NOT NULL,
	dimension INTEGER NOT NULL,
	embedder  TEXT NOT NULL
);
`

// Open opens or creates the catalog database at path.
func Open(path string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}
	return &Catalog{db: db, path: path}, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error { return c.db.Close() }

// Path returns the database file path.
func (c *Catalog) Path() string { return c.path }

// RecordDocument inserts or replaces the row for d.Name.
func (c *Catalog) RecordDocument(ctx context.Context, d Document) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO documents (name, cache_path, sha256, words, ingested_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			cache_path = excluded.cache_path,
			sha256 = excluded.sha256,
			words = excluded.words,
			ingested_at = excluded.ingested_at
	`, d.Name, d.CachePath, d.SHA256, d.Words, formatTime(d.IngestedAt))
	if err != nil {
		return fmt.Errorf("recording document %s: %w", d.Name, err)
	}
	return nil
}

// Documents lists recorded documents ordered by name.
func (c *Catalog) Documents(ctx context.Context) ([]Document, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, cache_path, sha256, words, ingested_at
		FROM documents ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var at string
		if err := rows.Scan(&d.Name, &d.CachePath, &d.SHA256, &d.Words, &at); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if d.IngestedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// RecordBuild appends a build row.
func (c *Catalog) RecordBuild(ctx context.Context, b Build) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO builds (id, built_at, documents, chunks, dimension, embedder)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.ID, formatTime(b.BuiltAt), b.Documents, b.Chunks, b.Dimension, b.Embedder)
	if err != nil {
		return fmt.Errorf("recording build %s: %w", b.ID, err)
	}
	return nil
}

// LatestBuild returns the most recently recorded build.
func (c *Catalog) LatestBuild(ctx context.Context) (*Build, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, built_at, documents, chunks, dimension, embedder
		FROM builds ORDER BY built_at DESC, rowid DESC LIMIT 1
	`)
	var b Build
	var at string
	err := row.Scan(&b.ID, &at, &b.Documents, &b.Chunks, &b.Dimension, &b.Embedder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoBuild
	}
	if err != nil {
		return nil, fmt.Errorf("reading latest build: %w", err)
	}
	if b.BuiltAt, err = parseTime(at); err != nil {
		return nil, err
	}
	return &b, nil
}

// timeLayout sorts lexically in time order for UTC values.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing catalog timestamp %q: %w", s, err)
	}
	return t, nil
}
