package tutor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS videos (
	position INTEGER NOT NULL,
	id       TEXT    NOT NULL PRIMARY KEY,
	record   TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS catalog_metadata (
	singleton INTEGER NOT NULL PRIMARY KEY CHECK (singleton = 1),
	metadata  TEXT    NOT NULL
);`

// SQLiteStore keeps a catalog document in an SQLite database. Records are
// stored as JSON, ordered by their position in the document.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("catalog: sqlite mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog: sqlite open: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("catalog: sqlite %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load implements Source.Load.
func (s *SQLiteStore) Load(ctx context.Context) (*Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM videos ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("catalog: sqlite query: %w", err)
	}
	defer rows.Close()

	doc := &Document{Videos: []Record{}}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("catalog: sqlite scan: %w", err)
		}
		var r Record
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("catalog: sqlite decode record: %w", err)
		}
		doc.Videos = append(doc.Videos, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: sqlite rows: %w", err)
	}

	var rawMeta string
	err = s.db.QueryRowContext(ctx, `SELECT metadata FROM catalog_metadata WHERE singleton = 1`).Scan(&rawMeta)
	switch {
	case err == sql.ErrNoRows:
		doc.Metadata = Metadata{TotalVideos: len(doc.Videos)}
	case err != nil:
		return nil, fmt.Errorf("catalog: sqlite metadata: %w", err)
	default:
		if err := json.Unmarshal([]byte(rawMeta), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("catalog: sqlite decode metadata: %w", err)
		}
	}
	return doc, nil
}

// Save replaces the stored catalog with doc in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, doc *Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM videos`); err != nil {
		return fmt.Errorf("catalog: sqlite clear: %w", err)
	}
	for i, r := range doc.Videos {
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("catalog: sqlite encode %q: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO videos (position, id, record) VALUES (?, ?, ?)`,
			i, r.ID, string(raw)); err != nil {
			return fmt.Errorf("catalog: sqlite insert %q: %w", r.ID, err)
		}
	}

	meta := doc.Metadata
	if meta.LastUpdated == "" {
		meta.LastUpdated = Timestamp(time.Now())
	}
	meta.TotalVideos = len(doc.Videos)
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("catalog: sqlite encode metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_metadata (singleton, metadata) VALUES (1, ?)
		 ON CONFLICT(singleton) DO UPDATE SET metadata = excluded.metadata`,
		string(rawMeta)); err != nil {
		return fmt.Errorf("catalog: sqlite upsert metadata: %w", err)
	}

	return tx.Commit()
}
