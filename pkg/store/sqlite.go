package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"

	"github.com/matzehuels/scribetree/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SQLite stores documents in a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) the database at path, creating parent
// directories as needed. ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "sqlite store needs a database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id              TEXT PRIMARY KEY,
			title           TEXT NOT NULL DEFAULT '',
			transcript_hash TEXT NOT NULL DEFAULT '',
			provider        TEXT NOT NULL DEFAULT '',
			model           TEXT NOT NULL DEFAULT '',
			note            TEXT NOT NULL,
			created_at      INTEGER NOT NULL,
			updated_at      INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_documents_transcript ON documents(transcript_hash);
	`)
	return err
}

func (s *SQLite) Save(ctx context.Context, doc *Document) error {
	if err := prepareNew(doc); err != nil {
		return err
	}
	note, err := json.Marshal(doc.Note)
	if err != nil {
		return fmt.Errorf("store: marshal note: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, transcript_hash, provider, model, note, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.TranscriptHash, doc.Provider, doc.Model, string(note),
		doc.CreatedAt.UnixMilli(), doc.UpdatedAt.UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return errors.New(errors.ErrCodeInvalidInput, "document %q already exists", doc.ID)
		}
		return fmt.Errorf("store: insert: %w", err)
	}
	return nil
}

const selectDocument = `SELECT id, title, transcript_hash, provider, model, note, created_at, updated_at FROM documents`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var (
		doc              Document
		note             string
		created, updated int64
	)
	if err := row.Scan(&doc.ID, &doc.Title, &doc.TranscriptHash, &doc.Provider, &doc.Model, &note, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.UnmarshalFromString(note, &doc.Note); err != nil {
		return nil, fmt.Errorf("store: decode note %s: %w", doc.ID, err)
	}
	doc.CreatedAt = time.UnixMilli(created).UTC()
	doc.UpdatedAt = time.UnixMilli(updated).UTC()
	return &doc, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx, selectDocument+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return doc, nil
}

func (s *SQLite) List(ctx context.Context, limit int) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, selectDocument+` ORDER BY created_at DESC, id ASC LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (s *SQLite) Update(ctx context.Context, doc *Document) error {
	note, err := json.Marshal(doc.Note)
	if err != nil {
		return fmt.Errorf("store: marshal note: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET title = ?, note = ?, updated_at = ? WHERE id = ? AND updated_at = ?`,
		doc.Title, string(note), nextUpdate(doc.UpdatedAt).UnixMilli(), doc.ID, doc.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("store: update %s: %w", doc.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.Get(ctx, doc.ID); err != nil {
			return err
		}
		return conflict(doc.ID)
	}
	cur, err := s.Get(ctx, doc.ID)
	if err != nil {
		return err
	}
	*doc = *cur
	return nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(id)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLite)(nil)
