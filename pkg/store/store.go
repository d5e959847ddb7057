// Package store persists generated lecture notes.
//
// A [Document] is one finished generation: the notes tree plus the
// transcript hash and model it came from. [Store] has three backends:
// [SQLite] for single-node and CLI use, [Mongo] for shared deployments and
// [Memory] for tests and ephemeral servers. [Open] picks one from a [Config].
package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/notes"
)

// Document is a stored set of lecture notes.
type Document struct {
	ID             string            `json:"id" bson:"_id"`
	Title          string            `json:"title" bson:"title"`
	TranscriptHash string            `json:"transcript_hash,omitempty" bson:"transcript_hash,omitempty"`
	Provider       string            `json:"provider,omitempty" bson:"provider,omitempty"`
	Model          string            `json:"model,omitempty" bson:"model,omitempty"`
	Note           notes.LectureNote `json:"note" bson:"note"`
	CreatedAt      time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" bson:"updated_at"`
}

// Store persists documents. Implementations are safe for concurrent use.
type Store interface {
	// Save inserts a new document. An empty ID is replaced with a UUID and
	// both timestamps are set.
	Save(ctx context.Context, doc *Document) error
	// Get returns a document or a DOCUMENT_NOT_FOUND error.
	Get(ctx context.Context, id string) (*Document, error)
	// List returns up to limit documents, most recently created first.
	// A limit <= 0 means DefaultListLimit.
	List(ctx context.Context, limit int) ([]Document, error)
	// Update replaces the title and notes of an existing document and bumps
	// UpdatedAt. It fails with CONFLICT when the stored UpdatedAt no longer
	// equals doc.UpdatedAt, i.e. someone else updated it since doc was read.
	Update(ctx context.Context, doc *Document) error
	// Delete removes a document.
	Delete(ctx context.Context, id string) error
	// Close releases the backend.
	Close() error
}

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

// now is the clock used for timestamps, truncated to what every backend
// can round-trip.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// prepareNew fills in the ID and timestamps of a document being saved.
func prepareNew(doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if err := errors.ValidateIdentifier(doc.ID); err != nil {
		return err
	}
	doc.Title = strings.TrimSpace(doc.Title)
	doc.CreatedAt = now()
	doc.UpdatedAt = doc.CreatedAt
	return nil
}

// nextUpdate is the UpdatedAt written over prev. It is strictly later so
// that two updates within one clock tick still differ.
func nextUpdate(prev time.Time) time.Time {
	t := now()
	if !t.After(prev) {
		t = prev.Add(time.Millisecond)
	}
	return t
}

func conflict(id string) error {
	return errors.New(errors.ErrCodeConflict, "document %q was modified concurrently", id)
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeDocumentNotFound, "document %q not found", id)
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// Title derives a document title from the notes when none was given: the
// first sentence of the summary, shortened to a readable length.
func Title(n *notes.LectureNote) string {
	s := strings.TrimSpace(n.Summary)
	if i := strings.IndexAny(s, ".!?\n"); i > 0 {
		s = s[:i]
	}
	const maxLen = 80
	if r := []rune(s); len(r) > maxLen {
		s = strings.TrimSpace(string(r[:maxLen])) + "…"
	}
	if s == "" {
		return "Untitled lecture"
	}
	return s
}

// Config selects a backend.
type Config struct {
	// Backend is "sqlite", "mongo" or "memory".
	Backend string
	// Path is the SQLite database file.
	Path string
	// URI and Database locate the MongoDB collection.
	URI      string
	Database string
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "sqlite", "":
		return OpenSQLite(ctx, cfg.Path)
	case "mongo", "mongodb":
		return OpenMongo(ctx, cfg.URI, cfg.Database)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unknown store backend %q", cfg.Backend)
	}
}

// DefaultModifyAttempts bounds the retries of [Modify].
const DefaultModifyAttempts = 5

// Modify applies fn to the current version of a document and stores the
// result, re-reading and retrying when a concurrent update wins. fn may run
// more than once and must derive its changes from the document it is given.
func Modify(ctx context.Context, s Store, id string, fn func(*Document) error) (*Document, error) {
	var err error
	for range DefaultModifyAttempts {
		var doc *Document
		if doc, err = s.Get(ctx, id); err != nil {
			return nil, err
		}
		if err = fn(doc); err != nil {
			return nil, err
		}
		if err = s.Update(ctx, doc); err == nil {
			return doc, nil
		}
		if !errors.Is(err, errors.ErrCodeConflict) {
			return nil, err
		}
	}
	return nil, err
}
