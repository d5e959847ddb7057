// Package pipeline provides the core notes pipeline for scribetree.
//
// This package implements the transcript → model stream → snapshot → layout
// pipeline used by the CLI, the HTTP API and the MCP tools. By centralizing
// this logic, every entry point streams, validates, caches and lays out notes
// the same way.
//
// # Architecture
//
// A generation runs in three stages:
//
//  1. Stream: the configured [llm.Provider] streams raw JSON text
//  2. Snapshot: each new text is repaired and decoded into an immutable
//     [notes.Snapshot]; unchanged decodes are dropped
//  3. Layout: every snapshot is laid out from scratch with [layout.Compute]
//
// The final object is validated against the notes schema, given ids where the
// model left them out, cached and emitted once more with Done set.
//
// # Usage
//
//	runner := pipeline.NewRunner(provider, cache, nil, logger)
//	result, err := runner.Generate(ctx, transcript, pipeline.Options{},
//	    func(u pipeline.Update) error {
//	        render(u.Layout)
//	        return nil
//	    })
//
// Expand a key point with the "know more" flow:
//
//	res, err := runner.Expand(ctx, result.Note, keyPointID, "selected text", pipeline.Options{}, nil)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/scribetree/pkg/cache"
	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/llm"
	"github.com/matzehuels/scribetree/pkg/notes"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and MCP
// =============================================================================

const (
	// DefaultMaxTokens bounds the model output of one generation.
	DefaultMaxTokens = llm.DefaultMaxTokens

	// DefaultExpandMaxTokens bounds the model output of one expansion.
	DefaultExpandMaxTokens = 2048

	// TTLNotes is how long finished notes stay cached.
	TTLNotes = 30 * 24 * time.Hour

	// TTLExpand is how long finished expansions stay cached.
	TTLExpand = 7 * 24 * time.Hour
)

// Kinds reported to observability hooks.
const (
	KindNotes  = "notes"
	KindExpand = "expand"
)

// =============================================================================
// Options
// =============================================================================

// Options configures one generation or expansion.
type Options struct {
	// MaxTokens bounds the model output. Zero uses the runner default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Refresh skips the cache lookup. The result is still cached.
	Refresh bool `json:"refresh,omitempty"`

	// Layout tunes the per-snapshot layout.
	Layout layout.Options `json:"-"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

func (o *Options) setDefaults(logger *log.Logger, maxTokens int) {
	if o.MaxTokens <= 0 {
		o.MaxTokens = maxTokens
	}
	if o.Logger == nil {
		o.Logger = logger
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Layout.MaxDepth <= 0 {
		o.Layout.MaxDepth = notes.DefaultMaxDepth
	}
}

// =============================================================================
// Results
// =============================================================================

// Update is emitted for every new snapshot of a generation.
type Update struct {
	Snapshot notes.Snapshot `json:"snapshot"`
	Layout   layout.Result  `json:"layout"`
}

// UpdateFunc receives updates in order. Returning an error cancels the
// generation.
type UpdateFunc func(Update) error

// Result is a finished generation.
type Result struct {
	// Note is the validated note with every key point id assigned.
	Note notes.LectureNote

	// Layout is the layout of Note.
	Layout layout.Result

	// TranscriptHash identifies the transcript the note was generated from.
	TranscriptHash string

	// Provider and Model name the model that produced the note.
	Provider string
	Model    string

	// Stats contains timing and size information.
	Stats Stats

	// CacheHit reports whether the note came from the cache.
	CacheHit bool
}

// Stats contains generation statistics.
type Stats struct {
	Snapshots  int
	NodeCount  int
	Depth      int
	Duration   time.Duration
	Duplicates []string // ids the model repeated; Result.Note holds them renamed
}

// ExpandResult is a finished expansion.
type ExpandResult struct {
	// Note is the input note with KeyPoint appended under the parent.
	Note notes.LectureNote

	// KeyPoint is the generated explanation.
	KeyPoint notes.KeyPoint

	// Layout is the layout of Note.
	Layout layout.Result

	CacheHit bool
}

// ModelKeyOpts returns cache key options for a provider.
func ModelKeyOpts(p llm.Provider) cache.ModelKeyOpts {
	return cache.ModelKeyOpts{
		Provider:      p.Name(),
		Model:         p.Model(),
		PromptVersion: llm.PromptVersion,
	}
}
