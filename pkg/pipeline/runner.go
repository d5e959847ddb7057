package pipeline

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/scribetree/pkg/cache"
	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/llm"
	"github.com/matzehuels/scribetree/pkg/notes"
	"github.com/matzehuels/scribetree/pkg/observability"
)

var (
	noteValidator      = sync.OnceValues(func() (*notes.Validator, error) { return notes.NewValidator(notes.Schema()) })
	expansionValidator = sync.OnceValues(func() (*notes.Validator, error) { return notes.NewValidator(notes.ExpansionSchema()) })
)

// Runner encapsulates pipeline execution with caching.
// The CLI, the API server and the MCP tools share one implementation.
//
// The Runner is stateless except for the provider, cache and logger. Multiple
// goroutines can safely use the same Runner for different transcripts.
type Runner struct {
	Provider  llm.Provider
	Cache     cache.Cache
	Keyer     cache.Keyer
	Logger    *log.Logger
	MaxTokens int
}

// NewRunner creates a runner for the given provider.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(p llm.Provider, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Provider:  p,
		Cache:     c,
		Keyer:     keyer,
		Logger:    logger,
		MaxTokens: DefaultMaxTokens,
	}
}

// =============================================================================
// Generate
// =============================================================================

// Generate turns a transcript into notes. onUpdate, if non-nil, receives a
// snapshot and its layout every time the decoded tree changes, and a last
// update with Done set once the note is final. A cached note produces just
// the final update.
func (r *Runner) Generate(ctx context.Context, transcript string, opts Options, onUpdate UpdateFunc) (*Result, error) {
	if err := errors.ValidateTranscript(transcript); err != nil {
		return nil, err
	}
	if r.Provider == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "no model provider configured")
	}
	opts.setDefaults(r.Logger, r.MaxTokens)
	if onUpdate == nil {
		onUpdate = func(Update) error { return nil }
	}

	result := &Result{
		TranscriptHash: cache.Hash([]byte(transcript)),
		Provider:       r.Provider.Name(),
		Model:          r.Provider.Model(),
	}
	key := r.Keyer.NotesKey(result.TranscriptHash, ModelKeyOpts(r.Provider))

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		var cached notes.LectureNote
		if hit, err := cache.GetJSON(ctx, r.Cache, cache.KeyTypeNotes, key, &cached); err != nil {
			opts.Logger.Warn("cache lookup failed", "err", err)
		} else if hit {
			return r.finish(ctx, result, cached, 0, opts, onUpdate, true)
		}
	}

	start := time.Now()
	observability.Pipeline().OnGenerateStart(ctx, KindNotes, result.Provider)
	note, seq, err := r.stream(ctx, transcript, opts, onUpdate)
	if err != nil {
		observability.Pipeline().OnGenerateComplete(ctx, KindNotes, result.Provider, 0, time.Since(start), err)
		return nil, err
	}
	result.Stats.Duration = time.Since(start)

	if _, err := r.finish(ctx, result, note, seq, opts, onUpdate, false); err != nil {
		observability.Pipeline().OnGenerateComplete(ctx, KindNotes, result.Provider, 0, time.Since(start), err)
		return nil, err
	}
	observability.Pipeline().OnGenerateComplete(ctx, KindNotes, result.Provider, result.Stats.NodeCount, time.Since(start), nil)

	if err := cache.SetJSON(ctx, r.Cache, cache.KeyTypeNotes, key, result.Note, TTLNotes); err != nil {
		opts.Logger.Warn("cache write failed", "err", err)
	}

	opts.Logger.Info("generated notes",
		"provider", result.Provider,
		"model", result.Model,
		"nodes", result.Stats.NodeCount,
		"snapshots", result.Stats.Snapshots,
		"duration", result.Stats.Duration)
	return result, nil
}

// stream runs the model and emits one update per distinct partial tree. It
// returns the validated final note and the last sequence number used.
func (r *Runner) stream(ctx context.Context, transcript string, opts Options, onUpdate UpdateFunc) (notes.LectureNote, int, error) {
	var (
		last      notes.LectureNote
		lastCount int
		seq       int
	)

	raw, err := r.Provider.Stream(ctx, llm.NotesRequest(transcript, opts.MaxTokens), func(text string) error {
		note, ok := notes.DecodePartial(text)
		if !ok || note.IsEmpty() || (seq > 0 && reflect.DeepEqual(note, last)) {
			return nil
		}

		count := notes.Count(&note)
		if count < lastCount {
			opts.Logger.Warn("snapshot shrank", "seq", seq+1, "nodes", count, "previous", lastCount)
		}

		res, err := r.layout(ctx, &note, opts.Layout)
		if err != nil {
			return err
		}

		seq++
		last, lastCount = note, count
		observability.Pipeline().OnSnapshot(ctx, KindNotes, seq, count)
		return onUpdate(Update{
			Snapshot: notes.Snapshot{Seq: seq, Note: note},
			Layout:   res,
		})
	})
	if err != nil {
		return notes.LectureNote{}, seq, err
	}

	final, err := decodeFinal[notes.LectureNote](raw, noteValidator)
	if err != nil {
		return notes.LectureNote{}, seq, err
	}
	return final, seq, nil
}

// finish assigns missing ids, renames repeated ones, lays out the final note
// and emits the Done update.
func (r *Runner) finish(ctx context.Context, result *Result, note notes.LectureNote, seq int, opts Options, onUpdate UpdateFunc, hit bool) (*Result, error) {
	note = notes.AssignIDs(note, nil)
	if dups := notes.DuplicateIDs(&note); len(dups) > 0 {
		opts.Logger.Warn("renamed repeated key point ids", "ids", dups)
		result.Stats.Duplicates = dups
		note = notes.DedupeIDs(note)
	}

	res, err := r.layout(ctx, &note, opts.Layout)
	if err != nil {
		return nil, err
	}

	result.Note = note
	result.Layout = res
	result.CacheHit = hit
	result.Stats.Snapshots = seq + 1
	result.Stats.NodeCount = notes.Count(&note)
	result.Stats.Depth = notes.Depth(&note)

	update := Update{
		Snapshot: notes.Snapshot{Seq: seq + 1, Note: note, Done: true},
		Layout:   res,
	}
	if err := onUpdate(update); err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// Expand
// =============================================================================

// Expand generates an explanation of text in the context of the key point
// parentID and appends it as a new child of that key point. onKeyPoint, if
// non-nil, receives the growing key point while the model streams.
func (r *Runner) Expand(ctx context.Context, note notes.LectureNote, parentID, text string, opts Options, onKeyPoint func(notes.KeyPoint) error) (*ExpandResult, error) {
	if r.Provider == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "no model provider configured")
	}
	if text == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "text to expand cannot be empty")
	}
	parent, ok := notes.Find(&note, parentID)
	if !ok {
		return nil, errors.New(errors.ErrCodeKeyPointNotFound, "key point %q not found", parentID)
	}
	opts.setDefaults(r.Logger, DefaultExpandMaxTokens)

	result := &ExpandResult{}
	key := r.Keyer.ExpandKey(text, parent.Content, ModelKeyOpts(r.Provider))

	var kp notes.KeyPoint
	hit := false
	if !opts.Refresh {
		var err error
		if hit, err = cache.GetJSON(ctx, r.Cache, cache.KeyTypeExpand, key, &kp); err != nil {
			opts.Logger.Warn("cache lookup failed", "err", err)
		}
	}

	if !hit {
		start := time.Now()
		provider := r.Provider.Name()
		observability.Pipeline().OnGenerateStart(ctx, KindExpand, provider)

		var err error
		kp, err = r.streamExpansion(ctx, text, parent.Content, opts, onKeyPoint)
		observability.Pipeline().OnGenerateComplete(ctx, KindExpand, provider, 1, time.Since(start), err)
		if err != nil {
			return nil, err
		}
		if err := cache.SetJSON(ctx, r.Cache, cache.KeyTypeExpand, key, kp, TTLExpand); err != nil {
			opts.Logger.Warn("cache write failed", "err", err)
		}
	}

	updated, kp, err := Attach(note, parentID, kp)
	if err != nil {
		return nil, err
	}
	res, err := r.layout(ctx, &updated, opts.Layout)
	if err != nil {
		return nil, err
	}

	result.Note = updated
	result.KeyPoint = kp
	result.Layout = res
	result.CacheHit = hit
	opts.Logger.Info("expanded key point", "parent", parentID, "id", kp.ID, "cached", hit)
	return result, nil
}

func (r *Runner) streamExpansion(ctx context.Context, text, kpContent string, opts Options, onKeyPoint func(notes.KeyPoint) error) (notes.KeyPoint, error) {
	var last notes.KeyPoint
	seq := 0
	raw, err := r.Provider.Stream(ctx, llm.ExpandRequest(text, kpContent, opts.MaxTokens), func(partial string) error {
		var exp notes.Expansion
		if !notes.DecodePartialInto(partial, &exp) || reflect.DeepEqual(exp.KeyPoint, last) {
			return nil
		}
		last = exp.KeyPoint
		seq++
		observability.Pipeline().OnSnapshot(ctx, KindExpand, seq, 1)
		if onKeyPoint == nil {
			return nil
		}
		return onKeyPoint(exp.KeyPoint)
	})
	if err != nil {
		return notes.KeyPoint{}, err
	}

	exp, err := decodeFinal[notes.Expansion](raw, expansionValidator)
	if err != nil {
		return notes.KeyPoint{}, err
	}
	return exp.KeyPoint, nil
}

// Attach returns a copy of n with kp appended to the children of parentID.
// Ids in kp that are empty or already used in n are replaced with fresh
// UUIDs; the returned key point carries the ids that were stored. Callers
// that write back a shared document attach to its latest version.
func Attach(n notes.LectureNote, parentID string, kp notes.KeyPoint) (notes.LectureNote, notes.KeyPoint, error) {
	if _, taken := notes.Find(&n, kp.ID); kp.ID == "" || kp.ID == notes.RootID || taken {
		kp.ID = uuid.NewString()
	}
	kp = reassignChildIDs(n, kp)

	updated, err := notes.InsertChildren(n, parentID, kp)
	if err != nil {
		return notes.LectureNote{}, notes.KeyPoint{}, err
	}
	return updated, kp, nil
}

// reassignChildIDs replaces ids below kp that are empty or already used in n.
// kp itself is not modified.
func reassignChildIDs(n notes.LectureNote, kp notes.KeyPoint) notes.KeyPoint {
	wrapped := notes.LectureNote{Children: []notes.KeyPoint{kp}}.Clone()
	_ = notes.Walk(&wrapped, 0, func(child *notes.KeyPoint, depth int, _ []int) error {
		if depth == 1 {
			return nil
		}
		if _, taken := notes.Find(&n, child.ID); child.ID == "" || child.ID == notes.RootID || taken {
			child.ID = uuid.NewString()
		}
		return nil
	})
	return wrapped.Children[0]
}

// decodeFinal validates the complete model output and decodes it strictly.
func decodeFinal[T any](raw string, validator func() (*notes.Validator, error)) (T, error) {
	var v T
	val, err := validator()
	if err != nil {
		return v, errors.Wrap(errors.ErrCodeInternal, err, "compile schema")
	}
	if err := val.Validate(raw); err != nil {
		return v, err
	}
	if err := json.UnmarshalFromString(notes.StripFence(raw), &v); err != nil {
		return v, errors.Wrap(errors.ErrCodeModelSchema, err, "decode model output")
	}
	return v, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
