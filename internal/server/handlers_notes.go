package server

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/httputil"
	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/notes"
	"github.com/matzehuels/scribetree/pkg/pipeline"
	"github.com/matzehuels/scribetree/pkg/store"
	"github.com/matzehuels/scribetree/pkg/transcript"
)

// =============================================================================
// Request and Event Types
// =============================================================================

type createRequest struct {
	Transcript string `json:"transcript"`
	Title      string `json:"title,omitempty"`
	Refresh    bool   `json:"refresh,omitempty"`
}

type snapshotEvent struct {
	Seq    int               `json:"seq"`
	Done   bool              `json:"done"`
	Note   notes.LectureNote `json:"note"`
	Layout layout.Result     `json:"layout"`
}

type doneEvent struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	CacheHit bool   `json:"cache_hit"`
	Nodes    int    `json:"nodes"`
	Depth    int    `json:"depth"`
}

type documentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type expandRequest struct {
	KeyPointID string `json:"key_point_id"`
	Text       string `json:"text"`
	Refresh    bool   `json:"refresh,omitempty"`
}

type expandDoneEvent struct {
	KeyPoint notes.KeyPoint `json:"key_point"`
	Layout   layout.Result  `json:"layout"`
	CacheHit bool           `json:"cache_hit"`
}

// =============================================================================
// Generation
// =============================================================================

// handleCreateNotes accepts a JSON body with a transcript or a multipart
// upload with a "file" field, then streams the generation.
func (s *Server) handleCreateNotes(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runner == nil {
		writeError(w, errors.New(errors.ErrCodeModelUnavailable, "no model provider configured"))
		return
	}

	tr, req, err := s.readTranscript(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	ew := httputil.NewEventWriter(w)
	opts := pipeline.Options{Refresh: req.Refresh, Layout: s.opts.Layout, Logger: s.log}

	res, err := s.opts.Runner.Generate(ctx, tr.Text, opts, func(u pipeline.Update) error {
		return sendEvent(ew, "snapshot", snapshotEvent{
			Seq:    u.Snapshot.Seq,
			Done:   u.Snapshot.Done,
			Note:   u.Snapshot.Note,
			Layout: u.Layout,
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			s.log.Debug("client disconnected during generation")
			return
		}
		s.log.Warn("generation failed", "err", err)
		sendError(ew, err)
		return
	}

	title := req.Title
	if title == "" {
		title = store.Title(&res.Note)
	}
	doc := &store.Document{
		Title:          title,
		TranscriptHash: res.TranscriptHash,
		Provider:       res.Provider,
		Model:          res.Model,
		Note:           res.Note,
	}
	if err := s.opts.Store.Save(ctx, doc); err != nil {
		s.log.Error("save document", "err", err)
		sendError(ew, err)
		return
	}

	_ = sendEvent(ew, "done", doneEvent{
		ID:       doc.ID,
		Title:    doc.Title,
		CacheHit: res.CacheHit,
		Nodes:    res.Stats.NodeCount,
		Depth:    res.Stats.Depth,
	})
}

func (s *Server) readTranscript(w http.ResponseWriter, r *http.Request) (transcript.Transcript, createRequest, error) {
	var req createRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType != "multipart/form-data" {
		if err := decodeJSON(w, r, s.opts.MaxUploadBytes, &req); err != nil {
			return transcript.Transcript{}, req, err
		}
		tr, err := transcript.FromText(req.Transcript)
		return tr, req, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return transcript.Transcript{}, req, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	req.Title = r.FormValue("title")
	req.Refresh = r.FormValue("refresh") == "true"

	file, header, err := r.FormFile("file")
	if err != nil {
		if text := r.FormValue("transcript"); text != "" {
			tr, err := transcript.FromText(text)
			return tr, req, err
		}
		return transcript.Transcript{}, req, errors.Wrap(errors.ErrCodeInvalidInput, err, "file is required")
	}
	defer file.Close()

	if err := errors.ValidateFilename(header.Filename); err != nil {
		return transcript.Transcript{}, req, err
	}
	tr, err := transcript.Read(file, header.Filename)
	if err == nil && req.Title == "" {
		req.Title = tr.Name
	}
	return tr, req, err
}

// =============================================================================
// Documents
// =============================================================================

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, errors.New(errors.ErrCodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	docs, err := s.opts.Store.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]documentSummary, len(docs))
	for i, d := range docs {
		out[i] = documentSummary{
			ID:        d.ID,
			Title:     d.Title,
			Provider:  d.Provider,
			Model:     d.Model,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (s *Server) document(w http.ResponseWriter, r *http.Request) (*store.Document, bool) {
	doc, err := s.opts.Store.Get(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return doc, true
}

func (s *Server) handleGetNotes(w http.ResponseWriter, r *http.Request) {
	if doc, ok := s.document(w, r); ok {
		writeJSON(w, http.StatusOK, doc)
	}
}

func (s *Server) handleDeleteNotes(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Store.Delete(r.Context(), chi.URLParam(r, "docID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleNotesLayout returns the computed layout of a stored document, or the
// arranged layout when a direction is given.
func (s *Server) handleNotesLayout(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	res, err := pipeline.ComputeLayout(r.Context(), &doc.Note, s.opts.Layout)
	if err != nil {
		writeError(w, err)
		return
	}

	if dir := r.URL.Query().Get("direction"); dir != "" {
		d, err := layout.ParseDirection(dir)
		if err != nil {
			writeError(w, err)
			return
		}
		if res, err = pipeline.ArrangeLayout(r.Context(), res, layout.ArrangeOptions{Direction: d}); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	format, err := pipeline.ValidateFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := pipeline.Export(r.Context(), &doc.Note, format, s.opts.Layout)
	if err != nil {
		writeError(w, err)
		return
	}

	ext := format
	if format == pipeline.FormatLayout {
		ext = "layout.json"
	}
	w.Header().Set("Content-Type", pipeline.ContentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", slug(doc.Title)+"."+ext))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// slug makes a title safe for a download filename.
func slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "notes"
	}
	return out
}

// =============================================================================
// Expand
// =============================================================================

// handleExpand streams an explanation of the selected text as "keyPoint"
// events, stores the note with the new key point and finishes with "done".
func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runner == nil {
		writeError(w, errors.New(errors.ErrCodeModelUnavailable, "no model provider configured"))
		return
	}
	var req expandRequest
	if err := decodeJSON(w, r, 1<<20, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" || req.KeyPointID == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "key_point_id and text are required"))
		return
	}

	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	if _, found := notes.Find(&doc.Note, req.KeyPointID); !found {
		writeError(w, errors.New(errors.ErrCodeKeyPointNotFound, "key point %q not found", req.KeyPointID))
		return
	}

	ctx := r.Context()
	ew := httputil.NewEventWriter(w)
	opts := pipeline.Options{Refresh: req.Refresh, Layout: s.opts.Layout, Logger: s.log}
	res, err := s.opts.Runner.Expand(ctx, doc.Note, req.KeyPointID, req.Text, opts, func(kp notes.KeyPoint) error {
		return sendEvent(ew, "keyPoint", kp)
	})
	if err != nil {
		if ctx.Err() == nil {
			sendError(ew, err)
		}
		return
	}

	// The model ran against a snapshot of the document; attach the key point
	// to whatever version is current now.
	kp := res.KeyPoint
	doc, err = store.Modify(ctx, s.opts.Store, doc.ID, func(d *store.Document) error {
		var err error
		d.Note, kp, err = pipeline.Attach(d.Note, req.KeyPointID, res.KeyPoint)
		return err
	})
	if err != nil {
		sendError(ew, err)
		return
	}
	lay, err := pipeline.ComputeLayout(ctx, &doc.Note, s.opts.Layout)
	if err != nil {
		sendError(ew, err)
		return
	}
	_ = sendEvent(ew, "done", expandDoneEvent{KeyPoint: kp, Layout: lay, CacheHit: res.CacheHit})
}
