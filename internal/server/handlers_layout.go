package server

import (
	"net/http"

	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/notes"
	"github.com/matzehuels/scribetree/pkg/pipeline"
)

type layoutRequest struct {
	Note notes.LectureNote `json:"note"`
}

type arrangeRequest struct {
	Nodes     []layout.Node `json:"nodes"`
	Edges     []layout.Edge `json:"edges"`
	Direction string        `json:"direction,omitempty"`
}

// handleLayout lays out a (possibly partial) note supplied by the client.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decodeJSON(w, r, s.opts.MaxUploadBytes, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := pipeline.ComputeLayout(r.Context(), &req.Note, s.opts.Layout)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleArrange re-lays out client nodes and edges in the given direction.
func (s *Server) handleArrange(w http.ResponseWriter, r *http.Request) {
	var req arrangeRequest
	if err := decodeJSON(w, r, s.opts.MaxUploadBytes, &req); err != nil {
		writeError(w, err)
		return
	}
	dir, err := layout.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := pipeline.ArrangeLayout(r.Context(), layout.Result{Nodes: req.Nodes, Edges: req.Edges}, layout.ArrangeOptions{Direction: dir})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
