package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/notes"
	"github.com/matzehuels/scribetree/pkg/pipeline"
	"github.com/matzehuels/scribetree/pkg/store"
)

// LayoutTool handles the layout_notes MCP tool.
type LayoutTool struct {
	store  store.Store
	layout layout.Options
}

// NewLayoutTool creates a LayoutTool.
func NewLayoutTool(st store.Store, opts layout.Options) *LayoutTool {
	return &LayoutTool{store: st, layout: opts}
}

// Definition returns the MCP tool definition for layout_notes.
func (t *LayoutTool) Definition() mcp.Tool {
	return mcp.NewTool("layout_notes",
		mcp.WithDescription(
			"Compute positioned graph nodes and edges for a notes tree. The root sits at (0,0); "+
				"children spread horizontally 600 units apart below their parent. Partial notes are accepted.",
		),
		mcp.WithString("note",
			mcp.Description("The note as JSON: {summary, logistic, children:[{id,title,content,children}]}"),
		),
		mcp.WithString("document_id",
			mcp.Description("Id of a stored document, used when 'note' is not given"),
		),
	)
}

// Handle processes the layout_notes tool call.
func (t *LayoutTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := noteArg(ctx, t.store, req)
	if err != nil {
		return toolError("load note", err), nil
	}
	res, err := pipeline.ComputeLayout(ctx, &n, t.layout)
	if err != nil {
		return toolError("layout", err), nil
	}
	return jsonResult(res)
}

// noteArg reads the note from the "note" argument or a stored document.
func noteArg(ctx context.Context, st store.Store, req mcp.CallToolRequest) (notes.LectureNote, error) {
	if raw := req.GetString("note", ""); raw != "" {
		n, ok := notes.DecodePartial(raw)
		if !ok {
			return notes.LectureNote{}, errors.New(errors.ErrCodeInvalidNote, "'note' is not a JSON object")
		}
		return n, nil
	}

	id := req.GetString("document_id", "")
	if id == "" {
		return notes.LectureNote{}, errors.New(errors.ErrCodeInvalidInput, "'note' or 'document_id' is required")
	}
	if st == nil {
		return notes.LectureNote{}, errors.New(errors.ErrCodeUnsupported, "no document store configured")
	}
	doc, err := st.Get(ctx, id)
	if err != nil {
		return notes.LectureNote{}, err
	}
	return doc.Note, nil
}
