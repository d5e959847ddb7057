package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/pipeline"
	"github.com/matzehuels/scribetree/pkg/store"
)

// ArrangeTool handles the arrange_layout MCP tool.
type ArrangeTool struct {
	store  store.Store
	layout layout.Options
}

// NewArrangeTool creates an ArrangeTool.
func NewArrangeTool(st store.Store, opts layout.Options) *ArrangeTool {
	return &ArrangeTool{store: st, layout: opts}
}

// Definition returns the MCP tool definition for arrange_layout.
func (t *ArrangeTool) Definition() mcp.Tool {
	return mcp.NewTool("arrange_layout",
		mcp.WithDescription(
			"Re-layout nodes and edges as a layered graph with Graphviz. Positions are always overwritten.",
		),
		mcp.WithString("layout",
			mcp.Description("Layout JSON {nodes, edges} as returned by layout_notes"),
		),
		mcp.WithString("document_id",
			mcp.Description("Id of a stored document to lay out and arrange, used when 'layout' is not given"),
		),
		mcp.WithString("direction",
			mcp.Description("Rank direction: TB (default), BT, LR or RL"),
			mcp.Enum("TB", "BT", "LR", "RL"),
		),
	)
}

// Handle processes the arrange_layout tool call.
func (t *ArrangeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := layout.ParseDirection(req.GetString("direction", ""))
	if err != nil {
		return toolError("arrange", err), nil
	}

	var in layout.Result
	if raw := req.GetString("layout", ""); raw != "" {
		if in, err = layout.UnmarshalResult([]byte(raw)); err != nil {
			return toolError("read layout", err), nil
		}
	} else {
		n, err := noteArg(ctx, t.store, req)
		if err != nil {
			return toolError("load note", err), nil
		}
		if in, err = pipeline.ComputeLayout(ctx, &n, t.layout); err != nil {
			return toolError("layout", err), nil
		}
	}

	out, err := pipeline.ArrangeLayout(ctx, in, layout.ArrangeOptions{Direction: dir})
	if err != nil {
		return toolError("arrange", err), nil
	}
	return jsonResult(out)
}
