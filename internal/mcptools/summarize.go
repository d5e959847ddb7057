package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/notes"
	"github.com/matzehuels/scribetree/pkg/pipeline"
	"github.com/matzehuels/scribetree/pkg/store"
	"github.com/matzehuels/scribetree/pkg/transcript"
)

// SummarizeTool handles the summarize_transcript MCP tool.
type SummarizeTool struct {
	runner *pipeline.Runner
	store  store.Store
	layout layout.Options
}

// NewSummarizeTool creates a SummarizeTool. A nil store disables saving.
func NewSummarizeTool(runner *pipeline.Runner, st store.Store, opts layout.Options) *SummarizeTool {
	return &SummarizeTool{runner: runner, store: st, layout: opts}
}

// Definition returns the MCP tool definition for summarize_transcript.
func (t *SummarizeTool) Definition() mcp.Tool {
	return mcp.NewTool("summarize_transcript",
		mcp.WithDescription(
			"Turn a lecture transcript into hierarchical notes: a summary, the announced logistics "+
				"and nested key points. Returns the notes as Markdown and the id of the stored document.",
		),
		mcp.WithString("transcript",
			mcp.Description("The transcript text. Either this or 'path' is required."),
		),
		mcp.WithString("path",
			mcp.Description("Path to a transcript file (.txt, .vtt, .srt, .md, .pdf or .docx)"),
		),
		mcp.WithString("title",
			mcp.Description("Document title (default: derived from the summary)"),
		),
		mcp.WithBoolean("save",
			mcp.Description("Store the notes as a document (default: true)"),
		),
	)
}

// Handle processes the summarize_transcript tool call.
func (t *SummarizeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.runner == nil {
		return mcp.NewToolResultError("no model provider configured: set OPENAI_API_KEY or ANTHROPIC_API_KEY"), nil
	}

	var (
		tr  transcript.Transcript
		err error
	)
	switch text, path := req.GetString("transcript", ""), req.GetString("path", ""); {
	case text != "":
		tr, err = transcript.FromText(text)
	case path != "":
		tr, err = transcript.ReadFile(path)
	default:
		return mcp.NewToolResultError("'transcript' or 'path' is required"), nil
	}
	if err != nil {
		return toolError("read transcript", err), nil
	}

	res, err := t.runner.Generate(ctx, tr.Text, pipeline.Options{Layout: t.layout}, nil)
	if err != nil {
		return toolError("generate notes", err), nil
	}

	var b strings.Builder
	b.WriteString(notes.Markdown(&res.Note))

	if t.store != nil && boolArg(req, "save", true) {
		title := req.GetString("title", "")
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
		if err := t.store.Save(ctx, doc); err != nil {
			return toolError("save document", err), nil
		}
		fmt.Fprintf(&b, "\n---\nDocument: %s (%q, %d nodes)\n", doc.ID, doc.Title, res.Stats.NodeCount)
	}

	return mcp.NewToolResultText(b.String()), nil
}
