// Package mcptools exposes scribe to agents as MCP tools.
//
// Each tool follows the same pattern:
//   - A struct with its dependencies injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Tool failures are reported as tool results with IsError set, never as
// protocol errors, so the calling agent can read the message.
package mcptools

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/matzehuels/scribetree/pkg/buildinfo"
	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/pipeline"
	"github.com/matzehuels/scribetree/pkg/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const instructions = `scribe turns lecture transcripts into hierarchical notes.
Use summarize_transcript to create notes from a transcript (text or file path),
layout_notes to get positioned graph nodes and edges for a note or stored document,
and arrange_layout to re-layout nodes and edges in a layered direction (TB, BT, LR, RL).`

// NewServer creates an MCP server with every scribe tool registered.
// runner may be nil, in which case summarize_transcript reports an error.
func NewServer(runner *pipeline.Runner, st store.Store, opts layout.Options) *server.MCPServer {
	s := server.NewMCPServer(
		"scribe",
		buildinfo.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	summarize := NewSummarizeTool(runner, st, opts)
	s.AddTool(summarize.Definition(), summarize.Handle)

	layoutTool := NewLayoutTool(st, opts)
	s.AddTool(layoutTool.Definition(), layoutTool.Handle)

	arrange := NewArrangeTool(st, opts)
	s.AddTool(arrange.Definition(), arrange.Handle)

	return s
}

// toolError renders err for the calling agent.
func toolError(action string, err error) *mcp.CallToolResult {
	if code := errors.GetCode(err); code != "" {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed (%s): %s", action, code, errors.UserMessage(err)))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", action, err))
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
