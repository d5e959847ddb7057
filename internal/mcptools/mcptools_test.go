package mcptools

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/llm"
	"github.com/matzehuels/scribetree/pkg/notes"
	"github.com/matzehuels/scribetree/pkg/pipeline"
	"github.com/matzehuels/scribetree/pkg/store"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

type fakeProvider struct{ out string }

func (p *fakeProvider) Name() string  { return "fake" }
func (p *fakeProvider) Model() string { return "fake-1" }
func (p *fakeProvider) Stream(_ context.Context, _ llm.Request, fn llm.TextFunc) (string, error) {
	return p.out, fn(p.out)
}

const validNotes = `{"summary":"Entropy. Then more.","logistic":"","children":[` +
	`{"id":"a","title":"Second law","content":"Entropy grows.","children":[]},` +
	`{"id":"b","title":"Microstates","content":"Counting.","children":[]}]}`

func makeReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func newRunner() *pipeline.Runner {
	return pipeline.NewRunner(&fakeProvider{out: validNotes}, nil, nil, log.New(&bytes.Buffer{}))
}

// ─── summarize_transcript ────────────────────────────────────────────────────

func TestSummarizeTool_Definition(t *testing.T) {
	def := NewSummarizeTool(nil, nil, layout.Options{}).Definition()
	if def.Name != "summarize_transcript" {
		t.Errorf("tool name = %q", def.Name)
	}
	for _, p := range []string{"transcript", "path", "title", "save"} {
		if _, ok := def.InputSchema.Properties[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}
}

func TestSummarizeTool_Text(t *testing.T) {
	st := store.NewMemory()
	tool := NewSummarizeTool(newRunner(), st, layout.Options{})

	res, err := tool.Handle(context.Background(), makeReq(map[string]any{"transcript": "Today: entropy."}))
	if err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(res))
	}
	text := resultText(res)
	if !strings.Contains(text, "Second law") || !strings.Contains(text, "Document: ") {
		t.Errorf("result = %s", text)
	}

	docs, _ := st.List(context.Background(), 0)
	if len(docs) != 1 || docs[0].Title != "Entropy" {
		t.Errorf("stored = %+v", docs)
	}
}

func TestSummarizeTool_FileWithoutSaving(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lecture.md")
	if err := os.WriteFile(path, []byte("# Entropy\n\nIt grows."), 0o644); err != nil {
		t.Fatal(err)
	}
	st := store.NewMemory()
	tool := NewSummarizeTool(newRunner(), st, layout.Options{})

	res, _ := tool.Handle(context.Background(), makeReq(map[string]any{"path": path, "save": false}))
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(res))
	}
	if strings.Contains(resultText(res), "Document: ") {
		t.Error("save=false should not store a document")
	}
	if docs, _ := st.List(context.Background(), 0); len(docs) != 0 {
		t.Errorf("stored %d documents", len(docs))
	}
}

func TestSummarizeTool_Errors(t *testing.T) {
	tests := []struct {
		name   string
		runner *pipeline.Runner
		args   map[string]any
		want   string
	}{
		{"no runner", nil, map[string]any{"transcript": "x"}, "no model provider"},
		{"no input", newRunner(), map[string]any{}, "'transcript' or 'path' is required"},
		{"missing file", newRunner(), map[string]any{"path": "/nonexistent/lecture.txt"}, "read transcript failed"},
		{"unsupported file", newRunner(), map[string]any{"path": "slides.pptx"}, "INVALID_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewSummarizeTool(tt.runner, nil, layout.Options{}).Handle(context.Background(), makeReq(tt.args))
			if err != nil {
				t.Fatalf("Handle() error: %v", err)
			}
			if !res.IsError || !strings.Contains(resultText(res), tt.want) {
				t.Errorf("result = %q, want error containing %q", resultText(res), tt.want)
			}
		})
	}
}

// ─── layout_notes ────────────────────────────────────────────────────────────

func TestLayoutTool_Note(t *testing.T) {
	tool := NewLayoutTool(nil, layout.Options{})
	res, _ := tool.Handle(context.Background(), makeReq(map[string]any{"note": validNotes}))
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(res))
	}

	out, err := layout.UnmarshalResult([]byte(resultText(res)))
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Nodes) != 3 || out.Nodes[1].Position != (layout.Position{X: -300, Y: 200}) {
		t.Errorf("layout = %+v", out)
	}
}

func TestLayoutTool_Document(t *testing.T) {
	st := store.NewMemory()
	doc := &store.Document{Note: notes.LectureNote{Summary: "S", Children: []notes.KeyPoint{{ID: "a"}}}}
	if err := st.Save(context.Background(), doc); err != nil {
		t.Fatal(err)
	}
	tool := NewLayoutTool(st, layout.Options{})

	res, _ := tool.Handle(context.Background(), makeReq(map[string]any{"document_id": doc.ID}))
	if res.IsError || !strings.Contains(resultText(res), `"eroot-a"`) {
		t.Errorf("result = %s", resultText(res))
	}

	res, _ = tool.Handle(context.Background(), makeReq(map[string]any{"document_id": "missing"}))
	if !res.IsError || !strings.Contains(resultText(res), "DOCUMENT_NOT_FOUND") {
		t.Errorf("missing document result = %s", resultText(res))
	}
}

func TestLayoutTool_Errors(t *testing.T) {
	tool := NewLayoutTool(nil, layout.Options{})
	for _, args := range []map[string]any{
		{},
		{"note": "not json"},
		{"document_id": "x"},
	} {
		if res, _ := tool.Handle(context.Background(), makeReq(args)); !res.IsError {
			t.Errorf("Handle(%v) should fail", args)
		}
	}
}

// ─── arrange_layout ──────────────────────────────────────────────────────────

func TestArrangeTool(t *testing.T) {
	tool := NewArrangeTool(nil, layout.Options{})

	in := `{"nodes":[{"id":"root","type":"summary","position":{"x":0,"y":0},"data":{}},` +
		`{"id":"a","type":"keyPoint","position":{"x":0,"y":0},"data":{}}],` +
		`"edges":[{"id":"eroot-a","source":"root","target":"a"}]}`
	res, _ := tool.Handle(context.Background(), makeReq(map[string]any{"layout": in, "direction": "LR"}))
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(res))
	}
	out, err := layout.UnmarshalResult([]byte(resultText(res)))
	if err != nil {
		t.Fatal(err)
	}
	if !(out.Nodes[0].Position.X < out.Nodes[1].Position.X) {
		t.Errorf("LR should place root left of child: %+v", out.Nodes)
	}

	res, _ = tool.Handle(context.Background(), makeReq(map[string]any{"note": validNotes}))
	if res.IsError {
		t.Errorf("arrange from note: %s", resultText(res))
	}

	res, _ = tool.Handle(context.Background(), makeReq(map[string]any{"layout": in, "direction": "up"}))
	if !res.IsError || !strings.Contains(resultText(res), "INVALID_DIRECTION") {
		t.Errorf("invalid direction result = %s", resultText(res))
	}
}

func TestNewServer(t *testing.T) {
	if s := NewServer(nil, store.NewMemory(), layout.Options{}); s == nil {
		t.Fatal("NewServer() = nil")
	}
}
