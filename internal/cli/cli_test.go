package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/scribetree/pkg/cache"
	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/notes"
)

func TestMain(m *testing.M) {
	statusOut = io.Discard
	os.Exit(m.Run())
}

const (
	validNotes = `{"summary":"Entropy. More later.","logistic":"HW due Friday","children":[` +
		`{"id":"a","title":"Second law","content":"Entropy never decreases.","children":[` +
		`{"id":"b","title":"Microstates","content":"Counting.","children":[]}]}]}`
	validExpansion = `{"keyPoint":{"id":"x1","title":"Why","content":"More microstates.","children":[]}}`
)

// isolate points every config, data and cache location at a temp dir and
// blanks the variables the CLI reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	for _, k := range []string{
		"SCRIBE_PROVIDER", "SCRIBE_MODEL", "SCRIBE_BASE_URL", "SCRIBE_CACHE", "SCRIBE_CACHE_DIR",
		"SCRIBE_STORE", "SCRIBE_DB_PATH", "SCRIBE_LAYOUT_DIRECTION", "SCRIBE_LOG_LEVEL",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}
	return dir
}

// fakeOpenAI serves chat completion streams and counts notes requests.
func fakeOpenAI(t *testing.T) *int32 {
	t.Helper()
	var notesCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ResponseFormat struct {
				JSONSchema struct {
					Name string `json:"name"`
				} `json:"json_schema"`
			} `json:"response_format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		out := validNotes
		if body.ResponseFormat.JSONSchema.Name == "key_point" {
			out = validExpansion
		} else {
			atomic.AddInt32(&notesCalls, 1)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for i := 1; i <= 4; i++ {
			chunk := out[len(out)*(i-1)/4 : len(out)*i/4]
			data, _ := json.Marshal(map[string]any{
				"choices": []any{map[string]any{"delta": map[string]any{"content": chunk}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("SCRIBE_BASE_URL", srv.URL)
	return &notesCalls
}

// run executes one scribe command line and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("scribe %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func decodeNoteString(t *testing.T, s string) notes.LectureNote {
	t.Helper()
	var n notes.LectureNote
	if err := json.UnmarshalFromString(s, &n); err != nil {
		t.Fatalf("output is not a note: %v\n%s", err, s)
	}
	return n
}

// =============================================================================
// generate / docs / expand
// =============================================================================

func TestGenerateSavesAndExpands(t *testing.T) {
	isolate(t)
	fakeOpenAI(t)

	n := decodeNoteString(t, mustRun(t, "generate", "--text", "Today: entropy.", "-f", "json"))
	if n.Summary != "Entropy. More later." || len(n.Children) != 1 || n.Children[0].ID != "a" {
		t.Fatalf("generated note = %+v", n)
	}

	list := mustRun(t, "docs", "list")
	fields := strings.Split(strings.TrimSpace(list), "\t")
	if len(fields) != 4 || fields[2] != "Entropy" || fields[3] != "3" {
		t.Fatalf("docs list = %q", list)
	}
	id := fields[0]

	if md := mustRun(t, "export", id); !strings.Contains(md, "Second law") {
		t.Errorf("export md = %q", md)
	}

	mustRun(t, "expand", id, "a", "entropy")
	expanded := decodeNoteString(t, mustRun(t, "export", id, "-f", "json"))
	kp, ok := notes.Find(&expanded, "x1")
	if !ok || kp.Title != "Why" {
		t.Fatalf("expansion not stored: %+v", expanded)
	}
	if parent, _ := notes.Find(&expanded, "a"); len(parent.Children) != 2 {
		t.Errorf("parent children = %d, want 2", len(parent.Children))
	}

	mustRun(t, "docs", "delete", id)
	if _, err := run(t, "export", id); err == nil {
		t.Error("export of a deleted document succeeded")
	}
}

func TestGenerateUsesCache(t *testing.T) {
	isolate(t)
	calls := fakeOpenAI(t)

	mustRun(t, "generate", "--text", "Today: entropy.", "--no-save")
	mustRun(t, "generate", "--text", "Today: entropy.", "--no-save")
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Errorf("model calls with cache = %d, want 1", got)
	}

	mustRun(t, "generate", "--text", "Today: entropy.", "--no-save", "--no-cache")
	mustRun(t, "generate", "--text", "Today: entropy.", "--no-save", "--refresh")
	if got := atomic.LoadInt32(calls); got != 3 {
		t.Errorf("model calls after bypassing the cache = %d, want 3", got)
	}
}

func TestGenerateFromFile(t *testing.T) {
	dir := isolate(t)
	fakeOpenAI(t)

	vtt := writeFile(t, dir, "lecture.vtt", "WEBVTT\n\n1\n00:00:01.000 --> 00:00:04.000\nToday we talk about entropy.\n")
	out := filepath.Join(dir, "notes.html")
	mustRun(t, "generate", vtt, "-f", "html", "-o", out)

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<details") || !strings.Contains(string(data), "Second law") {
		t.Errorf("html export = %s", data)
	}
	if list := mustRun(t, "docs", "list"); !strings.Contains(list, "\tlecture\t") {
		t.Errorf("document title should come from the file name: %q", list)
	}
}

func TestGenerateErrors(t *testing.T) {
	dir := isolate(t)
	tests := []struct {
		name     string
		args     []string
		apiKey   string
		wantCode errors.Code
	}{
		{"no transcript", []string{"generate"}, "", ""},
		{"file and text", []string{"generate", "x.txt", "--text", "hi"}, "", ""},
		{"unsupported file", []string{"generate", filepath.Join(dir, "slides.pptx")}, "", errors.ErrCodeInvalidFormat},
		{"empty text", []string{"generate", "--text", "   "}, "", errors.ErrCodeInvalidTranscript},
		{"bad format", []string{"generate", "--text", "hi", "-f", "pdf"}, "", errors.ErrCodeInvalidFormat},
		{"no api key", []string{"generate", "--text", "hi"}, "", errors.ErrCodeUnauthorized},
		{"unknown provider", []string{"generate", "--text", "hi", "--provider", "acme"}, "k", errors.ErrCodeUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", tt.apiKey)
			_, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantCode != "" && errors.GetCode(err) != tt.wantCode {
				t.Errorf("code = %q, want %q (%v)", errors.GetCode(err), tt.wantCode, err)
			}
		})
	}
}

func TestExpandFileInPlace(t *testing.T) {
	dir := isolate(t)
	fakeOpenAI(t)
	path := writeFile(t, dir, "notes.json", validNotes)

	mustRun(t, "expand", path, "b", "counting")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	n := decodeNoteString(t, string(data))
	if b, _ := notes.Find(&n, "b"); len(b.Children) != 1 || b.Children[0].Title != "Why" {
		t.Errorf("b = %+v", b)
	}

	if _, err := run(t, "expand", path, "missing", "x"); !errors.Is(err, errors.ErrCodeKeyPointNotFound) {
		t.Errorf("missing parent err = %v", err)
	}
}

// =============================================================================
// layout / arrange / export / view
// =============================================================================

func TestLayoutCommand(t *testing.T) {
	dir := isolate(t)
	tests := []struct {
		name    string
		content string
	}{
		{"bare note", validNotes},
		{"stored document", `{"id":"d1","title":"T","note":` + validNotes + `}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "in.json", tt.content)
			res, err := layout.UnmarshalResult([]byte(mustRun(t, "layout", path)))
			if err != nil {
				t.Fatal(err)
			}
			want := map[string]layout.Position{"root": {X: 0, Y: 0}, "a": {X: 0, Y: 200}, "b": {X: 0, Y: 600}}
			if len(res.Nodes) != len(want) {
				t.Fatalf("nodes = %+v", res.Nodes)
			}
			for _, n := range res.Nodes {
				if n.Position != want[n.ID] {
					t.Errorf("%s at %v, want %v", n.ID, n.Position, want[n.ID])
				}
			}
			if len(res.Edges) != 2 || res.Edges[0].ID != "eroot-a" || res.Edges[1].ID != "ea-b" {
				t.Errorf("edges = %+v", res.Edges)
			}
		})
	}
}

func TestLayoutCommandPartialAndTooDeep(t *testing.T) {
	dir := isolate(t)

	partial := writeFile(t, dir, "partial.json", `{"summary":"Entro`)
	res, err := layout.UnmarshalResult([]byte(mustRun(t, "layout", partial)))
	if err != nil || len(res.Nodes) != 1 || res.Nodes[0].Data.Summary != "Entro" {
		t.Errorf("partial layout = %+v, %v", res, err)
	}

	full := writeFile(t, dir, "full.json", validNotes)
	if _, err := run(t, "layout", full, "--max-depth", "1"); !errors.Is(err, errors.ErrCodeTooDeep) {
		t.Errorf("deep tree err = %v", err)
	}

	if _, err := run(t, "layout", "no-such-document"); err == nil || !strings.Contains(err.Error(), "neither a file nor a stored document") {
		t.Errorf("unknown ref err = %v", err)
	}
}

func TestArrangeCommand(t *testing.T) {
	dir := isolate(t)
	in := writeFile(t, dir, "notes.json", validNotes)
	out := filepath.Join(dir, "layout.json")
	mustRun(t, "layout", in, "-o", out)

	before, err := layout.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	after, err := layout.UnmarshalResult([]byte(mustRun(t, "arrange", out, "-d", "LR")))
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Nodes) != len(before.Nodes) || len(after.Edges) != len(before.Edges) {
		t.Fatalf("arrange changed the graph: %+v", after)
	}
	pos := map[string]layout.Position{}
	for _, n := range after.Nodes {
		pos[n.ID] = n.Position
	}
	if pos["a"].X <= pos["root"].X || pos["b"].X <= pos["a"].X {
		t.Errorf("LR positions = %v", pos)
	}

	if _, err := run(t, "arrange", out, "-d", "sideways"); !errors.Is(err, errors.ErrCodeInvalidDirection) {
		t.Errorf("bad direction err = %v", err)
	}
}

func TestExportCommand(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "notes.json", validNotes)

	tests := []struct {
		format string
		want   string
	}{
		{"md", "Second law"},
		{"markdown", "HW due Friday"},
		{"html", "<details"},
		{"json", `"id": "a"`},
		{"layout", `"eroot-a"`},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if out := mustRun(t, "export", path, "-f", tt.format); !strings.Contains(out, tt.want) {
				t.Errorf("export %s = %q, want it to contain %q", tt.format, out, tt.want)
			}
		})
	}

	if _, err := run(t, "export", path, "-f", "pptx"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad format err = %v", err)
	}
}

func TestViewPlain(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "notes.json", validNotes)
	out := mustRun(t, "view", path, "--plain", "--style", "notty")
	for _, want := range []string{"Second law", "Microstates"} {
		if !strings.Contains(out, want) {
			t.Errorf("view --plain output missing %q:\n%s", want, out)
		}
	}
}

// =============================================================================
// cache / config / completion
// =============================================================================

func TestCachePath(t *testing.T) {
	dir := isolate(t)
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"default", nil, filepath.Join(dir, "cache", "scribe")},
		{"explicit dir", map[string]string{"SCRIBE_CACHE_DIR": "/tmp/notes-cache"}, "/tmp/notes-cache"},
		{"disabled", map[string]string{"SCRIBE_CACHE": "none"}, "(disabled)"},
		{"redis", map[string]string{"SCRIBE_CACHE": "redis", "SCRIBE_REDIS_URL": "redis://cache:6379/1"}, "redis://cache:6379/1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := strings.TrimSpace(mustRun(t, "cache", "path")); got != tt.want {
				t.Errorf("cache path = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheClear(t *testing.T) {
	dir := isolate(t)
	ctx := context.Background()
	fc, err := cache.NewFileCache(filepath.Join(dir, "cache", "scribe"))
	if err != nil {
		t.Fatal(err)
	}
	if err := fc.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}

	mustRun(t, "cache", "clear")
	if _, ok, _ := fc.Get(ctx, "k"); ok {
		t.Error("entry survived cache clear")
	}
}

func TestConfigFlag(t *testing.T) {
	dir := isolate(t)
	cfg := writeFile(t, dir, "scribe.toml", "[cache]\nbackend = \"none\"\n")
	if got := strings.TrimSpace(mustRun(t, "--config", cfg, "cache", "path")); got != "(disabled)" {
		t.Errorf("cache path with --config = %q", got)
	}

	if _, err := run(t, "--config", filepath.Join(dir, "missing.toml"), "cache", "path"); err == nil {
		t.Error("missing explicit config file should fail")
	}

	bad := writeFile(t, dir, "bad.toml", "[cache]\nbackend = \"tape\"\n")
	if _, err := run(t, "--config", bad, "cache", "path"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("invalid backend err = %v", err)
	}
}

func TestCompletion(t *testing.T) {
	isolate(t)
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		if out := mustRun(t, "completion", shell); !strings.Contains(out, "scribe") {
			t.Errorf("%s completion does not mention scribe", shell)
		}
	}
	if _, err := run(t, "completion", "tcsh"); err == nil {
		t.Error("unknown shell accepted")
	}
}

func TestDecodeNote(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		summary string
		wantErr bool
	}{
		{"note", validNotes, "Entropy. More later.", false},
		{"document", `{"id":"x","note":{"summary":"S","logistic":""}}`, "S", false},
		{"fenced fragment", "```json\n{\"summary\":\"Par", "Par", false},
		{"not json", "hello", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := decodeNote([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if !tt.wantErr && n.Summary != tt.summary {
				t.Errorf("summary = %q, want %q", n.Summary, tt.summary)
			}
		})
	}
}
