package pipeline

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/scribetree/pkg/cache"
	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/llm"
	"github.com/matzehuels/scribetree/pkg/notes"
)

// fakeProvider replays chunks as a growing text.
type fakeProvider struct {
	chunks []string
	err    error
	calls  int
	last   llm.Request
}

func (p *fakeProvider) Name() string  { return "fake" }
func (p *fakeProvider) Model() string { return "fake-1" }

func (p *fakeProvider) Stream(ctx context.Context, req llm.Request, fn llm.TextFunc) (string, error) {
	p.calls++
	p.last = req
	var acc strings.Builder
	for _, c := range p.chunks {
		acc.WriteString(c)
		if err := fn(acc.String()); err != nil {
			return acc.String(), err
		}
	}
	return acc.String(), p.err
}

const transcript = "Today we talk about entropy. Homework is due Friday."

var noteChunks = []string{
	`{"summary":"Entropy"`,
	`,"logistic":"HW due Friday","children":[{"id":"a","title":"A","content":"x","children":[]}`,
	`,{"id":"b","title":"B","content":"y","children":[]}]}`,
}

func quietRunner(p llm.Provider, c cache.Cache) *Runner {
	return NewRunner(p, c, nil, log.New(&strings.Builder{}))
}

func collect(updates *[]Update) UpdateFunc {
	return func(u Update) error {
		*updates = append(*updates, u)
		return nil
	}
}

func TestGenerateStreamsSnapshots(t *testing.T) {
	p := &fakeProvider{chunks: noteChunks}
	var updates []Update
	res, err := quietRunner(p, nil).Generate(context.Background(), transcript, Options{}, collect(&updates))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if len(updates) < 2 {
		t.Fatalf("got %d updates, want at least 2", len(updates))
	}
	prev := 0
	for i, u := range updates {
		if u.Snapshot.Seq != i+1 {
			t.Errorf("update %d: Seq = %d", i, u.Snapshot.Seq)
		}
		if last := i == len(updates)-1; u.Snapshot.Done != last {
			t.Errorf("update %d: Done = %v", i, u.Snapshot.Done)
		}
		count := notes.Count(&u.Snapshot.Note)
		if count < prev {
			t.Errorf("update %d: node count shrank from %d to %d", i, prev, count)
		}
		prev = count
		if len(u.Layout.Nodes) != count {
			t.Errorf("update %d: %d layout nodes for %d tree nodes", i, len(u.Layout.Nodes), count)
		}
	}

	if res.Note.Summary != "Entropy" || res.Note.Logistic != "HW due Friday" {
		t.Errorf("final note = %+v", res.Note)
	}
	if res.Stats.NodeCount != 3 || len(res.Layout.Edges) != 2 {
		t.Errorf("NodeCount = %d, edges = %d", res.Stats.NodeCount, len(res.Layout.Edges))
	}
	if res.CacheHit {
		t.Error("first generation should not be a cache hit")
	}
	if p.last.SchemaName != "lecture_note" || p.last.Prompt != transcript {
		t.Errorf("request = %+v", p.last)
	}
}

func TestGenerateUsesCache(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p := &fakeProvider{chunks: noteChunks}
	r := quietRunner(p, c)
	ctx := context.Background()

	if _, err := r.Generate(ctx, transcript, Options{}, nil); err != nil {
		t.Fatalf("first Generate() error: %v", err)
	}

	var updates []Update
	res, err := r.Generate(ctx, transcript, Options{}, collect(&updates))
	if err != nil {
		t.Fatalf("second Generate() error: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}
	if !res.CacheHit || len(updates) != 1 || !updates[0].Snapshot.Done {
		t.Errorf("cache hit = %v, updates = %d", res.CacheHit, len(updates))
	}

	if _, err := r.Generate(ctx, transcript, Options{Refresh: true}, nil); err != nil {
		t.Fatalf("refresh Generate() error: %v", err)
	}
	if p.calls != 2 {
		t.Errorf("refresh should call the provider again, calls = %d", p.calls)
	}
}

func TestGenerateAssignsMissingIDs(t *testing.T) {
	p := &fakeProvider{chunks: []string{
		`{"summary":"S","logistic":"","children":[{"id":"","title":"A","content":"x","children":[]}]}`,
	}}
	res, err := quietRunner(p, nil).Generate(context.Background(), transcript, Options{}, nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if id := res.Note.Children[0].ID; id == "" {
		t.Error("key point id was not assigned")
	}
	if res.Layout.Nodes[1].ID != res.Note.Children[0].ID {
		t.Errorf("layout id %q != note id %q", res.Layout.Nodes[1].ID, res.Note.Children[0].ID)
	}
}

func TestGenerateReportsDuplicates(t *testing.T) {
	p := &fakeProvider{chunks: []string{
		`{"summary":"S","logistic":"","children":[` +
			`{"id":"x","title":"A","content":"","children":[]},` +
			`{"id":"x","title":"B","content":"","children":[]}]}`,
	}}
	res, err := quietRunner(p, nil).Generate(context.Background(), transcript, Options{}, nil)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if len(res.Stats.Duplicates) != 1 || res.Stats.Duplicates[0] != "x" {
		t.Errorf("Duplicates = %v", res.Stats.Duplicates)
	}
	if res.Layout.Nodes[2].ID != "x~1" {
		t.Errorf("second node id = %q, want x~1", res.Layout.Nodes[2].ID)
	}
	if got := res.Note.Children[1].ID; got != "x~1" {
		t.Errorf("second key point id = %q, want x~1", got)
	}
	if dups := notes.DuplicateIDs(&res.Note); len(dups) != 0 {
		t.Errorf("final note still repeats %v", dups)
	}
}

func TestGenerateSkipsEmptySnapshots(t *testing.T) {
	p := &fakeProvider{chunks: []string{`{"summary":""`, `,"logistic":""`, `,"children":[{"id":"a","title":"A","content":"x","children":[]}]}`}}
	var updates []Update
	if _, err := quietRunner(p, nil).Generate(context.Background(), transcript, Options{}, collect(&updates)); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	for i, u := range updates {
		if u.Snapshot.Note.IsEmpty() {
			t.Errorf("update %d carries an empty note", i)
		}
	}
	if len(updates) != 2 {
		t.Errorf("got %d updates, want one snapshot and the final one", len(updates))
	}
}

func TestGenerateErrors(t *testing.T) {
	deep := `{"summary":"S","logistic":"","children":[{"id":"a","title":"A","content":"","children":[` +
		`{"id":"b","title":"B","content":"","children":[]}]}]}`

	tests := []struct {
		name       string
		transcript string
		chunks     []string
		providerEr error
		opts       Options
		code       errors.Code
	}{
		{"empty transcript", "   ", noteChunks, nil, Options{}, errors.ErrCodeInvalidTranscript},
		{"schema violation", transcript, []string{`{"summary":"S","children":[]}`}, nil, Options{}, errors.ErrCodeModelSchema},
		{"not json", transcript, []string{"I cannot help with that."}, nil, Options{}, errors.ErrCodeModelSchema},
		{"too deep", transcript, []string{deep}, nil, Options{Layout: layout.Options{MaxDepth: 1}}, errors.ErrCodeTooDeep},
		{"provider failure", transcript, nil, errors.New(errors.ErrCodeModelUnavailable, "down"), Options{}, errors.ErrCodeModelUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{chunks: tt.chunks, err: tt.providerEr}
			_, err := quietRunner(p, nil).Generate(context.Background(), tt.transcript, tt.opts, nil)
			if !errors.Is(err, tt.code) {
				t.Errorf("Generate() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestGenerateCallbackAborts(t *testing.T) {
	stop := stderrors.New("client went away")
	p := &fakeProvider{chunks: noteChunks}
	_, err := quietRunner(p, nil).Generate(context.Background(), transcript, Options{}, func(Update) error {
		return stop
	})
	if !stderrors.Is(err, stop) {
		t.Errorf("Generate() error = %v, want %v", err, stop)
	}
}

func TestGenerateWithoutProvider(t *testing.T) {
	_, err := quietRunner(nil, nil).Generate(context.Background(), transcript, Options{}, nil)
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("Generate() error = %v", err)
	}
}

func sampleNote() notes.LectureNote {
	return notes.LectureNote{
		Summary: "S",
		Children: []notes.KeyPoint{
			{ID: "a", Title: "Entropy", Content: "Entropy always grows."},
		},
	}
}

func TestExpand(t *testing.T) {
	p := &fakeProvider{chunks: []string{
		`{"keyPoint":{"id":"a","title":"Why it grows"`,
		`,"content":"More microstates.","children":[{"id":"","title":"Sub","content":"","children":[]}]}}`,
	}}
	var partials []notes.KeyPoint
	res, err := quietRunner(p, nil).Expand(context.Background(), sampleNote(), "a", "always grows", Options{},
		func(kp notes.KeyPoint) error {
			partials = append(partials, kp)
			return nil
		})
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}

	if want := "Explain: always grows. Context: Entropy always grows."; p.last.Prompt != want {
		t.Errorf("prompt = %q, want %q", p.last.Prompt, want)
	}
	if len(partials) == 0 {
		t.Error("no partial key points emitted")
	}
	if res.KeyPoint.ID == "" || res.KeyPoint.ID == "a" {
		t.Errorf("colliding id not replaced: %q", res.KeyPoint.ID)
	}
	if res.KeyPoint.Children[0].ID == "" {
		t.Error("nested id not assigned")
	}

	parent, ok := notes.Find(&res.Note, "a")
	if !ok || len(parent.Children) != 1 || parent.Children[0].Title != "Why it grows" {
		t.Fatalf("expansion not inserted: %+v", res.Note)
	}
	if len(res.Layout.Nodes) != 4 {
		t.Errorf("layout nodes = %d, want 4", len(res.Layout.Nodes))
	}
}

func TestExpandErrors(t *testing.T) {
	p := &fakeProvider{chunks: []string{`{"keyPoint":{"title":"x"}}`}}
	r := quietRunner(p, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		parent string
		text   string
		code   errors.Code
	}{
		{"unknown parent", "missing", "text", errors.ErrCodeKeyPointNotFound},
		{"empty text", "a", "", errors.ErrCodeInvalidInput},
		{"schema violation", "a", "text", errors.ErrCodeModelSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Expand(ctx, sampleNote(), tt.parent, tt.text, Options{}, nil)
			if !errors.Is(err, tt.code) {
				t.Errorf("Expand() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"md", FormatMarkdown, false},
		{"Markdown", FormatMarkdown, false},
		{"html", FormatHTML, false},
		{"json", FormatJSON, false},
		{"layout", FormatLayout, false},
		{"pdf", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ValidateFormat(%q) = %q, %v", tt.format, got, err)
		}
	}
}

func TestExport(t *testing.T) {
	n := sampleNote()
	ctx := context.Background()

	md, err := Export(ctx, &n, "md", layout.Options{})
	if err != nil || !strings.Contains(string(md), "Entropy") {
		t.Errorf("Export(md) = %q, %v", md, err)
	}

	html, err := Export(ctx, &n, "html", layout.Options{})
	if err != nil || !strings.Contains(string(html), "<details") {
		t.Errorf("Export(html) = %q, %v", html, err)
	}

	data, err := Export(ctx, &n, "layout", layout.Options{})
	if err != nil {
		t.Fatalf("Export(layout) error: %v", err)
	}
	res, err := layout.UnmarshalResult(data)
	if err != nil || len(res.Nodes) != 2 {
		t.Errorf("layout export = %+v, %v", res, err)
	}

	if _, err := Export(ctx, &n, "svg", layout.Options{}); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Export(svg) error = %v", err)
	}
}

func TestArrangeLayoutEmpty(t *testing.T) {
	res, err := ArrangeLayout(context.Background(), layout.Result{}, layout.ArrangeOptions{})
	if err != nil || len(res.Nodes) != 0 {
		t.Errorf("ArrangeLayout(empty) = %+v, %v", res, err)
	}
}

func TestAttachToNewerNote(t *testing.T) {
	base := notes.LectureNote{Summary: "S", Children: []notes.KeyPoint{{ID: "a"}, {ID: "b"}}}
	kp := notes.KeyPoint{ID: "x1", Title: "Why", Children: []notes.KeyPoint{{ID: "y", Title: "Because"}}}

	// A concurrent expansion already stored the same key point under a.
	newer, first, err := Attach(base, "a", kp)
	if err != nil {
		t.Fatalf("Attach() error: %v", err)
	}
	if first.ID != "x1" || first.Children[0].ID != "y" {
		t.Errorf("first attach renamed ids: %+v", first)
	}

	updated, second, err := Attach(newer, "b", kp)
	if err != nil {
		t.Fatalf("Attach() error: %v", err)
	}
	if second.ID == "x1" || second.Children[0].ID == "y" {
		t.Errorf("second attach kept taken ids: %+v", second)
	}
	if kp.Children[0].ID != "y" {
		t.Error("Attach modified its key point argument")
	}
	if got := notes.Count(&updated); got != 7 {
		t.Errorf("Count = %d, want 7", got)
	}
	if dups := notes.DuplicateIDs(&updated); len(dups) != 0 {
		t.Errorf("duplicate ids %v", dups)
	}

	if _, _, err := Attach(base, "zzz", kp); !errors.Is(err, errors.ErrCodeKeyPointNotFound) {
		t.Errorf("unknown parent err = %v", err)
	}
}
