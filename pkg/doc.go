// Package pkg provides the core libraries for scribetree lecture notes.
//
// # Overview
//
// Scribetree turns a lecture transcript into a tree of notes: a summary, a
// logistics line, and nested key points that can each be expanded on demand.
// The note tree streams in while the model writes it, is laid out as a graph
// for display, and can be exported as Markdown, HTML or JSON.
//
// # Architecture
//
// The typical data flow:
//
//	Transcript (txt, vtt, srt, md, pdf, docx)
//	         ↓
//	    [transcript] package (read + normalize)
//	         ↓
//	    [llm] package (stream structured JSON from the model)
//	         ↓
//	    [notes] package (partial decode, validate, ids)
//	         ↓
//	    [layout] package (node/edge positions, Graphviz arrange)
//	         ↓
//	    Markdown/HTML/JSON/layout output
//
// [pipeline] ties these steps together and is shared by the CLI, the HTTP
// API and the MCP tools.
//
// # Quick Start
//
//	provider, _ := llm.New(llm.Config{Provider: "openai", APIKey: key})
//	runner := pipeline.NewRunner(provider, cache.NewNullCache(), nil, logger)
//	defer runner.Close()
//
//	tr, _ := transcript.ReadFile("lecture.vtt")
//	res, _ := runner.Generate(ctx, tr.Text, pipeline.Options{}, nil)
//
//	l, _ := layout.Compute(&res.Note, layout.Options{})
//	md, _ := pipeline.Export(ctx, &res.Note, pipeline.FormatMarkdown, layout.Options{})
//
// # Main Packages
//
// [notes] - The lecture note tree, its JSON schema, partial decoding of a
// streaming response, traversal and Markdown/HTML rendering.
//
// [layout] - Deterministic graph layout of a note tree and optional
// re-arrangement with Graphviz.
//
// [llm] - Streaming chat clients for OpenAI and Anthropic.
//
// [transcript] - Transcript readers for plain text, captions, Markdown, PDF
// and DOCX.
//
// [pipeline] - Generation, expansion and export.
//
// ## Infrastructure
//
// [cache] - Content-addressed cache of finished notes with file, Redis and
// null backends.
//
// [store] - Saved documents in memory, SQLite or MongoDB.
//
// [httputil] - Retry with backoff and server-sent event reading.
//
// [observability] - Hooks for pipeline, cache and HTTP events with a
// Prometheus implementation.
//
// [errors] - Coded errors shared by every entry point.
//
// [notes]: https://pkg.go.dev/github.com/matzehuels/scribetree/pkg/notes
// [layout]: https://pkg.go.dev/github.com/matzehuels/scribetree/pkg/layout
// [llm]: https://pkg.go.dev/github.com/matzehuels/scribetree/pkg/llm
// [transcript]: https://pkg.go.dev/github.com/matzehuels/scribetree/pkg/transcript
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/scribetree/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/scribetree/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/scribetree/pkg/store
// [httputil]: https://pkg.go.dev/github.com/matzehuels/scribetree/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/scribetree/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/scribetree/pkg/errors
package pkg
