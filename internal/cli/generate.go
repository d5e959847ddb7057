package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/scribetree/pkg/notes"
	"github.com/matzehuels/scribetree/pkg/pipeline"
	"github.com/matzehuels/scribetree/pkg/store"
	"github.com/matzehuels/scribetree/pkg/transcript"
)

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	runnerFlags
	text      string // transcript given inline
	title     string // document title (default: derived from the summary)
	output    string // output file (default: stdout)
	format    string // md, html, json or layout
	refresh   bool   // bypass the cache lookup
	noSave    bool   // skip the document store
	maxTokens int
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	opts := generateOpts{format: pipeline.FormatMarkdown}

	cmd := &cobra.Command{
		Use:   "generate [transcript]",
		Short: "Generate lecture notes from a transcript",
		Long: `Generate hierarchical lecture notes from a transcript.

The transcript is read from a file (.txt, .vtt, .srt, .md, .pdf, .docx),
from stdin with "-", or inline with --text. The model output is streamed
and the note tree grows as key points arrive. Finished notes are cached by
transcript, provider and model, and saved to the document store so that
'expand', 'view' and 'export' can refer to them by id.`,
		Example: `  scribe generate lecture.vtt
  scribe generate lecture.pdf -f html -o notes.html
  pbpaste | scribe generate - --provider anthropic`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := readTranscript(args, opts.text)
			if err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), cmd.OutOrStdout(), tr, opts)
		},
	}

	opts.runnerFlags.register(cmd)
	cmd.Flags().StringVar(&opts.text, "text", "", "transcript text (instead of a file)")
	cmd.Flags().StringVar(&opts.title, "title", "", "document title")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: md, html, json, layout")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "regenerate even if the notes are cached")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "do not save the notes to the document store")
	cmd.Flags().IntVar(&opts.maxTokens, "max-tokens", 0, "bound the model output (default: from config)")

	return cmd
}

// readTranscript resolves the transcript from a path argument or --text.
func readTranscript(args []string, text string) (transcript.Transcript, error) {
	switch {
	case text != "" && len(args) > 0:
		return transcript.Transcript{}, fmt.Errorf("give either a transcript file or --text, not both")
	case text != "":
		return transcript.FromText(text)
	case len(args) == 1:
		return transcript.ReadFile(args[0])
	default:
		return transcript.Transcript{}, fmt.Errorf("no transcript: pass a file, - for stdin, or --text")
	}
}

func (c *CLI) runGenerate(ctx context.Context, w io.Writer, tr transcript.Transcript, opts generateOpts) error {
	format, err := pipeline.ValidateFormat(opts.format)
	if err != nil {
		return err
	}
	cfg, err := c.config()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, opts.runnerFlags)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Waiting for the model...")
	spinner.Start()

	popts := pipeline.Options{
		MaxTokens: opts.maxTokens,
		Refresh:   opts.refresh,
		Layout:    cfg.LayoutOptions(),
		Logger:    c.Logger,
	}
	res, err := runner.Generate(ctx, tr.Text, popts, func(u pipeline.Update) error {
		if !u.Snapshot.Done {
			spinner.SetMessage(fmt.Sprintf("Writing notes... %d key points", len(u.Layout.Nodes)-1))
		}
		return nil
	})
	if err != nil {
		spinner.StopWithError("Generation failed")
		return err
	}
	spinner.Stop()
	prog.done("Generated notes", "snapshots", res.Stats.Snapshots, "nodes", res.Stats.NodeCount, "cached", res.CacheHit)

	if len(res.Stats.Duplicates) > 0 {
		printWarning("Renamed duplicate key point ids: %v", res.Stats.Duplicates)
	}

	var docID string
	if !opts.noSave {
		if docID, err = c.saveDocument(ctx, tr, opts.title, res); err != nil {
			return fmt.Errorf("save document: %w", err)
		}
	}

	data, err := pipeline.Export(ctx, &res.Note, format, cfg.LayoutOptions())
	if err != nil {
		return err
	}
	if err := writeOutput(w, opts.output, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	printSuccess("Notes ready")
	if opts.output != "" && opts.output != "-" {
		printFile(opts.output)
	}
	printStats(res.Stats.NodeCount, res.Stats.Depth, res.CacheHit)
	if docID != "" {
		printDetail("Document: %s", docID)
		printNewline()
		printNextStep("Browse", appName+" view "+docID)
	}
	return nil
}

// saveDocument stores a finished generation and returns its id.
func (c *CLI) saveDocument(ctx context.Context, tr transcript.Transcript, title string, res *pipeline.Result) (string, error) {
	st, err := c.openStore(ctx)
	if err != nil {
		return "", err
	}
	defer st.Close()

	if title == "" && tr.Name != "" && tr.Name != "pasted" {
		title = tr.Name
	}
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
	if err := st.Save(ctx, doc); err != nil {
		return "", err
	}
	c.Logger.Debug("Saved document", "id", doc.ID, "title", doc.Title, "nodes", notes.Count(&doc.Note))
	return doc.ID, nil
}
