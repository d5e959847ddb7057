package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/scribetree/pkg/notes"
	"github.com/matzehuels/scribetree/pkg/pipeline"
	"github.com/matzehuels/scribetree/pkg/store"
)

// expandCommand creates the expand command ("know more" on a key point).
func (c *CLI) expandCommand() *cobra.Command {
	var (
		rf     runnerFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "expand <notes.json|document-id> <key-point-id> <text>",
		Short: "Explain a passage of a key point as a new child key point",
		Long: `Ask the model to explain a selected passage in the context of the key
point it was taken from. The explanation is inserted as a new child of that
key point.

A stored document is updated in place. A notes file is rewritten unless
--output names another destination ("-" for stdout).`,
		Example: `  scribe expand 7f0c... kp-1 "second law of thermodynamics"
  scribe expand notes.json kp-2-1 "entropy" -o notes.expanded.json`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExpand(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], args[2], rf, output)
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the expanded notes here instead of updating the source")

	return cmd
}

func (c *CLI) runExpand(ctx context.Context, w io.Writer, ref, parentID, text string, rf runnerFlags, output string) error {
	note, doc, err := c.loadNote(ctx, ref)
	if err != nil {
		return err
	}
	cfg, err := c.config()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, rf)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Explaining...")
	spinner.Start()
	res, err := runner.Expand(ctx, note, parentID, text, pipeline.Options{Layout: cfg.LayoutOptions(), Logger: c.Logger}, func(kp notes.KeyPoint) error {
		if kp.Title != "" {
			spinner.SetMessage("Explaining: " + kp.Title)
		}
		return nil
	})
	if err != nil {
		spinner.StopWithError("Expansion failed")
		return err
	}
	spinner.Stop()

	kp, final := res.KeyPoint, res.Note
	if doc != nil && output == "" {
		st, err := c.openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		// Attach to the stored version; it may have changed while the model ran.
		doc, err = store.Modify(ctx, st, doc.ID, func(d *store.Document) error {
			var err error
			d.Note, kp, err = pipeline.Attach(d.Note, parentID, res.KeyPoint)
			return err
		})
		if err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		final = doc.Note
	} else {
		dest := output
		if dest == "" {
			dest = ref
		}
		data, err := json.MarshalIndent(res.Note, "", "  ")
		if err != nil {
			return err
		}
		if err := writeOutput(w, dest, data); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
	}

	printSuccess("Added %q under %s", kp.DisplayTitle(), parentID)
	printStats(notes.Count(&final), notes.Depth(&final), res.CacheHit)
	return nil
}
