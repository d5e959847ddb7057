package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/notes"
	"github.com/matzehuels/scribetree/pkg/pipeline"
)

// layoutCommand creates the layout command for positioning a note tree.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output    string
		direction string
		gap       float64
		maxDepth  int
	)

	cmd := &cobra.Command{
		Use:   "layout <notes.json|document-id>",
		Short: "Compute node positions for a note tree",
		Long: `Compute the graph layout of a note tree.

The summary becomes the root node at (0,0); key points are placed below
their parent and spread horizontally around it. Partial notes, such as a
snapshot captured mid-stream, are accepted. The output is layout JSON
({nodes, edges}) suitable for a node-graph renderer or 'scribe arrange'.

With --direction the computed layout is re-arranged with Graphviz.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			opts := cfg.LayoutOptions()
			if cmd.Flags().Changed("gap") {
				opts.Gap = gap
			}
			if cmd.Flags().Changed("max-depth") {
				opts.MaxDepth = maxDepth
			}
			return c.runLayout(cmd.Context(), cmd.OutOrStdout(), args[0], opts, direction, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&direction, "direction", "d", "", "arrange the result: TB, BT, LR, RL")
	cmd.Flags().Float64Var(&gap, "gap", layout.DefaultGap, "horizontal distance between siblings")
	cmd.Flags().IntVar(&maxDepth, "max-depth", notes.DefaultMaxDepth, "deepest key point level accepted")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, w io.Writer, ref string, opts layout.Options, direction, output string) error {
	note, _, err := c.loadNote(ctx, ref)
	if err != nil {
		return err
	}
	res, err := pipeline.ComputeLayout(ctx, &note, opts)
	if err != nil {
		return err
	}
	if direction != "" {
		dir, err := layout.ParseDirection(direction)
		if err != nil {
			return err
		}
		if res, err = pipeline.ArrangeLayout(ctx, res, layout.ArrangeOptions{Direction: dir}); err != nil {
			return err
		}
	}
	return writeLayout(w, res, output)
}

// arrangeCommand creates the arrange command for Graphviz re-layout.
func (c *CLI) arrangeCommand() *cobra.Command {
	var (
		output    string
		direction string
	)

	cmd := &cobra.Command{
		Use:   "arrange <layout.json>",
		Short: "Re-arrange a layout with Graphviz",
		Long: `Re-arrange a layout ({nodes, edges}) with Graphviz's layered dot algorithm.

Every node position is recomputed; declared widths and heights are kept.
Use "-" to read the layout from stdin.`,
		Example: `  scribe layout notes.json | scribe arrange - -d LR`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runArrange(cmd.Context(), cmd.OutOrStdout(), args[0], direction, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&direction, "direction", "d", string(layout.TopToBottom), "rank direction: TB, BT, LR, RL")

	return cmd
}

func (c *CLI) runArrange(ctx context.Context, w io.Writer, input, direction, output string) error {
	dir, err := layout.ParseDirection(direction)
	if err != nil {
		return err
	}
	var res layout.Result
	if input == "-" {
		data, rerr := readRef(input)
		if rerr != nil {
			return fmt.Errorf("read stdin: %w", rerr)
		}
		res, err = layout.UnmarshalResult(data)
	} else {
		res, err = layout.ReadFile(input)
	}
	if err != nil {
		return err
	}

	prog := newProgress(c.Logger)
	res, err = pipeline.ArrangeLayout(ctx, res, layout.ArrangeOptions{Direction: dir})
	if err != nil {
		return err
	}
	prog.done("Arranged layout", "nodes", len(res.Nodes), "direction", dir)
	return writeLayout(w, res, output)
}

func writeLayout(w io.Writer, res layout.Result, output string) error {
	if output == "" || output == "-" {
		data, err := layout.MarshalResult(res)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	if err := layout.WriteFile(res, output); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	printSuccess("Layout complete")
	printFile(output)
	printDetail("%d nodes · %d edges", len(res.Nodes), len(res.Edges))
	return nil
}
