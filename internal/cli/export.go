package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/scribetree/pkg/pipeline"
)

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <notes.json|document-id>",
		Short: "Export notes as markdown, HTML, JSON or layout JSON",
		Long: `Export a note tree.

Formats:
  md      Summary, logistics and key points as a nested markdown list
  html    A standalone page with the key points as nested <details> accordions
  json    The note tree itself
  layout  Positioned nodes and edges for a node-graph renderer`,
		Example: `  scribe export 7f0c... -f html -o lecture.html`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			format, err := pipeline.ValidateFormat(format)
			if err != nil {
				return err
			}
			cfg, err := c.config()
			if err != nil {
				return err
			}
			note, _, err := c.loadNote(ctx, args[0])
			if err != nil {
				return err
			}
			data, err := pipeline.Export(ctx, &note, format, cfg.LayoutOptions())
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, data); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if output != "" && output != "-" {
				printSuccess("Exported %s", format)
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatMarkdown, "output format: md, html, json, layout")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	return cmd
}
