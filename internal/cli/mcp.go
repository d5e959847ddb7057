package cli

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/matzehuels/scribetree/internal/mcptools"
)

// mcpCommand creates the mcp command that serves the tools over stdio.
func (c *CLI) mcpCommand() *cobra.Command {
	var rf runnerFlags

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve scribe tools to an MCP client over stdio",
		Long: `Serve scribe as a Model Context Protocol server on stdin/stdout.

Tools:
  summarize_transcript  Generate notes from transcript text or a file
  layout_notes          Compute the graph layout of a note tree
  arrange_layout        Re-arrange a layout with Graphviz

Logs go to stderr; stdout carries the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}
			runner, err := c.serverRunner(ctx, rf)
			if err != nil {
				return err
			}
			if runner != nil {
				defer runner.Close()
			}
			st, err := c.openStore(ctx)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			c.Logger.Info("Serving MCP on stdio")
			return server.ServeStdio(mcptools.NewServer(runner, st, cfg.LayoutOptions()))
		},
	}

	rf.register(cmd)

	return cmd
}
