package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/scribetree/pkg/notes"
)

// docsCommand creates the docs command for managing stored documents.
func (c *CLI) docsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List and delete stored notes",
	}

	cmd.AddCommand(c.docsListCommand())
	cmd.AddCommand(c.docsDeleteCommand())

	return cmd
}

func (c *CLI) docsListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored documents, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			docs, err := st.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				printInfo("No stored documents")
				return nil
			}
			w := cmd.OutOrStdout()
			for _, d := range docs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", d.ID, d.CreatedAt.Local().Format("2006-01-02 15:04"), d.Title, notes.Count(&d.Note))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of documents")

	return cmd
}

func (c *CLI) docsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>...",
		Short: "Delete stored documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			for _, id := range args {
				if err := st.Delete(ctx, id); err != nil {
					return err
				}
			}
			printSuccess("Deleted %d document(s)", len(args))
			return nil
		},
	}
}
