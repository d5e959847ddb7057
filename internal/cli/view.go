package cli

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/matzehuels/scribetree/pkg/notes"
)

// viewCommand creates the view command for browsing notes in the terminal.
func (c *CLI) viewCommand() *cobra.Command {
	var (
		plain bool
		style string
		width int
	)

	cmd := &cobra.Command{
		Use:   "view <notes.json|document-id>",
		Short: "Browse notes in the terminal",
		Long: `Browse a note tree as an interactive accordion: open a key point to read
its content and reveal its children.

With --plain the notes are rendered once as styled markdown and printed,
which also works when stdout is not a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note, _, err := c.loadNote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if plain {
				return renderPlain(cmd.OutOrStdout(), &note, style, width)
			}
			return runBrowser(cmd.Context(), note)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print rendered markdown instead of the interactive view")
	cmd.Flags().StringVar(&style, "style", "auto", "markdown style for --plain: auto, dark, light, notty, ascii")
	cmd.Flags().IntVar(&width, "width", 100, "word wrap width for --plain")

	return cmd
}

// renderPlain prints the markdown export of n through glamour.
func renderPlain(w io.Writer, n *notes.LectureNote, style string, width int) error {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(notes.Markdown(n))
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func runBrowser(ctx context.Context, n notes.LectureNote) error {
	p := tea.NewProgram(NewNoteModel(n), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
