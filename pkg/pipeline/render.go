package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/matzehuels/scribetree/pkg/errors"
	"github.com/matzehuels/scribetree/pkg/layout"
	"github.com/matzehuels/scribetree/pkg/notes"
)

// Export formats.
const (
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatJSON     = "json"
	FormatLayout   = "layout"
)

// ValidFormats is the set of supported export formats.
var ValidFormats = map[string]bool{
	FormatMarkdown: true,
	FormatHTML:     true,
	FormatJSON:     true,
	FormatLayout:   true,
}

// ContentTypes maps export formats to HTTP content types.
var ContentTypes = map[string]string{
	FormatMarkdown: "text/markdown; charset=utf-8",
	FormatHTML:     "text/html; charset=utf-8",
	FormatJSON:     "application/json",
	FormatLayout:   "application/json",
}

// ValidateFormat checks that a format is valid. "markdown" is accepted as an
// alias of "md".
func ValidateFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "markdown" {
		format = FormatMarkdown
	}
	if !ValidFormats[format] {
		return "", errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: md, html, json, layout)", format)
	}
	return format, nil
}

// Export renders a note in the given format.
func Export(ctx context.Context, n *notes.LectureNote, format string, opts layout.Options) ([]byte, error) {
	format, err := ValidateFormat(format)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatMarkdown:
		return []byte(notes.Markdown(n)), nil
	case FormatHTML:
		html, err := notes.HTML(n)
		if err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
		return []byte(html), nil
	case FormatJSON:
		return json.MarshalIndent(n, "", "  ")
	default:
		res, err := ComputeLayout(ctx, n, opts)
		if err != nil {
			return nil, err
		}
		return layout.MarshalResult(res)
	}
}
