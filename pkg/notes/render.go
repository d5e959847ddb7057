package notes

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
)

const untitled = "Untitled"

// DisplayTitle returns the display title of a key point, with a placeholder while
// the title is still streaming.
func (kp *KeyPoint) DisplayTitle() string {
	if t := strings.TrimSpace(kp.Title); t != "" {
		return t
	}
	return untitled
}

// Markdown renders the note as markdown: a Summary and a Logistics section
// followed by the key points as a nested list.
func Markdown(n *LectureNote) string {
	var b strings.Builder

	b.WriteString("## Summary\n\n")
	writeParagraph(&b, n.Summary)
	b.WriteString("## Logistics\n\n")
	writeParagraph(&b, n.Logistic)
	b.WriteString("## Key Points\n\n")

	_ = Walk(n, 0, func(kp *KeyPoint, depth int, _ []int) error {
		indent := strings.Repeat("  ", depth-1)
		fmt.Fprintf(&b, "%s- **%s**\n", indent, kp.DisplayTitle())
		for line := range strings.SplitSeq(strings.TrimSpace(kp.Content), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fmt.Fprintf(&b, "%s  %s\n", indent, line)
			}
		}
		return nil
	})
	return b.String()
}

func writeParagraph(b *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = "_None._"
	}
	b.WriteString(text)
	b.WriteString("\n\n")
}

// HTML renders the note as an accordion: every key point is a <details>
// element whose children are nested inside it. Content markdown is converted
// with goldmark; raw HTML in content is not passed through.
func HTML(n *LectureNote) (string, error) {
	md := goldmark.New()
	convert := func(text string) (string, error) {
		var buf bytes.Buffer
		if err := md.Convert([]byte(text), &buf); err != nil {
			return "", fmt.Errorf("convert markdown: %w", err)
		}
		return buf.String(), nil
	}

	var b strings.Builder
	b.WriteString("<article class=\"lecture-note\">\n")
	for _, section := range []struct{ title, text string }{
		{"Summary", n.Summary},
		{"Logistics", n.Logistic},
	} {
		body, err := convert(section.text)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "<section>\n<h2>%s</h2>\n%s</section>\n", section.title, body)
	}
	b.WriteString("<section>\n<h2>Key Points</h2>\n")

	type item struct {
		kp    *KeyPoint
		close bool
	}
	stack := make([]item, 0, len(n.Children))
	for i := len(n.Children) - 1; i >= 0; i-- {
		stack = append(stack, item{kp: &n.Children[i]})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.close {
			b.WriteString("</details>\n")
			continue
		}

		body, err := convert(it.kp.Content)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "<details data-id=\"%s\">\n<summary>%s</summary>\n%s",
			html.EscapeString(it.kp.ID), html.EscapeString(it.kp.DisplayTitle()), body)

		stack = append(stack, item{kp: it.kp, close: true})
		for i := len(it.kp.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{kp: &it.kp.Children[i]})
		}
	}
	b.WriteString("</section>\n</article>\n")
	return b.String(), nil
}
