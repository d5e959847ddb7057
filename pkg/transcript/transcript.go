// Package transcript reads lecture transcripts from pasted text and files.
//
// Plain text (.txt, .vtt, .srt), Markdown, PDF and Word (.docx) inputs are
// supported. Every format is reduced to normalized plain text: Unix line
// endings, no trailing whitespace and at most one blank line between
// paragraphs. Caption timestamps are removed from .vtt and .srt files.
package transcript

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/matzehuels/scribetree/pkg/errors"
)

// MaxFileBytes bounds the raw size of an uploaded file. The extracted text
// is separately bounded by errors.MaxTranscriptBytes.
const MaxFileBytes = 32 << 20

// Transcript is extracted lecture text.
type Transcript struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Text   string `json:"text"`
}

// Format names.
const (
	FormatText     = "text"
	FormatCaptions = "captions"
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"
	FormatDOCX     = "docx"
)

// FormatFor returns the format for a filename, or "" if unsupported.
// Names without an extension are treated as plain text.
func FormatFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case "", ".txt", ".text":
		return FormatText
	case ".vtt", ".srt":
		return FormatCaptions
	case ".md", ".markdown":
		return FormatMarkdown
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	default:
		return ""
	}
}

// FromText wraps pasted text.
func FromText(text string) (Transcript, error) {
	t := Transcript{Name: "pasted", Format: FormatText, Text: Normalize(text)}
	if err := errors.ValidateTranscript(t.Text); err != nil {
		return Transcript{}, err
	}
	return t, nil
}

// Read extracts the transcript from r, choosing the parser by filename.
func Read(r io.Reader, filename string) (Transcript, error) {
	format := FormatFor(filename)
	if format == "" {
		return Transcript{}, unsupported(filename)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxFileBytes+1))
	if err != nil {
		return Transcript{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if len(data) > MaxFileBytes {
		return Transcript{}, errors.New(errors.ErrCodeInvalidTranscript, "file %q exceeds %d MiB", filepath.Base(filename), MaxFileBytes>>20)
	}

	var text string
	switch format {
	case FormatText:
		text = string(data)
	case FormatCaptions:
		text = stripCaptions(string(data))
	case FormatMarkdown:
		text = markdownText(data)
	case FormatPDF:
		text, err = pdfText(bytes.NewReader(data), int64(len(data)))
	case FormatDOCX:
		text, err = docxText(bytes.NewReader(data), int64(len(data)))
	}
	if err != nil {
		return Transcript{}, errors.Wrap(errors.ErrCodeInvalidTranscript, err, "extract text from %s", filepath.Base(filename))
	}

	t := Transcript{
		Name:   strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
		Format: format,
		Text:   Normalize(text),
	}
	if err := errors.ValidateTranscript(t.Text); err != nil {
		return Transcript{}, err
	}
	return t, nil
}

// ReadFile extracts the transcript from the file at path. "-" reads stdin.
func ReadFile(path string) (Transcript, error) {
	if path == "-" {
		t, err := Read(os.Stdin, "stdin.txt")
		t.Name = "stdin"
		return t, err
	}
	if FormatFor(path) == "" {
		return Transcript{}, unsupported(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return Transcript{}, err
	}
	defer f.Close()
	return Read(f, path)
}

func unsupported(filename string) error {
	return errors.New(errors.ErrCodeInvalidFormat,
		"unsupported transcript file %q (want .txt, .vtt, .srt, .md, .pdf or .docx)", filepath.Base(filename))
}

var blankRunsRe = regexp.MustCompile(`\n{3,}`)

// Normalize converts line endings, trims trailing whitespace on every line
// and collapses runs of blank lines.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n\n")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t ")
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankRunsRe.ReplaceAllString(text, "\n\n"))
}

var (
	cueTimingRe = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?[.,]\d{3}\s+-->\s+`)
	cueIndexRe  = regexp.MustCompile(`^\d+$`)
)

// stripCaptions drops WebVTT/SRT headers, cue numbers and timings and joins
// the caption lines of each cue.
func stripCaptions(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "", strings.HasPrefix(line, "WEBVTT"), strings.HasPrefix(line, "NOTE"):
			continue
		case cueIndexRe.MatchString(line), cueTimingRe.MatchString(line):
			continue
		}
		if n := len(out); n > 0 && out[n-1] == line {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
