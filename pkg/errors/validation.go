package errors

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTranscriptBytes bounds the transcript size accepted by the generator.
const MaxTranscriptBytes = 2 << 20

// ValidateTranscript rejects transcripts that cannot be summarized.
//
// The rules are intentionally conservative:
//   - Not empty or whitespace only
//   - Valid UTF-8
//   - No null bytes
//   - At most MaxTranscriptBytes
func ValidateTranscript(text string) error {
	if strings.TrimSpace(text) == "" {
		return New(ErrCodeInvalidTranscript, "transcript cannot be empty")
	}

	if len(text) > MaxTranscriptBytes {
		return New(ErrCodeInvalidTranscript, "transcript too long (max %d bytes)", MaxTranscriptBytes)
	}

	if !utf8.ValidString(text) {
		return New(ErrCodeInvalidTranscript, "transcript is not valid UTF-8")
	}

	if strings.ContainsRune(text, '\x00') {
		return New(ErrCodeInvalidTranscript, "transcript contains null bytes")
	}

	return nil
}

// ValidateFilename validates an uploaded transcript filename for safety.
// It ensures the filename is a simple basename without path components.
func ValidateFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidFilename, "filename cannot be empty")
	}

	if len(filename) > 255 {
		return New(ErrCodeInvalidFilename, "filename too long (max 255 characters)")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidFilename, "filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidFilename, "filename cannot be a hidden file")
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidFilename, "filename contains invalid control characters")
		}
	}

	if filepath.Ext(filename) == "" {
		return New(ErrCodeInvalidFilename, "filename has no extension")
	}

	return nil
}

// ValidateIdentifier validates a document or key point identifier taken
// from a URL path or tool argument.
func ValidateIdentifier(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "identifier cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "identifier too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "identifier contains invalid characters")
		}
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
