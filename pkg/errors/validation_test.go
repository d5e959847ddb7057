package errors

import (
	"strings"
	"testing"
)

func TestValidateTranscript(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "Today we cover carbon nanotubes.", false},
		{"multiline", "line one\nline two", false},

		{"empty", "", true},
		{"whitespace", "  \n\t ", true},
		{"too long", strings.Repeat("a", MaxTranscriptBytes+1), true},
		{"invalid utf8", "abc\xff", true},
		{"null byte", "abc\x00def", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTranscript(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTranscript() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidTranscript) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidTranscript)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid txt", "lecture-01.txt", false},
		{"valid pdf", "Week 3 Notes.pdf", false},

		{"empty", "", true},
		{"path", "dir/lecture.txt", true},
		{"windows path", "dir\\lecture.txt", true},
		{"hidden", ".secret.txt", true},
		{"no extension", "lecture", true},
		{"control char", "lec\x01ture.txt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"uuid", "4f1c2a9e-8f53-4c1b-9f57-0a3c2f7e1d10", false},
		{"short", "kp-1", false},

		{"empty", "", true},
		{"space", "a b", true},
		{"newline", "a\nb", true},
		{"too long", strings.Repeat("x", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateIdentifier(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"https://api.openai.com/v1", false},
		{"http://localhost:8080", false},
		{"", true},
		{"ftp://example.com", true},
	}

	for _, tt := range tests {
		if err := ValidateURL(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
