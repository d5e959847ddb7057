package notes

import (
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/kaptinlin/jsonrepair"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	fenceOpenRe  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	fenceCloseRe = regexp.MustCompile("\\s*```\\s*$")
)

// StripFence removes a markdown code fence wrapped around model output.
// Unterminated fences are handled so streaming text can be stripped too.
func StripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = fenceOpenRe.ReplaceAllString(text, "")
	return fenceCloseRe.ReplaceAllString(text, "")
}

// DecodePartial decodes possibly truncated model output into a LectureNote.
// It returns false while nothing decodable has arrived yet.
func DecodePartial(text string) (LectureNote, bool) {
	var n LectureNote
	if !DecodePartialInto(text, &n) {
		return LectureNote{}, false
	}
	return n, true
}

// DecodePartialInto decodes possibly truncated JSON object text into v.
// Complete documents are decoded directly; truncated ones are repaired
// first. Leading prose before the first '{' is ignored.
func DecodePartialInto(text string, v any) bool {
	text = StripFence(text)
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return false
	}
	text = text[start:]

	if err := json.UnmarshalFromString(text, v); err == nil {
		return true
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return false
	}
	return json.UnmarshalFromString(repaired, v) == nil
}
