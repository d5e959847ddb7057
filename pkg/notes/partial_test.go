package notes

import "testing"

func TestDecodePartialComplete(t *testing.T) {
	text := `{"summary":"S","logistic":"L","children":[{"id":"a","title":"A","content":"c","children":[]}]}`

	n, ok := DecodePartial(text)
	if !ok {
		t.Fatal("DecodePartial() = false for complete document")
	}
	if n.Summary != "S" || n.Logistic != "L" || len(n.Children) != 1 || n.Children[0].ID != "a" {
		t.Errorf("decoded = %+v", n)
	}
}

func TestDecodePartialTruncated(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		check func(t *testing.T, n LectureNote)
	}{
		{
			name: "truncated summary string",
			text: `{"summary":"Intro to nano`,
			check: func(t *testing.T, n LectureNote) {
				if n.Summary != "Intro to nano" {
					t.Errorf("Summary = %q", n.Summary)
				}
			},
		},
		{
			name: "open children array",
			text: `{"summary":"S","logistic":"L","children":[`,
			check: func(t *testing.T, n LectureNote) {
				if n.Summary != "S" || len(n.Children) != 0 {
					t.Errorf("decoded = %+v", n)
				}
			},
		},
		{
			name: "key point mid title",
			text: `{"summary":"S","logistic":"L","children":[{"id":"a","title":"Carb`,
			check: func(t *testing.T, n LectureNote) {
				if len(n.Children) != 1 || n.Children[0].ID != "a" {
					t.Fatalf("children = %+v", n.Children)
				}
				if n.Children[0].Title != "Carb" {
					t.Errorf("Title = %q, want Carb", n.Children[0].Title)
				}
			},
		},
		{
			name: "fenced with prose",
			text: "Here are the notes:\n```json\n{\"summary\":\"S\",\"logistic\":\"L\"",
			check: func(t *testing.T, n LectureNote) {
				if n.Summary != "S" || n.Logistic != "L" {
					t.Errorf("decoded = %+v", n)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := DecodePartial(tt.text)
			if !ok {
				t.Fatalf("DecodePartial(%q) = false", tt.text)
			}
			tt.check(t, n)
		})
	}
}

func TestDecodePartialNothingYet(t *testing.T) {
	for _, text := range []string{"", "   ", "```json\n", "Sure, here"} {
		if _, ok := DecodePartial(text); ok {
			t.Errorf("DecodePartial(%q) = true, want false", text)
		}
	}
}

func TestDecodePartialExpansion(t *testing.T) {
	var e Expansion
	if !DecodePartialInto(`{"keyPoint":{"id":"n1","title":"Why","content":"Because`, &e) {
		t.Fatal("DecodePartialInto() = false")
	}
	if e.KeyPoint.ID != "n1" || e.KeyPoint.Content != "Because" {
		t.Errorf("expansion = %+v", e)
	}
}

func TestStripFence(t *testing.T) {
	tests := []struct{ in, want string }{
		{"```json\n{}\n```", "{}"},
		{"```\n{\"a\":1}", "{\"a\":1}"},
		{"  {}  ", "{}"},
	}
	for _, tt := range tests {
		if got := StripFence(tt.in); got != tt.want {
			t.Errorf("StripFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
