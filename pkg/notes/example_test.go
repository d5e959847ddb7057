package notes_test

import (
	"fmt"

	"github.com/matzehuels/scribetree/pkg/notes"
)

func ExampleDecodePartial() {
	// A model response cut off in the middle of a key point title.
	text := `{"summary":"Carbon nanotubes","logistic":"Quiz on Friday","children":[{"id":"k1","title":"Struc`

	n, ok := notes.DecodePartial(text)
	fmt.Println(ok, n.Summary, len(n.Children), n.Children[0].Title)
	// Output:
	// true Carbon nanotubes 1 Struc
}

func ExampleInsertChildren() {
	n := notes.LectureNote{Children: []notes.KeyPoint{{ID: "k1", Title: "Structure"}}}

	n, err := notes.InsertChildren(n, "k1", notes.KeyPoint{ID: "k2", Title: "Chirality"})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println(notes.Count(&n), notes.Depth(&n))
	// Output:
	// 3 2
}
