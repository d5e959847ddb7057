package notes

import (
	"github.com/matzehuels/scribetree/pkg/errors"
)

// RootID is the reserved identifier of the root node. Key points never use it.
const RootID = "root"

// DefaultMaxDepth is the deepest key point level accepted by [Walk] callers
// that do not configure their own cap.
const DefaultMaxDepth = 64

// LectureNote is the root of a notes tree (depth 0).
type LectureNote struct {
	Summary  string     `json:"summary" bson:"summary"`
	Logistic string     `json:"logistic" bson:"logistic"`
	Children []KeyPoint `json:"children,omitempty" bson:"children,omitempty"`
}

// KeyPoint is one concept extracted from the transcript (depth >= 1).
type KeyPoint struct {
	ID       string     `json:"id" bson:"id"`
	Title    string     `json:"title" bson:"title"`
	Content  string     `json:"content" bson:"content"`
	Children []KeyPoint `json:"children,omitempty" bson:"children,omitempty"`
}

// Expansion is the object requested from the model when a key point is
// expanded with additional explanation.
type Expansion struct {
	KeyPoint KeyPoint `json:"keyPoint"`
}

// Snapshot is one immutable, point-in-time value of the growing tree.
type Snapshot struct {
	Seq  int         `json:"seq"`
	Note LectureNote `json:"note"`
	Done bool        `json:"done,omitempty"`
}

// IsEmpty reports whether nothing has been generated yet.
func (n *LectureNote) IsEmpty() bool {
	return n.Summary == "" && n.Logistic == "" && len(n.Children) == 0
}

// Clone returns a deep copy of the note. Nil and empty child lists are preserved.
func (n LectureNote) Clone() LectureNote {
	out := LectureNote{Summary: n.Summary, Logistic: n.Logistic}

	type pair struct{ src, dst *[]KeyPoint }
	stack := []pair{{&n.Children, &out.Children}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if *p.src == nil {
			continue
		}
		*p.dst = make([]KeyPoint, len(*p.src))
		for i := range *p.src {
			s, d := &(*p.src)[i], &(*p.dst)[i]
			*d = KeyPoint{ID: s.ID, Title: s.Title, Content: s.Content}
			stack = append(stack, pair{&s.Children, &d.Children})
		}
	}
	return out
}

// Count returns the number of nodes in the tree, root included.
func Count(n *LectureNote) int {
	count := 1
	_ = Walk(n, 0, func(*KeyPoint, int, []int) error {
		count++
		return nil
	})
	return count
}

// Depth returns the depth of the deepest key point (0 for a bare root).
func Depth(n *LectureNote) int {
	deepest := 0
	_ = Walk(n, 0, func(_ *KeyPoint, depth int, _ []int) error {
		deepest = max(deepest, depth)
		return nil
	})
	return deepest
}

// Find returns the first key point with the given id in pre-order.
func Find(n *LectureNote, id string) (*KeyPoint, bool) {
	var found *KeyPoint
	_ = Walk(n, 0, func(kp *KeyPoint, _ int, _ []int) error {
		if kp.ID == id {
			found = kp
			return errStop
		}
		return nil
	})
	return found, found != nil
}

// InsertChildren returns a copy of n with kps appended to the children of the
// key point identified by parentID. An empty parentID or [RootID] appends to
// the root. The input note is not modified.
func InsertChildren(n LectureNote, parentID string, kps ...KeyPoint) (LectureNote, error) {
	out := n.Clone()
	if parentID == "" || parentID == RootID {
		out.Children = append(out.Children, kps...)
		return out, nil
	}

	parent, ok := Find(&out, parentID)
	if !ok {
		return LectureNote{}, errors.New(errors.ErrCodeKeyPointNotFound, "key point %q not found", parentID)
	}
	parent.Children = append(parent.Children, kps...)
	return out, nil
}
