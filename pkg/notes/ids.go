package notes

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// AssignIDs returns a copy of n where every key point without an id gets one
// from newID. A nil newID mints random UUIDs.
func AssignIDs(n LectureNote, newID func() string) LectureNote {
	if newID == nil {
		newID = uuid.NewString
	}
	out := n.Clone()
	_ = Walk(&out, 0, func(kp *KeyPoint, _ int, _ []int) error {
		if kp.ID == "" {
			kp.ID = newID()
		}
		return nil
	})
	return out
}

// DuplicateIDs returns the sorted set of non-empty key point ids that occur
// more than once, including ids that collide with [RootID].
func DuplicateIDs(n *LectureNote) []string {
	seen := map[string]int{RootID: 1}
	_ = Walk(n, 0, func(kp *KeyPoint, _ int, _ []int) error {
		if kp.ID != "" {
			seen[kp.ID]++
		}
		return nil
	})

	var dups []string
	for id, count := range seen {
		if count > 1 {
			dups = append(dups, id)
		}
	}
	slices.Sort(dups)
	return dups
}

// DedupeIDs returns a copy of n in which every key point id is unique. The
// first occurrence in pre-order keeps its id; later ones, and ids equal to
// [RootID], are renamed by [IDSet.Claim]. The result matches the node ids
// the layout assigns to n.
func DedupeIDs(n LectureNote) LectureNote {
	out := n.Clone()
	ids := NewIDSet()
	_ = Walk(&out, 0, func(kp *KeyPoint, _ int, path []int) error {
		kp.ID = ids.Claim(kp.ID, path)
		return nil
	})
	return out
}

// =============================================================================
// IDSet
// =============================================================================

// IDSet hands out unique key point ids within one tree. [RootID] is reserved.
type IDSet map[string]struct{}

// NewIDSet returns a set holding only [RootID].
func NewIDSet() IDSet {
	return IDSet{RootID: {}}
}

// Claim reserves and returns the id for the key point at path. An empty id
// becomes the path id "kp-<i>.<j>...", and a taken one gets "~<path>"
// appended until it is free.
func (s IDSet) Claim(id string, path []int) string {
	suffix := pathString(path)
	if id == "" {
		id = "kp-" + suffix
	}
	for {
		if _, taken := s[id]; !taken {
			s[id] = struct{}{}
			return id
		}
		id = fmt.Sprintf("%s~%s", id, suffix)
	}
}

func pathString(path []int) string {
	var b strings.Builder
	for i, p := range path {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}
