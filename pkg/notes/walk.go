package notes

import (
	"errors"
	"slices"

	scerrors "github.com/matzehuels/scribetree/pkg/errors"
)

// errStop ends a walk early without reporting an error to the caller.
var errStop = errors.New("stop walk")

// Visitor is called for every key point in pre-order. depth is 1 for the
// root's children; path holds the child index at every level and must not be
// retained after the call.
type Visitor func(kp *KeyPoint, depth int, path []int) error

type frame struct {
	kp    *KeyPoint
	depth int
	path  []int
}

// Walk visits every key point of n in depth-first pre-order using an explicit
// stack. A maxDepth <= 0 disables the cap; otherwise reaching a key point
// deeper than maxDepth returns a TREE_TOO_DEEP error before it is visited.
func Walk(n *LectureNote, maxDepth int, fn Visitor) error {
	stack := make([]frame, 0, len(n.Children))
	for i := len(n.Children) - 1; i >= 0; i-- {
		stack = append(stack, frame{kp: &n.Children[i], depth: 1, path: []int{i}})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if maxDepth > 0 && f.depth > maxDepth {
			return scerrors.New(scerrors.ErrCodeTooDeep, "notes tree exceeds maximum depth %d", maxDepth)
		}

		if err := fn(f.kp, f.depth, f.path); err != nil {
			if errors.Is(err, errStop) {
				return nil
			}
			return err
		}

		for i := len(f.kp.Children) - 1; i >= 0; i-- {
			path := append(slices.Clip(f.path), i)
			stack = append(stack, frame{kp: &f.kp.Children[i], depth: f.depth + 1, path: path})
		}
	}
	return nil
}
