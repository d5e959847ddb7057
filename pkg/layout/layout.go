package layout

import "github.com/matzehuels/scribetree/pkg/notes"

// =============================================================================
// Types
// =============================================================================

// Node types.
const (
	TypeSummary  = "summary"
	TypeKeyPoint = "keyPoint"
)

// Position is the top-left anchor of a node.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// NodeData is the payload shown by the renderer. Summary nodes carry Summary
// and Logistic; key point nodes carry Title and Content.
type NodeData struct {
	Summary  string `json:"summary,omitempty" bson:"summary,omitempty"`
	Logistic string `json:"logistic,omitempty" bson:"logistic,omitempty"`
	Title    string `json:"title,omitempty" bson:"title,omitempty"`
	Content  string `json:"content,omitempty" bson:"content,omitempty"`
}

// Node is one positioned box. Width and Height are optional; zero means the
// renderer decides.
type Node struct {
	ID       string   `json:"id" bson:"id"`
	Type     string   `json:"type" bson:"type"`
	Position Position `json:"position" bson:"position"`
	Width    float64  `json:"width,omitempty" bson:"width,omitempty"`
	Height   float64  `json:"height,omitempty" bson:"height,omitempty"`
	Data     NodeData `json:"data" bson:"data"`
}

// Edge connects a parent node to one of its children.
type Edge struct {
	ID     string `json:"id" bson:"id"`
	Source string `json:"source" bson:"source"`
	Target string `json:"target" bson:"target"`
}

// EdgeID returns the identifier of the edge from source to target.
func EdgeID(source, target string) string {
	return "e" + source + "-" + target
}

// Result is a computed layout. Nodes are in depth-first pre-order with the
// root first; edges are in the order their child was visited.
type Result struct {
	Nodes []Node `json:"nodes" bson:"nodes"`
	Edges []Edge `json:"edges" bson:"edges"`
}

// =============================================================================
// Options
// =============================================================================

// Default placement constants.
const (
	DefaultGap            = 600
	DefaultSmallIncrement = 200
	DefaultLargeIncrement = 400
)

// Options tunes [Compute]. Zero fields take their defaults.
type Options struct {
	// Gap is the horizontal distance between adjacent siblings.
	Gap float64
	// SmallIncrement is the vertical distance from the root to its children.
	SmallIncrement float64
	// LargeIncrement is the vertical distance between deeper levels.
	LargeIncrement float64
	// MaxDepth caps the key point depth; deeper trees fail with TREE_TOO_DEEP.
	MaxDepth int
	// NodeWidth and NodeHeight, when set, are declared on every node.
	NodeWidth  float64
	NodeHeight float64
}

func (o Options) withDefaults() Options {
	if o.Gap <= 0 {
		o.Gap = DefaultGap
	}
	if o.SmallIncrement <= 0 {
		o.SmallIncrement = DefaultSmallIncrement
	}
	if o.LargeIncrement <= 0 {
		o.LargeIncrement = DefaultLargeIncrement
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = notes.DefaultMaxDepth
	}
	return o
}

// =============================================================================
// Compute
// =============================================================================

// placed is an ancestor on the current root-to-node path.
type placed struct {
	id       string
	pos      Position
	children int
}

// Compute lays out n in a single pre-order pass. It never fails on partial
// input; the only error is a tree deeper than [Options.MaxDepth].
func Compute(n *notes.LectureNote, opts Options) (Result, error) {
	opts = opts.withDefaults()
	total := notes.Count(n)

	res := Result{
		Nodes: make([]Node, 0, total),
		Edges: make([]Edge, 0, total-1),
	}
	res.Nodes = append(res.Nodes, Node{
		ID:     notes.RootID,
		Type:   TypeSummary,
		Width:  opts.NodeWidth,
		Height: opts.NodeHeight,
		Data:   NodeData{Summary: n.Summary, Logistic: n.Logistic},
	})

	ids := notes.NewIDSet()
	// ancestors[d] is the node at depth d on the path to the current key point.
	ancestors := []placed{{id: notes.RootID, children: len(n.Children)}}

	err := notes.Walk(n, opts.MaxDepth, func(kp *notes.KeyPoint, depth int, path []int) error {
		parent := ancestors[depth-1]
		i := path[len(path)-1]

		pos := Position{
			X: parent.pos.X + offset(i, parent.children, opts.Gap),
			Y: parent.pos.Y + opts.LargeIncrement,
		}
		if depth <= 1 {
			pos.Y = parent.pos.Y + opts.SmallIncrement
		}

		id := ids.Claim(kp.ID, path)
		res.Nodes = append(res.Nodes, Node{
			ID:       id,
			Type:     TypeKeyPoint,
			Position: pos,
			Width:    opts.NodeWidth,
			Height:   opts.NodeHeight,
			Data:     NodeData{Title: kp.Title, Content: kp.Content},
		})
		res.Edges = append(res.Edges, Edge{ID: EdgeID(parent.id, id), Source: parent.id, Target: id})

		ancestors = append(ancestors[:depth], placed{id: id, pos: pos, children: len(kp.Children)})
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Offsets returns the horizontal offsets of n siblings relative to their
// parent. They are symmetric about zero and spaced gap apart: for even n the
// first offset is -(n/2)*gap + gap/2, for odd n it is -(n/2)*gap.
func Offsets(n int, gap float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = offset(i, n, gap)
	}
	return out
}

func offset(i, n int, gap float64) float64 {
	return (float64(i) - float64(n-1)/2) * gap
}
