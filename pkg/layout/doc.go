// Package layout positions a notes tree for a node-link renderer.
//
// # Overview
//
// [Compute] turns a [notes.LectureNote] (complete or still streaming) into a
// flat list of positioned [Node] values and parent to child [Edge] values.
// It is a pure function: every snapshot is laid out from scratch in a single
// depth-first pass, so a renderer can call it on every model update and
// replace its previous result wholesale.
//
// The placement rules are deliberately simple:
//
//   - The root (id "root") sits at (0, 0).
//   - A child sits below its parent by [Options.SmallIncrement] when it is a
//     direct child of the root, and by [Options.LargeIncrement] otherwise.
//   - Siblings are spread symmetrically around their parent's x with a fixed
//     step of [Options.Gap]; see [Offsets].
//
// Sibling subtrees are not packed, so wide trees may overlap. [Arrange] is the
// on-demand alternative: it hands the graph to Graphviz's layered "dot"
// algorithm and converts the result back to top-left anchored coordinates.
//
// # Identifiers
//
// Key points normally carry their own ids. While streaming, a key point may
// arrive before its id; such nodes get a path identifier like "kp-1.0" (second
// root child, first grandchild) so that node and edge ids stay stable while
// the rest of the object fills in. Repeated ids keep the first occurrence and
// rename later ones to "<id>~<path>". The id "root" is reserved for the root.
//
// # Serialization
//
// [Result] is the wire format for layouts. [MarshalResult], [UnmarshalResult],
// [WriteFile] and [ReadFile] handle JSON round-trips.
package layout
