// Package notes defines the lecture-note tree produced by the language model
// and the operations the rest of scribetree performs on it.
//
// A [LectureNote] is the root of the tree: a summary, free-form logistics and
// an ordered list of [KeyPoint] children. Each key point carries an id, a
// title, markdown content (emphasis markers such as **term** are allowed) and
// its own ordered children. Child order is significant; it drives the
// left-to-right order of the graph layout and the accordion rendering.
//
// # Streaming
//
// The model emits the tree as a growing JSON document. [DecodePartial]
// repairs the truncated text and decodes it into the typed record, so
// consumers only ever see a [Snapshot] of strongly-typed values. Every
// snapshot replaces the previous one in full; snapshots are never patched.
//
// # Validation
//
// Partial snapshots are tolerated as-is: fields may be empty and children
// absent. The final object is validated against [Schema] with a [Validator]
// before it is accepted.
//
// # Traversal
//
// The tree has no intrinsic depth bound. [Walk] uses an explicit stack and
// fails closed with a TREE_TOO_DEEP error once the configured depth cap is
// exceeded, so pathological transcripts cannot exhaust the call stack.
package notes
