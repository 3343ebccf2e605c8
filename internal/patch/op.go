// Package patch defines the edit-script model: position-addressed insert,
// delete, and replace operations and a deterministic applier that composes
// them against a single content snapshot.
package patch

import "sort"

// OpKind discriminates the edit operation variants.
type OpKind string

// Edit operation kinds.
const (
	OpInsert  OpKind = "insert"
	OpDelete  OpKind = "delete"
	OpReplace OpKind = "replace"
)

// Op is one edit addressed by byte offsets into the content snapshot it was
// computed against. Start is inclusive, End exclusive. End is meaningful for
// delete and replace only; Text for insert and replace only.
//
// Offsets always reference the original snapshot, never a partially patched
// intermediate string. Ops in one set must be non-overlapping; overlapping
// ops produce unspecified but non-panicking results.
type Op struct {
	Kind  OpKind `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Insert returns an op inserting text at start.
func Insert(start int, text string) Op {
	return Op{Kind: OpInsert, Start: start, Text: text}
}

// Delete returns an op removing the [start, end) span.
func Delete(start, end int) Op {
	return Op{Kind: OpDelete, Start: start, End: end}
}

// Replace returns an op substituting text for the [start, end) span.
func Replace(start, end int, text string) Op {
	return Op{Kind: OpReplace, Start: start, End: end, Text: text}
}

// Apply composes ops against content and returns the patched string. It is
// pure: the input slice is left untouched and the result is independent of
// the order ops were supplied in (only offsets matter). Ops sharing a Start
// apply in slice order.
//
// Ops are applied tail-to-head (highest Start first) so an edit at a lower
// offset never shifts the offsets of edits not yet applied. Malformed ops
// degrade instead of failing: out-of-range offsets are clamped, a delete
// without a usable End is a no-op, a replace without one degenerates to an
// insert. Applying the same ops twice is not idempotent; callers discard
// ops after one application.
func Apply(content string, ops []Op) string {
	if len(ops) == 0 {
		return content
	}

	sorted := make([]Op, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start > sorted[j].Start
	})

	out := content
	for _, op := range sorted {
		out = applyOne(out, op)
	}
	return out
}

// applyOne applies a single op to s with clamped offsets.
func applyOne(s string, op Op) string {
	start := clamp(op.Start, 0, len(s))

	switch op.Kind {
	case OpInsert:
		return s[:start] + op.Text + s[start:]

	case OpDelete:
		if op.End < op.Start {
			// No usable end: deleting an unknown span is a no-op.
			return s
		}
		end := clamp(op.End, start, len(s))
		return s[:start] + s[end:]

	case OpReplace:
		end := op.End
		if end < op.Start {
			end = op.Start
		}
		end = clamp(end, start, len(s))
		return s[:start] + op.Text + s[end:]

	default:
		return s
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
