package action

import (
	"unicode/utf8"

	"github.com/starford/ansuz/internal/patch"
)

// diffOps reduces a whole-document rewrite to at most one op covering the
// changed region, found by trimming the longest common prefix and suffix.
// Identical inputs produce no ops.
func diffOps(oldContent, newContent string) []patch.Op {
	if oldContent == newContent {
		return nil
	}

	prefix := commonPrefixLen(oldContent, newContent)
	suffix := commonSuffixLen(oldContent[prefix:], newContent[prefix:])

	start := prefix
	end := len(oldContent) - suffix
	text := newContent[prefix : len(newContent)-suffix]

	switch {
	case start == end:
		return []patch.Op{patch.Insert(start, text)}
	case text == "":
		return []patch.Op{patch.Delete(start, end)}
	default:
		return []patch.Op{patch.Replace(start, end, text)}
	}
}

// commonPrefixLen returns the byte length of the longest shared prefix,
// backed off so it never ends inside a multi-byte rune.
func commonPrefixLen(a, b string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	// The shared bytes are identical in both strings, so a mid-rune cut in
	// one is a mid-rune cut in the other.
	for i > 0 && i < n && !utf8.RuneStart(a[i]) {
		i--
	}
	return i
}

// commonSuffixLen returns the byte length of the longest shared suffix,
// shrunk so it never starts inside a multi-byte rune.
func commonSuffixLen(a, b string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	for i > 0 && !utf8.RuneStart(a[len(a)-i]) {
		i--
	}
	return i
}
