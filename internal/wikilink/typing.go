package wikilink

import "strings"

// TypingState describes an unterminated [[ the caret currently sits in.
// Start is the byte offset of the opening [[; Query is what has been typed
// between the brackets and the caret.
type TypingState struct {
	Query string `json:"query"`
	Start int    `json:"start"`
}

// TypingStateAt reports whether the caret at caret is inside an in-progress
// wiki link. It returns nil when no [[ precedes the caret, when the link was
// already closed with ]], or when a newline separates the [[ from the caret
// (links may not span lines). When the typed text contains a '|', the query
// is the part after it so a partially typed display segment drives the
// search instead of the already-chosen target.
func TypingStateAt(content string, caret int) *TypingState {
	if caret < 0 {
		return nil
	}
	if caret > len(content) {
		caret = len(content)
	}

	before := content[:caret]
	open := strings.LastIndex(before, "[[")
	if open < 0 {
		return nil
	}

	typed := before[open+2:]
	if strings.Contains(typed, "]]") || strings.ContainsRune(typed, '\n') {
		return nil
	}

	query := typed
	if i := strings.IndexByte(typed, '|'); i >= 0 {
		query = typed[i+1:]
	}
	return &TypingState{Query: query, Start: open}
}

// Complete replaces content[start:caret] with [[title]] and returns the new
// content together with the caret position just past the closing brackets.
func Complete(content string, start, caret int, title string) (string, int) {
	if start < 0 {
		start = 0
	}
	if start > len(content) {
		start = len(content)
	}
	if caret < start {
		caret = start
	}
	if caret > len(content) {
		caret = len(content)
	}

	inserted := "[[" + title + "]]"
	out := content[:start] + inserted + content[caret:]
	return out, start + len(inserted)
}
