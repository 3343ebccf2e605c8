// Package wikilink locates [[Target]] and [[Target|Display]] references in
// note content and tracks in-progress links while one is being typed.
package wikilink

import (
	"regexp"
	"strings"
)

// linkRe matches a complete wiki link. The target may not contain ']' or
// '|'; display text may not contain ']'. Unterminated brackets simply do
// not match; there is no error channel.
var linkRe = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)

// Link is one wiki link occurrence. From and To are byte offsets of the
// full [[...]] span in the content that produced it. Links are ephemeral:
// recomputed from content on demand, never persisted.
type Link struct {
	From      int    `json:"from"`
	To        int    `json:"to"`
	Target    string `json:"target"`
	Display   string `json:"display,omitempty"`
	FullMatch string `json:"full_match"`
}

// Parse extracts every wiki link from content, ordered by ascending From.
// Target and Display are trimmed of surrounding whitespace; Display is ""
// when the link has no |Display part.
func Parse(content string) []Link {
	idxs := linkRe.FindAllStringSubmatchIndex(content, -1)
	if len(idxs) == 0 {
		return nil
	}

	links := make([]Link, 0, len(idxs))
	for _, m := range idxs {
		l := Link{
			From:      m[0],
			To:        m[1],
			Target:    strings.TrimSpace(content[m[2]:m[3]]),
			FullMatch: content[m[0]:m[1]],
		}
		if m[4] >= 0 {
			l.Display = strings.TrimSpace(content[m[4]:m[5]])
		}
		links = append(links, l)
	}
	return links
}
