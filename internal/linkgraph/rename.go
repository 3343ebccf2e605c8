package linkgraph

import (
	"strings"

	"github.com/starford/ansuz/internal/wikilink"
)

// RewriteOnRename rewrites every link in content whose target matches
// oldTitle (case-insensitively) to point at newTitle, and returns the new
// content. Display text is kept, so [[Old|shown]] becomes [[New|shown]] and
// [[Old]] becomes [[New]]. Unrelated links are untouched.
//
// Matches are rewritten last-first: each splice only moves text after the
// spans still to be processed, so the parsed offsets stay valid without
// re-parsing. Callers run this once per note in the corpus when a title
// changes, skipping the renamed note itself (its own content is updated by
// the normal save path).
func RewriteOnRename(oldTitle, newTitle, content string) string {
	links := wikilink.Parse(content)
	if len(links) == 0 {
		return content
	}

	out := content
	for i := len(links) - 1; i >= 0; i-- {
		l := links[i]
		if !strings.EqualFold(l.Target, oldTitle) {
			continue
		}
		replacement := "[[" + newTitle + "]]"
		if l.Display != "" {
			replacement = "[[" + newTitle + "|" + l.Display + "]]"
		}
		out = out[:l.From] + replacement + out[l.To:]
	}
	return out
}
