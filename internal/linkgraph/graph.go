// Package linkgraph derives backlinks, broken links, and rename rewrites
// from the wiki links embedded in note content. Results are recomputed from
// the supplied corpus on every call; content is the single source of truth
// and no incremental state is kept between calls.
package linkgraph

import (
	"strings"
	"unicode/utf8"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/wikilink"
)

// contextRadius is how many bytes of surrounding text a backlink carries on
// each side of the link span, for display next to the result.
const contextRadius = 50

// Backlink records that another note references the queried one. Position
// is the byte offset of the link in the source note's content.
type Backlink struct {
	SourcePath  string `json:"source_path"`
	SourceTitle string `json:"source_title"`
	Context     string `json:"context"`
	Position    int    `json:"position"`
}

// Backlinks returns every link from other notes whose target matches title
// case-insensitively. The note identified by path is excluded: a note does
// not back-link itself. Cost is linear in total corpus content per call.
func Backlinks(path, title string, notes []models.Note) []Backlink {
	var out []Backlink
	for _, n := range notes {
		if n.Path == path {
			continue
		}
		for _, l := range wikilink.Parse(n.Content) {
			if !strings.EqualFold(l.Target, title) {
				continue
			}
			out = append(out, Backlink{
				SourcePath:  n.Path,
				SourceTitle: n.Title,
				Context:     contextWindow(n.Content, l.From, l.To),
				Position:    l.From,
			})
		}
	}
	return out
}

// BrokenLinks returns the links in content whose target no note in the
// corpus resolves.
func BrokenLinks(content string, notes []models.Note) []wikilink.Link {
	var out []wikilink.Link
	for _, l := range wikilink.Parse(content) {
		if Resolve(l.Target, notes) == nil {
			out = append(out, l)
		}
	}
	return out
}

// Resolve maps a link target to a note using the permissive chain: exact
// case-insensitive title match, then case-insensitive prefix, then
// case-insensitive substring. Within each tier the first note in slice
// order wins, so targets sharing a prefix with several titles resolve by
// corpus order. That ambiguity is accepted for compatibility with how
// links are authored. Empty targets never resolve.
func Resolve(target string, notes []models.Note) *models.Note {
	q := strings.ToLower(strings.TrimSpace(target))
	if q == "" {
		return nil
	}

	for i := range notes {
		if strings.ToLower(notes[i].Title) == q {
			return &notes[i]
		}
	}
	for i := range notes {
		if strings.HasPrefix(strings.ToLower(notes[i].Title), q) {
			return &notes[i]
		}
	}
	for i := range notes {
		if strings.Contains(strings.ToLower(notes[i].Title), q) {
			return &notes[i]
		}
	}
	return nil
}

// Candidates returns up to limit note titles matching query, ordered by the
// same tiers as Resolve: exact matches, then prefix matches, then substring
// matches, corpus order within each tier. An empty query returns the first
// titles in corpus order. Titles are deduplicated.
func Candidates(query string, notes []models.Note, limit int) []string {
	if limit <= 0 {
		limit = 10
	}
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]string, 0, limit)
	seen := make(map[string]struct{})
	add := func(title string) bool {
		if title == "" {
			return len(out) < limit
		}
		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			return len(out) < limit
		}
		seen[key] = struct{}{}
		out = append(out, title)
		return len(out) < limit
	}

	if q == "" {
		for _, n := range notes {
			if !add(n.Title) {
				break
			}
		}
		return out
	}

	for _, n := range notes {
		if strings.ToLower(n.Title) == q && !add(n.Title) {
			return out
		}
	}
	for _, n := range notes {
		if strings.HasPrefix(strings.ToLower(n.Title), q) && !add(n.Title) {
			return out
		}
	}
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), q) && !add(n.Title) {
			return out
		}
	}
	return out
}

// contextWindow extracts up to contextRadius bytes either side of the
// [from, to) span, snapped to rune boundaries, with ellipses marking
// truncated edges.
func contextWindow(content string, from, to int) string {
	start := from - contextRadius
	if start < 0 {
		start = 0
	}
	end := to + contextRadius
	if end > len(content) {
		end = len(content)
	}

	// Snap the cut points onto rune starts so multibyte text survives
	// slicing. The link span itself is bracketed by ASCII, so the snaps
	// never cross it.
	for start > 0 && start < from && !utf8.RuneStart(content[start]) {
		start++
	}
	for end > to && end < len(content) && !utf8.RuneStart(content[end]) {
		end--
	}

	window := content[start:end]
	if start > 0 {
		window = "..." + window
	}
	if end < len(content) {
		window += "..."
	}
	return window
}
