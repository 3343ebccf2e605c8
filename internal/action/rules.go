package action

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/starford/ansuz/internal/patch"
)

var (
	taskRe      = regexp.MustCompile(`(?i)(?:todo|task|need to|should|must|will)[\s:]+(.+)`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
	wordRe      = regexp.MustCompile(`[A-Za-z][A-Za-z0-9-]*`)
)

// stopWords are excluded from tag extraction; common English filler that
// would otherwise dominate any frequency count.
var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {},
	"will": {}, "about": {}, "there": {}, "their": {}, "would": {},
	"which": {}, "these": {}, "those": {}, "been": {}, "were": {},
	"when": {}, "what": {}, "your": {}, "they": {}, "them": {},
	"then": {}, "than": {}, "some": {}, "into": {}, "just": {},
	"more": {}, "also": {}, "over": {}, "only": {}, "such": {},
}

// RuleFor returns the deterministic generator backing a. The second return
// is false for AI-only actions.
func RuleFor(a Action) (func(content string) Response, bool) {
	switch a {
	case Summarize:
		return summarizeRule, true
	case ExtractTasks:
		return extractTasksRule, true
	case Rewrite:
		return rewriteRule, true
	case TitleTags:
		return titleTagsRule, true
	}
	return nil, false
}

// summarizeRule appends a "## Summary" block. Notes longer than three
// non-blank lines get a descriptive block and a rationale citing the line
// count; shorter notes get a brief one.
func summarizeRule(content string) Response {
	lines := nonBlankLines(content)
	gist := "Empty note."
	if len(lines) > 0 {
		gist = strings.TrimSpace(strings.TrimLeft(lines[0], "# "))
	}

	if len(lines) > 3 {
		block := fmt.Sprintf("\n\n## Summary\n\n- Topic: %s\n- Length: %d non-blank lines\n", gist, len(lines))
		return Response{
			Rationale: fmt.Sprintf("Appended a descriptive summary for a note with %d non-blank lines.", len(lines)),
			Ops:       []patch.Op{patch.Insert(len(content), block)},
		}
	}
	block := fmt.Sprintf("\n\n## Summary\n\n- %s\n", gist)
	return Response{
		Rationale: "Appended a brief summary.",
		Ops:       []patch.Op{patch.Insert(len(content), block)},
	}
}

// extractTasksRule scans for task-like phrases and appends them as a
// markdown checklist. When nothing matches it still emits a checklist with
// two placeholder items, and says "placeholder" in the rationale so callers
// can tell the branches apart.
func extractTasksRule(content string) Response {
	var tasks []string
	for _, line := range strings.Split(content, "\n") {
		if m := taskRe.FindStringSubmatch(line); m != nil {
			if task := strings.TrimSpace(m[1]); task != "" {
				tasks = append(tasks, task)
			}
		}
	}

	rationale := fmt.Sprintf("Extracted %d tasks into a checklist.", len(tasks))
	if len(tasks) == 1 {
		rationale = "Extracted 1 task into a checklist."
	}
	if len(tasks) == 0 {
		tasks = []string{"Review this note", "Add concrete next steps"}
		rationale = "No task phrases found; added placeholder checklist items."
	}

	var b strings.Builder
	b.WriteString("\n\n## Tasks\n\n")
	for _, task := range tasks {
		b.WriteString("- [ ] ")
		b.WriteString(task)
		b.WriteString("\n")
	}
	return Response{
		Rationale: rationale,
		Ops:       []patch.Op{patch.Insert(len(content), b.String())},
	}
}

// rewriteRule normalizes whitespace: trailing spaces stripped per line,
// runs of three or more newlines collapsed to two, and the document
// trimmed. Already-clean content yields empty ops with a "well-formatted"
// rationale.
func rewriteRule(content string) Response {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	cleaned := strings.Join(lines, "\n")
	cleaned = blankRunsRe.ReplaceAllString(cleaned, "\n\n")
	cleaned = strings.TrimSpace(cleaned)

	// Whitespace at the document edges alone is not worth a patch.
	if cleaned == strings.TrimSpace(content) {
		return Response{Rationale: "Content is already well-formatted."}
	}
	return Response{
		Rationale: "Trimmed trailing whitespace and collapsed extra blank lines.",
		Ops:       []patch.Op{patch.Replace(0, len(content), cleaned)},
	}
}

// titleTagsRule promotes a non-heading first line to an H1 and appends a
// tag line built from the three most frequent words of four or more
// letters. Either edit can fire on its own.
func titleTagsRule(content string) Response {
	var ops []patch.Op
	var parts []string

	first := content
	if i := strings.Index(content, "\n"); i >= 0 {
		first = content[:i]
	}
	trimmed := strings.TrimSpace(first)
	if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
		ops = append(ops, patch.Replace(0, len(first), "# "+trimmed))
		parts = append(parts, "Promoted the first line to a heading.")
	}

	if words := topWords(content, 3); len(words) > 0 {
		tagLine := "\n\nTags:"
		for _, w := range words {
			tagLine += " #" + w
		}
		ops = append(ops, patch.Insert(len(content), tagLine+"\n"))
		parts = append(parts, "Added suggested tags.")
	}

	if len(ops) == 0 {
		return Response{Rationale: "Title and tags need no changes."}
	}
	return Response{Rationale: strings.Join(parts, " "), Ops: ops}
}

// topWords returns up to limit lowercase words of four or more characters,
// most frequent first. Ties break alphabetically so results are stable.
func topWords(content string, limit int) []string {
	counts := make(map[string]int)
	for _, w := range wordRe.FindAllString(content, -1) {
		w = strings.ToLower(w)
		if utf8.RuneCountInString(w) < 4 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		counts[w]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

func nonBlankLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
