// Package parser extracts frontmatter, wikilinks, tags, and a display
// title from Markdown note content.
package parser

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/ansuz/internal/wikilink"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Links       []string
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, wikilink targets, tags, and a title
// from the raw Markdown of the note at path. The title falls back from
// frontmatter to the first H1 heading to the filename stem, so a named
// file always gets one.
func Parse(path string, data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       extractLinks(body),
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body, path),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiter
// lines) from the Markdown body. Anything that does not parse as frontmatter,
// including malformed YAML, stays in the body so no note content disappears.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	trimmed := bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")) // editors on Windows may prepend a BOM
	trimmed = bytes.TrimLeft(trimmed, "\n\r")

	yamlBlock, body, ok := cutFrontmatter(trimmed)
	if !ok {
		return nil, string(data), nil
	}

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data), nil
	}
	return fm, body, nil
}

// cutFrontmatter extracts the block between an opening "---" line and the
// next "---" line. Both delimiters must occupy a whole line, so a "----"
// horizontal rule or a value starting with dashes never ends the block early.
func cutFrontmatter(data []byte) (yamlBlock []byte, body string, ok bool) {
	isDelim := func(line []byte) bool {
		return string(bytes.TrimRight(line, "\r")) == "---"
	}
	first, rest, found := bytes.Cut(data, []byte("\n"))
	if !found || !isDelim(first) {
		return nil, "", false
	}
	var block []byte
	for len(rest) > 0 {
		line, tail, _ := bytes.Cut(rest, []byte("\n"))
		if isDelim(line) {
			return block, strings.TrimLeft(string(tail), "\n\r"), true
		}
		block = append(block, line...)
		block = append(block, '\n')
		rest = tail
	}
	// No closing delimiter.
	return nil, "", false
}

// extractLinks returns deduplicated wikilink targets in order of first
// appearance, using the same grammar the link graph resolves against.
func extractLinks(body string) []string {
	links := wikilink.Parse(body)
	seen := make(map[string]struct{}, len(links))
	var out []string
	for _, l := range links {
		if l.Target == "" {
			continue
		}
		if _, dup := seen[l.Target]; dup {
			continue
		}
		seen[l.Target] = struct{}{}
		out = append(out, l.Target)
	}
	return out
}

// extractTags collects #tags from body and from frontmatter "tags" field.
func extractTags(body string, fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string

	if fm != nil {
		if raw, ok := fm["tags"]; ok {
			if items, ok := raw.([]interface{}); ok {
				for _, item := range items {
					s, ok := item.(string)
					if !ok {
						continue
					}
					s = strings.TrimSpace(s)
					if s == "" {
						continue
					}
					if _, dup := seen[s]; dup {
						continue
					}
					seen[s] = struct{}{}
					out = append(out, s)
				}
			}
		}
	}

	matches := tagRe.FindAllStringSubmatch(body, -1)
	for _, m := range matches {
		t := m[1]
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first H1 heading, otherwise the filename stem.
func deriveTitle(fm map[string]interface{}, body, path string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
