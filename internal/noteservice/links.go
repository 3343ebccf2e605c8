package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/linkgraph"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/wikilink"
)

// Backlinks returns every link from other notes that targets the note's
// title, with surrounding context, recomputed from the live corpus.
func (s *Service) Backlinks(_ context.Context, path string) ([]linkgraph.Backlink, error) {
	notes, err := s.db.AllNotes()
	if err != nil {
		return nil, err
	}
	title, err := s.titleOf(path, notes)
	if err != nil {
		return nil, err
	}
	return linkgraph.Backlinks(path, title, notes), nil
}

// BrokenLinks returns the wiki links in the note whose targets no note in
// the corpus resolves.
func (s *Service) BrokenLinks(_ context.Context, path string) ([]wikilink.Link, error) {
	notes, err := s.db.AllNotes()
	if err != nil {
		return nil, err
	}
	for _, n := range notes {
		if n.Path == path {
			return linkgraph.BrokenLinks(n.Content, notes), nil
		}
	}
	// Not indexed yet; fall back to the file.
	raw, err := s.readNote(path)
	if err != nil {
		return nil, err
	}
	_, body, _, err := bodyOf(path, raw)
	if err != nil {
		return nil, err
	}
	return linkgraph.BrokenLinks(body, notes), nil
}

// AllBrokenLinks reports broken links across the whole vault, keyed by the
// note that contains them. Notes without broken links are absent.
func (s *Service) AllBrokenLinks(_ context.Context) (map[string][]wikilink.Link, error) {
	notes, err := s.db.AllNotes()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]wikilink.Link)
	for _, n := range notes {
		if broken := linkgraph.BrokenLinks(n.Content, notes); len(broken) > 0 {
			out[n.Path] = broken
		}
	}
	return out, nil
}

// RenameNote changes a note's title and rewrites every reference to the old
// title across the corpus. The note's own content is saved once with its
// title marker and self-links updated; every other note that mentions the
// old title is rewritten, saved, and re-indexed. Returns the paths of the
// other notes that changed.
func (s *Service) RenameNote(_ context.Context, path, newTitle string) ([]string, error) {
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return nil, fmt.Errorf("noteservice: rename: empty title: %w", apperr.ErrInvalidInput)
	}

	raw, err := s.readNote(path)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(path, raw)
	if err != nil {
		return nil, err
	}
	oldTitle := res.Title
	if oldTitle == newTitle {
		return []string{}, nil
	}

	// Save the renamed note: new title marker plus any self-links.
	own := retitle(string(raw), res, newTitle)
	own = linkgraph.RewriteOnRename(oldTitle, newTitle, own)
	if err := s.store.Write(path, []byte(own)); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, []byte(own)); err != nil {
		return nil, err
	}

	// Propagate to every other note that references the old title.
	notes, err := s.db.AllNotes()
	if err != nil {
		return nil, err
	}
	affected := []string{}
	for _, n := range notes {
		if n.Path == path {
			continue
		}
		if linkgraph.RewriteOnRename(oldTitle, newTitle, n.Content) == n.Content {
			continue
		}
		// The indexed body says this note is affected; rewrite the raw
		// file so frontmatter and formatting survive untouched.
		other, err := s.readNote(n.Path)
		if err != nil {
			s.logger.Warn("rename: read failed", slog.String("path", n.Path), slog.String("error", err.Error()))
			continue
		}
		updated := linkgraph.RewriteOnRename(oldTitle, newTitle, string(other))
		if updated == string(other) {
			continue
		}
		if err := s.store.Write(n.Path, []byte(updated)); err != nil {
			s.logger.Warn("rename: write failed", slog.String("path", n.Path), slog.String("error", err.Error()))
			continue
		}
		if err := s.IndexFile(n.Path, []byte(updated)); err != nil {
			s.logger.Warn("rename: reindex failed", slog.String("path", n.Path), slog.String("error", err.Error()))
			continue
		}
		affected = append(affected, n.Path)
	}

	s.logger.Info("note renamed",
		slog.String("path", path),
		slog.String("old_title", oldTitle),
		slog.String("new_title", newTitle),
		slog.Int("affected", len(affected)))
	return affected, nil
}

// Completion is the link-completion state at a caret: the in-progress query
// (nil State when the caret is not inside an open [[) and candidate titles
// in resolver order.
type Completion struct {
	State      *wikilink.TypingState `json:"state"`
	Candidates []string              `json:"candidates"`
}

// LinkCompletion reports whether the caret sits inside an unterminated wiki
// link and, if so, which note titles match what has been typed.
func (s *Service) LinkCompletion(_ context.Context, content string, caret int) (*Completion, error) {
	st := wikilink.TypingStateAt(content, caret)
	if st == nil {
		return &Completion{Candidates: []string{}}, nil
	}
	notes, err := s.db.AllNotes()
	if err != nil {
		return nil, err
	}
	return &Completion{
		State:      st,
		Candidates: linkgraph.Candidates(st.Query, notes, 10),
	}, nil
}

// titleOf resolves a note's current title, preferring the indexed corpus and
// falling back to parsing the file.
func (s *Service) titleOf(path string, notes []models.Note) (string, error) {
	for _, n := range notes {
		if n.Path == path {
			return n.Title, nil
		}
	}
	raw, err := s.readNote(path)
	if err != nil {
		return "", err
	}
	res, err := parser.Parse(path, raw)
	if err != nil {
		return "", err
	}
	return res.Title, nil
}

// retitle rewrites the content's own title marker: the frontmatter title
// when one supplied the current title, else the first H1 line, else a new
// H1 prepended so the title sticks without moving the file.
func retitle(raw string, res *parser.Result, newTitle string) string {
	prefix := raw[:len(raw)-len(res.Body)]

	if t, ok := res.Frontmatter["title"].(string); ok && t != "" {
		lines := strings.Split(prefix, "\n")
		for i, ln := range lines {
			if strings.HasPrefix(strings.TrimSpace(ln), "title:") {
				lines[i] = "title: " + newTitle
				return strings.Join(lines, "\n") + res.Body
			}
		}
	}

	lines := strings.Split(res.Body, "\n")
	for i, ln := range lines {
		if strings.HasPrefix(strings.TrimSpace(ln), "# ") {
			lines[i] = "# " + newTitle
			return prefix + strings.Join(lines, "\n")
		}
	}

	return prefix + "# " + newTitle + "\n\n" + res.Body
}
