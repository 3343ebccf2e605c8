// Package noteservice coordinates the vault, the SQLite index, the patch
// pipeline, and the link graph behind one service type. All content-addressed
// operations (patch ops, backlink positions, caret offsets) work on the note
// body, the text after any YAML frontmatter.
package noteservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/action"
	"github.com/starford/ansuz/internal/analyzer"
	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/linkgraph"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/patch"
	"github.com/starford/ansuz/internal/vault"
)

// Events receives patch lifecycle notifications for fan-out to connected
// editors. Implementations must not block; note-level events are published
// by the file watcher, not here.
type Events interface {
	PublishPatchEvent(kind string, p *patch.Patch)
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Backlinks   []string       `json:"backlinks"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates vault and index operations and owns the per-note
// analysis fingerprints.
type Service struct {
	store    vault.Provider
	db       index.NoteIndex
	pipeline *action.Pipeline
	analyzer *analyzer.Analyzer
	events   Events
	logger   *slog.Logger

	mu           sync.Mutex
	lastAnalyzed map[string]uint32 // path -> content fingerprint of the last analysis
}

// New creates a note service. pipeline and an must be non-nil (build them
// with a nil generator when no AI backend is configured); events may be nil.
func New(store vault.Provider, db index.NoteIndex, pipeline *action.Pipeline, an *analyzer.Analyzer, events Events, logger *slog.Logger) *Service {
	return &Service{
		store:        store,
		db:           db,
		pipeline:     pipeline,
		analyzer:     an,
		events:       events,
		logger:       logger,
		lastAnalyzed: make(map[string]uint32),
	}
}

// GetNote reads a note from the vault, parses it, and enriches with backlinks.
func (s *Service) GetNote(_ context.Context, path string) (*NoteDetail, error) {
	data, err := s.readNote(path)
	if err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, data)
}

// CreateNote writes a new note and indexes it.
func (s *Service) CreateNote(_ context.Context, path string, content []byte) (*NoteDetail, error) {
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, content)
}

// UpdateNote writes updated content with optimistic concurrency.
func (s *Service) UpdateNote(_ context.Context, path string, content []byte, ifMatch string) (*NoteDetail, error) {
	existing, err := s.readNote(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildNoteDetail(path, content)
}

// DeleteNote removes a note from vault and index.
func (s *Service) DeleteNote(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	s.mu.Lock()
	delete(s.lastAnalyzed, path)
	s.mu.Unlock()
	return s.db.DeleteNote(path)
}

// MoveNote relocates a note to a new vault path. Wiki links are untouched:
// they target titles, and the title travels with the content. Pending
// patches for the old path are discarded along with its index row.
func (s *Service) MoveNote(_ context.Context, oldPath, newPath string) (*NoteDetail, error) {
	data, err := s.readNote(oldPath)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Read(newPath); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Move(oldPath, newPath); err != nil {
		return nil, err
	}
	if err := s.db.DeleteNote(oldPath); err != nil {
		return nil, err
	}
	if err := s.IndexFile(newPath, data); err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.lastAnalyzed, oldPath)
	s.mu.Unlock()

	return s.buildNoteDetail(newPath, data)
}

// ListNotes returns paginated notes with optional tag filter.
func (s *Service) ListNotes(_ context.Context, limit, offset int, tag, sort string) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = NoteListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Tags:      nonNilSlice(r.Tags),
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Graph returns all nodes and resolved links for graph visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []index.GraphLink, error) {
	return s.db.Graph()
}

// IndexFile parses data and upserts it into the index.
// Exported so that sync and watcher callers can reuse it.
func (s *Service) IndexFile(path string, data []byte) error {
	res, err := parser.Parse(path, data)
	if err != nil {
		return err
	}
	return s.db.UpsertNote(index.NoteRow{
		Path:      path,
		Title:     res.Title,
		Checksum:  checksum.Sum(data),
		Tags:      nonNilSlice(res.Tags),
		UpdatedAt: time.Now().UTC(),
	}, res.Body, res.Links)
}

// readNote reads raw note bytes, mapping a missing file to ErrNotFound.
func (s *Service) readNote(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// buildNoteDetail constructs a NoteDetail from raw data without re-reading
// the file. Backlink sources come from the indexed corpus.
func (s *Service) buildNoteDetail(path string, data []byte) (*NoteDetail, error) {
	res, err := parser.Parse(path, data)
	if err != nil {
		return nil, err
	}

	backlinks := []string{}
	if notes, err := s.db.AllNotes(); err == nil {
		seen := make(map[string]struct{})
		for _, bl := range linkgraph.Backlinks(path, res.Title, notes) {
			if _, dup := seen[bl.SourcePath]; dup {
				continue
			}
			seen[bl.SourcePath] = struct{}{}
			backlinks = append(backlinks, bl.SourcePath)
		}
	}

	updatedAt := time.Now().UTC()
	if row, err := s.db.GetNote(path); err == nil {
		updatedAt = row.UpdatedAt
	}

	return &NoteDetail{
		Path:        path,
		Title:       res.Title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Frontmatter: res.Frontmatter,
		Backlinks:   backlinks,
		UpdatedAt:   updatedAt,
	}, nil
}

// bodyOf splits raw note content into the frontmatter prefix and the body
// that offset-addressed operations target. The parser guarantees the body
// is a contiguous suffix of the raw content.
func bodyOf(path string, raw []byte) (prefix, body string, res *parser.Result, err error) {
	res, err = parser.Parse(path, raw)
	if err != nil {
		return "", "", nil, err
	}
	s := string(raw)
	return s[:len(s)-len(res.Body)], res.Body, res, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
