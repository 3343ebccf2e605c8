package index

import (
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/patch"
)

// NoteIndex defines the interface for note and patch indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string, links []string) error
	DeleteNote(path string) error
	GetNote(path string) (*NoteRow, error)
	GetChecksum(path string) (string, error)
	ListNotes(limit, offset int, tag, sort string) ([]NoteRow, int, error)
	AllNotes() ([]models.Note, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []GraphLink, error)

	SavePatch(p *patch.Patch) error
	GetPatch(id string) (*patch.Patch, error)
	ListPatches(notePath string, status patch.Status) ([]*patch.Patch, error)
	SetPatchStatus(id string, status patch.Status) error

	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
