// Package vault is the note vault's file-system abstraction. A vault is a
// directory of Markdown files; paths are always relative to its root.
package vault

import "github.com/starford/ansuz/internal/models"

// Provider is the interface for vault file operations. All paths are
// relative to the vault root, and implementations must reject anything
// that escapes it.
type Provider interface {
	// List returns metadata for every .md file under dir, walking
	// subdirectories but skipping hidden and attachment trees.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the note at path.
	Read(path string) ([]byte, error)
	// Write replaces the content at path atomically, creating parent
	// directories as needed.
	Write(path string, content []byte) error
	// Delete removes the note at path.
	Delete(path string) error
	// Move renames oldPath to newPath without clobbering an existing file.
	Move(oldPath, newPath string) error
}
