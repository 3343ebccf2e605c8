package index

import (
	"log/slog"
	"time"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/parser"
	"github.com/starford/ansuz/internal/vault"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
//
// Unreadable or unparseable files are logged and skipped; one bad note must
// not block startup.
func Sync(db *DB, store vault.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	var indexed, removed int
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data, m.UpdatedAt); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		indexed++
	}

	// Remove entries whose files are gone from disk.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
				continue
			}
			removed++
		}
	}

	logger.Info("sync complete",
		slog.Int("notes", len(metas)),
		slog.Int("indexed", indexed),
		slog.Int("removed", removed))
	return nil
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, path string, data []byte, updatedAt time.Time) error {
	res, err := parser.Parse(path, data)
	if err != nil {
		return err
	}
	cs := checksum.Sum(data)

	row := NoteRow{
		Path:      path,
		Title:     res.Title,
		Checksum:  cs,
		Tags:      res.Tags,
		UpdatedAt: updatedAt.UTC(),
	}
	return db.UpsertNote(row, res.Body, res.Links)
}
