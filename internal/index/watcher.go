package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/assets"
	"github.com/starford/ansuz/internal/vault"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// reconcileDelay debounces rename reconciliation; a burst of moves
// collapses into one sweep.
const reconcileDelay = 200 * time.Millisecond

// watcher tails fsnotify events for a vault tree and keeps the index in
// step with what lands on disk.
type watcher struct {
	db     *DB
	store  vault.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
	fsw    *fsnotify.Watcher

	reconcileTimer *time.Timer
	reconcileCh    <-chan time.Time
}

// Watch starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// New directories created at runtime join the watch list; hidden trees and
// the attachments directory are never watched. Rename events trigger a
// reconciliation pass that removes stale index entries whose files no
// longer exist on disk.
func Watch(ctx context.Context, db *DB, store vault.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{db: db, store: store, root: vaultRoot, logger: logger, cb: cb, fsw: fsw}
	if err := w.addTree(vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))
	return w.run(ctx)
}

func (w *watcher) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if w.reconcileTimer != nil {
				w.reconcileTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-w.reconcileCh:
			w.reconcile()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

func (w *watcher) scheduleReconcile() {
	if w.reconcileTimer == nil {
		w.reconcileTimer = time.NewTimer(reconcileDelay)
		w.reconcileCh = w.reconcileTimer.C
		return
	}
	w.reconcileTimer.Reset(reconcileDelay)
}

func (w *watcher) handleEvent(ev fsnotify.Event) {
	abs := ev.Name

	// New directories join the watch list unless they can hold no notes.
	if ev.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
			if w.skipDir(abs) {
				return
			}
			if err := w.addTree(abs); err != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", abs),
					slog.String("error", err.Error()))
			} else {
				w.logger.Debug("watcher: watching new dir", slog.String("path", abs))
			}
			// Files may have landed before the directory was watched.
			w.indexTree(abs)
			return
		}
	}

	base := filepath.Base(abs)
	if !strings.HasSuffix(base, ".md") || strings.HasPrefix(base, ".") {
		return
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		kind := "updated"
		if ev.Op&fsnotify.Create != 0 {
			kind = "created"
		}
		w.indexOne(rel, fileModTime(abs), kind)

	case ev.Op&fsnotify.Remove != 0:
		if err := w.db.DeleteNote(rel); err != nil {
			w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		w.logger.Debug("watcher: deleted", slog.String("path", rel))
		w.emit("deleted", rel)

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify fires Rename on the OLD path only. The new path will
		// arrive as a separate Create event if it stays within a watched
		// dir. Delete the old entry immediately and schedule a short
		// reconciliation pass to catch any stragglers.
		if err := w.db.DeleteNote(rel); err != nil {
			w.logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			w.logger.Debug("watcher: rename old deleted", slog.String("path", rel))
			w.emit("deleted", rel)
		}
		w.scheduleReconcile()
	}
}

// indexOne reads rel through the store and indexes it, emitting kind on
// success.
func (w *watcher) indexOne(rel string, modTime time.Time, kind string) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := indexFile(w.db, rel, data, modTime); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.emit(kind, rel)
}

// reconcile sweeps the index against the vault with batch lookups: stale
// rows whose files vanished are dropped, and on-disk files missing from the
// index or carrying an old checksum are re-indexed. Editors that save
// through a temp-file rename land in the second bucket.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
	}
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := w.db.DeleteNote(p); err == nil {
			w.logger.Debug("reconcile: removed stale", slog.String("path", p))
			w.emit("deleted", p)
		}
	}

	for _, m := range metas {
		prev, indexed := checksums[m.Path]
		if indexed && prev == m.Checksum {
			continue
		}
		data, err := w.store.Read(m.Path)
		if err != nil {
			continue
		}
		if err := indexFile(w.db, m.Path, data, m.UpdatedAt); err != nil {
			continue
		}
		kind := "created"
		if indexed {
			kind = "updated"
		}
		w.logger.Debug("reconcile: indexed", slog.String("path", m.Path), slog.String("op", kind))
		w.emit(kind, m.Path)
	}
}

// indexTree indexes any notes already present under dir.
func (w *watcher) indexTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if w.skipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		base := filepath.Base(path)
		if !strings.HasSuffix(base, ".md") || strings.HasPrefix(base, ".") {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		w.indexOne(rel, fileModTime(path), "created")
		return nil
	})
}

func (w *watcher) emit(kind, path string) {
	if w.cb != nil {
		w.cb(kind, path)
	}
}

// addTree adds root and all its subdirectories to the watch list, minus
// the trees skipDir rules out.
func (w *watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.skipDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// skipDir reports whether a directory can never hold indexable notes:
// hidden trees like .git and .obsidian, and the attachments directory.
func (w *watcher) skipDir(path string) bool {
	if path == w.root {
		return false
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return rel == assets.Dir || strings.HasPrefix(rel, assets.Dir+string(filepath.Separator))
}

// fileModTime returns the file's mtime, or the current time if stat fails
// (the file may have been replaced between the event and the stat).
func fileModTime(absPath string) time.Time {
	if info, err := os.Stat(absPath); err == nil {
		return info.ModTime().UTC()
	}
	return time.Now().UTC()
}
