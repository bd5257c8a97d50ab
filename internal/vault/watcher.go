package vault

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven cache change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the vault root and feeds file
// change events into the cache until ctx is cancelled. It calls cb (if
// non-nil) after each applied event. A failure processing one event is
// logged and isolated; the watcher keeps running.
//
// New directories created at runtime are added to the watch list.
// Rename events fire on the old path only, so a short reconciliation
// pass runs afterwards to catch files that moved within the vault.
func (v *Vault) Watch(ctx context.Context, root string, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	v.log.Info("watcher: started", slog.String("root", root))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			v.log.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			v.reconcile(cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			if hiddenPath(root, absPath) {
				continue
			}

			// New directories join the watch list, and any markdown
			// already inside them is cached.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						v.log.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					v.cacheNewDir(root, absPath, cb)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if err := v.Upsert(rel); err != nil {
					v.log.Warn("watcher: upsert failed",
						slog.String("path", rel),
						slog.String("error", err.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				v.log.Debug("watcher: cached", slog.String("path", rel), slog.String("op", kind))
				if cb != nil {
					cb(kind, rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				v.Remove(rel)
				v.log.Debug("watcher: removed", slog.String("path", rel))
				if cb != nil {
					cb("deleted", rel)
				}

			case ev.Op&fsnotify.Rename != 0:
				// The new path arrives as a separate Create event if it
				// stays inside a watched dir. Drop the old entry now
				// and reconcile shortly for anything missed.
				v.Remove(rel)
				if cb != nil {
					cb("deleted", rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			v.log.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile diffs the cache against the disk listing: stale entries are
// removed, new or changed files are upserted.
func (v *Vault) reconcile(cb EventCallback) {
	metas, err := v.store.List("")
	if err != nil {
		v.log.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
	}

	v.mu.Lock()
	cached := v.sortedPathsLocked()
	modified := make(map[string]time.Time, len(cached))
	for _, p := range cached {
		modified[p] = v.notes[p].UpdatedAt
	}
	v.mu.Unlock()

	for _, p := range cached {
		if _, ok := disk[p]; !ok {
			v.Remove(p)
			v.log.Debug("reconcile: removed stale", slog.String("path", p))
			if cb != nil {
				cb("deleted", p)
			}
		}
	}

	for _, m := range metas {
		prev, known := modified[m.Path]
		if known && prev.Equal(m.UpdatedAt) {
			continue
		}
		if err := v.Upsert(m.Path); err != nil {
			continue
		}
		kind := "created"
		if known {
			kind = "updated"
		}
		v.log.Debug("reconcile: cached", slog.String("path", m.Path), slog.String("op", kind))
		if cb != nil {
			cb(kind, m.Path)
		}
	}
}

// cacheNewDir upserts any .md files found in a newly created directory.
func (v *Vault) cacheNewDir(root, dirPath string, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if upErr := v.Upsert(rel); upErr == nil {
			v.log.Debug("watcher: cached from new dir", slog.String("path", rel))
			if cb != nil {
				cb("created", rel)
			}
		}
		return nil
	})
}

// hiddenPath reports whether any segment of abs below root is
// dot-prefixed.
func hiddenPath(root, abs string) bool {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg != "." && seg != ".." && strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its visible subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
