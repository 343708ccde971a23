package importer

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/taskwise/internal/storage"
)

// EventCallback is called after a watcher-driven import with the inbox path
// and the number of tasks created.
type EventCallback func(path string, created int)

// settle is how long a file must stay quiet before it is imported, so that
// editors writing in several steps produce one import.
const settle = 200 * time.Millisecond

// Watch runs Sync once, then watches the inbox at root and imports files as
// they settle, until ctx is cancelled. New subdirectories are watched as
// they appear; the archive directory is never watched.
func Watch(ctx context.Context, im *Importer, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	if n, err := im.Sync(ctx); err != nil {
		logger.Warn("watcher: initial sync failed", slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Info("watcher: initial sync", slog.Int("tasks", n))
	}
	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(settle)
			timerCh = timer.C
		} else {
			timer.Reset(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			for rel := range pending {
				delete(pending, rel)
				n, err := im.ImportFile(ctx, rel)
				if err != nil {
					logger.Warn("watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				if n > 0 && cb != nil {
					cb(rel, n)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs := ev.Name
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
					if skipDir(filepath.Base(abs)) {
						continue
					}
					if addErr := addDirsRecursive(w, abs); addErr != nil {
						logger.Warn("watcher: add new dir failed", slog.String("path", abs), slog.String("error", addErr.Error()))
					}
					queueDir(root, abs, pending)
					schedule()
					continue
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(abs)
			if strings.HasPrefix(name, ".") || !storage.Importable(name) {
				continue
			}
			rel, relErr := filepath.Rel(root, abs)
			if relErr != nil {
				continue
			}
			pending[filepath.ToSlash(rel)] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// queueDir adds the importable files of a newly created directory.
func queueDir(root, dir string, pending map[string]struct{}) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasPrefix(d.Name(), ".") || !storage.Importable(d.Name()) {
			return nil
		}
		if rel, relErr := filepath.Rel(root, p); relErr == nil {
			pending[filepath.ToSlash(rel)] = struct{}{}
		}
		return nil
	})
}

// addDirsRecursive adds root and its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func skipDir(name string) bool {
	return name == storage.ArchiveDir || strings.HasPrefix(name, ".")
}
