package importer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/taskwise/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileImported(t *testing.T) {
	im, db, inbox := importerEnv(t, false)
	testutil.SeedNotebook(t, db, "work", true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, im, inbox.Root(), quietLogger(), func(path string, created int) {
		mu.Lock()
		events = append(events, path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(inbox.Root(), "new.md"), []byte("# Watched task\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		all, _ := db.AllTasks()
		return len(all) == 1
	}, "new file not imported by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1 && events[0] == "new.md"
	}, "expected callback for new.md")
}

func TestWatcher_InitialSync(t *testing.T) {
	im, db, inbox := importerEnv(t, false)
	testutil.SeedNotebook(t, db, "work", true)
	_ = inbox.Write("before.md", []byte("# Written before start\n"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, im, inbox.Root(), quietLogger(), nil)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		all, _ := db.AllTasks()
		return len(all) == 1
	}, "existing file not imported on start")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	im, db, inbox := importerEnv(t, false)
	testutil.SeedNotebook(t, db, "work", true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, im, inbox.Root(), quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(inbox.Root(), "team")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "deep.md"), []byte("# Deep task\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		all, _ := db.AllTasks()
		return len(all) == 1
	}, "file in new subdir not imported by watcher")
}
