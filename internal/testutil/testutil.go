// Package testutil provides shared test helpers for setting up task stores.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/taskwise/internal/models"
	"github.com/starford/taskwise/internal/store"
)

// TestStore creates a temporary SQLite task store that is automatically cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "taskwise-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SeedNotebook creates a notebook or fails the test.
func SeedNotebook(t *testing.T, db *store.DB, name string, isDefault bool) *models.Notebook {
	t.Helper()
	nb, err := db.CreateNotebook(name, isDefault)
	if err != nil {
		t.Fatalf("seed notebook %q: %v", name, err)
	}
	return nb
}

// SeedTask creates a task with an explicit id (0 assigns one) or fails the test.
func SeedTask(t *testing.T, db *store.DB, nb *models.Notebook, id int64, title string, st models.Status) *models.Task {
	t.Helper()
	task, err := db.CreateTask(store.NewTask{
		ID:         id,
		NotebookID: nb.ID,
		Title:      title,
		Status:     st,
	})
	if err != nil {
		t.Fatalf("seed task %q: %v", title, err)
	}
	return task
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
