package store

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "taskwise-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustNotebook(t *testing.T, db *DB, name string, isDefault bool) *models.Notebook {
	t.Helper()
	nb, err := db.CreateNotebook(name, isDefault)
	if err != nil {
		t.Fatalf("CreateNotebook(%q): %v", name, err)
	}
	return nb
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"notebooks", "tasks", "imports"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestCreateNotebook_SingleDefault(t *testing.T) {
	db := testDB(t)
	mustNotebook(t, db, "work", true)
	mustNotebook(t, db, "home", true)

	def, err := db.DefaultNotebook()
	if err != nil {
		t.Fatalf("DefaultNotebook: %v", err)
	}
	if def.Name != "home" {
		t.Errorf("default = %q, want %q", def.Name, "home")
	}

	nbs, _ := db.ListNotebooks()
	defaults := 0
	for _, nb := range nbs {
		if nb.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Errorf("expected exactly 1 default notebook, got %d", defaults)
	}
}

func TestCreateNotebook_Duplicate(t *testing.T) {
	db := testDB(t)
	mustNotebook(t, db, "Protectors", false)
	_, err := db.CreateNotebook("protectors", false)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestSetDefaultNotebook(t *testing.T) {
	db := testDB(t)
	mustNotebook(t, db, "work", true)
	mustNotebook(t, db, "home", false)

	if err := db.SetDefaultNotebook("HOME"); err != nil {
		t.Fatalf("SetDefaultNotebook: %v", err)
	}
	def, _ := db.DefaultNotebook()
	if def == nil || def.Name != "home" {
		t.Fatalf("default = %+v, want home", def)
	}
	if err := db.SetDefaultNotebook("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDefaultNotebook_None(t *testing.T) {
	db := testDB(t)
	mustNotebook(t, db, "work", false)
	if _, err := db.DefaultNotebook(); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateAndGetTask(t *testing.T) {
	db := testDB(t)
	nb := mustNotebook(t, db, "work", true)
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	created, err := db.CreateTask(NewTask{
		ID:         85,
		NotebookID: nb.ID,
		Title:      "Migrate arbitration-tf-shared",
		Priority:   models.PriorityHigh,
		Tags:       []string{"Infra", "#infra", "ci"},
		DueDate:    &due,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.ID != 85 {
		t.Errorf("id = %d, want 85", created.ID)
	}

	got, err := db.GetTask(85)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != models.StatusTodo {
		t.Errorf("status = %q, want todo", got.Status)
	}
	if got.NotebookName != "work" {
		t.Errorf("notebook = %q, want work", got.NotebookName)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "ci" || got.Tags[1] != "infra" {
		t.Errorf("tags = %v, want [ci infra]", got.Tags)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("due = %v, want %v", got.DueDate, due)
	}
}

func TestCreateTask_Invalid(t *testing.T) {
	db := testDB(t)
	nb := mustNotebook(t, db, "work", true)
	if _, err := db.CreateTask(NewTask{NotebookID: nb.ID, Title: "  "}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("empty title: err = %v, want ErrInvalid", err)
	}
	if _, err := db.CreateTask(NewTask{NotebookID: nb.ID, Title: "x", Status: "blocked"}); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("bad status: err = %v, want ErrInvalid", err)
	}
}

func TestUpdateTask(t *testing.T) {
	db := testDB(t)
	nb := mustNotebook(t, db, "work", true)
	task, _ := db.CreateTask(NewTask{NotebookID: nb.ID, Title: "Write docs"})

	status := models.StatusDone
	prio := models.PriorityLow
	got, err := db.UpdateTask(task.ID, TaskUpdate{Status: &status, Priority: &prio})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got.Status != models.StatusDone || got.Priority != models.PriorityLow {
		t.Errorf("got %+v", got)
	}
	if got.Title != "Write docs" {
		t.Errorf("title changed unexpectedly: %q", got.Title)
	}

	if _, err := db.UpdateTask(9999, TaskUpdate{Status: &status}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteTask(t *testing.T) {
	db := testDB(t)
	nb := mustNotebook(t, db, "work", true)
	task, _ := db.CreateTask(NewTask{NotebookID: nb.ID, Title: "temp"})

	if err := db.DeleteTask(task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := db.GetTask(task.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("task still present: %v", err)
	}
	if err := db.DeleteTask(task.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestAllTasks_Ordering(t *testing.T) {
	db := testDB(t)
	a := mustNotebook(t, db, "alpha", false)
	b := mustNotebook(t, db, "beta", false)
	_, _ = db.CreateTask(NewTask{ID: 20, NotebookID: b.ID, Title: "b20"})
	_, _ = db.CreateTask(NewTask{ID: 30, NotebookID: a.ID, Title: "a30"})
	_, _ = db.CreateTask(NewTask{ID: 10, NotebookID: a.ID, Title: "a10"})

	all, err := db.AllTasks()
	if err != nil {
		t.Fatalf("AllTasks: %v", err)
	}
	want := []int64{10, 30, 20}
	if len(all) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(all), len(want))
	}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("position %d: id = %d, want %d", i, all[i].ID, id)
		}
	}
}

func TestStatusCounts(t *testing.T) {
	db := testDB(t)
	nb := mustNotebook(t, db, "work", true)
	_, _ = db.CreateTask(NewTask{NotebookID: nb.ID, Title: "a"})
	_, _ = db.CreateTask(NewTask{NotebookID: nb.ID, Title: "b", Status: models.StatusDone})
	_, _ = db.CreateTask(NewTask{NotebookID: nb.ID, Title: "c", Status: models.StatusDone})

	counts, err := db.StatusCounts(nb.ID)
	if err != nil {
		t.Fatalf("StatusCounts: %v", err)
	}
	if counts.Todo != 1 || counts.Done != 2 || counts.Total() != 3 {
		t.Errorf("counts = %+v", counts)
	}
}

func TestSearchTasks_Basic(t *testing.T) {
	db := testDB(t)
	nb := mustNotebook(t, db, "work", true)
	_, _ = db.CreateTask(NewTask{NotebookID: nb.ID, Title: "Rotate credentials", Description: "uniqueword appears here"})
	_, _ = db.CreateTask(NewTask{NotebookID: nb.ID, Title: "Unrelated"})

	results, err := db.SearchTasks("uniqueword", 10)
	if err != nil {
		t.Fatalf("SearchTasks: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Rotate credentials" {
		t.Errorf("search results = %+v, want 1 hit", results)
	}
}

func TestImportLedger(t *testing.T) {
	db := testDB(t)
	if err := db.RecordImport("a.json", "1"); err != nil {
		t.Fatalf("RecordImport: %v", err)
	}
	if err := db.RecordImport("a.json", "2"); err != nil {
		t.Fatalf("RecordImport: %v", err)
	}
	sums, err := db.ImportChecksums()
	if err != nil {
		t.Fatalf("ImportChecksums: %v", err)
	}
	if sums["a.json"] != "2" {
		t.Errorf("checksum = %q, want 2", sums["a.json"])
	}
}
