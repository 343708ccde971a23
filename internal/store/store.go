package store

import "github.com/starford/taskwise/internal/models"

// TaskStore defines the notebook and task persistence operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type TaskStore interface {
	ListNotebooks() ([]models.Notebook, error)
	NotebookByName(name string) (*models.Notebook, error)
	DefaultNotebook() (*models.Notebook, error)
	CreateNotebook(name string, isDefault bool) (*models.Notebook, error)
	SetDefaultNotebook(name string) error

	ListTasks(notebookID int64) ([]models.Task, error)
	AllTasks() ([]models.Task, error)
	GetTask(id int64) (*models.Task, error)
	CreateTask(in NewTask) (*models.Task, error)
	UpdateTask(id int64, upd TaskUpdate) (*models.Task, error)
	DeleteTask(id int64) error
	StatusCounts(notebookID int64) (models.StatusCounts, error)
	SearchTasks(query string, limit int) ([]models.Task, error)
}

// ImportLedger records which import files have already been applied.
type ImportLedger interface {
	ImportChecksums() (map[string]string, error)
	RecordImport(path, checksum string) error
}

// Verify *DB satisfies the interfaces at compile time.
var (
	_ TaskStore    = (*DB)(nil)
	_ ImportLedger = (*DB)(nil)
)
