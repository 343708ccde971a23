// Package importer applies task documents dropped into the import inbox.
// Each file version is imported once; the store's import ledger remembers
// the checksum of every applied file.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/tailscale/hujson"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/checksum"
	"github.com/starford/taskwise/internal/command"
	"github.com/starford/taskwise/internal/extract"
	"github.com/starford/taskwise/internal/models"
	"github.com/starford/taskwise/internal/parser"
	"github.com/starford/taskwise/internal/status"
	"github.com/starford/taskwise/internal/storage"
	"github.com/starford/taskwise/internal/store"
)

// Ledger is the store surface the importer needs.
type Ledger interface {
	store.TaskStore
	store.ImportLedger
}

// Importer reads inbox files and creates their tasks.
type Importer struct {
	db       Ledger
	inbox    storage.Provider
	logger   *slog.Logger
	notifier command.Notifier
	archive  bool
	now      func() time.Time
}

// New creates an importer. When archive is set, applied files are moved to
// the inbox's processed directory.
func New(db Ledger, inbox storage.Provider, archive bool, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{db: db, inbox: inbox, archive: archive, logger: logger, now: time.Now}
}

// SetNotifier registers an observer for created tasks.
func (im *Importer) SetNotifier(n command.Notifier) { im.notifier = n }

// Sync imports every inbox file whose checksum differs from the ledger.
// Files that fail are logged and skipped. It returns the number of tasks created.
func (im *Importer) Sync(ctx context.Context) (int, error) {
	files, err := im.inbox.List("")
	if err != nil {
		return 0, err
	}
	applied, err := im.db.ImportChecksums()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if applied[f.Path] == f.Checksum {
			continue
		}
		n, err := im.ImportFile(ctx, f.Path)
		if err != nil {
			im.logger.Warn("sync: import failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		total += n
	}
	return total, nil
}

// ImportFile applies one inbox file and returns the number of tasks created.
// A file whose current checksum is already in the ledger creates nothing.
func (im *Importer) ImportFile(ctx context.Context, p string) (int, error) {
	data, err := im.inbox.Read(p)
	if err != nil {
		return 0, err
	}
	sum := checksum.Sum(data)
	applied, err := im.db.ImportChecksums()
	if err != nil {
		return 0, err
	}
	if applied[p] == sum {
		im.logger.Debug("import: unchanged", slog.String("path", p))
		return 0, nil
	}

	doc, err := Decode(p, data)
	if err != nil {
		return 0, err
	}
	n, err := im.Apply(ctx, doc)
	if err != nil {
		return n, fmt.Errorf("import %s: %w", p, err)
	}
	if err := im.db.RecordImport(p, sum); err != nil {
		return n, err
	}
	im.logger.Info("import: applied", slog.String("path", p), slog.Int("tasks", n))

	if im.archive {
		if err := im.inbox.Move(p, path.Join(storage.ArchiveDir, p)); err != nil {
			im.logger.Warn("import: archive failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
	return n, nil
}

// Decode parses a .json import document (comments and trailing commas
// allowed) or a markdown task file.
func Decode(p string, data []byte) (*models.ImportDocument, error) {
	switch strings.ToLower(path.Ext(p)) {
	case ".md":
		return parser.Parse(data)
	case ".json":
		std, err := hujson.Standardize(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperr.ErrInvalid, p, err)
		}
		var doc models.ImportDocument
		if err := json.Unmarshal(std, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperr.ErrInvalid, p, err)
		}
		return &doc, nil
	}
	return nil, fmt.Errorf("%w: %s: unsupported file type", apperr.ErrInvalid, p)
}

// Apply creates the document's tasks. Every task is resolved before any is
// created, so a bad entry leaves the store untouched. A named notebook that
// does not exist yet is created; an unnamed document targets the default.
func (im *Importer) Apply(ctx context.Context, doc *models.ImportDocument) (int, error) {
	if len(doc.Tasks) == 0 {
		return 0, fmt.Errorf("%w: document has no tasks", apperr.ErrInvalid)
	}
	nb, err := im.notebook(doc.Notebook)
	if err != nil {
		return 0, err
	}

	pending := make([]store.NewTask, 0, len(doc.Tasks))
	for i, t := range doc.Tasks {
		in, err := im.resolve(t)
		if err != nil {
			return 0, fmt.Errorf("%w: tasks[%d]: %v", apperr.ErrInvalid, i, err)
		}
		in.NotebookID = nb.ID
		pending = append(pending, in)
	}

	created := 0
	for _, in := range pending {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		task, err := im.db.CreateTask(in)
		if err != nil {
			return created, err
		}
		created++
		if im.notifier != nil {
			im.notifier.PublishTaskEvent(command.EventCreated, *task)
		}
	}
	return created, nil
}

func (im *Importer) resolve(t models.ImportTask) (store.NewTask, error) {
	in := store.NewTask{
		Title:       strings.TrimSpace(t.Title),
		Description: t.Description,
		Status:      models.StatusTodo,
		Tags:        t.Tags,
	}
	if in.Title == "" {
		return in, errors.New("title is required")
	}
	if t.Status != "" {
		st, ok := status.Normalize(t.Status)
		if !ok {
			return in, fmt.Errorf("unknown status %q", t.Status)
		}
		in.Status = st
	}
	if t.Priority != "" {
		p, ok := extract.NormalizePriority(t.Priority)
		if !ok {
			return in, fmt.Errorf("unknown priority %q", t.Priority)
		}
		in.Priority = p
	}
	if t.DueDate != "" {
		due, ok := extract.ParseDate(t.DueDate, im.now())
		if !ok {
			return in, fmt.Errorf("unparseable due date %q", t.DueDate)
		}
		in.DueDate = due
	}
	return in, nil
}

func (im *Importer) notebook(name string) (*models.Notebook, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		nb, err := im.db.DefaultNotebook()
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: document names no notebook and there is no default", apperr.ErrInvalid)
		}
		return nb, err
	}
	nb, err := im.db.NotebookByName(name)
	if errors.Is(err, apperr.ErrNotFound) {
		im.logger.Info("import: creating notebook", slog.String("notebook", name))
		return im.db.CreateNotebook(name, false)
	}
	return nb, err
}
