package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/extract"
	"github.com/starford/taskwise/internal/models"
	"github.com/starford/taskwise/internal/status"
	"github.com/starford/taskwise/internal/storage"
	"github.com/starford/taskwise/internal/store"
)

// Task event kinds passed to a Notifier.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Notifier observes task changes made by the executor.
type Notifier interface {
	PublishTaskEvent(kind string, task models.Task)
}

// Importer applies an import document that the executor has just written.
type Importer interface {
	ImportFile(ctx context.Context, path string) (int, error)
}

// Result is the outcome of one action. A failed action never stops a batch.
type Result struct {
	Action    string                   `json:"action"`
	OK        bool                     `json:"ok"`
	Message   string                   `json:"message"`
	Tasks     []models.Task            `json:"tasks,omitempty"`
	Notebooks []models.NotebookSummary `json:"notebooks,omitempty"`
}

// Plan is a batch: a pre-resolved move applied first, then the model's
// commands and structured actions in order.
type Plan struct {
	Matches      []models.Task
	TargetStatus models.Status
	Commands     []string
	Actions      []json.RawMessage
}

// Executor applies actions to a task store. It keeps no state between calls.
type Executor struct {
	store    store.TaskStore
	inbox    storage.Provider
	importer Importer
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewExecutor creates an executor. inbox may be nil, in which case import
// documents cannot be generated.
func NewExecutor(st store.TaskStore, inbox storage.Provider, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: st, inbox: inbox, logger: logger, now: time.Now}
}

// SetNotifier registers an observer for task changes.
func (e *Executor) SetNotifier(n Notifier) { e.notifier = n }

// SetImporter makes generated import documents apply immediately.
func (e *Executor) SetImporter(imp Importer) { e.importer = imp }

// ExecuteBatch runs the plan and returns one result per action.
func (e *Executor) ExecuteBatch(ctx context.Context, p Plan) []Result {
	var results []Result
	if p.TargetStatus != "" {
		for _, t := range p.Matches {
			results = append(results, e.Execute(ctx, MoveTask{TaskID: ID(t.ID), Status: string(p.TargetStatus)}))
		}
	}
	for _, line := range p.Commands {
		if err := ctx.Err(); err != nil {
			return append(results, failure(line, err.Error()))
		}
		results = append(results, e.ExecuteCommand(ctx, line))
	}
	for _, raw := range p.Actions {
		if err := ctx.Err(); err != nil {
			return append(results, failure("action", err.Error()))
		}
		a, err := DecodeAction(raw)
		if err != nil {
			results = append(results, failure("action", err.Error()))
			continue
		}
		results = append(results, e.Execute(ctx, a))
	}
	return results
}

// ExecuteCommand parses and runs one grammar line.
func (e *Executor) ExecuteCommand(ctx context.Context, line string) Result {
	a, err := ParseCommand(line)
	if err != nil {
		name := line
		if f := strings.Fields(line); len(f) > 0 {
			name = f[0]
		}
		return failure(name, err.Error())
	}
	return e.Execute(ctx, a)
}

// Execute validates and applies one action.
func (e *Executor) Execute(ctx context.Context, a Action) Result {
	kind := a.Kind().String()
	if err := a.Validate(); err != nil {
		return failure(kind, "invalid "+kind+": "+err.Error())
	}

	var res Result
	var err error
	switch a := a.(type) {
	case CreateTask:
		res, err = e.createTask(a)
	case MoveTask:
		res, err = e.moveTask(a)
	case CreateNotebook:
		res, err = e.createNotebook(a)
	case ListTasks:
		res, err = e.listTasks(a)
	case SearchTasks:
		res, err = e.searchTasks(a)
	case GenerateImportJSON:
		res, err = e.generateImport(ctx, a)
	case DeleteTask:
		res, err = e.deleteTask(a)
	case ListNotebooks:
		res, err = e.listNotebooks()
	case ShowStats:
		res, err = e.showStats(a)
	case SetDefaultNotebook:
		res, err = e.setDefaultNotebook(a)
	default:
		err = fmt.Errorf("unsupported action %s", kind)
	}
	res.Action = kind
	if err != nil {
		e.logger.Debug("action failed", slog.String("action", kind), slog.String("error", err.Error()))
		return failure(kind, err.Error())
	}
	res.OK = true
	return res
}

func (e *Executor) createTask(a CreateTask) (Result, error) {
	nb, err := e.notebook(a.Notebook)
	if err != nil {
		return Result{}, err
	}
	in := store.NewTask{
		NotebookID:  nb.ID,
		Title:       strings.TrimSpace(a.Title),
		Description: a.Description,
		Status:      models.StatusTodo,
		Tags:        a.Tags,
	}
	if a.Priority != "" {
		in.Priority, _ = extract.NormalizePriority(a.Priority)
	}
	if a.DueDate != "" {
		in.DueDate, _ = extract.ParseDate(a.DueDate, e.now())
	}
	task, err := e.store.CreateTask(in)
	if err != nil {
		return Result{}, fmt.Errorf("create task %q: %w", a.Title, err)
	}
	e.notify(EventCreated, *task)
	return Result{
		Message: fmt.Sprintf("Created task #%d %q in %s", task.ID, task.Title, nb.Name),
		Tasks:   []models.Task{*task},
	}, nil
}

func (e *Executor) moveTask(a MoveTask) (Result, error) {
	st, _ := status.Normalize(a.Status)
	task, err := e.task(int64(a.TaskID))
	if err != nil {
		return Result{}, err
	}
	if task.Status == st {
		return Result{
			Message: fmt.Sprintf("Task #%d %q is already %s", task.ID, task.Title, st),
			Tasks:   []models.Task{*task},
		}, nil
	}
	from := task.Status
	updated, err := e.store.UpdateTask(task.ID, store.TaskUpdate{Status: &st})
	if err != nil {
		return Result{}, fmt.Errorf("move task #%d: %w", task.ID, err)
	}
	e.notify(EventUpdated, *updated)
	return Result{
		Message: fmt.Sprintf("Moved task #%d %q from %s to %s", updated.ID, updated.Title, from, st),
		Tasks:   []models.Task{*updated},
	}, nil
}

func (e *Executor) createNotebook(a CreateNotebook) (Result, error) {
	nb, err := e.store.CreateNotebook(strings.TrimSpace(a.Name), a.Default)
	if errors.Is(err, apperr.ErrAlreadyExists) {
		return Result{}, fmt.Errorf("notebook %q already exists", a.Name)
	}
	if err != nil {
		return Result{}, fmt.Errorf("create notebook %q: %w", a.Name, err)
	}
	return Result{
		Message:   fmt.Sprintf("Created notebook %q", nb.Name),
		Notebooks: []models.NotebookSummary{{Name: nb.Name, IsDefault: nb.IsDefault}},
	}, nil
}

func (e *Executor) setDefaultNotebook(a SetDefaultNotebook) (Result, error) {
	nb, err := e.notebook(a.Name)
	if err != nil {
		return Result{}, err
	}
	if err := e.store.SetDefaultNotebook(nb.Name); err != nil {
		return Result{}, fmt.Errorf("set default notebook %q: %w", nb.Name, err)
	}
	return Result{
		Message:   fmt.Sprintf("%q is now the default notebook", nb.Name),
		Notebooks: []models.NotebookSummary{{Name: nb.Name, IsDefault: true}},
	}, nil
}

func (e *Executor) listTasks(a ListTasks) (Result, error) {
	var tasks []models.Task
	var err error
	scope := "all notebooks"
	if a.Notebook != "" {
		nb, nbErr := e.notebook(a.Notebook)
		if nbErr != nil {
			return Result{}, nbErr
		}
		scope = nb.Name
		tasks, err = e.store.ListTasks(nb.ID)
	} else {
		tasks, err = e.store.AllTasks()
	}
	if err != nil {
		return Result{}, fmt.Errorf("list tasks: %w", err)
	}
	if a.Status != "" {
		st, _ := status.Normalize(a.Status)
		tasks = filterStatus(tasks, st)
		scope += ", " + string(st)
	}
	return Result{Message: fmt.Sprintf("%s in %s", countTasks(len(tasks)), scope), Tasks: tasks}, nil
}

func (e *Executor) searchTasks(a SearchTasks) (Result, error) {
	tasks, err := e.store.SearchTasks(a.Query, 50)
	if err != nil {
		return Result{}, fmt.Errorf("search %q: %w", a.Query, err)
	}
	return Result{Message: fmt.Sprintf("%s matching %q", countTasks(len(tasks)), a.Query), Tasks: tasks}, nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

func (e *Executor) generateImport(ctx context.Context, a GenerateImportJSON) (Result, error) {
	if e.inbox == nil {
		return Result{}, errors.New("import inbox is not configured")
	}
	doc, err := json.MarshalIndent(models.ImportDocument{Notebook: a.Notebook, Tasks: a.Tasks}, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("encode import document: %w", err)
	}
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(a.Notebook), "-"), "-")
	if slug == "" {
		slug = "import"
	}
	path := fmt.Sprintf("%s-%s.json", slug, strings.ToLower(ulid.Make().String()))
	if err := e.inbox.Write(path, doc); err != nil {
		return Result{}, fmt.Errorf("write import document: %w", err)
	}
	msg := fmt.Sprintf("Wrote import file %s with %s for %s", path, countTasks(len(a.Tasks)), a.Notebook)
	if e.importer != nil {
		n, err := e.importer.ImportFile(ctx, path)
		if err != nil {
			return Result{}, fmt.Errorf("import %s: %w", path, err)
		}
		msg += fmt.Sprintf("; imported %s", countTasks(n))
	}
	return Result{Message: msg}, nil
}

func (e *Executor) deleteTask(a DeleteTask) (Result, error) {
	task, err := e.task(int64(a.TaskID))
	if err != nil {
		return Result{}, err
	}
	if err := e.store.DeleteTask(task.ID); err != nil {
		return Result{}, fmt.Errorf("delete task #%d: %w", task.ID, err)
	}
	e.notify(EventDeleted, *task)
	return Result{Message: fmt.Sprintf("Deleted task #%d %q", task.ID, task.Title)}, nil
}

func (e *Executor) listNotebooks() (Result, error) {
	nbs, err := e.store.ListNotebooks()
	if err != nil {
		return Result{}, fmt.Errorf("list notebooks: %w", err)
	}
	summaries, err := e.summaries(nbs)
	if err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("%d notebook(s)", len(summaries)), Notebooks: summaries}, nil
}

func (e *Executor) showStats(a ShowStats) (Result, error) {
	var nbs []models.Notebook
	if a.Notebook != "" {
		nb, err := e.notebook(a.Notebook)
		if err != nil {
			return Result{}, err
		}
		nbs = []models.Notebook{*nb}
	} else {
		var err error
		if nbs, err = e.store.ListNotebooks(); err != nil {
			return Result{}, fmt.Errorf("list notebooks: %w", err)
		}
	}
	summaries, err := e.summaries(nbs)
	if err != nil {
		return Result{}, err
	}
	var total models.StatusCounts
	for _, s := range summaries {
		total.Todo += s.Counts.Todo
		total.InProgress += s.Counts.InProgress
		total.Done += s.Counts.Done
		total.Archived += s.Counts.Archived
	}
	return Result{
		Message: fmt.Sprintf("%s: todo %d, in_progress %d, done %d, archived %d",
			countTasks(total.Total()), total.Todo, total.InProgress, total.Done, total.Archived),
		Notebooks: summaries,
	}, nil
}

// Summaries returns every notebook with its status counts.
func (e *Executor) Summaries() ([]models.NotebookSummary, error) {
	nbs, err := e.store.ListNotebooks()
	if err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	return e.summaries(nbs)
}

func (e *Executor) summaries(nbs []models.Notebook) ([]models.NotebookSummary, error) {
	out := make([]models.NotebookSummary, 0, len(nbs))
	for _, nb := range nbs {
		counts, err := e.store.StatusCounts(nb.ID)
		if err != nil {
			return nil, fmt.Errorf("count tasks in %s: %w", nb.Name, err)
		}
		out = append(out, models.NotebookSummary{Name: nb.Name, IsDefault: nb.IsDefault, Counts: counts})
	}
	return out, nil
}

func (e *Executor) notebook(name string) (*models.Notebook, error) {
	nb, err := e.store.NotebookByName(strings.TrimSpace(name))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("notebook %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("find notebook %q: %w", name, err)
	}
	return nb, nil
}

func (e *Executor) task(id int64) (*models.Task, error) {
	task, err := e.store.GetTask(id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("task #%d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get task #%d: %w", id, err)
	}
	return task, nil
}

func (e *Executor) notify(kind string, t models.Task) {
	if e.notifier != nil {
		e.notifier.PublishTaskEvent(kind, t)
	}
}

func failure(action, msg string) Result {
	return Result{Action: action, OK: false, Message: msg}
}

func filterStatus(in []models.Task, st models.Status) []models.Task {
	var out []models.Task
	for _, t := range in {
		if t.Status == st {
			out = append(out, t)
		}
	}
	return out
}

func countTasks(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}
