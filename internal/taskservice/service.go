// Package taskservice is the read and ask surface shared by the HTTP API and
// the MCP server.
package taskservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/command"
	"github.com/starford/taskwise/internal/interpreter"
	"github.com/starford/taskwise/internal/models"
	"github.com/starford/taskwise/internal/status"
	"github.com/starford/taskwise/internal/store"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 200
)

// Service coordinates the interpreter, executor and task store.
type Service struct {
	store  store.TaskStore
	exec   *command.Executor
	interp *interpreter.Interpreter
}

// NewService creates a new task service.
func NewService(st store.TaskStore, exec *command.Executor, interp *interpreter.Interpreter) *Service {
	return &Service{store: st, exec: exec, interp: interp}
}

// Ask runs one natural-language request.
func (s *Service) Ask(ctx context.Context, prompt string, opts interpreter.AskOptions) (*interpreter.Answer, error) {
	return s.interp.Interpret(ctx, prompt, opts)
}

// Execute runs one grammar line without the model.
func (s *Service) Execute(ctx context.Context, line string) command.Result {
	return s.exec.ExecuteCommand(ctx, line)
}

// ListNotebooks returns every notebook with its status counts.
func (s *Service) ListNotebooks(_ context.Context) ([]models.NotebookSummary, error) {
	return s.exec.Summaries()
}

// ListTasks returns tasks, optionally narrowed to one notebook and status.
func (s *Service) ListTasks(_ context.Context, notebook, st string) ([]models.Task, error) {
	var want models.Status
	if st != "" {
		var ok bool
		if want, ok = status.Normalize(st); !ok {
			return nil, fmt.Errorf("unknown status %q: %w", st, apperr.ErrInvalid)
		}
	}

	var tasks []models.Task
	var err error
	if notebook = strings.TrimSpace(notebook); notebook != "" {
		nb, nbErr := s.store.NotebookByName(notebook)
		if nbErr != nil {
			return nil, nbErr
		}
		tasks, err = s.store.ListTasks(nb.ID)
	} else {
		tasks, err = s.store.AllTasks()
	}
	if err != nil {
		return nil, err
	}

	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if want == "" || t.Status == want {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetTask returns a single task.
func (s *Service) GetTask(_ context.Context, id int64) (*models.Task, error) {
	return s.store.GetTask(id)
}

// Search runs a full-text query over tasks.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.Task, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is empty: %w", apperr.ErrInvalid)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)
	tasks, err := s.store.SearchTasks(query, limit)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// Grammar returns the command reference.
func (s *Service) Grammar() string {
	return command.Reference()
}
