package interpreter

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/starford/taskwise/internal/command"
	"github.com/starford/taskwise/internal/extract"
	"github.com/starford/taskwise/internal/intent"
	"github.com/starford/taskwise/internal/models"
)

const upcomingWindow = 7 * 24 * time.Hour

// fastPath answers it locally. It reports false when the request still needs
// the model, possibly after filling plan with a resolved move.
func (in *Interpreter) fastPath(ctx context.Context, it intent.Intent, ans *Answer, plan *command.Plan) (bool, error) {
	var results []command.Result
	var err error
	switch it.Kind {
	case intent.KindStats:
		results, err = in.stats(ctx, it)
	case intent.KindPriorityList:
		results, err = in.priorityList(it)
	case intent.KindDeadlineList:
		results, err = in.deadlineList(it)
	case intent.KindCreateTask:
		results, err = in.createTask(ctx, it)
	case intent.KindStatusList:
		results, err = in.statusList(ctx, it)
	case intent.KindNotebookList:
		results = []command.Result{in.exec.Execute(ctx, command.ListNotebooks{})}
	case intent.KindMoveTask:
		return in.moveTask(ctx, it, ans, plan)
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	ans.Results = results
	return true, nil
}

func (in *Interpreter) stats(ctx context.Context, it intent.Intent) ([]command.Result, error) {
	nbs, err := in.store.ListNotebooks()
	if err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	name := extract.Notebook(it.Prompt, nbs, "")
	return []command.Result{in.exec.Execute(ctx, command.ShowStats{Notebook: name})}, nil
}

func (in *Interpreter) priorityList(it intent.Intent) ([]command.Result, error) {
	all, err := in.store.AllTasks()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var tasks []models.Task
	for _, t := range all {
		if t.Priority == it.Priority && t.Status.Open() {
			tasks = append(tasks, t)
		}
	}
	return []command.Result{{
		Action:  command.KindListTasks.String(),
		OK:      true,
		Message: fmt.Sprintf("%s with %s priority", countTasks(len(tasks)), it.Priority),
		Tasks:   tasks,
	}}, nil
}

func (in *Interpreter) deadlineList(it intent.Intent) ([]command.Result, error) {
	all, err := in.store.AllTasks()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	now := in.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var tasks []models.Task
	for _, t := range all {
		if t.DueDate == nil || !t.Status.Open() {
			continue
		}
		due := t.DueDate.UTC()
		switch it.Deadline {
		case intent.DeadlineOverdue:
			if !due.Before(today) {
				continue
			}
		case intent.DeadlineUpcoming:
			if due.Before(today) || due.After(today.Add(upcomingWindow)) {
				continue
			}
		}
		tasks = append(tasks, t)
	}
	slices.SortStableFunc(tasks, func(a, b models.Task) int {
		return a.DueDate.Compare(*b.DueDate)
	})
	return []command.Result{{
		Action:  command.KindListTasks.String(),
		OK:      true,
		Message: fmt.Sprintf("%s %s", countTasks(len(tasks)), it.Deadline),
		Tasks:   tasks,
	}}, nil
}

func (in *Interpreter) createTask(ctx context.Context, it intent.Intent) ([]command.Result, error) {
	nbs, err := in.store.ListNotebooks()
	if err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	var fallback string
	names := make([]string, 0, len(nbs))
	for _, nb := range nbs {
		names = append(names, nb.Name)
		if nb.IsDefault {
			fallback = nb.Name
		}
	}
	name := extract.Notebook(it.Prompt, nbs, fallback)
	if name == "" {
		return []command.Result{{
			Action:  command.KindCreateTask.String(),
			Message: "no notebook to add the task to; name one or create one with notebook:create",
		}}, nil
	}

	a := command.CreateTask{
		Notebook: name,
		Title:    extract.Title(it.Prompt, names...),
		Priority: string(it.Priority),
	}
	if due, ok := extract.DueDate(it.Prompt, in.now()); ok {
		a.DueDate = due.Format(time.DateOnly)
	}
	return []command.Result{in.exec.Execute(ctx, a)}, nil
}

func (in *Interpreter) statusList(ctx context.Context, it intent.Intent) ([]command.Result, error) {
	nbs, err := in.store.ListNotebooks()
	if err != nil {
		return nil, fmt.Errorf("list notebooks: %w", err)
	}
	a := command.ListTasks{
		Notebook: extract.Notebook(it.Prompt, nbs, ""),
		Status:   string(it.TargetStatus),
	}
	return []command.Result{in.exec.Execute(ctx, a)}, nil
}

// moveTask handles movement with an explicit status locally. Without one, the
// target defaults to in_progress and the resolved move is left in plan for
// the model path to apply first.
func (in *Interpreter) moveTask(ctx context.Context, it intent.Intent, ans *Answer, plan *command.Plan) (bool, error) {
	matches, err := in.resolveMatches(it.Prompt)
	if err != nil {
		return false, err
	}
	if len(matches) == 0 {
		return false, nil
	}

	target := it.TargetStatus
	if !it.ExplicitStatus || target == "" {
		if target == "" {
			target = models.StatusInProgress
		}
		plan.Matches = matches
		plan.TargetStatus = target
		return false, nil
	}

	ans.Results = in.exec.ExecuteBatch(ctx, command.Plan{Matches: matches, TargetStatus: target})
	return true, nil
}

func countTasks(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}
