package interpreter

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/taskwise/internal/command"
	"github.com/starford/taskwise/internal/models"
)

// Render formats the answer for a terminal.
func (a *Answer) Render(verbose bool) string {
	var b strings.Builder
	if verbose {
		fmt.Fprintf(&b, "request %s, path %s", a.RequestID, a.Path)
		if a.Intent != "" {
			fmt.Fprintf(&b, ", intent %s", a.Intent)
		}
		b.WriteString("\n")
		for _, c := range a.Commands {
			fmt.Fprintf(&b, "$ %s\n", c)
		}
	}
	if a.Explanation != "" {
		b.WriteString(a.Explanation)
		b.WriteString("\n")
	}
	for _, r := range a.Results {
		writeResult(&b, r)
	}
	if len(a.Results) == 0 && a.Explanation == "" {
		b.WriteString("Nothing to do.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeResult(b *strings.Builder, r command.Result) {
	mark := "ok"
	if !r.OK {
		mark = "error"
	}
	fmt.Fprintf(b, "[%s] %s\n", mark, r.Message)
	for _, nb := range r.Notebooks {
		writeNotebook(b, nb)
	}
	// Single-task results are already described by the message.
	if len(r.Tasks) > 1 || r.Action == command.KindListTasks.String() || r.Action == command.KindSearchTasks.String() {
		for _, t := range r.Tasks {
			writeTask(b, t)
		}
	}
}

func writeNotebook(b *strings.Builder, nb models.NotebookSummary) {
	name := nb.Name
	if nb.IsDefault {
		name += " (default)"
	}
	c := nb.Counts
	fmt.Fprintf(b, "  %s: todo %d, in_progress %d, done %d, archived %d\n",
		name, c.Todo, c.InProgress, c.Done, c.Archived)
}

func writeTask(b *strings.Builder, t models.Task) {
	fmt.Fprintf(b, "  #%d [%s] %s", t.ID, t.Status, t.Title)
	if t.NotebookName != "" {
		fmt.Fprintf(b, " (%s)", t.NotebookName)
	}
	if t.Priority != models.PriorityNone {
		fmt.Fprintf(b, " !%s", t.Priority)
	}
	if t.DueDate != nil {
		fmt.Fprintf(b, " due %s", t.DueDate.Format(time.DateOnly))
	}
	b.WriteString("\n")
}
