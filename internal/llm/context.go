// Package llm turns a prompt plus the task inventory into executable
// commands through a single chat model call.
package llm

import (
	"fmt"

	"github.com/starford/taskwise/internal/models"
)

// Inventory is the part of the task store the context builder reads.
type Inventory interface {
	ListNotebooks() ([]models.Notebook, error)
	StatusCounts(notebookID int64) (models.StatusCounts, error)
}

// Context is the inventory snapshot serialised into the system prompt.
type Context struct {
	Notebooks    []models.NotebookSummary `json:"notebooks"`
	Matches      []models.MatchedTask     `json:"matched_tasks"`
	TargetStatus models.Status            `json:"target_status,omitempty"`
}

// BuildContext snapshots notebooks with their counts and projects matches.
func BuildContext(inv Inventory, matches []models.Task, target models.Status) (Context, error) {
	nbs, err := inv.ListNotebooks()
	if err != nil {
		return Context{}, fmt.Errorf("list notebooks: %w", err)
	}

	c := Context{
		Notebooks:    make([]models.NotebookSummary, 0, len(nbs)),
		Matches:      make([]models.MatchedTask, 0, len(matches)),
		TargetStatus: target,
	}
	for _, nb := range nbs {
		counts, err := inv.StatusCounts(nb.ID)
		if err != nil {
			return Context{}, fmt.Errorf("count tasks in %s: %w", nb.Name, err)
		}
		c.Notebooks = append(c.Notebooks, models.NotebookSummary{Name: nb.Name, IsDefault: nb.IsDefault, Counts: counts})
	}
	for _, t := range matches {
		c.Matches = append(c.Matches, t.Project())
	}
	if len(c.Matches) == 0 {
		c.TargetStatus = ""
	}
	return c, nil
}
