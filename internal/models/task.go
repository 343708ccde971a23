// Package models defines the domain types for taskwise.
package models

import "time"

// Status is one of the four canonical task statuses.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusArchived   Status = "archived"
)

// Statuses lists the canonical statuses in workflow order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone, StatusArchived}

// Valid reports whether s is a canonical status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusArchived:
		return true
	}
	return false
}

// Open reports whether a task in this status still needs work.
func (s Status) Open() bool {
	return s == StatusTodo || s == StatusInProgress
}

// Priority is an optional task priority.
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is a known priority. The empty priority is valid.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNone, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Notebook is a named container of tasks. At most one notebook is the default.
type Notebook struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is a unit of work stored in a notebook.
type Task struct {
	ID           int64      `json:"id"`
	NotebookID   int64      `json:"notebook_id"`
	NotebookName string     `json:"notebook"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority,omitempty"`
	Tags         []string   `json:"tags"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// MatchedTask is a lightweight projection of a task selected by the matcher.
type MatchedTask struct {
	NotebookName string `json:"notebook"`
	TaskID       int64  `json:"task_id"`
	Title        string `json:"title"`
	Status       Status `json:"status"`
}

// Project returns the matched-task projection of t.
func (t Task) Project() MatchedTask {
	return MatchedTask{
		NotebookName: t.NotebookName,
		TaskID:       t.ID,
		Title:        t.Title,
		Status:       t.Status,
	}
}

// StatusCounts holds per-status task counts in a fixed field order.
type StatusCounts struct {
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
	Archived   int `json:"archived"`
}

// Add increments the counter for s.
func (c *StatusCounts) Add(s Status, n int) {
	switch s {
	case StatusTodo:
		c.Todo += n
	case StatusInProgress:
		c.InProgress += n
	case StatusDone:
		c.Done += n
	case StatusArchived:
		c.Archived += n
	}
}

// Total returns the sum of all counters.
func (c StatusCounts) Total() int {
	return c.Todo + c.InProgress + c.Done + c.Archived
}

// NotebookSummary describes a notebook and its task counts.
type NotebookSummary struct {
	Name      string       `json:"name"`
	IsDefault bool         `json:"is_default"`
	Counts    StatusCounts `json:"counts"`
}

// ImportFile describes a file waiting in the import inbox.
type ImportFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImportTask is one task inside an import document. Status, priority and
// due date are loose spellings resolved at import time.
type ImportTask struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Status      string   `json:"status,omitempty" yaml:"status,omitempty"`
	Priority    string   `json:"priority,omitempty" yaml:"priority,omitempty"`
	DueDate     string   `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ImportDocument is the bulk-creation format written to and read from the
// import inbox.
type ImportDocument struct {
	Notebook string       `json:"notebook"`
	Tasks    []ImportTask `json:"tasks"`
}
