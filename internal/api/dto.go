package api

import (
	"github.com/starford/taskwise/internal/command"
	"github.com/starford/taskwise/internal/interpreter"
	"github.com/starford/taskwise/internal/models"
)

// AskRequest is the request body for a natural-language request.
type AskRequest struct {
	Prompt  string `json:"prompt" example:"move tappy-tf-shared to archived" validate:"required"`
	APIKey  string `json:"api_key,omitempty"`
	Verbose bool   `json:"verbose,omitempty"`
}

// AskResponse carries the structured answer and its rendered text.
type AskResponse struct {
	*interpreter.Answer
	Text string `json:"text" validate:"required"`
}

// CommandRequest is the request body for a raw grammar command.
type CommandRequest struct {
	Command string `json:"command" example:"task:move 149 archived" validate:"required"`
}

// CommandResponse is the outcome of a raw grammar command.
type CommandResponse = command.Result

// NotebookListResponse wraps notebook listings.
type NotebookListResponse struct {
	Notebooks []models.NotebookSummary `json:"notebooks" validate:"required"`
}

// TaskListResponse wraps task listings.
type TaskListResponse struct {
	Tasks []models.Task `json:"tasks" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.Task `json:"results" validate:"required"`
}

// GrammarResponse is the command reference.
type GrammarResponse struct {
	Grammar string `json:"grammar" validate:"required"`
}
