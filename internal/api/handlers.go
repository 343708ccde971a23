package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/interpreter"
	"github.com/starford/taskwise/internal/taskservice"
)

// apiKeyHeader lets clients supply their own model key per request.
const apiKeyHeader = "X-LLM-API-Key"

// Handler holds API route handlers.
type Handler struct {
	svc *taskservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *taskservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Ask handles POST /api/ask.
//
//	@Summary		Interpret a natural-language request
//	@Tags			ask
//	@Accept			json
//	@Produce		json
//	@Param			body			body		AskRequest	true	"Request"
//	@Param			X-LLM-API-Key	header		string		false	"Model API key override"
//	@Success		200				{object}	AskResponse
//	@Failure		400				{object}	errResponse
//	@Failure		401				{object}	errResponse
//	@Failure		502				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ask [post]
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	opts := interpreter.AskOptions{APIKey: req.APIKey, Verbose: req.Verbose}
	if opts.APIKey == "" {
		opts.APIKey = r.Header.Get(apiKeyHeader)
	}

	ans, err := h.svc.Ask(r.Context(), req.Prompt, opts)
	if err != nil {
		writeError(w, "ask", err)
		return
	}
	writeJSON(w, http.StatusOK, AskResponse{Answer: ans, Text: ans.Render(req.Verbose)})
}

// Command handles POST /api/commands.
//
//	@Summary		Execute one grammar command without the model
//	@Tags			ask
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CommandRequest	true	"Command"
//	@Success		200		{object}	CommandResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	CommandResponse
//	@Security		BearerAuth
//	@Router			/commands [post]
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("command is required"))
		return
	}
	res := h.svc.Execute(r.Context(), req.Command)
	code := http.StatusOK
	if !res.OK {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, res)
}

// Grammar handles GET /api/grammar.
//
//	@Summary		Get the command grammar reference
//	@Tags			ask
//	@Produce		json
//	@Success		200	{object}	GrammarResponse
//	@Security		BearerAuth
//	@Router			/grammar [get]
func (h *Handler) Grammar(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, GrammarResponse{Grammar: h.svc.Grammar()})
}

// ListNotebooks handles GET /api/notebooks.
//
//	@Summary		List notebooks with status counts
//	@Tags			notebooks
//	@Produce		json
//	@Success		200	{object}	NotebookListResponse
//	@Security		BearerAuth
//	@Router			/notebooks [get]
func (h *Handler) ListNotebooks(w http.ResponseWriter, r *http.Request) {
	nbs, err := h.svc.ListNotebooks(r.Context())
	if err != nil {
		writeError(w, "list notebooks", err)
		return
	}
	writeJSON(w, http.StatusOK, NotebookListResponse{Notebooks: nbs})
}

// ListTasks handles GET /api/tasks.
//
//	@Summary		List tasks with optional notebook and status filters
//	@Tags			tasks
//	@Produce		json
//	@Param			notebook	query		string	false	"Notebook name"
//	@Param			status		query		string	false	"Status or synonym"
//	@Success		200			{object}	TaskListResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := h.svc.ListTasks(r.Context(), q.Get("notebook"), q.Get("status"))
	if err != nil {
		writeError(w, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks, Total: len(tasks)})
}

// GetTask handles GET /api/tasks/{id}.
//
//	@Summary		Get a single task
//	@Tags			tasks
//	@Produce		json
//	@Param			id	path		int	true	"Task id"
//	@Success		200	{object}	models.Task
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id} [get]
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimPrefix(chi.URLParam(r, "id"), "#"), 10, 64)
	if err != nil {
		writeError(w, "get task", fmt.Errorf("task id %q: %w", chi.URLParam(r, "id"), apperr.ErrInvalid))
		return
	}
	task, err := h.svc.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across tasks
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
