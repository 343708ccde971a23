// Package command parses and executes task-management commands, both the
// textual grammar and structured JSON actions.
package command

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/extract"
	"github.com/starford/taskwise/internal/models"
	"github.com/starford/taskwise/internal/status"
)

// Kind identifies an action.
type Kind int

const (
	KindCreateTask Kind = iota + 1
	KindMoveTask
	KindCreateNotebook
	KindListTasks
	KindSearchTasks
	KindGenerateImportJSON
	KindDeleteTask
	KindListNotebooks
	KindShowStats
	KindSetDefaultNotebook
)

var kindWire = map[Kind]string{
	KindCreateTask:         "create_task",
	KindMoveTask:           "move_task",
	KindCreateNotebook:     "create_notebook",
	KindListTasks:          "list_tasks",
	KindSearchTasks:        "search_tasks",
	KindGenerateImportJSON: "generate_import_json",
	KindDeleteTask:         "delete_task",
	KindListNotebooks:      "list_notebooks",
	KindShowStats:          "stats",
	KindSetDefaultNotebook: "set_default_notebook",
}

// String returns the wire name used in the "type" field of JSON actions.
func (k Kind) String() string {
	if s, ok := kindWire[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Action is one executable operation. The set of implementations is closed.
type Action interface {
	Kind() Kind
	Validate() error
	sealed()
}

// CreateTask adds a task to a notebook.
type CreateTask struct {
	Notebook    string   `json:"notebook"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ID is a task id that also decodes from JSON strings such as "85" or "#85".
type ID int64

// UnmarshalJSON accepts numbers and numeric strings.
func (id *ID) UnmarshalJSON(b []byte) error {
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*id = ID(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil {
		return fmt.Errorf("task id %q: %w", s, err)
	}
	*id = ID(n)
	return nil
}

// MoveTask changes the status of a task.
type MoveTask struct {
	TaskID ID     `json:"task_id"`
	Status string `json:"status"`
}

// CreateNotebook adds a notebook.
type CreateNotebook struct {
	Name    string `json:"name"`
	Default bool   `json:"default,omitempty"`
}

// ListTasks lists tasks, optionally narrowed to a notebook and status.
type ListTasks struct {
	Notebook string `json:"notebook,omitempty"`
	Status   string `json:"status,omitempty"`
}

// SearchTasks runs a full-text query over tasks.
type SearchTasks struct {
	Query string `json:"query"`
}

// GenerateImportJSON writes an import document for bulk task creation.
type GenerateImportJSON struct {
	Notebook string              `json:"notebook"`
	Tasks    []models.ImportTask `json:"tasks"`
}

// DeleteTask removes a task.
type DeleteTask struct {
	TaskID ID `json:"task_id"`
}

// ListNotebooks lists notebooks with their task counts.
type ListNotebooks struct{}

// ShowStats reports status counts for one notebook or all of them.
type ShowStats struct {
	Notebook string `json:"notebook,omitempty"`
}

// SetDefaultNotebook makes a notebook the default for new tasks and for
// requests about "all tasks".
type SetDefaultNotebook struct {
	Name string `json:"name"`
}

func (CreateTask) Kind() Kind         { return KindCreateTask }
func (MoveTask) Kind() Kind           { return KindMoveTask }
func (CreateNotebook) Kind() Kind     { return KindCreateNotebook }
func (ListTasks) Kind() Kind          { return KindListTasks }
func (SearchTasks) Kind() Kind        { return KindSearchTasks }
func (GenerateImportJSON) Kind() Kind { return KindGenerateImportJSON }
func (DeleteTask) Kind() Kind         { return KindDeleteTask }
func (ListNotebooks) Kind() Kind      { return KindListNotebooks }
func (ShowStats) Kind() Kind          { return KindShowStats }
func (SetDefaultNotebook) Kind() Kind { return KindSetDefaultNotebook }

func (CreateTask) sealed()         {}
func (MoveTask) sealed()           {}
func (CreateNotebook) sealed()     {}
func (ListTasks) sealed()          {}
func (SearchTasks) sealed()        {}
func (GenerateImportJSON) sealed() {}
func (DeleteTask) sealed()         {}
func (ListNotebooks) sealed()      {}
func (ShowStats) sealed()          {}
func (SetDefaultNotebook) sealed() {}

var (
	isStatus = validation.By(func(v any) error {
		s, _ := v.(string)
		if s == "" {
			return nil
		}
		if _, ok := status.Normalize(s); !ok {
			return fmt.Errorf("unknown status %q", s)
		}
		return nil
	})
	isPriority = validation.By(func(v any) error {
		s, _ := v.(string)
		if s == "" {
			return nil
		}
		if _, ok := extract.NormalizePriority(s); !ok {
			return fmt.Errorf("unknown priority %q", s)
		}
		return nil
	})
	isDate = validation.By(func(v any) error {
		s, _ := v.(string)
		if s == "" {
			return nil
		}
		if _, ok := extract.ParseDate(s, time.Now()); !ok {
			return fmt.Errorf("unparseable date %q (want YYYY-MM-DD)", s)
		}
		return nil
	})
)

// Validate checks the fields of the action.
func (a CreateTask) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Notebook, validation.Required),
		validation.Field(&a.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&a.Priority, isPriority),
		validation.Field(&a.DueDate, isDate),
	)
}

// Validate checks the fields of the action.
func (a MoveTask) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.TaskID, validation.Required, validation.Min(ID(1))),
		validation.Field(&a.Status, validation.Required, isStatus),
	)
}

// Validate checks the fields of the action.
func (a CreateNotebook) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required, validation.Length(1, 200)),
	)
}

// Validate checks the fields of the action.
func (a ListTasks) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Status, isStatus),
	)
}

// Validate checks the fields of the action.
func (a SearchTasks) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Query, validation.Required),
	)
}

// Validate checks the document and every task in it.
func (a GenerateImportJSON) Validate() error {
	if err := validation.ValidateStruct(&a,
		validation.Field(&a.Notebook, validation.Required),
		validation.Field(&a.Tasks, validation.Required),
	); err != nil {
		return err
	}
	for i := range a.Tasks {
		t := a.Tasks[i]
		if err := validation.ValidateStruct(&t,
			validation.Field(&t.Title, validation.Required),
			validation.Field(&t.Status, isStatus),
			validation.Field(&t.Priority, isPriority),
			validation.Field(&t.DueDate, isDate),
		); err != nil {
			return fmt.Errorf("tasks[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks the fields of the action.
func (a DeleteTask) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.TaskID, validation.Required, validation.Min(ID(1))),
	)
}

// Validate is a no-op; the action has no fields.
func (ListNotebooks) Validate() error { return nil }

// Validate is a no-op; every field is optional.
func (ShowStats) Validate() error { return nil }

// Validate checks the fields of the action.
func (a SetDefaultNotebook) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required),
	)
}

// DecodeAction decodes a structured action of the form {"type": "...", ...}.
// "action" is accepted as an alias of "type".
func DecodeAction(raw json.RawMessage) (Action, error) {
	var env struct {
		Type   string `json:"type"`
		Action string `json:"action"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: action is not a JSON object: %v", apperr.ErrInvalid, err)
	}
	typ := env.Type
	if typ == "" {
		typ = env.Action
	}
	var a Action
	var err error
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "create_task":
		a, err = decodeInto[CreateTask](raw)
	case "move_task":
		a, err = decodeInto[MoveTask](raw)
	case "create_notebook":
		a, err = decodeInto[CreateNotebook](raw)
	case "list_tasks":
		a, err = decodeInto[ListTasks](raw)
	case "search_tasks":
		a, err = decodeInto[SearchTasks](raw)
	case "generate_import_json":
		a, err = decodeInto[GenerateImportJSON](raw)
	case "delete_task":
		a, err = decodeInto[DeleteTask](raw)
	case "list_notebooks":
		a = ListNotebooks{}
	case "stats", "show_stats":
		a, err = decodeInto[ShowStats](raw)
	case "set_default_notebook":
		a, err = decodeInto[SetDefaultNotebook](raw)
	case "":
		return nil, fmt.Errorf("%w: action has no type", apperr.ErrInvalid)
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", apperr.ErrInvalid, typ)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", apperr.ErrInvalid, typ, err)
	}
	return a, nil
}

func decodeInto[T Action](raw json.RawMessage) (Action, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
