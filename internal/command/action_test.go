package command

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/models"
)

func TestDecodeAction(t *testing.T) {
	cases := []struct {
		raw  string
		want Kind
	}{
		{`{"type":"create_task","notebook":"work","title":"x"}`, KindCreateTask},
		{`{"type":"move_task","task_id":85,"status":"in_progress"}`, KindMoveTask},
		{`{"action":"move_task","task_id":"#85","status":"done"}`, KindMoveTask},
		{`{"type":"create_notebook","name":"travel"}`, KindCreateNotebook},
		{`{"type":"list_tasks","notebook":"work"}`, KindListTasks},
		{`{"type":"search_tasks","query":"tf"}`, KindSearchTasks},
		{`{"type":"generate_import_json","notebook":"w","tasks":[{"title":"a"}]}`, KindGenerateImportJSON},
		{`{"type":"delete_task","task_id":4}`, KindDeleteTask},
		{`{"type":"list_notebooks"}`, KindListNotebooks},
		{`{"type":"stats"}`, KindShowStats},
		{`{"type":"set_default_notebook","name":"home"}`, KindSetDefaultNotebook},
	}
	for _, tc := range cases {
		a, err := DecodeAction(json.RawMessage(tc.raw))
		if err != nil {
			t.Errorf("DecodeAction(%s): %v", tc.raw, err)
			continue
		}
		if a.Kind() != tc.want {
			t.Errorf("DecodeAction(%s).Kind() = %s, want %s", tc.raw, a.Kind(), tc.want)
		}
	}

	a, _ := DecodeAction(json.RawMessage(`{"type":"move_task","task_id":"#85","status":"done"}`))
	if mv := a.(MoveTask); mv.TaskID != 85 {
		t.Errorf("task id = %d", mv.TaskID)
	}
}

func TestDecodeAction_Errors(t *testing.T) {
	for _, raw := range []string{`[]`, `{}`, `{"type":"fly"}`, `{"type":"move_task","task_id":"abc"}`} {
		if _, err := DecodeAction(json.RawMessage(raw)); !errors.Is(err, apperr.ErrInvalid) {
			t.Errorf("DecodeAction(%s) err = %v, want ErrInvalid", raw, err)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := []Action{
		CreateTask{Notebook: "work", Title: "x", Priority: "med", DueDate: "tomorrow"},
		MoveTask{TaskID: 1, Status: "in porgress"},
		ListTasks{},
		ListNotebooks{},
		GenerateImportJSON{Notebook: "w", Tasks: []models.ImportTask{{Title: "a", Status: "pending"}}},
	}
	for _, a := range valid {
		if err := a.Validate(); err != nil {
			t.Errorf("%s.Validate(): %v", a.Kind(), err)
		}
	}
	invalid := []Action{
		CreateTask{Notebook: "work"},
		CreateTask{Notebook: "work", Title: "x", Priority: "whenever"},
		CreateTask{Notebook: "work", Title: "x", DueDate: "next month"},
		MoveTask{TaskID: 0, Status: "done"},
		MoveTask{TaskID: 1, Status: "someday"},
		ListTasks{Status: "someday"},
		SearchTasks{},
		GenerateImportJSON{Notebook: "w"},
		GenerateImportJSON{Notebook: "w", Tasks: []models.ImportTask{{Title: ""}}},
		DeleteTask{},
	}
	for _, a := range invalid {
		if err := a.Validate(); err == nil {
			t.Errorf("%s %+v validated", a.Kind(), a)
		}
	}
}

func TestKindString(t *testing.T) {
	if KindGenerateImportJSON.String() != "generate_import_json" || KindShowStats.String() != "stats" {
		t.Error("unexpected wire names")
	}
}
