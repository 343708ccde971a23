package interpreter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/command"
	"github.com/starford/taskwise/internal/llm"
	"github.com/starford/taskwise/internal/models"
	"github.com/starford/taskwise/internal/store"
	"github.com/starford/taskwise/internal/testutil"
)

type scriptedModel struct {
	reply string
	err   error
	calls int
	user  string
}

func (m *scriptedModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls++
	if len(in) > 0 {
		m.user = in[len(in)-1].Content
	}
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func testInterpreter(t *testing.T, m llm.ChatModel) (*Interpreter, *store.DB) {
	t.Helper()
	db := testutil.TestStore(t)
	logger := testutil.DiscardLogger()
	ex := command.NewExecutor(db, nil, logger)
	in := New(db, ex, llm.Config{Driver: llm.DriverOpenAI, Model: "test-model", Timeout: time.Second}, logger)
	in.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	in.SetModelFactory(func(context.Context, string) (llm.ChatModel, error) {
		if m == nil {
			t.Fatal("the model must not be used for this request")
		}
		return m, nil
	})
	return in, db
}

func taskStatus(t *testing.T, db *store.DB, id int64) models.Status {
	t.Helper()
	task, err := db.GetTask(id)
	if err != nil {
		t.Fatalf("GetTask(%d): %v", id, err)
	}
	return task.Status
}

var withKey = AskOptions{APIKey: "test-key"}

func TestAsk_MoveWithoutStatusDefaultsToInProgress(t *testing.T) {
	m := &scriptedModel{reply: `{"commands": ["task:move 85 in_progress"], "explanation": "Started the migration."}`}
	in, db := testInterpreter(t, m)
	nb := testutil.SeedNotebook(t, db, "infra", true)
	testutil.SeedTask(t, db, nb, 85, "Migrate arbitration-tf-shared", models.StatusTodo)

	ans, err := in.Interpret(context.Background(), "move migrate arbitration-tf-shared to github actions", withKey)
	if err != nil {
		t.Fatal(err)
	}
	if got := taskStatus(t, db, 85); got != models.StatusInProgress {
		t.Fatalf("task 85 status = %s, want in_progress", got)
	}
	if ans.Path != PathModel || m.calls != 1 {
		t.Errorf("path = %s, model calls = %d", ans.Path, m.calls)
	}
	if len(ans.Results) != 2 {
		t.Fatalf("results = %+v", ans.Results)
	}
	if !strings.Contains(ans.Results[1].Message, "already in_progress") {
		t.Errorf("repeated move = %q", ans.Results[1].Message)
	}
}

func TestAsk_CompoundMove(t *testing.T) {
	m := &scriptedModel{reply: `{"commands": [], "explanation": "Moved both."}`}
	in, db := testInterpreter(t, m)
	nb := testutil.SeedNotebook(t, db, "infra", true)
	testutil.SeedTask(t, db, nb, 104, "Migrate arbitration-tf-shared", models.StatusTodo)
	testutil.SeedTask(t, db, nb, 105, "Migrate awsappman-tf-accounts-management", models.StatusTodo)
	testutil.SeedTask(t, db, nb, 106, "Rotate vault tokens", models.StatusTodo)

	_, err := in.Interpret(context.Background(),
		"move migrate arbitration-tf-shared and awsappman-tf-accounts-management to github actions", withKey)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []int64{104, 105} {
		if got := taskStatus(t, db, id); got != models.StatusInProgress {
			t.Errorf("task %d status = %s, want in_progress", id, got)
		}
	}
	if got := taskStatus(t, db, 106); got != models.StatusTodo {
		t.Errorf("task 106 status = %s, want todo", got)
	}
}

func TestAsk_StatisticsNeverCallsModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	in, db := testInterpreter(t, nil)
	nb := testutil.SeedNotebook(t, db, "protectors", false)
	testutil.SeedNotebook(t, db, "infra", true)
	testutil.SeedTask(t, db, nb, 0, "Renew certificates", models.StatusTodo)
	testutil.SeedTask(t, db, nb, 0, "Audit access", models.StatusDone)

	out, err := in.Ask(context.Background(), "show statistics for protectors notebook", AskOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "protectors: todo 1, in_progress 0, done 1, archived 0") {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "infra") {
		t.Errorf("stats should be scoped to protectors: %q", out)
	}
}

func TestAsk_MoveToArchivedFastPath(t *testing.T) {
	in, db := testInterpreter(t, nil)
	nb := testutil.SeedNotebook(t, db, "infra", true)
	testutil.SeedTask(t, db, nb, 149, "Migrate tappy-tf-shared", models.StatusTodo)

	ans, err := in.Interpret(context.Background(), "move tappy-tf-shared to archived", AskOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ans.Path != PathFast {
		t.Errorf("path = %s, want fast", ans.Path)
	}
	if got := taskStatus(t, db, 149); got != models.StatusArchived {
		t.Fatalf("task 149 status = %s, want archived", got)
	}
}

func TestAsk_NarrowedEverythingMovesOnlyMatches(t *testing.T) {
	for _, prompt := range []string{
		"move everything related to auth to done",
		"mark everything about auth as done",
	} {
		t.Run(prompt, func(t *testing.T) {
			in, db := testInterpreter(t, nil)
			nb := testutil.SeedNotebook(t, db, "work", true)
			testutil.SeedTask(t, db, nb, 1, "Fix auth login", models.StatusTodo)
			testutil.SeedTask(t, db, nb, 2, "Write release docs", models.StatusTodo)

			if _, err := in.Interpret(context.Background(), prompt, AskOptions{}); err != nil {
				t.Fatal(err)
			}
			if got := taskStatus(t, db, 1); got != models.StatusDone {
				t.Errorf("task 1 status = %s, want done", got)
			}
			if got := taskStatus(t, db, 2); got != models.StatusTodo {
				t.Errorf("unrelated task 2 status = %s, want todo", got)
			}
		})
	}
}

func TestAsk_EmptyPrompt(t *testing.T) {
	in, _ := testInterpreter(t, nil)
	if _, err := in.Ask(context.Background(), "   ", AskOptions{}); !errors.Is(err, apperr.ErrEmptyPrompt) {
		t.Fatalf("err = %v, want ErrEmptyPrompt", err)
	}
}

func TestAsk_NoCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	m := &scriptedModel{}
	in, _ := testInterpreter(t, m)

	_, err := in.Ask(context.Background(), "plan my week", AskOptions{})
	if !errors.Is(err, apperr.ErrNoCredentials) {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}
	if m.calls != 0 {
		t.Errorf("model called %d times", m.calls)
	}
}

func TestAsk_TransportError(t *testing.T) {
	in, _ := testInterpreter(t, &scriptedModel{err: errors.New("429 Too Many Requests")})
	_, err := in.Ask(context.Background(), "plan my week", withKey)
	if !errors.Is(err, apperr.ErrTransport) {
		t.Fatalf("err = %v, want transport error", err)
	}
}

func TestAsk_MalformedReplyListsTasks(t *testing.T) {
	m := &scriptedModel{reply: "Sorry, I am not sure."}
	in, db := testInterpreter(t, m)
	nb := testutil.SeedNotebook(t, db, "home", true)
	testutil.SeedTask(t, db, nb, 0, "Water plants", models.StatusTodo)

	ans, err := in.Interpret(context.Background(), "what should I focus on", withKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(ans.Commands) != 1 || ans.Commands[0] != llm.DefaultCommand {
		t.Errorf("commands = %q", ans.Commands)
	}
	if len(ans.Results) != 1 || !ans.Results[0].OK || len(ans.Results[0].Tasks) != 1 {
		t.Errorf("results = %+v", ans.Results)
	}
	if m.user != "what should I focus on" {
		t.Errorf("user prompt = %q", m.user)
	}
}

func TestInterpret_CreateTask(t *testing.T) {
	in, db := testInterpreter(t, nil)
	testutil.SeedNotebook(t, db, "home", true)
	testutil.SeedNotebook(t, db, "work", false)

	ans, err := in.Interpret(context.Background(),
		`add task "write release notes" to work with high priority due 2026-03-20`, AskOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(ans.Results) != 1 || !ans.Results[0].OK {
		t.Fatalf("results = %+v", ans.Results)
	}
	task := ans.Results[0].Tasks[0]
	if task.Title != "write release notes" || task.NotebookName != "work" {
		t.Errorf("task = %+v", task)
	}
	if task.Priority != models.PriorityHigh {
		t.Errorf("priority = %q", task.Priority)
	}
	if task.DueDate == nil || task.DueDate.Format(time.DateOnly) != "2026-03-20" {
		t.Errorf("due = %v", task.DueDate)
	}
}

func TestInterpret_CreateTaskUsesDefaultNotebook(t *testing.T) {
	in, db := testInterpreter(t, nil)
	testutil.SeedNotebook(t, db, "home", true)

	ans, err := in.Interpret(context.Background(), "create a task to call the plumber", AskOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(ans.Results) != 1 || !ans.Results[0].OK {
		t.Fatalf("results = %+v", ans.Results)
	}
	if nb := ans.Results[0].Tasks[0].NotebookName; nb != "home" {
		t.Errorf("notebook = %q, want home", nb)
	}
}

func TestInterpret_DeadlineLists(t *testing.T) {
	in, db := testInterpreter(t, nil)
	nb := testutil.SeedNotebook(t, db, "home", true)
	due := func(title string, d time.Time, st models.Status) {
		t.Helper()
		if _, err := db.CreateTask(store.NewTask{NotebookID: nb.ID, Title: title, Status: st, DueDate: &d}); err != nil {
			t.Fatal(err)
		}
	}
	day := func(n int) time.Time { return time.Date(2026, 3, 14+n, 0, 0, 0, 0, time.UTC) }
	due("Pay rent", day(-2), models.StatusTodo)
	due("File taxes", day(3), models.StatusInProgress)
	due("Book flights", day(30), models.StatusTodo)
	due("Old invoice", day(-5), models.StatusDone)

	tests := []struct {
		prompt string
		want   []string
	}{
		{"show overdue tasks", []string{"Pay rent"}},
		{"list upcoming deadlines", []string{"File taxes"}},
		{"show due tasks", []string{"Pay rent", "File taxes", "Book flights"}},
	}
	for _, tt := range tests {
		ans, err := in.Interpret(context.Background(), tt.prompt, AskOptions{})
		if err != nil {
			t.Fatalf("%q: %v", tt.prompt, err)
		}
		if ans.Path != PathFast || len(ans.Results) != 1 {
			t.Fatalf("%q: answer = %+v", tt.prompt, ans)
		}
		var got []string
		for _, task := range ans.Results[0].Tasks {
			got = append(got, task.Title)
		}
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("%q: tasks = %q, want %q", tt.prompt, got, tt.want)
		}
	}
}

func TestInterpret_PriorityList(t *testing.T) {
	in, db := testInterpreter(t, nil)
	nb := testutil.SeedNotebook(t, db, "work", true)
	for _, nt := range []store.NewTask{
		{NotebookID: nb.ID, Title: "Fix outage", Status: models.StatusTodo, Priority: models.PriorityHigh},
		{NotebookID: nb.ID, Title: "Ship fix", Status: models.StatusDone, Priority: models.PriorityHigh},
		{NotebookID: nb.ID, Title: "Tidy wiki", Status: models.StatusTodo, Priority: models.PriorityLow},
	} {
		if _, err := db.CreateTask(nt); err != nil {
			t.Fatal(err)
		}
	}

	ans, err := in.Interpret(context.Background(), "show high priority tasks", AskOptions{})
	if err != nil {
		t.Fatal(err)
	}
	tasks := ans.Results[0].Tasks
	if len(tasks) != 1 || tasks[0].Title != "Fix outage" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestInterpret_ListsNotebooksAndStatuses(t *testing.T) {
	in, db := testInterpreter(t, nil)
	nb := testutil.SeedNotebook(t, db, "work", true)
	testutil.SeedTask(t, db, nb, 0, "Review PR", models.StatusDone)
	testutil.SeedTask(t, db, nb, 0, "Write tests", models.StatusTodo)

	ans, err := in.Interpret(context.Background(), "list notebooks", AskOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ans.Intent != "notebook_list" || len(ans.Results[0].Notebooks) != 1 {
		t.Errorf("answer = %+v", ans)
	}

	ans, err = in.Interpret(context.Background(), "show done tasks", AskOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if tasks := ans.Results[0].Tasks; len(tasks) != 1 || tasks[0].Title != "Review PR" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestAnswer_Render(t *testing.T) {
	due := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	ans := &Answer{
		RequestID:   "01hx",
		Path:        PathModel,
		Explanation: "Listed your tasks.",
		Commands:    []string{"task:list"},
		Results: []command.Result{
			{Action: "list_tasks", OK: true, Message: "1 task in all notebooks", Tasks: []models.Task{
				{ID: 7, Title: "Pay rent", Status: models.StatusTodo, NotebookName: "home", Priority: models.PriorityHigh, DueDate: &due},
			}},
			{Action: "move_task", OK: false, Message: "task #9 not found"},
		},
	}

	out := ans.Render(false)
	for _, want := range []string{
		"Listed your tasks.",
		"[ok] 1 task in all notebooks",
		"#7 [todo] Pay rent (home) !high due 2026-03-20",
		"[error] task #9 not found",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "$ task:list") {
		t.Error("commands shown without verbose")
	}
	if !strings.Contains(ans.Render(true), "$ task:list") {
		t.Error("verbose render should list commands")
	}
}
