package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/starford/taskwise/internal/command"
	"github.com/starford/taskwise/internal/interpreter"
	"github.com/starford/taskwise/internal/llm"
	"github.com/starford/taskwise/internal/models"
	"github.com/starford/taskwise/internal/store"
	"github.com/starford/taskwise/internal/taskservice"
	"github.com/starford/taskwise/internal/testutil"
)

type stubModel struct {
	reply  string
	err    error
	apiKey string
}

func (m *stubModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

// testEnv sets up a temp SQLite store, service, and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*store.DB, http.Handler, *stubModel) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler) (*store.DB, http.Handler, *stubModel) {
	t.Helper()

	db := testutil.TestStore(t)
	logger := testutil.DiscardLogger()
	exec := command.NewExecutor(db, nil, logger)
	interp := interpreter.New(db, exec, llm.Config{Driver: llm.DriverOpenAI, Model: "test-model", Timeout: time.Second}, logger)

	stub := &stubModel{reply: `{"commands": ["stats"], "explanation": "Here are your stats."}`}
	interp.SetModelFactory(func(_ context.Context, apiKey string) (llm.ChatModel, error) {
		stub.apiKey = apiKey
		return stub, nil
	})

	svc := taskservice.NewService(db, exec, interp)
	router := NewRouter(svc, authEnabled, token, sseHandler)
	return db, router, stub
}

func seed(t *testing.T, db *store.DB) {
	t.Helper()
	infra := testutil.SeedNotebook(t, db, "infra", true)
	home := testutil.SeedNotebook(t, db, "home", false)
	testutil.SeedTask(t, db, infra, 149, "Migrate tappy-tf-shared", models.StatusTodo)
	testutil.SeedTask(t, db, infra, 150, "Rotate deploy keys", models.StatusDone)
	testutil.SeedTask(t, db, home, 151, "Fix the fence", models.StatusTodo)
}

func do(t *testing.T, router http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAsk_FastPath(t *testing.T) {
	db, router, _ := testEnv(t, "")
	seed(t, db)

	w := do(t, router, http.MethodPost, "/ask", AskRequest{Prompt: "move tappy-tf-shared to archived"})
	if w.Code != http.StatusOK {
		t.Fatalf("ask status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Path    string           `json:"path"`
		Text    string           `json:"text"`
		Results []command.Result `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Path != interpreter.PathFast || len(resp.Results) != 1 || !resp.Results[0].OK {
		t.Errorf("response = %+v", resp)
	}
	if !strings.Contains(resp.Text, "archived") {
		t.Errorf("text = %q", resp.Text)
	}
	task, err := db.GetTask(149)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != models.StatusArchived {
		t.Errorf("status = %s, want archived", task.Status)
	}
}

func TestAsk_ModelPathUsesHeaderKey(t *testing.T) {
	db, router, stub := testEnv(t, "")
	seed(t, db)

	w := do(t, router, http.MethodPost, "/ask", AskRequest{Prompt: "how am I doing overall"}, apiKeyHeader, "sk-header")
	if w.Code != http.StatusOK {
		t.Fatalf("ask status = %d, body = %s", w.Code, w.Body.String())
	}
	if stub.apiKey != "sk-header" {
		t.Errorf("api key = %q", stub.apiKey)
	}
	if !strings.Contains(w.Body.String(), "Here are your stats.") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAsk_ErrorMapping(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	tests := []struct {
		name    string
		req     AskRequest
		header  []string
		failure error
		want    int
	}{
		{"empty prompt", AskRequest{Prompt: "  "}, nil, nil, http.StatusBadRequest},
		{"missing credentials", AskRequest{Prompt: "plan my week"}, nil, nil, http.StatusUnauthorized},
		{"transport failure", AskRequest{Prompt: "plan my week", APIKey: "sk"}, nil, errors.New("429 rate limit"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router, stub := testEnv(t, "")
			stub.err = tt.failure
			w := do(t, router, http.MethodPost, "/ask", tt.req, tt.header...)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAsk_InvalidJSON(t *testing.T) {
	_, router, _ := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCommandEndpoint(t *testing.T) {
	db, router, _ := testEnv(t, "")
	seed(t, db)

	w := do(t, router, http.MethodPost, "/commands", CommandRequest{Command: "task:move 151 done"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPost, "/commands", CommandRequest{Command: "task:move 999 done"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown task = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "task #999 not found") {
		t.Errorf("body = %s", w.Body.String())
	}

	w = do(t, router, http.MethodPost, "/commands", CommandRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty command = %d, want 400", w.Code)
	}
}

func TestListNotebooks(t *testing.T) {
	db, router, _ := testEnv(t, "")
	seed(t, db)

	w := do(t, router, http.MethodGet, "/notebooks", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp NotebookListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Notebooks) != 2 {
		t.Fatalf("notebooks = %+v", resp.Notebooks)
	}
}

func TestListTasks(t *testing.T) {
	db, router, _ := testEnv(t, "")
	seed(t, db)

	tests := []struct {
		query string
		code  int
		total int
	}{
		{"", http.StatusOK, 3},
		{"?notebook=infra", http.StatusOK, 2},
		{"?notebook=infra&status=finished", http.StatusOK, 1},
		{"?status=pending", http.StatusOK, 2},
		{"?status=sideways", http.StatusBadRequest, 0},
		{"?notebook=garage", http.StatusNotFound, 0},
	}
	for _, tt := range tests {
		w := do(t, router, http.MethodGet, "/tasks"+tt.query, nil)
		if w.Code != tt.code {
			t.Errorf("GET /tasks%s = %d, want %d", tt.query, w.Code, tt.code)
			continue
		}
		if tt.code != http.StatusOK {
			continue
		}
		var resp TaskListResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Total != tt.total || len(resp.Tasks) != tt.total {
			t.Errorf("GET /tasks%s total = %d, want %d", tt.query, resp.Total, tt.total)
		}
	}
}

func TestGetTask(t *testing.T) {
	db, router, _ := testEnv(t, "")
	seed(t, db)

	w := do(t, router, http.MethodGet, "/tasks/149", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var task models.Task
	_ = json.Unmarshal(w.Body.Bytes(), &task)
	if task.Title != "Migrate tappy-tf-shared" || task.NotebookName != "infra" {
		t.Errorf("task = %+v", task)
	}

	if w := do(t, router, http.MethodGet, "/tasks/404", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing task = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/tasks/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	db, router, _ := testEnv(t, "")
	seed(t, db)

	w := do(t, router, http.MethodGet, "/search?q=fence", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].ID != 151 {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestGrammarEndpoint(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/grammar", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp GrammarResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.Contains(resp.Grammar, "task:move <task_id>") {
		t.Errorf("grammar = %q", resp.Grammar)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/notebooks", nil, "Authorization", "Bearer secret123")
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/notebooks", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")

	w := do(t, router, http.MethodPost, "/ask", AskRequest{Prompt: "list notebooks"}, "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/tasks", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// Minimal SSE handler stub that writes headers and blocks until context done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router, _ := testEnvWithSSE(t, true, "secret", sseStub)

	// No token → 401.
	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	_, router, _ := testEnvWithSSE(t, false, "", sseStub)

	// Disabled mode → should not 401. The stub blocks, so cancel after a short time.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router, _ := testEnvWithSSE(t, true, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestSSEEvents_QueryToken(t *testing.T) {
	_, router, _ := testEnvWithSSE(t, true, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with query token should not 401")
	}
}

func TestAuthMiddleware_QueryTokenOnlyForGet(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")

	w := do(t, router, http.MethodPost, "/commands?access_token=secret123", CommandRequest{Command: "notebook:list"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST with query token = %d, want 401", w.Code)
	}
}
