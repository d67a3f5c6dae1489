package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forgeworks/foreman/internal/agent"
	"github.com/forgeworks/foreman/internal/config"
	"github.com/forgeworks/foreman/internal/orchestrator"
	"github.com/forgeworks/foreman/internal/retrieval"
	"github.com/forgeworks/foreman/internal/sandbox"
	"github.com/forgeworks/foreman/internal/store"
	"github.com/forgeworks/foreman/pkg/models"
)

// stubInvoker pops scripted responses; safe for the task goroutines.
type stubInvoker struct {
	mu      sync.Mutex
	routes  []agent.RouteDecision
	answers []string
	codings []*agent.CodingResult
	reviews []models.ReviewVerdict
}

func (s *stubInvoker) Route(_ context.Context, _ string) (agent.RouteDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.routes) == 0 {
		return "", fmt.Errorf("unscripted route")
	}
	d := s.routes[0]
	s.routes = s.routes[1:]
	return d, nil
}

func (s *stubInvoker) Clarify(_ context.Context, _ string, _ []models.Exchange) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.answers) == 0 {
		return "", fmt.Errorf("unscripted clarify")
	}
	q := s.answers[0]
	s.answers = s.answers[1:]
	return q, nil
}

func (s *stubInvoker) Plan(_ context.Context, _ string) ([]string, error) {
	return nil, fmt.Errorf("unscripted plan")
}

func (s *stubInvoker) Code(_ context.Context, _ agent.CodingRequest) (*agent.CodingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codings) == 0 {
		return nil, fmt.Errorf("unscripted code")
	}
	c := s.codings[0]
	s.codings = s.codings[1:]
	return c, nil
}

func (s *stubInvoker) Review(_ context.Context, _ string, _ models.ArtifactSet) (models.ReviewVerdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reviews) == 0 {
		return models.ReviewVerdict{}, fmt.Errorf("unscripted review")
	}
	r := s.reviews[0]
	s.reviews = s.reviews[1:]
	return r, nil
}

func (s *stubInvoker) Analyze(_ context.Context, _ models.RunMetrics, _ string) (string, error) {
	return "summary", nil
}

// passRunner passes every test run.
type passRunner struct{}

func (passRunner) Run(_ context.Context, _ sandbox.RunRequest) (models.Verdict, error) {
	return models.Verdict{Passed: true}, nil
}

// stubRetriever returns fixed snippets.
type stubRetriever struct {
	snippets []retrieval.Snippet
}

func (s *stubRetriever) Retrieve(_ context.Context, _ string, _ int) ([]retrieval.Snippet, error) {
	return s.snippets, nil
}

// echoProvider echoes the user prompt back.
type echoProvider struct{}

func (echoProvider) Complete(_ context.Context, _, user string) (string, error) {
	return "echo: " + user, nil
}

func testEnv(t *testing.T, inv agent.Invoker) (*Server, *Manager, store.WorkflowStore) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	opts := orchestrator.Options{
		Budgets: config.BudgetsConfig{
			FunctionalAttempts: 3,
			QAAttempts:         2,
			SchemaRetries:      1,
			InfraRetries:       1,
			MaxClarifications:  3,
		},
		AgentTimeout:   5 * time.Second,
		SandboxTimeout: 5 * time.Second,
	}
	orch := orchestrator.New(inv, passRunner{}, nil, db, opts, nil, nil)
	manager := NewManager(orch, db, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		manager.Shutdown(ctx)
	})

	retr := &stubRetriever{snippets: []retrieval.Snippet{{Source: "db.go", Content: "the database layer"}}}
	srv := New(manager, retr, echoProvider{}, config.ServerConfig{
		Addr:             "127.0.0.1:0",
		AllowOriginRegex: `^http://127\.0\.0\.1:.*$`,
	}, 10, nil)
	return srv, manager, db
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func waitForPhase(t *testing.T, m *Manager, id string, want models.Phase) *models.WorkflowState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		w, err := m.Get(id)
		if err == nil && w.Phase == want {
			return w
		}
		time.Sleep(10 * time.Millisecond)
	}
	w, _ := m.Get(id)
	t.Fatalf("task %s never reached %s, last state %+v", id, want, w)
	return nil
}

func TestSubmitRunsToCompletion(t *testing.T) {
	inv := &stubInvoker{
		routes:  []agent.RouteDecision{agent.RouteCode},
		codings: []*agent.CodingResult{{Artifacts: models.ArtifactSet{"main.go": "package main"}, TestCommand: "go test"}},
		reviews: []models.ReviewVerdict{{Approved: true}},
	}
	srv, manager, _ := testEnv(t, inv)

	rec, body := doJSON(t, srv, http.MethodPost, "/v1/tasks", `{"prompt":"print hello"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d: %v", rec.Code, body)
	}
	id, _ := body["task_id"].(string)
	if id == "" {
		t.Fatalf("no task id in %v", body)
	}

	waitForPhase(t, manager, id, models.PhaseDone)

	rec, body = doJSON(t, srv, http.MethodGet, "/v1/tasks/"+id+"/result", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("result status = %d: %v", rec.Code, body)
	}
	artifacts, _ := body["artifacts"].(map[string]any)
	if artifacts["main.go"] != "package main" {
		t.Errorf("artifacts = %v", artifacts)
	}
}

func TestClarificationRoundTrip(t *testing.T) {
	inv := &stubInvoker{
		routes:  []agent.RouteDecision{agent.RouteClarify, agent.RouteCode},
		answers: []string{"which language?"},
		codings: []*agent.CodingResult{{Artifacts: models.ArtifactSet{"main.go": "package main"}, TestCommand: "go test"}},
		reviews: []models.ReviewVerdict{{Approved: true}},
	}
	srv, manager, _ := testEnv(t, inv)

	_, body := doJSON(t, srv, http.MethodPost, "/v1/tasks", `{"prompt":"write a program"}`)
	id := body["task_id"].(string)

	waitForPhase(t, manager, id, models.PhaseClarifying)

	rec, status := doJSON(t, srv, http.MethodGet, "/v1/tasks/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if status["pending_question"] != "which language?" {
		t.Fatalf("pending question = %v", status["pending_question"])
	}

	// The run goroutine unregisters just after persisting CLARIFYING, so
	// the answer can briefly race it.
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec, body = doJSON(t, srv, http.MethodPost, "/v1/tasks/"+id+"/answer", `{"answer":"go"}`)
		if rec.Code == http.StatusAccepted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("answer status = %d: %v", rec.Code, body)
		}
		time.Sleep(10 * time.Millisecond)
	}

	w := waitForPhase(t, manager, id, models.PhaseDone)
	if len(w.Clarifications) != 1 || w.Clarifications[0].Answer != "go" {
		t.Errorf("clarifications = %+v", w.Clarifications)
	}
}

func TestStatusNotFound(t *testing.T) {
	srv, _, _ := testEnv(t, &stubInvoker{})

	rec, _ := doJSON(t, srv, http.MethodGet, "/v1/tasks/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestResultConflictWhileRunning(t *testing.T) {
	srv, _, db := testEnv(t, &stubInvoker{})

	w := models.NewWorkflowState(models.NewTaskRequest("in flight", nil), 3, 2)
	w.Phase = models.PhaseCoding
	if err := db.Save(w); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, body := doJSON(t, srv, http.MethodGet, "/v1/tasks/"+w.ID()+"/result", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409: %v", rec.Code, body)
	}
}

func TestCancelSuspendedTask(t *testing.T) {
	srv, manager, db := testEnv(t, &stubInvoker{})

	w := models.NewWorkflowState(models.NewTaskRequest("stuck", nil), 3, 2)
	w.Phase = models.PhaseClarifying
	w.PendingQuestion = "which one?"
	if err := db.Save(w); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, _ := doJSON(t, srv, http.MethodPost, "/v1/tasks/"+w.ID()+"/cancel", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("cancel status = %d", rec.Code)
	}

	got, err := manager.Get(w.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Phase != models.PhaseFailed || got.Failure.Kind != models.FailureCancelled {
		t.Errorf("state after cancel: phase=%s failure=%+v", got.Phase, got.Failure)
	}
}

func TestCancelFinishedTaskConflicts(t *testing.T) {
	srv, _, db := testEnv(t, &stubInvoker{})

	w := models.NewWorkflowState(models.NewTaskRequest("done", nil), 3, 2)
	w.Phase = models.PhaseDone
	if err := db.Save(w); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, _ := doJSON(t, srv, http.MethodPost, "/v1/tasks/"+w.ID()+"/cancel", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestAsk(t *testing.T) {
	srv, _, _ := testEnv(t, &stubInvoker{})

	rec, body := doJSON(t, srv, http.MethodGet, "/v1/ask?question=how+does+storage+work", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ask status = %d: %v", rec.Code, body)
	}
	answer, _ := body["answer"].(string)
	if !strings.Contains(answer, "the database layer") {
		t.Errorf("answer should embed retrieved context: %q", answer)
	}
	if !strings.Contains(answer, "how does storage work") {
		t.Errorf("answer should embed the question: %q", answer)
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	srv, _, _ := testEnv(t, &stubInvoker{})

	rec, _ := doJSON(t, srv, http.MethodGet, "/v1/ask", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAskDisabledWithoutRetriever(t *testing.T) {
	_, manager, _ := testEnv(t, &stubInvoker{})
	srv := New(manager, nil, nil, config.ServerConfig{Addr: "127.0.0.1:0"}, 10, nil)

	rec, _ := doJSON(t, srv, http.MethodGet, "/v1/ask?question=x", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestCORSAllowsLoopbackOrigin(t *testing.T) {
	srv, _, _ := testEnv(t, &stubInvoker{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://127.0.0.1:5173")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "http://127.0.0.1:5173" {
		t.Errorf("loopback origin not allowed: %v", rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("foreign origin must not be allowed")
	}
}
