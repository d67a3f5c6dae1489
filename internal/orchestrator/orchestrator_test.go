package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/forgeworks/foreman/internal/agent"
	"github.com/forgeworks/foreman/internal/config"
	"github.com/forgeworks/foreman/internal/sandbox"
	"github.com/forgeworks/foreman/internal/store"
	"github.com/forgeworks/foreman/pkg/models"
)

// memStore keeps workflows in memory, round-tripping through JSON so tests
// see exactly what a restarted process would load.
type memStore struct {
	states map[string][]byte
	phases []models.Phase
}

func newMemStore() *memStore {
	return &memStore{states: map[string][]byte{}}
}

func (m *memStore) Save(w *models.WorkflowState) error {
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	m.states[w.ID()] = data
	m.phases = append(m.phases, w.Phase)
	return nil
}

func (m *memStore) Get(id string) (*models.WorkflowState, error) {
	data, ok := m.states[id]
	if !ok {
		return nil, nil
	}
	var w models.WorkflowState
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (m *memStore) List() ([]store.WorkflowSummary, error)          { return nil, nil }
func (m *memStore) ListResumable() ([]*models.WorkflowState, error) { return nil, nil }
func (m *memStore) Delete(id string) error                          { delete(m.states, id); return nil }
func (m *memStore) Migrate() error                                  { return nil }
func (m *memStore) Close() error                                    { return nil }

// scriptInvoker pops scripted responses per role and records every call in
// ops so tests can assert ordering.
type scriptInvoker struct {
	t *testing.T

	routes     []agent.RouteDecision
	questions  []string
	clarifyErr error
	plans      [][]string
	codings    []*agent.CodingResult
	reviews    []models.ReviewVerdict

	codeReqs []agent.CodingRequest
	ops      *[]string
}

func (s *scriptInvoker) record(op string) {
	if s.ops != nil {
		*s.ops = append(*s.ops, op)
	}
}

func (s *scriptInvoker) Route(_ context.Context, _ string) (agent.RouteDecision, error) {
	s.record("route")
	if len(s.routes) == 0 {
		return "", fmt.Errorf("unscripted route call")
	}
	d := s.routes[0]
	s.routes = s.routes[1:]
	return d, nil
}

func (s *scriptInvoker) Clarify(_ context.Context, _ string, _ []models.Exchange) (string, error) {
	s.record("clarify")
	if s.clarifyErr != nil {
		return "", s.clarifyErr
	}
	if len(s.questions) == 0 {
		return "", fmt.Errorf("unscripted clarify call")
	}
	q := s.questions[0]
	s.questions = s.questions[1:]
	return q, nil
}

func (s *scriptInvoker) Plan(_ context.Context, _ string) ([]string, error) {
	s.record("plan")
	if len(s.plans) == 0 {
		return nil, fmt.Errorf("unscripted plan call")
	}
	p := s.plans[0]
	s.plans = s.plans[1:]
	return p, nil
}

func (s *scriptInvoker) Code(_ context.Context, req agent.CodingRequest) (*agent.CodingResult, error) {
	s.record("code")
	s.codeReqs = append(s.codeReqs, req)
	if len(s.codings) == 0 {
		return nil, fmt.Errorf("unscripted code call")
	}
	c := s.codings[0]
	s.codings = s.codings[1:]
	return c, nil
}

func (s *scriptInvoker) Review(_ context.Context, _ string, _ models.ArtifactSet) (models.ReviewVerdict, error) {
	s.record("review")
	if len(s.reviews) == 0 {
		return models.ReviewVerdict{}, fmt.Errorf("unscripted review call")
	}
	r := s.reviews[0]
	s.reviews = s.reviews[1:]
	return r, nil
}

func (s *scriptInvoker) Analyze(_ context.Context, _ models.RunMetrics, _ string) (string, error) {
	s.record("analyze")
	return "summary", nil
}

// scriptRunner pops scripted outcomes; an entry is either a Verdict or an error.
type scriptRunner struct {
	outcomes []any
	ops      *[]string
}

func (r *scriptRunner) Run(_ context.Context, _ sandbox.RunRequest) (models.Verdict, error) {
	if len(r.outcomes) == 0 {
		return models.Verdict{}, &sandbox.InfrastructureError{Reason: "unscripted run call"}
	}
	out := r.outcomes[0]
	r.outcomes = r.outcomes[1:]
	switch v := out.(type) {
	case models.Verdict:
		if r.ops != nil {
			*r.ops = append(*r.ops, fmt.Sprintf("test:%v", v.Passed))
		}
		return v, nil
	case error:
		if r.ops != nil {
			*r.ops = append(*r.ops, "test:error")
		}
		return models.Verdict{}, v
	default:
		panic("bad script entry")
	}
}

func testOptions() Options {
	return Options{
		Budgets: config.BudgetsConfig{
			FunctionalAttempts: 3,
			QAAttempts:         2,
			SchemaRetries:      2,
			InfraRetries:       2,
			MaxClarifications:  3,
		},
		AgentTimeout:       5 * time.Second,
		SandboxTimeout:     5 * time.Second,
		DefaultTestCommand: "make test",
	}
}

func newOrchestrator(inv agent.Invoker, runner sandbox.Runner, st store.WorkflowStore, opts Options) *Orchestrator {
	return New(inv, runner, nil, st, opts, nil, nil)
}

func approved() models.ReviewVerdict {
	return models.ReviewVerdict{Approved: true}
}

func rejected(feedback string) models.ReviewVerdict {
	return models.ReviewVerdict{Approved: false, Feedback: feedback}
}

func TestSimpleTaskHappyPath(t *testing.T) {
	inv := &scriptInvoker{
		t:       t,
		routes:  []agent.RouteDecision{agent.RouteCode},
		codings: []*agent.CodingResult{{Artifacts: models.ArtifactSet{"main.go": "package main"}, TestCommand: "go test"}},
		reviews: []models.ReviewVerdict{approved()},
	}
	runner := &scriptRunner{outcomes: []any{models.Verdict{Passed: true}}}
	st := newMemStore()
	o := newOrchestrator(inv, runner, st, testOptions())

	w, err := o.NewTask(models.NewTaskRequest("print hello", nil))
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := o.Run(context.Background(), w); err != nil {
		t.Fatalf("run: %v", err)
	}

	if w.Phase != models.PhaseDone {
		t.Fatalf("phase = %s, want DONE", w.Phase)
	}
	if w.Plan.Len() != 1 {
		t.Errorf("implicit plan should have one step, got %d", w.Plan.Len())
	}
	if w.FunctionalRemaining != 3 || w.QARemaining != 2 {
		t.Errorf("clean run must not decrement counters: %d/%d", w.FunctionalRemaining, w.QARemaining)
	}
	if w.Result["main.go"] != "package main" {
		t.Errorf("result missing artifact: %+v", w.Result)
	}
	if w.Metrics.CodingAttempts != 1 {
		t.Errorf("coding attempts = %d", w.Metrics.CodingAttempts)
	}
}

func TestClarifyThenTwoStepPlanWithCorrections(t *testing.T) {
	var ops []string
	inv := &scriptInvoker{
		t:         t,
		ops:       &ops,
		routes:    []agent.RouteDecision{agent.RouteClarify, agent.RoutePlan},
		questions: []string{"which storage engine?"},
		plans:     [][]string{{"build the schema", "build the queries"}},
		codings: []*agent.CodingResult{
			{Artifacts: models.ArtifactSet{"schema.sql": "v1"}, TestCommand: "check schema"},
			{Artifacts: models.ArtifactSet{"schema.sql": "v2"}, TestCommand: "check schema"},
			{Artifacts: models.ArtifactSet{"schema.sql": "v3"}, TestCommand: "check schema"},
			{Artifacts: models.ArtifactSet{"queries.sql": "q1"}, TestCommand: "check queries"},
		},
		reviews: []models.ReviewVerdict{rejected("name the indexes"), approved(), approved()},
	}
	runner := &scriptRunner{
		ops: &ops,
		outcomes: []any{
			models.Verdict{Passed: false, Log: "syntax error line 3"},
			models.Verdict{Passed: true},
			models.Verdict{Passed: true},
			models.Verdict{Passed: true},
		},
	}
	st := newMemStore()
	o := newOrchestrator(inv, runner, st, testOptions())

	w, err := o.NewTask(models.NewTaskRequest("set up persistence", nil))
	if err != nil {
		t.Fatalf("new task: %v", err)
	}

	err = o.Run(context.Background(), w)
	if !errors.Is(err, ErrAwaitingAnswer) {
		t.Fatalf("expected suspension, got %v", err)
	}
	if w.PendingQuestion != "which storage engine?" {
		t.Fatalf("pending question = %q", w.PendingQuestion)
	}

	if err := o.Answer(context.Background(), w, "sqlite"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	if w.Phase != models.PhaseDone {
		t.Fatalf("phase = %s, want DONE (failure: %+v)", w.Phase, w.Failure)
	}

	// The amended prompt carries the exchange for re-classification.
	if w.EffectivePrompt != "set up persistence\n\nClarification: which storage engine?\nAnswer: sqlite" {
		t.Errorf("effective prompt = %q", w.EffectivePrompt)
	}

	// The functional retry carried the exact failure log; the qa retry the
	// exact feedback.
	if len(inv.codeReqs) != 4 {
		t.Fatalf("coding calls = %d", len(inv.codeReqs))
	}
	if inv.codeReqs[0].Retry != models.RetryNone {
		t.Errorf("first coding call retry = %s", inv.codeReqs[0].Retry)
	}
	if inv.codeReqs[1].Retry != models.RetryFunctional || inv.codeReqs[1].FailureLog != "syntax error line 3" {
		t.Errorf("functional retry lost the log: %+v", inv.codeReqs[1])
	}
	if inv.codeReqs[2].Retry != models.RetryQA || inv.codeReqs[2].ReviewFeedback != "name the indexes" {
		t.Errorf("qa retry lost the feedback: %+v", inv.codeReqs[2])
	}
	if inv.codeReqs[3].Retry != models.RetryNone {
		t.Errorf("fresh step carried stale retry: %+v", inv.codeReqs[3])
	}

	// Review only ever follows a passing test run.
	for i, op := range ops {
		if op == "review" && (i == 0 || ops[i-1] != "test:true") {
			t.Errorf("review at %d not preceded by a passing test: %v", i, ops)
		}
	}

	// Steps completed in order and the result merges both steps.
	if !w.Plan.Done() {
		t.Errorf("plan not done: %+v", w.Plan)
	}
	if w.Result["schema.sql"] != "v3" || w.Result["queries.sql"] != "q1" {
		t.Errorf("result = %+v", w.Result)
	}

	// Counters were reset for step 2 and only step 1 decremented them.
	if w.FunctionalRemaining != 3 || w.QARemaining != 2 {
		t.Errorf("step 2 counters = %d/%d", w.FunctionalRemaining, w.QARemaining)
	}
	if w.Metrics.FunctionalFailures != 1 || w.Metrics.QARejections != 1 {
		t.Errorf("metrics = %+v", w.Metrics)
	}
	if w.Metrics.Clarifications != 1 {
		t.Errorf("clarifications = %d", w.Metrics.Clarifications)
	}
}

func TestFunctionalBudgetExhausted(t *testing.T) {
	opts := testOptions()
	opts.Budgets.FunctionalAttempts = 2

	inv := &scriptInvoker{
		t:      t,
		routes: []agent.RouteDecision{agent.RouteCode},
		codings: []*agent.CodingResult{
			{Artifacts: models.ArtifactSet{"a.go": "v1"}, TestCommand: "go test"},
			{Artifacts: models.ArtifactSet{"a.go": "v2"}, TestCommand: "go test"},
		},
	}
	runner := &scriptRunner{outcomes: []any{
		models.Verdict{Passed: false, Log: "first failure"},
		models.Verdict{Passed: false, Log: "second failure"},
	}}
	st := newMemStore()
	o := newOrchestrator(inv, runner, st, opts)

	w, _ := o.NewTask(models.NewTaskRequest("doomed", nil))
	if err := o.Run(context.Background(), w); err != nil {
		t.Fatalf("run: %v", err)
	}

	if w.Phase != models.PhaseFailed {
		t.Fatalf("phase = %s, want FAILED", w.Phase)
	}
	if w.Failure == nil {
		t.Fatal("no failure report")
	}
	if w.Failure.Kind != models.FailureFunctionalBudget {
		t.Errorf("kind = %s", w.Failure.Kind)
	}
	if w.Failure.Kind.Tooling() {
		t.Error("budget exhaustion is a business failure, not tooling")
	}
	if w.Failure.StepIndex != 0 {
		t.Errorf("step index = %d", w.Failure.StepIndex)
	}
	if w.Failure.LastLog != "second failure" {
		t.Errorf("last log = %q", w.Failure.LastLog)
	}
	if w.FunctionalRemaining != 0 {
		t.Errorf("counter = %d, must never go negative", w.FunctionalRemaining)
	}
}

func TestInfrastructureErrorsAreToolingFailure(t *testing.T) {
	opts := testOptions()
	opts.Budgets.InfraRetries = 2

	inv := &scriptInvoker{
		t:       t,
		routes:  []agent.RouteDecision{agent.RouteCode},
		codings: []*agent.CodingResult{{Artifacts: models.ArtifactSet{"a.go": "v1"}, TestCommand: "go test"}},
	}
	runner := &scriptRunner{outcomes: []any{
		&sandbox.InfrastructureError{Reason: "no capacity"},
		&sandbox.InfrastructureError{Reason: "no capacity"},
		&sandbox.InfrastructureError{Reason: "no capacity"},
	}}
	st := newMemStore()
	o := newOrchestrator(inv, runner, st, opts)

	w, _ := o.NewTask(models.NewTaskRequest("task", nil))
	if err := o.Run(context.Background(), w); err != nil {
		t.Fatalf("run: %v", err)
	}

	if w.Phase != models.PhaseFailed {
		t.Fatalf("phase = %s, want FAILED", w.Phase)
	}
	if w.Failure.Kind != models.FailureToolingSandbox {
		t.Errorf("kind = %s, want tooling failure distinct from test failure", w.Failure.Kind)
	}
	if !w.Failure.Kind.Tooling() {
		t.Error("sandbox exhaustion must classify as tooling")
	}
	if w.FunctionalRemaining != 3 {
		t.Errorf("functional counter touched by infra errors: %d", w.FunctionalRemaining)
	}
	if w.Metrics.InfraRetries != 2 {
		t.Errorf("infra retries = %d", w.Metrics.InfraRetries)
	}
	if len(runner.outcomes) != 0 {
		t.Errorf("expected all retry attempts consumed, %d left", len(runner.outcomes))
	}
}

func TestQABudgetExhausted(t *testing.T) {
	opts := testOptions()
	opts.Budgets.QAAttempts = 1

	inv := &scriptInvoker{
		t:       t,
		routes:  []agent.RouteDecision{agent.RouteCode},
		codings: []*agent.CodingResult{{Artifacts: models.ArtifactSet{"a.go": "v1"}, TestCommand: "go test"}},
		reviews: []models.ReviewVerdict{rejected("not good enough")},
	}
	runner := &scriptRunner{outcomes: []any{models.Verdict{Passed: true}}}
	st := newMemStore()
	o := newOrchestrator(inv, runner, st, opts)

	w, _ := o.NewTask(models.NewTaskRequest("task", nil))
	if err := o.Run(context.Background(), w); err != nil {
		t.Fatalf("run: %v", err)
	}

	if w.Failure == nil || w.Failure.Kind != models.FailureQABudget {
		t.Fatalf("failure = %+v", w.Failure)
	}
	if w.Failure.LastFeedback != "not good enough" {
		t.Errorf("last feedback = %q", w.Failure.LastFeedback)
	}
	if w.FunctionalRemaining != 3 {
		t.Errorf("qa loop touched the functional counter: %d", w.FunctionalRemaining)
	}
}

func TestEmptyPlanIsToolingFailure(t *testing.T) {
	inv := &scriptInvoker{
		t:      t,
		routes: []agent.RouteDecision{agent.RoutePlan},
		plans:  [][]string{{}},
	}
	st := newMemStore()
	o := newOrchestrator(inv, &scriptRunner{}, st, testOptions())

	w, _ := o.NewTask(models.NewTaskRequest("task", nil))
	if err := o.Run(context.Background(), w); err != nil {
		t.Fatalf("run: %v", err)
	}

	if w.Failure == nil || w.Failure.Kind != models.FailurePlanningEmpty {
		t.Fatalf("failure = %+v", w.Failure)
	}
	if !w.Failure.Kind.Tooling() {
		t.Error("empty plan must classify as a tooling failure")
	}
}

func TestClarifyCallFailureIsToolingFailure(t *testing.T) {
	inv := &scriptInvoker{
		t:          t,
		routes:     []agent.RouteDecision{agent.RouteClarify},
		clarifyErr: errors.New("model endpoint unreachable"),
	}
	st := newMemStore()
	o := newOrchestrator(inv, &scriptRunner{}, st, testOptions())

	w, _ := o.NewTask(models.NewTaskRequest("vague task", nil))
	err := o.Run(context.Background(), w)
	if errors.Is(err, ErrAwaitingAnswer) {
		t.Fatal("run reported suspension for a workflow that failed")
	}
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if w.Phase != models.PhaseFailed {
		t.Fatalf("phase = %s, want FAILED", w.Phase)
	}
	if w.Failure == nil || w.Failure.Kind != models.FailureToolingAgent {
		t.Fatalf("failure = %+v", w.Failure)
	}
	if !w.Failure.Kind.Tooling() {
		t.Error("failed clarification call must classify as a tooling failure")
	}
	if w.PendingQuestion != "" {
		t.Errorf("pending question = %q, want none", w.PendingQuestion)
	}
}

func TestResumeFromPersistedState(t *testing.T) {
	st := newMemStore()
	opts := testOptions()

	// First process: route, code, then stop before testing completes.
	inv1 := &scriptInvoker{
		t:       t,
		routes:  []agent.RouteDecision{agent.RouteCode},
		codings: []*agent.CodingResult{{Artifacts: models.ArtifactSet{"a.go": "v1"}, TestCommand: "go test"}},
	}
	runner1 := &scriptRunner{} // unscripted: every run errors as infrastructure
	opts1 := opts
	opts1.Budgets.InfraRetries = 0
	o1 := newOrchestrator(inv1, runner1, st, opts1)

	w, _ := o1.NewTask(models.NewTaskRequest("resumable", nil))
	if err := o1.Run(context.Background(), w); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// The first process ends with a sandbox tooling failure; rewind the
	// stored record to TESTING as if the process had died mid-flight
	// instead, after the coding call committed.
	interrupted, err := st.Get(w.ID())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	interrupted.Phase = models.PhaseTesting
	interrupted.Failure = nil
	if err := st.Save(interrupted); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Second process: load and resume. No routing or coding happens again;
	// the persisted artifacts go straight to testing.
	loaded, err := st.Get(w.ID())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	inv2 := &scriptInvoker{t: t, reviews: []models.ReviewVerdict{approved()}}
	runner2 := &scriptRunner{outcomes: []any{models.Verdict{Passed: true}}}
	o2 := newOrchestrator(inv2, runner2, st, opts)

	if err := o2.Run(context.Background(), loaded); err != nil {
		t.Fatalf("resumed run: %v", err)
	}
	if loaded.Phase != models.PhaseDone {
		t.Fatalf("phase = %s (failure: %+v)", loaded.Phase, loaded.Failure)
	}
	if loaded.Result["a.go"] != "v1" {
		t.Errorf("resumed run lost artifacts: %+v", loaded.Result)
	}
}

func TestCancelledBeforePhaseIsFailed(t *testing.T) {
	inv := &scriptInvoker{t: t, routes: []agent.RouteDecision{agent.RouteCode}}
	st := newMemStore()
	o := newOrchestrator(inv, &scriptRunner{}, st, testOptions())

	w, _ := o.NewTask(models.NewTaskRequest("task", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := o.Run(ctx, w); err != nil {
		t.Fatalf("run: %v", err)
	}

	if w.Phase != models.PhaseFailed {
		t.Fatalf("phase = %s", w.Phase)
	}
	if w.Failure.Kind != models.FailureCancelled {
		t.Errorf("kind = %s, cancellation must be distinguishable from budget exhaustion", w.Failure.Kind)
	}
}

func TestClarificationCapCoercesToPlanning(t *testing.T) {
	opts := testOptions()
	opts.Budgets.MaxClarifications = 1

	inv := &scriptInvoker{
		t: t,
		// The router asks to clarify twice; the second is past the cap.
		routes:    []agent.RouteDecision{agent.RouteClarify, agent.RouteClarify},
		questions: []string{"first question"},
		plans:     [][]string{{"single step"}},
		codings:   []*agent.CodingResult{{Artifacts: models.ArtifactSet{"a.go": "v1"}, TestCommand: "go test"}},
		reviews:   []models.ReviewVerdict{approved()},
	}
	runner := &scriptRunner{outcomes: []any{models.Verdict{Passed: true}}}
	st := newMemStore()
	o := newOrchestrator(inv, runner, st, opts)

	w, _ := o.NewTask(models.NewTaskRequest("vague task", nil))

	err := o.Run(context.Background(), w)
	if !errors.Is(err, ErrAwaitingAnswer) {
		t.Fatalf("expected suspension, got %v", err)
	}
	if err := o.Answer(context.Background(), w, "an answer"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	if w.Phase != models.PhaseDone {
		t.Fatalf("phase = %s (failure: %+v)", w.Phase, w.Failure)
	}
	if len(w.Clarifications) != 1 {
		t.Errorf("clarification rounds = %d, cap was 1", len(w.Clarifications))
	}
	if len(inv.questions) != 0 {
		t.Error("first question not consumed")
	}
}

func TestAnswerRequiresClarifyingPhase(t *testing.T) {
	st := newMemStore()
	o := newOrchestrator(&scriptInvoker{t: t}, &scriptRunner{}, st, testOptions())

	w, _ := o.NewTask(models.NewTaskRequest("task", nil))
	if err := o.Answer(context.Background(), w, "answer"); err == nil {
		t.Error("answer outside CLARIFYING should error")
	}
}

func TestEveryTransitionIsPersisted(t *testing.T) {
	inv := &scriptInvoker{
		t:       t,
		routes:  []agent.RouteDecision{agent.RouteCode},
		codings: []*agent.CodingResult{{Artifacts: models.ArtifactSet{"a.go": "v1"}, TestCommand: "go test"}},
		reviews: []models.ReviewVerdict{approved()},
	}
	runner := &scriptRunner{outcomes: []any{models.Verdict{Passed: true}}}
	st := newMemStore()
	o := newOrchestrator(inv, runner, st, testOptions())

	w, _ := o.NewTask(models.NewTaskRequest("task", nil))
	if err := o.Run(context.Background(), w); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []models.Phase{
		models.PhaseRouting, // initial persist by NewTask
		models.PhaseCoding,
		models.PhaseTesting,
		models.PhaseQAReview,
		models.PhaseStepComplete,
		models.PhaseDone,
	}
	if len(st.phases) != len(want) {
		t.Fatalf("persisted phases = %v, want %v", st.phases, want)
	}
	for i, p := range want {
		if st.phases[i] != p {
			t.Errorf("persist %d = %s, want %s", i, st.phases[i], p)
		}
	}
}

func TestDefaultTestCommandApplies(t *testing.T) {
	inv := &scriptInvoker{
		t:       t,
		routes:  []agent.RouteDecision{agent.RouteCode},
		codings: []*agent.CodingResult{{Artifacts: models.ArtifactSet{"a.go": "v1"}}},
		reviews: []models.ReviewVerdict{approved()},
	}
	runner := &scriptRunner{outcomes: []any{models.Verdict{Passed: true}}}
	st := newMemStore()
	o := newOrchestrator(inv, runner, st, testOptions())

	w, _ := o.NewTask(models.NewTaskRequest("task", nil))
	if err := o.Run(context.Background(), w); err != nil {
		t.Fatalf("run: %v", err)
	}
	if w.TestCommand != "make test" {
		t.Errorf("test command = %q, want the configured default", w.TestCommand)
	}
}
