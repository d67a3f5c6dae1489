// Package orchestrator implements the workflow state machine that drives a
// task through routing, planning, coding, functional testing, and quality
// review, with bounded correction loops and durable state at every
// transition.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/forgeworks/foreman/internal/agent"
	"github.com/forgeworks/foreman/internal/config"
	"github.com/forgeworks/foreman/internal/retrieval"
	"github.com/forgeworks/foreman/internal/sandbox"
	"github.com/forgeworks/foreman/internal/store"
	"github.com/forgeworks/foreman/pkg/models"
)

// ErrAwaitingAnswer is returned by Run when the workflow has suspended in
// CLARIFYING with a pending question. The caller resumes it with Answer.
var ErrAwaitingAnswer = errors.New("workflow awaiting clarification answer")

// Options carries the orchestrator's budgets and conventions.
type Options struct {
	// Budgets holds the bounded iteration budgets.
	Budgets config.BudgetsConfig
	// AgentTimeout is the mandatory per-call agent timeout.
	AgentTimeout time.Duration
	// SandboxTimeout is the mandatory per-run sandbox timeout.
	SandboxTimeout time.Duration
	// DefaultTestCommand is used when a coding result carries no test
	// definition of its own.
	DefaultTestCommand string
	// Environment is the sandbox environment descriptor.
	Environment string
	// RetrievalK is how many context snippets each coding call requests.
	RetrievalK int
	// AnalysisSummary enables the metrics-analysis summary on terminal
	// workflows.
	AnalysisSummary bool
}

// Event is emitted at every persisted transition so a caller can follow a
// workflow's progress without polling the store.
type Event struct {
	TaskID    string
	Phase     models.Phase
	StepIndex int
	// Question is the pending clarification question, set while CLARIFYING.
	Question string
	// Detail is the failure detail, set when the phase is FAILED.
	Detail string
}

// Orchestrator drives workflow states through the state machine. One
// workflow is processed by exactly one Run at a time; concurrent Runs for
// unrelated workflows share the agents, runner, and retriever, which must
// be concurrency-safe.
type Orchestrator struct {
	agents    agent.Invoker
	runner    sandbox.Runner
	retriever retrieval.Retriever
	store     store.WorkflowStore
	opts      Options
	logger    *zap.Logger
	notify    func(Event)
}

// New creates an orchestrator. retriever may be nil to disable retrieval
// context; notify may be nil.
func New(agents agent.Invoker, runner sandbox.Runner, retriever retrieval.Retriever, st store.WorkflowStore, opts Options, logger *zap.Logger, notify func(Event)) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		agents:    agents,
		runner:    runner,
		retriever: retriever,
		store:     st,
		opts:      opts,
		logger:    logger,
		notify:    notify,
	}
}

// NewTask wraps a request in a fresh workflow at ROUTING and persists it.
func (o *Orchestrator) NewTask(req models.TaskRequest) (*models.WorkflowState, error) {
	w := models.NewWorkflowState(req, o.opts.Budgets.FunctionalAttempts, o.opts.Budgets.QAAttempts)
	if err := o.persist(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Run drives the workflow from its current phase until it reaches a
// terminal phase or suspends awaiting a clarification answer. State is
// persisted at every transition, so Run on a freshly loaded workflow
// resumes exactly where the previous process stopped.
func (o *Orchestrator) Run(ctx context.Context, w *models.WorkflowState) error {
	inv := o.caller(w)

	for {
		if w.Phase.Terminal() {
			return nil
		}
		if ctx.Err() != nil {
			// Aborted at a state boundary, never mid-call.
			return o.fail(ctx, w, models.FailureCancelled, "cancelled at state boundary")
		}

		var err error
		switch w.Phase {
		case models.PhaseRouting:
			err = o.route(ctx, inv, w)
		case models.PhaseClarifying:
			// clarify may fail the workflow instead of suspending it when
			// the agent call itself errors; only a workflow still in
			// CLARIFYING is awaiting an answer.
			if err = o.clarify(ctx, inv, w); err == nil && w.Phase == models.PhaseClarifying {
				return ErrAwaitingAnswer
			}
		case models.PhasePlanning:
			err = o.plan(ctx, inv, w)
		case models.PhaseCoding:
			err = o.code(ctx, inv, w)
		case models.PhaseTesting:
			err = o.test(ctx, w)
		case models.PhaseCorrectingFunctional:
			w.Retry = models.RetryFunctional
			w.Phase = models.PhaseCoding
			err = o.persist(w)
		case models.PhaseQAReview:
			err = o.review(ctx, inv, w)
		case models.PhaseCorrectingQA:
			w.Retry = models.RetryQA
			w.Phase = models.PhaseCoding
			err = o.persist(w)
		case models.PhaseStepComplete:
			err = o.completeStep(ctx, w)
		default:
			return fmt.Errorf("workflow %s in unknown phase %q", w.ID(), w.Phase)
		}
		if err != nil {
			return err
		}
	}
}

// Answer records the user's clarification answer and resumes the workflow.
// Re-classification starts from scratch on the amended prompt.
func (o *Orchestrator) Answer(ctx context.Context, w *models.WorkflowState, answer string) error {
	if w.Phase != models.PhaseClarifying {
		return fmt.Errorf("workflow %s is %s, not awaiting an answer", w.ID(), w.Phase)
	}
	if err := w.RecordAnswer(answer); err != nil {
		return err
	}
	w.Phase = models.PhaseRouting
	if err := o.persist(w); err != nil {
		return err
	}
	return o.Run(ctx, w)
}

// caller wraps the raw invoker with the timeout and schema-retry policy,
// tallying retries into this workflow's metrics.
func (o *Orchestrator) caller(w *models.WorkflowState) agent.Invoker {
	return agent.NewCaller(o.agents, o.opts.AgentTimeout, o.opts.Budgets.SchemaRetries,
		func() { w.Metrics.SchemaRetries++ }, o.logger)
}

// route classifies the effective prompt. The decision is authoritative,
// except that a clarify decision past the clarification cap is coerced to
// planning to avoid indefinite suspension loops.
func (o *Orchestrator) route(ctx context.Context, inv agent.Invoker, w *models.WorkflowState) error {
	decision, err := inv.Route(ctx, w.EffectivePrompt)
	if err != nil {
		return o.failForCall(ctx, w, models.FailureToolingAgent, err)
	}

	if decision == agent.RouteClarify && len(w.Clarifications) >= o.opts.Budgets.MaxClarifications {
		o.logger.Warn("clarification cap reached, proceeding to planning",
			zap.String("task_id", w.ID()),
			zap.Int("rounds", len(w.Clarifications)))
		decision = agent.RoutePlan
	}

	switch decision {
	case agent.RouteClarify:
		w.Phase = models.PhaseClarifying
	case agent.RoutePlan:
		w.Phase = models.PhasePlanning
	case agent.RouteCode:
		w.Plan = models.ImplicitPlan(w.EffectivePrompt)
		if err := w.Plan.Start(0); err != nil {
			return err
		}
		w.CurrentStep = 0
		w.ResetCounters(o.opts.Budgets.FunctionalAttempts, o.opts.Budgets.QAAttempts)
		w.Retry = models.RetryNone
		w.Phase = models.PhaseCoding
	}
	return o.persist(w)
}

// clarify produces the question to ask the user, if one is not already
// pending, and leaves the workflow suspended.
func (o *Orchestrator) clarify(ctx context.Context, inv agent.Invoker, w *models.WorkflowState) error {
	if w.PendingQuestion != "" {
		return nil
	}
	question, err := inv.Clarify(ctx, w.EffectivePrompt, w.Clarifications)
	if err != nil {
		return o.failForCall(ctx, w, models.FailureToolingAgent, err)
	}
	w.PendingQuestion = question
	return o.persist(w)
}

// plan decomposes the task. Planning runs once per task, not per step.
// Zero steps is a tooling failure, not a business outcome.
func (o *Orchestrator) plan(ctx context.Context, inv agent.Invoker, w *models.WorkflowState) error {
	steps, err := inv.Plan(ctx, w.EffectivePrompt)
	if err != nil {
		return o.failForCall(ctx, w, models.FailureToolingAgent, err)
	}
	if len(steps) == 0 {
		return o.fail(ctx, w, models.FailurePlanningEmpty, "planning produced zero steps")
	}

	w.Plan = models.NewPlan(steps)
	if err := w.Plan.Start(0); err != nil {
		return err
	}
	w.CurrentStep = 0
	w.ResetCounters(o.opts.Budgets.FunctionalAttempts, o.opts.Budgets.QAAttempts)
	w.Retry = models.RetryNone
	w.Phase = models.PhaseCoding
	return o.persist(w)
}

// code invokes the coding agent for the active step. Exactly one of fresh
// step, functional retry, or qa retry applies, and the matching feedback is
// carried verbatim so the agent is not retrying blind. The result replaces
// the artifact set wholesale.
func (o *Orchestrator) code(ctx context.Context, inv agent.Invoker, w *models.WorkflowState) error {
	req := agent.CodingRequest{
		StepDescription: w.CurrentStepDescription(),
		TaskPrompt:      w.EffectivePrompt,
		Attachments:     w.Request.Attachments,
		Retry:           w.Retry,
	}
	switch w.Retry {
	case models.RetryFunctional:
		req.FailureLog = w.LastFailureLog
		req.PriorArtifacts = w.Artifacts
	case models.RetryQA:
		req.ReviewFeedback = w.LastReviewFeedback
		req.PriorArtifacts = w.Artifacts
	}

	if o.retriever != nil {
		snippets, err := o.retriever.Retrieve(ctx, req.StepDescription, o.opts.RetrievalK)
		if err != nil {
			// Retrieval enriches context; its failure must not sink the task.
			o.logger.Warn("retrieval failed, coding without context",
				zap.String("task_id", w.ID()), zap.Error(err))
		}
		for _, s := range snippets {
			req.Snippets = append(req.Snippets, agent.ContextSnippet{Source: s.Source, Content: s.Content})
		}
	}

	result, err := inv.Code(ctx, req)
	if err != nil {
		return o.failForCall(ctx, w, models.FailureToolingAgent, err)
	}

	w.Artifacts = result.Artifacts
	w.TestCommand = result.TestCommand
	if w.TestCommand == "" {
		w.TestCommand = o.opts.DefaultTestCommand
	}
	w.Metrics.CodingAttempts++
	w.Phase = models.PhaseTesting
	return o.persist(w)
}

// test runs the sandbox and judges the verdict. A FAILED verdict decrements
// the functional counter; infrastructure errors are retried on their own
// budget and never touch it.
func (o *Orchestrator) test(ctx context.Context, w *models.WorkflowState) error {
	verdict, err := o.runSandbox(ctx, w)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return o.fail(ctx, w, models.FailureCancelled, "cancelled by caller")
		}
		return o.fail(ctx, w, models.FailureToolingSandbox, err.Error())
	}

	if verdict.Passed {
		w.Phase = models.PhaseQAReview
		return o.persist(w)
	}

	w.Metrics.FunctionalFailures++
	w.FunctionalRemaining--
	w.LastFailureLog = verdict.Log
	if w.FunctionalRemaining <= 0 {
		return o.fail(ctx, w, models.FailureFunctionalBudget,
			fmt.Sprintf("functional budget exhausted on step %d", w.CurrentStep))
	}
	w.Phase = models.PhaseCorrectingFunctional
	return o.persist(w)
}

// runSandbox executes the test with the mandatory timeout, retrying
// infrastructure errors up to the infra budget.
func (o *Orchestrator) runSandbox(ctx context.Context, w *models.WorkflowState) (models.Verdict, error) {
	req := sandbox.RunRequest{
		Artifacts:   w.Artifacts,
		TestCommand: w.TestCommand,
		Environment: o.opts.Environment,
	}

	var lastErr error
	for attempt := 0; attempt <= o.opts.Budgets.InfraRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.Verdict{}, err
		}
		if attempt > 0 {
			w.Metrics.InfraRetries++
			o.logger.Warn("retrying sandbox run",
				zap.String("task_id", w.ID()),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))
		}

		runCtx, cancel := context.WithTimeout(ctx, o.opts.SandboxTimeout)
		verdict, err := o.runner.Run(runCtx, req)
		cancel()
		if err == nil {
			return verdict, nil
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return models.Verdict{}, ctx.Err()
		}
		if !sandbox.IsInfrastructureError(err) {
			return models.Verdict{}, err
		}
		lastErr = err
	}

	return models.Verdict{}, fmt.Errorf("sandbox failed after %d attempts: %w",
		o.opts.Budgets.InfraRetries+1, lastErr)
}

// review judges artifacts that have already passed functional testing.
// The reviewer never sees failing code.
func (o *Orchestrator) review(ctx context.Context, inv agent.Invoker, w *models.WorkflowState) error {
	verdict, err := inv.Review(ctx, w.CurrentStepDescription(), w.Artifacts)
	if err != nil {
		return o.failForCall(ctx, w, models.FailureToolingAgent, err)
	}

	if verdict.Approved {
		w.Phase = models.PhaseStepComplete
		return o.persist(w)
	}

	w.Metrics.QARejections++
	w.QARemaining--
	w.LastReviewFeedback = verdict.Feedback
	if w.QARemaining <= 0 {
		return o.fail(ctx, w, models.FailureQABudget,
			fmt.Sprintf("qa budget exhausted on step %d", w.CurrentStep))
	}
	w.Phase = models.PhaseCorrectingQA
	return o.persist(w)
}

// completeStep marks the active step DONE, folds its approved artifacts
// into the accumulated set, and either starts the next step with fresh
// counters or finishes the workflow.
func (o *Orchestrator) completeStep(ctx context.Context, w *models.WorkflowState) error {
	if err := w.Plan.Complete(w.CurrentStep); err != nil {
		return err
	}

	if w.StepArtifacts == nil {
		w.StepArtifacts = models.ArtifactSet{}
	}
	for path, content := range w.Artifacts {
		w.StepArtifacts[path] = content
	}

	w.Retry = models.RetryNone
	w.LastFailureLog = ""
	w.LastReviewFeedback = ""

	next := w.Plan.NextPending()
	if next == -1 {
		w.Result = w.StepArtifacts.Clone()
		w.Phase = models.PhaseDone
		o.summarize(ctx, w, "completed")
		return o.persist(w)
	}

	if err := w.Plan.Start(next); err != nil {
		return err
	}
	w.CurrentStep = next
	w.Artifacts = nil
	w.TestCommand = ""
	w.ResetCounters(o.opts.Budgets.FunctionalAttempts, o.opts.Budgets.QAAttempts)
	w.Phase = models.PhaseCoding
	return o.persist(w)
}

// failForCall classifies an external call error: parent cancellation is a
// cancelled failure, everything else the given tooling kind.
func (o *Orchestrator) failForCall(ctx context.Context, w *models.WorkflowState, kind models.FailureKind, err error) error {
	if errors.Is(err, context.Canceled) {
		return o.fail(ctx, w, models.FailureCancelled, "cancelled by caller")
	}
	return o.fail(ctx, w, kind, err.Error())
}

// fail records the structured failure report and moves the workflow to
// FAILED. The report names the loop and step that gave up and carries the
// last logs and feedback so nothing is silently dropped.
func (o *Orchestrator) fail(ctx context.Context, w *models.WorkflowState, kind models.FailureKind, detail string) error {
	w.Failure = &models.Failure{
		Kind:         kind,
		Phase:        w.Phase,
		StepIndex:    w.CurrentStep,
		Detail:       detail,
		LastLog:      w.LastFailureLog,
		LastFeedback: w.LastReviewFeedback,
	}
	w.Phase = models.PhaseFailed
	o.logger.Info("workflow failed",
		zap.String("task_id", w.ID()),
		zap.String("kind", string(kind)),
		zap.Int("step", w.CurrentStep),
		zap.String("detail", detail))
	o.summarize(ctx, w, "failed: "+string(kind))
	return o.persist(w)
}

// summarize attaches the optional metrics-analysis prose to a terminal
// workflow. A summary failure is logged and dropped; it never changes the
// workflow outcome.
func (o *Orchestrator) summarize(ctx context.Context, w *models.WorkflowState, outcome string) {
	if !o.opts.AnalysisSummary {
		return
	}
	summary, err := o.caller(w).Analyze(ctx, w.Metrics, outcome)
	if err != nil {
		o.logger.Debug("analysis summary failed", zap.String("task_id", w.ID()), zap.Error(err))
		return
	}
	w.ResultSummary = summary
}

// persist commits the workflow at its current phase and notifies listeners.
func (o *Orchestrator) persist(w *models.WorkflowState) error {
	w.UpdatedAt = time.Now().UTC()
	if err := o.store.Save(w); err != nil {
		return fmt.Errorf("persisting workflow %s at %s: %w", w.ID(), w.Phase, err)
	}

	o.logger.Debug("workflow transition",
		zap.String("task_id", w.ID()),
		zap.String("phase", string(w.Phase)),
		zap.Int("step", w.CurrentStep))

	if o.notify != nil {
		ev := Event{
			TaskID:    w.ID(),
			Phase:     w.Phase,
			StepIndex: w.CurrentStep,
			Question:  w.PendingQuestion,
		}
		if w.Failure != nil {
			ev.Detail = w.Failure.Detail
		}
		o.notify(ev)
	}
	return nil
}
