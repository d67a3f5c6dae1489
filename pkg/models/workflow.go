package models

import (
	"fmt"
	"strings"
	"time"
)

// Phase names the states of the workflow state machine. The persisted
// phase column uses these values verbatim.
type Phase string

const (
	PhaseRouting              Phase = "ROUTING"
	PhaseClarifying           Phase = "CLARIFYING"
	PhasePlanning             Phase = "PLANNING"
	PhaseCoding               Phase = "CODING"
	PhaseTesting              Phase = "TESTING"
	PhaseCorrectingFunctional Phase = "CORRECTING_FUNCTIONAL"
	PhaseQAReview             Phase = "QA_REVIEW"
	PhaseCorrectingQA         Phase = "CORRECTING_QA"
	PhaseStepComplete         Phase = "STEP_COMPLETE"
	PhaseDone                 Phase = "DONE"
	PhaseFailed               Phase = "FAILED"
)

// Valid returns true if the phase is a known state machine value.
func (p Phase) Valid() bool {
	switch p {
	case PhaseRouting, PhaseClarifying, PhasePlanning, PhaseCoding, PhaseTesting,
		PhaseCorrectingFunctional, PhaseQAReview, PhaseCorrectingQA,
		PhaseStepComplete, PhaseDone, PhaseFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true for DONE and FAILED.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// RetryKind distinguishes why the coding phase is being entered.
// Exactly one kind applies per entry.
type RetryKind string

const (
	// RetryNone is a fresh step with no prior feedback.
	RetryNone RetryKind = "none"
	// RetryFunctional carries the failure log from the last sandbox run.
	RetryFunctional RetryKind = "functional"
	// RetryQA carries the rejection feedback from the last quality review.
	RetryQA RetryKind = "qa"
)

// FailureKind classifies terminal failures so an operator can tell
// "the system couldn't reach its tools" apart from "the agent couldn't
// solve the problem".
type FailureKind string

const (
	// FailureFunctionalBudget means the functional correction loop ran out of attempts.
	FailureFunctionalBudget FailureKind = "functional_budget_exhausted"
	// FailureQABudget means the quality-review correction loop ran out of attempts.
	FailureQABudget FailureKind = "qa_budget_exhausted"
	// FailureToolingAgent means an agent call never produced a schema-valid result.
	FailureToolingAgent FailureKind = "tooling_agent"
	// FailureToolingSandbox means the sandbox could not execute after all retries.
	FailureToolingSandbox FailureKind = "tooling_sandbox"
	// FailurePlanningEmpty means planning produced zero steps.
	FailurePlanningEmpty FailureKind = "planning_empty"
	// FailureCancelled means the caller aborted the workflow.
	FailureCancelled FailureKind = "cancelled"
)

// Tooling returns true for failure kinds caused by the system's own tools
// rather than the generated code.
func (k FailureKind) Tooling() bool {
	return k == FailureToolingAgent || k == FailureToolingSandbox || k == FailurePlanningEmpty
}

// Failure is the structured report attached to a FAILED workflow.
type Failure struct {
	// Kind classifies the failure.
	Kind FailureKind `json:"kind"`
	// Phase is the phase in which the failure occurred.
	Phase Phase `json:"phase"`
	// StepIndex is the plan step that was active, or -1 before planning.
	StepIndex int `json:"step_index"`
	// Detail is a human-readable description.
	Detail string `json:"detail"`
	// LastLog is the last sandbox failure log, if any.
	LastLog string `json:"last_log,omitempty"`
	// LastFeedback is the last review rejection feedback, if any.
	LastFeedback string `json:"last_feedback,omitempty"`
}

// Exchange is one clarification question/answer pair.
type Exchange struct {
	Question   string     `json:"question"`
	Answer     string     `json:"answer,omitempty"`
	AskedAt    time.Time  `json:"asked_at"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
}

// RunMetrics tallies work performed by a workflow. It feeds the optional
// metrics-analysis summary and the final report.
type RunMetrics struct {
	CodingAttempts     int `json:"coding_attempts"`
	FunctionalFailures int `json:"functional_failures"`
	QARejections       int `json:"qa_rejections"`
	SchemaRetries      int `json:"schema_retries"`
	InfraRetries       int `json:"infra_retries"`
	Clarifications     int `json:"clarifications"`
}

// WorkflowState is the aggregate root for one task's progress. It is
// created when a task is accepted, mutated exclusively by the
// orchestrator, and persisted at every phase transition so a process
// restart resumes at the last committed state.
type WorkflowState struct {
	// Request is the immutable originating task request.
	Request TaskRequest `json:"request"`
	// EffectivePrompt is the original prompt amended by clarification
	// answers. Routing and planning always operate on this.
	EffectivePrompt string `json:"effective_prompt"`
	// Phase is the current state machine state.
	Phase Phase `json:"phase"`
	// Plan is the ordered step sequence. Empty until planning (or the
	// implicit plan) runs.
	Plan Plan `json:"plan"`
	// CurrentStep is the index of the active plan step, -1 before planning.
	CurrentStep int `json:"current_step"`

	// FunctionalRemaining counts remaining functional correction attempts
	// for the current step. Never negative.
	FunctionalRemaining int `json:"functional_remaining"`
	// QARemaining counts remaining quality-review correction attempts for
	// the current step. Never negative.
	QARemaining int `json:"qa_remaining"`

	// Artifacts is the latest complete code artifact set.
	Artifacts ArtifactSet `json:"artifacts,omitempty"`
	// TestCommand is the test definition supplied with the latest coding
	// result, if any.
	TestCommand string `json:"test_command,omitempty"`
	// StepArtifacts accumulates the approved artifacts of completed steps;
	// later steps overwrite earlier entries with the same path.
	StepArtifacts ArtifactSet `json:"step_artifacts,omitempty"`

	// Retry records why CODING is being (re-)entered.
	Retry RetryKind `json:"retry"`
	// LastFailureLog is the exact log from the sandbox run that triggered a
	// functional retry.
	LastFailureLog string `json:"last_failure_log,omitempty"`
	// LastReviewFeedback is the exact feedback from the review that
	// triggered a QA retry.
	LastReviewFeedback string `json:"last_review_feedback,omitempty"`

	// Clarifications is the ordered question/answer history.
	Clarifications []Exchange `json:"clarifications,omitempty"`
	// PendingQuestion is set while the workflow is suspended in CLARIFYING.
	PendingQuestion string `json:"pending_question,omitempty"`

	// Metrics tallies attempts across the whole workflow.
	Metrics RunMetrics `json:"metrics"`

	// Result is the final assembled artifact set, set on DONE.
	Result ArtifactSet `json:"result,omitempty"`
	// ResultSummary is the optional metrics-analysis prose attached to a
	// terminal workflow.
	ResultSummary string `json:"result_summary,omitempty"`
	// Failure is the structured failure report, set on FAILED.
	Failure *Failure `json:"failure,omitempty"`

	// CreatedAt is when the workflow was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is bumped on every persisted transition.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWorkflowState wraps a task request in a fresh workflow positioned at
// ROUTING with the given correction budgets.
func NewWorkflowState(req TaskRequest, functionalAttempts, qaAttempts int) *WorkflowState {
	now := time.Now().UTC()
	return &WorkflowState{
		Request:             req,
		EffectivePrompt:     req.Prompt,
		Phase:               PhaseRouting,
		CurrentStep:         -1,
		FunctionalRemaining: functionalAttempts,
		QARemaining:         qaAttempts,
		Retry:               RetryNone,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// ID returns the task identifier the workflow is keyed by.
func (w *WorkflowState) ID() string {
	return w.Request.ID
}

// ResetCounters restores both correction counters at the start of a new
// plan step. The counters are independent of each other.
func (w *WorkflowState) ResetCounters(functionalAttempts, qaAttempts int) {
	w.FunctionalRemaining = functionalAttempts
	w.QARemaining = qaAttempts
}

// RecordAnswer appends the answer to the pending clarification exchange
// and amends the effective prompt so re-routing sees the new information.
func (w *WorkflowState) RecordAnswer(answer string) error {
	if w.PendingQuestion == "" {
		return fmt.Errorf("workflow %s has no pending clarification question", w.ID())
	}
	now := time.Now().UTC()
	w.Clarifications = append(w.Clarifications, Exchange{
		Question:   w.PendingQuestion,
		Answer:     answer,
		AskedAt:    now,
		AnsweredAt: &now,
	})
	w.Metrics.Clarifications++
	w.PendingQuestion = ""

	var sb strings.Builder
	sb.WriteString(w.Request.Prompt)
	for _, ex := range w.Clarifications {
		sb.WriteString("\n\nClarification: ")
		sb.WriteString(ex.Question)
		sb.WriteString("\nAnswer: ")
		sb.WriteString(ex.Answer)
	}
	w.EffectivePrompt = sb.String()
	return nil
}

// CurrentStepDescription returns the description of the active step.
func (w *WorkflowState) CurrentStepDescription() string {
	if w.CurrentStep < 0 || w.CurrentStep >= w.Plan.Len() {
		return ""
	}
	return w.Plan.Steps[w.CurrentStep].Description
}
