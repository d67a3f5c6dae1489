package agent

import (
	"fmt"
	"strings"

	"github.com/forgeworks/foreman/pkg/models"
)

// System prompts per role. Each declares the exact output schema; output
// that deviates is rejected and re-requested.

const routingSystemPrompt = `You are a task router for an automated code generation system.
Classify the user's request into exactly one category:
- "clarify": the request is ambiguous or missing information needed to start
- "plan": the request is complex and should be decomposed into ordered steps
- "code": the request is simple enough to implement in a single step

Respond with JSON only:
{"decision": "clarify" | "plan" | "code"}`

const clarificationSystemPrompt = `You are a requirements analyst for an automated code generation system.
The user's request is ambiguous. Ask the single most important question that
would unblock implementation. Ask one question only.

Respond with JSON only:
{"question": "..."}`

const planningSystemPrompt = `You are a planner for an automated code generation system.
Decompose the user's request into a short ordered list of implementation
steps. Each step must be independently implementable and testable, and the
steps must be in dependency order.

Respond with JSON only:
{"steps": ["first step description", "second step description", ...]}`

const codingSystemPrompt = `You are a coding agent. Implement the requested step completely.
Produce the FULL content of every file the step needs; the result replaces
all previous artifacts wholesale, so include unchanged files you still need.
Also provide a shell command that tests your implementation.

Respond with JSON only:
{"artifacts": {"path/to/file": "full file content", ...}, "test_command": "..."}`

const reviewSystemPrompt = `You are a strict code quality reviewer. The code you see has already
passed its functional tests; judge maintainability, correctness of approach,
edge-case handling, and fit to the step description.

Respond with JSON only:
{"approved": true} or {"approved": false, "feedback": "specific, actionable feedback"}`

const analysisSystemPrompt = `You are a metrics analyst. Summarize the workflow run described by the
metrics in two or three plain sentences for a human operator. Respond with
the summary text only, no JSON.`

// buildRoutingPrompt renders the routing user prompt.
func buildRoutingPrompt(prompt string) string {
	return fmt.Sprintf("Request:\n%s", prompt)
}

// buildClarificationPrompt includes prior exchanges so the agent does not
// repeat itself.
func buildClarificationPrompt(prompt string, history []models.Exchange) string {
	var sb strings.Builder
	sb.WriteString("Request:\n")
	sb.WriteString(prompt)
	if len(history) > 0 {
		sb.WriteString("\n\nAlready asked and answered:\n")
		for _, ex := range history {
			sb.WriteString(fmt.Sprintf("Q: %s\nA: %s\n", ex.Question, ex.Answer))
		}
	}
	return sb.String()
}

// buildPlanningPrompt renders the planning user prompt.
func buildPlanningPrompt(prompt string) string {
	return fmt.Sprintf("Request:\n%s", prompt)
}

// buildCodingPrompt assembles the coding context: step, task, retrieved
// snippets, prior artifacts, and exactly one kind of prior feedback.
func buildCodingPrompt(req CodingRequest) string {
	var sb strings.Builder

	sb.WriteString("## Task\n")
	sb.WriteString(req.TaskPrompt)
	sb.WriteString("\n\n## Current Step\n")
	sb.WriteString(req.StepDescription)
	sb.WriteString("\n")

	for _, att := range req.Attachments {
		sb.WriteString(fmt.Sprintf("\n## Attachment: %s (%s)\n%s\n", att.Name, att.MediaType, att.Data))
	}

	if len(req.Snippets) > 0 {
		sb.WriteString("\n## Retrieved Context\n")
		for _, sn := range req.Snippets {
			sb.WriteString(fmt.Sprintf("--- %s ---\n%s\n", sn.Source, sn.Content))
		}
	}

	if len(req.PriorArtifacts) > 0 && req.Retry != models.RetryNone {
		sb.WriteString("\n## Current Artifacts (to be replaced)\n")
		for path, content := range req.PriorArtifacts {
			sb.WriteString(fmt.Sprintf("--- %s ---\n%s\n", path, content))
		}
	}

	switch req.Retry {
	case models.RetryFunctional:
		sb.WriteString("\n## Previous Attempt Failed Testing\n")
		sb.WriteString("The test run below failed. Fix the implementation.\n\n")
		sb.WriteString(req.FailureLog)
		sb.WriteString("\n")
	case models.RetryQA:
		sb.WriteString("\n## Previous Attempt Rejected In Review\n")
		sb.WriteString("The reviewer rejected the implementation with this feedback. Address it.\n\n")
		sb.WriteString(req.ReviewFeedback)
		sb.WriteString("\n")
	}

	return sb.String()
}

// buildReviewPrompt renders the artifacts for quality review.
func buildReviewPrompt(stepDescription string, artifacts models.ArtifactSet) string {
	var sb strings.Builder
	sb.WriteString("## Step\n")
	sb.WriteString(stepDescription)
	sb.WriteString("\n\n## Artifacts (functionally tested, passing)\n")
	for path, content := range artifacts {
		sb.WriteString(fmt.Sprintf("--- %s ---\n%s\n", path, content))
	}
	return sb.String()
}

// buildAnalysisPrompt renders the run metrics for summarization.
func buildAnalysisPrompt(m models.RunMetrics, outcome string) string {
	return fmt.Sprintf(`Outcome: %s
Coding attempts: %d
Functional test failures: %d
QA rejections: %d
Schema retries: %d
Infrastructure retries: %d
Clarification rounds: %d`,
		outcome, m.CodingAttempts, m.FunctionalFailures, m.QARejections,
		m.SchemaRetries, m.InfraRetries, m.Clarifications)
}
