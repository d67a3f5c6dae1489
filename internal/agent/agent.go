// Package agent provides the capability interface for invoking generation,
// classification, and review agents and validating their structured results.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgeworks/foreman/pkg/models"
)

// Role selects one of the fixed capability variants. Each role has its own
// declared result schema.
type Role string

const (
	RoleRouting       Role = "routing"
	RoleClarification Role = "clarification"
	RolePlanning      Role = "planning"
	RoleCoding        Role = "coding"
	RoleReview        Role = "review"
	RoleAnalysis      Role = "analysis"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{RoleRouting, RoleClarification, RolePlanning, RoleCoding, RoleReview, RoleAnalysis}
}

// RouteDecision is the routing agent's closed tagged-variant output.
// Any label outside this set is a schema error, never an open string.
type RouteDecision string

const (
	// RouteClarify means the prompt is ambiguous and needs a user answer.
	RouteClarify RouteDecision = "clarify"
	// RoutePlan means the task is complex and needs decomposition.
	RoutePlan RouteDecision = "plan"
	// RouteCode means the task is simple enough to code directly.
	RouteCode RouteDecision = "code"
)

// Valid returns true if the decision is one of the closed set.
func (d RouteDecision) Valid() bool {
	switch d {
	case RouteClarify, RoutePlan, RouteCode:
		return true
	default:
		return false
	}
}

// ContextSnippet is one retrieved context passage passed verbatim into a
// coding call.
type ContextSnippet struct {
	// Source identifies where the snippet came from.
	Source string
	// Content is the snippet text.
	Content string
}

// CodingRequest carries everything a coding call needs. Exactly one of
// "fresh step" / "functional retry" / "qa retry" applies per entry,
// signalled by Retry; the corresponding feedback field holds the full
// prior verdict so the agent is not retrying blind.
type CodingRequest struct {
	// StepDescription is the active plan step's description.
	StepDescription string
	// TaskPrompt is the effective task prompt for overall context.
	TaskPrompt string
	// Attachments are the task request's attachments.
	Attachments []models.Attachment
	// Retry records why coding is being entered.
	Retry models.RetryKind
	// FailureLog is the exact sandbox log of the failed run (functional retry).
	FailureLog string
	// ReviewFeedback is the exact rejection feedback (qa retry).
	ReviewFeedback string
	// PriorArtifacts is the artifact set being corrected, if any.
	PriorArtifacts models.ArtifactSet
	// Snippets is retrieved context, passed through uninterpreted.
	Snippets []ContextSnippet
}

// CodingResult is the coding role's schema: a complete replacement
// artifact set plus an optional test definition.
type CodingResult struct {
	Artifacts   models.ArtifactSet
	TestCommand string
}

// Invoker is the uniform contract for invoking any agent capability.
// Results are schema-validated; non-conforming output surfaces as a
// *SchemaError. Implementations must be safe for concurrent use by
// unrelated workflows.
type Invoker interface {
	// Route classifies the prompt into the closed next-phase set.
	Route(ctx context.Context, prompt string) (RouteDecision, error)
	// Clarify produces the single question to ask the user.
	Clarify(ctx context.Context, prompt string, history []models.Exchange) (string, error)
	// Plan produces the ordered step descriptions for a complex task.
	Plan(ctx context.Context, prompt string) ([]string, error)
	// Code produces a complete replacement artifact set for one step.
	Code(ctx context.Context, req CodingRequest) (*CodingResult, error)
	// Review judges artifacts that have already passed functional testing.
	Review(ctx context.Context, stepDescription string, artifacts models.ArtifactSet) (models.ReviewVerdict, error)
	// Analyze summarizes run metrics for the final report.
	Analyze(ctx context.Context, metrics models.RunMetrics, outcome string) (string, error)
}

// SchemaError reports agent output that does not conform to the role's
// declared result schema. The caller retries the same call, not the
// surrounding business loop.
type SchemaError struct {
	// Role is the capability whose output failed validation.
	Role Role
	// Reason describes the violation.
	Reason string
	// Raw is the offending output, truncated for logs.
	Raw string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error from %s agent: %s", e.Role, e.Reason)
}

// IsSchemaError reports whether err is (or wraps) a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// schemaErr builds a SchemaError with the raw output capped.
func schemaErr(role Role, raw, format string, args ...interface{}) *SchemaError {
	const maxRaw = 512
	if len(raw) > maxRaw {
		raw = raw[:maxRaw] + "..."
	}
	return &SchemaError{Role: role, Reason: fmt.Sprintf(format, args...), Raw: raw}
}
