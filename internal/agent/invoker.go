package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/forgeworks/foreman/pkg/models"
)

// LLMInvoker implements Invoker on top of the role registry: it renders
// role prompts, calls the bound provider, and schema-validates the reply.
type LLMInvoker struct {
	registry *Registry
	logger   *zap.Logger
}

// NewLLMInvoker creates the invoker. A nil logger is replaced with a no-op.
func NewLLMInvoker(registry *Registry, logger *zap.Logger) *LLMInvoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMInvoker{registry: registry, logger: logger}
}

// complete dispatches one raw completion to the role's provider.
func (inv *LLMInvoker) complete(ctx context.Context, role Role, system, user string) (string, error) {
	p, err := inv.registry.Provider(role)
	if err != nil {
		return "", err
	}
	inv.logger.Debug("invoking agent", zap.String("role", string(role)), zap.Int("prompt_len", len(user)))
	return p.Complete(ctx, system, user)
}

// Route classifies the prompt into the closed next-phase set.
func (inv *LLMInvoker) Route(ctx context.Context, prompt string) (RouteDecision, error) {
	raw, err := inv.complete(ctx, RoleRouting, routingSystemPrompt, buildRoutingPrompt(prompt))
	if err != nil {
		return "", err
	}
	return parseRouteDecision(raw)
}

// Clarify produces the single question to ask the user.
func (inv *LLMInvoker) Clarify(ctx context.Context, prompt string, history []models.Exchange) (string, error) {
	raw, err := inv.complete(ctx, RoleClarification, clarificationSystemPrompt, buildClarificationPrompt(prompt, history))
	if err != nil {
		return "", err
	}
	return parseClarification(raw)
}

// Plan produces the ordered step descriptions for a complex task.
func (inv *LLMInvoker) Plan(ctx context.Context, prompt string) ([]string, error) {
	raw, err := inv.complete(ctx, RolePlanning, planningSystemPrompt, buildPlanningPrompt(prompt))
	if err != nil {
		return nil, err
	}
	return parsePlanSteps(raw)
}

// Code produces a complete replacement artifact set for one step.
func (inv *LLMInvoker) Code(ctx context.Context, req CodingRequest) (*CodingResult, error) {
	raw, err := inv.complete(ctx, RoleCoding, codingSystemPrompt, buildCodingPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseCodingResult(raw)
}

// Review judges artifacts that already passed functional testing.
func (inv *LLMInvoker) Review(ctx context.Context, stepDescription string, artifacts models.ArtifactSet) (models.ReviewVerdict, error) {
	raw, err := inv.complete(ctx, RoleReview, reviewSystemPrompt, buildReviewPrompt(stepDescription, artifacts))
	if err != nil {
		return models.ReviewVerdict{}, err
	}
	return parseReviewVerdict(raw)
}

// Analyze summarizes run metrics. The analysis schema is plain prose, so
// the only validation is non-emptiness.
func (inv *LLMInvoker) Analyze(ctx context.Context, metrics models.RunMetrics, outcome string) (string, error) {
	raw, err := inv.complete(ctx, RoleAnalysis, analysisSystemPrompt, buildAnalysisPrompt(metrics, outcome))
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(raw)
	if summary == "" {
		return "", schemaErr(RoleAnalysis, raw, "empty summary")
	}
	return summary, nil
}

var _ Invoker = (*LLMInvoker)(nil)
