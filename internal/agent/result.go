package agent

import (
	"encoding/json"
	"strings"

	"github.com/forgeworks/foreman/pkg/models"
)

// stripCodeFence removes a surrounding markdown code block and isolates the
// outermost JSON object, since models frequently wrap JSON in fences or prose.
func stripCodeFence(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
		if idx := strings.LastIndex(response, "```"); idx != -1 {
			response = response[:idx]
		}
		response = strings.TrimSpace(response)
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		if idx := strings.LastIndex(response, "```"); idx != -1 {
			response = response[:idx]
		}
		response = strings.TrimSpace(response)
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return response[start : end+1]
}

// parseRouteDecision validates the routing schema and its closed label set.
func parseRouteDecision(raw string) (RouteDecision, error) {
	payload := stripCodeFence(raw)
	if payload == "" {
		return "", schemaErr(RoleRouting, raw, "no JSON object in response")
	}

	var out struct {
		Decision string `json:"decision"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return "", schemaErr(RoleRouting, raw, "unmarshal: %v", err)
	}

	decision := RouteDecision(strings.ToLower(strings.TrimSpace(out.Decision)))
	if !decision.Valid() {
		return "", schemaErr(RoleRouting, raw, "decision %q is not one of clarify/plan/code", out.Decision)
	}
	return decision, nil
}

// parseClarification validates the clarification schema.
func parseClarification(raw string) (string, error) {
	payload := stripCodeFence(raw)
	if payload == "" {
		return "", schemaErr(RoleClarification, raw, "no JSON object in response")
	}

	var out struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return "", schemaErr(RoleClarification, raw, "unmarshal: %v", err)
	}
	if strings.TrimSpace(out.Question) == "" {
		return "", schemaErr(RoleClarification, raw, "empty question")
	}
	return strings.TrimSpace(out.Question), nil
}

// parsePlanSteps validates the planning schema. Zero steps is reported as
// a schema violation here; the orchestrator escalates it separately.
func parsePlanSteps(raw string) ([]string, error) {
	payload := stripCodeFence(raw)
	if payload == "" {
		return nil, schemaErr(RolePlanning, raw, "no JSON object in response")
	}

	var out struct {
		Steps []string `json:"steps"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, schemaErr(RolePlanning, raw, "unmarshal: %v", err)
	}

	steps := make([]string, 0, len(out.Steps))
	for _, s := range out.Steps {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			steps = append(steps, trimmed)
		}
	}
	return steps, nil
}

// parseCodingResult validates the coding schema.
func parseCodingResult(raw string) (*CodingResult, error) {
	payload := stripCodeFence(raw)
	if payload == "" {
		return nil, schemaErr(RoleCoding, raw, "no JSON object in response")
	}

	var out struct {
		Artifacts   map[string]string `json:"artifacts"`
		TestCommand string            `json:"test_command"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, schemaErr(RoleCoding, raw, "unmarshal: %v", err)
	}
	if len(out.Artifacts) == 0 {
		return nil, schemaErr(RoleCoding, raw, "empty artifact set")
	}
	for path := range out.Artifacts {
		if strings.TrimSpace(path) == "" {
			return nil, schemaErr(RoleCoding, raw, "artifact with empty path")
		}
	}

	return &CodingResult{
		Artifacts:   models.ArtifactSet(out.Artifacts),
		TestCommand: strings.TrimSpace(out.TestCommand),
	}, nil
}

// parseReviewVerdict validates the review schema. Rejections must carry feedback.
func parseReviewVerdict(raw string) (models.ReviewVerdict, error) {
	payload := stripCodeFence(raw)
	if payload == "" {
		return models.ReviewVerdict{}, schemaErr(RoleReview, raw, "no JSON object in response")
	}

	var out struct {
		Approved *bool  `json:"approved"`
		Feedback string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return models.ReviewVerdict{}, schemaErr(RoleReview, raw, "unmarshal: %v", err)
	}
	if out.Approved == nil {
		return models.ReviewVerdict{}, schemaErr(RoleReview, raw, "missing approved field")
	}
	if !*out.Approved && strings.TrimSpace(out.Feedback) == "" {
		return models.ReviewVerdict{}, schemaErr(RoleReview, raw, "rejection without feedback")
	}

	return models.ReviewVerdict{
		Approved: *out.Approved,
		Feedback: strings.TrimSpace(out.Feedback),
	}, nil
}
