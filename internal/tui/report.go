package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/forgeworks/foreman/pkg/models"
)

var (
	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	reportBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// RenderReport renders the final report for a terminal workflow. It is also
// used by the status and resume commands, so it tolerates any phase.
func RenderReport(w *models.WorkflowState) string {
	var sb strings.Builder

	switch w.Phase {
	case models.PhaseDone:
		sb.WriteString(doneStyle.Render("✓ DONE"))
	case models.PhaseFailed:
		sb.WriteString(failedStyle.Render("✗ FAILED"))
	default:
		sb.WriteString(dimStyle.Render(string(w.Phase)))
	}
	sb.WriteString("  ")
	sb.WriteString(w.ID())
	sb.WriteString("\n")

	if w.Plan.Len() > 0 {
		sb.WriteString("\nPlan:\n")
		for _, step := range w.Plan.Steps {
			sb.WriteString(fmt.Sprintf("  %s %d. %s\n", stepGlyph(step.Status), step.Index+1, step.Description))
		}
	}

	if w.Failure != nil {
		sb.WriteString("\nFailure:\n")
		sb.WriteString(fmt.Sprintf("  kind:   %s\n", w.Failure.Kind))
		if w.Failure.Kind.Tooling() {
			sb.WriteString("  cause:  the system could not reach its tools\n")
		} else {
			sb.WriteString("  cause:  the agent could not solve the problem\n")
		}
		sb.WriteString(fmt.Sprintf("  phase:  %s\n", w.Failure.Phase))
		if w.Failure.StepIndex >= 0 {
			sb.WriteString(fmt.Sprintf("  step:   %d\n", w.Failure.StepIndex+1))
		}
		sb.WriteString(fmt.Sprintf("  detail: %s\n", w.Failure.Detail))
		if w.Failure.LastLog != "" {
			sb.WriteString("  last test log:\n")
			sb.WriteString(indent(w.Failure.LastLog, "    "))
		}
		if w.Failure.LastFeedback != "" {
			sb.WriteString("  last review feedback:\n")
			sb.WriteString(indent(w.Failure.LastFeedback, "    "))
		}
	}

	if len(w.Result) > 0 {
		sb.WriteString("\nArtifacts:\n")
		paths := make([]string, 0, len(w.Result))
		for path := range w.Result {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			sb.WriteString(fmt.Sprintf("  %s (%d bytes)\n", path, len(w.Result[path])))
		}
	}

	m := w.Metrics
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(fmt.Sprintf(
		"coding attempts %d · test failures %d · qa rejections %d · clarifications %d",
		m.CodingAttempts, m.FunctionalFailures, m.QARejections, m.Clarifications)))
	sb.WriteString("\n")

	if w.ResultSummary != "" {
		sb.WriteString("\n")
		sb.WriteString(w.ResultSummary)
		sb.WriteString("\n")
	}

	return reportBoxStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

func stepGlyph(status models.StepStatus) string {
	switch status {
	case models.StepDone:
		return doneStyle.Render("✓")
	case models.StepInProgress:
		return "●"
	default:
		return "○"
	}
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n") + "\n"
}
