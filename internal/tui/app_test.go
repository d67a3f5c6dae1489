package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/forgeworks/foreman/internal/orchestrator"
	"github.com/forgeworks/foreman/pkg/models"
)

func TestProgressFeedsTransitionLines(t *testing.T) {
	app := NewApp("build a parser", nil)

	app.Update(ProgressMsg{TaskID: "t1", Phase: models.PhaseCoding, StepIndex: 0})
	app.Update(ProgressMsg{TaskID: "t1", Phase: models.PhaseTesting, StepIndex: 0})

	view := app.View()
	if !strings.Contains(view, "CODING") || !strings.Contains(view, "TESTING") {
		t.Errorf("view missing transitions:\n%s", view)
	}
}

func TestClarificationPromptsAndDeliversAnswer(t *testing.T) {
	var got string
	app := NewApp("vague task", func(answer string) { got = answer })

	app.Update(ProgressMsg{
		TaskID:    "t1",
		Phase:     models.PhaseClarifying,
		StepIndex: -1,
		Question:  "which database?",
	})
	if !app.awaiting {
		t.Fatal("app should await an answer")
	}
	if !strings.Contains(app.View(), "which database?") {
		t.Errorf("view missing question:\n%s", app.View())
	}

	for _, r := range "sqlite" {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if got != "sqlite" {
		t.Errorf("answer = %q", got)
	}
	if app.awaiting {
		t.Error("app still awaiting after answer")
	}
}

func TestEmptyAnswerIsIgnored(t *testing.T) {
	called := false
	app := NewApp("task", func(string) { called = true })

	app.Update(ProgressMsg{Phase: models.PhaseClarifying, StepIndex: -1, Question: "q?"})
	app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if called {
		t.Error("empty answer must not be delivered")
	}
	if !app.awaiting {
		t.Error("app should keep awaiting")
	}
}

func TestFinishedQuitsWithReport(t *testing.T) {
	app := NewApp("task", nil)

	w := models.NewWorkflowState(models.NewTaskRequest("task", nil), 3, 2)
	w.Phase = models.PhaseDone
	w.Result = models.ArtifactSet{"main.go": "package main"}

	_, cmd := app.Update(FinishedMsg{State: w})
	if cmd == nil {
		t.Fatal("finished should quit")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Errorf("expected quit, got %T", msg)
	}
	if !strings.Contains(app.View(), "main.go") {
		t.Errorf("final view missing report:\n%s", app.View())
	}
}

func TestFormatTransitionShowsStepAndDetail(t *testing.T) {
	line := formatTransition(orchestrator.Event{
		Phase:     models.PhaseFailed,
		StepIndex: 1,
		Detail:    "qa budget exhausted on step 1",
	})
	if !strings.Contains(line, "FAILED") || !strings.Contains(line, "step 2") {
		t.Errorf("line = %q", line)
	}
}
