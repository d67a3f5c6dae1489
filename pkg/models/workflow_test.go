package models

import (
	"strings"
	"testing"
)

func TestNewWorkflowState_Initial(t *testing.T) {
	req := NewTaskRequest("build a parser", nil)
	ws := NewWorkflowState(req, 3, 2)

	if ws.Phase != PhaseRouting {
		t.Errorf("phase = %s, want ROUTING", ws.Phase)
	}
	if ws.CurrentStep != -1 {
		t.Errorf("current step = %d, want -1", ws.CurrentStep)
	}
	if ws.FunctionalRemaining != 3 || ws.QARemaining != 2 {
		t.Errorf("counters = %d/%d, want 3/2", ws.FunctionalRemaining, ws.QARemaining)
	}
	if ws.EffectivePrompt != "build a parser" {
		t.Errorf("effective prompt = %q", ws.EffectivePrompt)
	}
	if ws.ID() == "" {
		t.Error("workflow ID should not be empty")
	}
}

func TestWorkflowState_RecordAnswer(t *testing.T) {
	req := NewTaskRequest("fix the bug", nil)
	ws := NewWorkflowState(req, 3, 2)

	if err := ws.RecordAnswer("yes"); err == nil {
		t.Fatal("expected error recording an answer without a pending question")
	}

	ws.PendingQuestion = "which bug?"
	if err := ws.RecordAnswer("the login crash"); err != nil {
		t.Fatalf("record answer: %v", err)
	}

	if ws.PendingQuestion != "" {
		t.Error("pending question should be cleared")
	}
	if len(ws.Clarifications) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(ws.Clarifications))
	}
	ex := ws.Clarifications[0]
	if ex.Question != "which bug?" || ex.Answer != "the login crash" {
		t.Errorf("unexpected exchange %+v", ex)
	}
	if !strings.Contains(ws.EffectivePrompt, "fix the bug") ||
		!strings.Contains(ws.EffectivePrompt, "the login crash") {
		t.Errorf("effective prompt missing amendment: %q", ws.EffectivePrompt)
	}
	if ws.Metrics.Clarifications != 1 {
		t.Errorf("clarification count = %d, want 1", ws.Metrics.Clarifications)
	}
}

func TestPhase_Terminal(t *testing.T) {
	cases := []struct {
		phase    Phase
		terminal bool
	}{
		{PhaseRouting, false},
		{PhaseCoding, false},
		{PhaseStepComplete, false},
		{PhaseDone, true},
		{PhaseFailed, true},
	}
	for _, tc := range cases {
		if got := tc.phase.Terminal(); got != tc.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tc.phase, got, tc.terminal)
		}
	}
}

func TestFailureKind_Tooling(t *testing.T) {
	tooling := []FailureKind{FailureToolingAgent, FailureToolingSandbox, FailurePlanningEmpty}
	business := []FailureKind{FailureFunctionalBudget, FailureQABudget, FailureCancelled}

	for _, k := range tooling {
		if !k.Tooling() {
			t.Errorf("%s should be a tooling failure", k)
		}
	}
	for _, k := range business {
		if k.Tooling() {
			t.Errorf("%s should not be a tooling failure", k)
		}
	}
}

func TestArtifactSet_Clone(t *testing.T) {
	a := ArtifactSet{"main.go": "package main"}
	b := a.Clone()
	b["main.go"] = "changed"

	if a["main.go"] != "package main" {
		t.Error("clone should not alias the original")
	}
	if ArtifactSet(nil).Clone() != nil {
		t.Error("cloning nil should return nil")
	}
}
