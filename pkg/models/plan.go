package models

import "fmt"

// StepStatus represents the state of a single plan step.
type StepStatus string

const (
	// StepPending indicates the step has not started.
	StepPending StepStatus = "PENDING"
	// StepInProgress indicates the step is currently being executed.
	StepInProgress StepStatus = "IN_PROGRESS"
	// StepDone indicates the step completed and passed review.
	StepDone StepStatus = "DONE"
)

// Valid returns true if the status is a known value.
func (s StepStatus) Valid() bool {
	switch s {
	case StepPending, StepInProgress, StepDone:
		return true
	default:
		return false
	}
}

// PlanStep is one unit of work within a decomposed task.
type PlanStep struct {
	// Index is the zero-based position of the step. Indices are contiguous.
	Index int `json:"index"`
	// Description is what the coding agent is asked to do for this step.
	Description string `json:"description"`
	// Status is the current state of the step.
	Status StepStatus `json:"status"`
}

// Plan is the ordered sequence of steps produced by the planning phase.
// Simple tasks carry an implicit single-step plan so the state machine
// is uniform regardless of routing.
//
// Invariants: indices are contiguous from 0, at most one step is
// IN_PROGRESS, and steps complete strictly in index order. The mutating
// methods below enforce these; callers must not edit steps directly.
type Plan struct {
	Steps []PlanStep `json:"steps"`
}

// NewPlan builds a plan from ordered step descriptions.
func NewPlan(descriptions []string) Plan {
	steps := make([]PlanStep, len(descriptions))
	for i, d := range descriptions {
		steps[i] = PlanStep{Index: i, Description: d, Status: StepPending}
	}
	return Plan{Steps: steps}
}

// ImplicitPlan returns the single-step plan used when routing classifies
// a task as simple and the planning phase is skipped.
func ImplicitPlan(description string) Plan {
	return NewPlan([]string{description})
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	return len(p.Steps)
}

// Step returns the step at the given index.
func (p *Plan) Step(index int) (*PlanStep, error) {
	if index < 0 || index >= len(p.Steps) {
		return nil, fmt.Errorf("step index %d out of range [0,%d)", index, len(p.Steps))
	}
	return &p.Steps[index], nil
}

// Start marks the step at index IN_PROGRESS. It fails if any earlier step
// is not DONE or another step is already IN_PROGRESS.
func (p *Plan) Start(index int) error {
	step, err := p.Step(index)
	if err != nil {
		return err
	}
	for i := range p.Steps {
		if i < index && p.Steps[i].Status != StepDone {
			return fmt.Errorf("cannot start step %d: step %d is %s", index, i, p.Steps[i].Status)
		}
		if p.Steps[i].Status == StepInProgress {
			return fmt.Errorf("cannot start step %d: step %d already in progress", index, i)
		}
	}
	step.Status = StepInProgress
	return nil
}

// Complete marks the step at index DONE. Only an IN_PROGRESS step may complete.
func (p *Plan) Complete(index int) error {
	step, err := p.Step(index)
	if err != nil {
		return err
	}
	if step.Status != StepInProgress {
		return fmt.Errorf("cannot complete step %d: status is %s", index, step.Status)
	}
	step.Status = StepDone
	return nil
}

// NextPending returns the index of the first PENDING step, or -1 if none remain.
func (p *Plan) NextPending() int {
	for i := range p.Steps {
		if p.Steps[i].Status == StepPending {
			return i
		}
	}
	return -1
}

// Done returns true when every step is DONE.
func (p *Plan) Done() bool {
	for i := range p.Steps {
		if p.Steps[i].Status != StepDone {
			return false
		}
	}
	return len(p.Steps) > 0
}
