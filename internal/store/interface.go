package store

import (
	"io"

	"github.com/forgeworks/foreman/pkg/models"
)

// WorkflowStore defines the persistence interface the orchestrator and the
// server depend on, so neither is tied to the SQLite implementation.
type WorkflowStore interface {
	io.Closer
	// Migrate applies all pending schema migrations.
	Migrate() error
	// Save upserts the workflow keyed by its task id.
	Save(w *models.WorkflowState) error
	// Get retrieves a workflow by task id; a missing workflow is (nil, nil).
	Get(id string) (*models.WorkflowState, error)
	// List returns summaries of all workflows, most recently updated first.
	List() ([]WorkflowSummary, error)
	// ListResumable returns all non-terminal workflows, oldest update first.
	ListResumable() ([]*models.WorkflowState, error)
	// Delete removes a workflow by task id.
	Delete(id string) error
}

// Compile-time verification that DB implements the interface.
var _ WorkflowStore = (*DB)(nil)
