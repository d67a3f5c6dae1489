package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgeworks/foreman/pkg/models"
)

// WorkflowSummary is the listing row for a stored workflow. The full
// aggregate is loaded separately by Get.
type WorkflowSummary struct {
	ID        string       `json:"id"`
	Phase     models.Phase `json:"phase"`
	Prompt    string       `json:"prompt"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Save upserts the workflow keyed by its task id. The phase is stored in
// its own column so recovery and listings never parse the JSON aggregate.
func (db *DB) Save(w *models.WorkflowState) error {
	state, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal workflow %s: %w", w.ID(), err)
	}

	_, err = db.Exec(`
		INSERT INTO workflows (id, phase, prompt, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase,
			state = excluded.state,
			updated_at = excluded.updated_at
	`, w.ID(), string(w.Phase), w.Request.Prompt, string(state),
		formatTime(w.CreatedAt), formatTime(w.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save workflow %s: %w", w.ID(), err)
	}
	return nil
}

// Get retrieves a workflow by task id. A missing workflow returns (nil, nil).
func (db *DB) Get(id string) (*models.WorkflowState, error) {
	row := db.QueryRow("SELECT state FROM workflows WHERE id = ?", id)

	var state string
	err := row.Scan(&state)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow %s: %w", id, err)
	}

	var w models.WorkflowState
	if err := json.Unmarshal([]byte(state), &w); err != nil {
		return nil, fmt.Errorf("unmarshal workflow %s: %w", id, err)
	}
	return &w, nil
}

// List returns summaries of all workflows, most recently updated first.
func (db *DB) List() ([]WorkflowSummary, error) {
	rows, err := db.Query(`
		SELECT id, phase, prompt, created_at, updated_at
		FROM workflows ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var summaries []WorkflowSummary
	for rows.Next() {
		var s WorkflowSummary
		var createdAt, updatedAt string
		if err := rows.Scan(&s.ID, &s.Phase, &s.Prompt, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan workflow row: %w", err)
		}
		s.CreatedAt, _ = parseTime(createdAt)
		s.UpdatedAt, _ = parseTime(updatedAt)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// ListByPhase returns summaries of the workflows in the given phase, most
// recently updated first.
func (db *DB) ListByPhase(phase models.Phase) ([]WorkflowSummary, error) {
	rows, err := db.Query(`
		SELECT id, phase, prompt, created_at, updated_at
		FROM workflows WHERE phase = ? ORDER BY updated_at DESC
	`, string(phase))
	if err != nil {
		return nil, fmt.Errorf("list workflows by phase %s: %w", phase, err)
	}
	defer rows.Close()

	var summaries []WorkflowSummary
	for rows.Next() {
		var s WorkflowSummary
		var createdAt, updatedAt string
		if err := rows.Scan(&s.ID, &s.Phase, &s.Prompt, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan workflow row: %w", err)
		}
		s.CreatedAt, _ = parseTime(createdAt)
		s.UpdatedAt, _ = parseTime(updatedAt)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Delete removes a workflow by task id.
func (db *DB) Delete(id string) error {
	_, err := db.Exec("DELETE FROM workflows WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete workflow %s: %w", id, err)
	}
	return nil
}
