package store

import (
	"fmt"

	"github.com/forgeworks/foreman/pkg/models"
)

// ListResumable returns every workflow whose phase is not terminal, oldest
// update first. A restarted process offers these for resumption.
func (db *DB) ListResumable() ([]*models.WorkflowState, error) {
	summaries, err := db.List()
	if err != nil {
		return nil, err
	}

	var resumable []*models.WorkflowState
	for i := len(summaries) - 1; i >= 0; i-- {
		s := summaries[i]
		if s.Phase.Terminal() {
			continue
		}
		w, err := db.Get(s.ID)
		if err != nil {
			return nil, fmt.Errorf("load resumable workflow %s: %w", s.ID, err)
		}
		if w == nil {
			continue
		}
		resumable = append(resumable, w)
	}
	return resumable, nil
}
