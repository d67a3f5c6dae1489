package models

// ArtifactSet maps artifact names (file paths) to content. Each coding
// attempt replaces the whole set; the orchestrator never merges partially.
type ArtifactSet map[string]string

// Clone returns a copy of the set.
func (a ArtifactSet) Clone() ArtifactSet {
	if a == nil {
		return nil
	}
	out := make(ArtifactSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Verdict is the result of one sandbox test run.
// It is transient: only the latest verdict is retained, embedded in the
// next coding call's context.
type Verdict struct {
	// Passed indicates whether the test definition succeeded.
	Passed bool `json:"passed"`
	// Log is the test output. Populated on failure.
	Log string `json:"log,omitempty"`
}

// ReviewVerdict is the result of one quality-review call. Same transience
// rule as Verdict.
type ReviewVerdict struct {
	// Approved indicates the reviewer accepted the artifacts.
	Approved bool `json:"approved"`
	// Feedback is the rejection feedback. Populated when not approved.
	Feedback string `json:"feedback,omitempty"`
}
