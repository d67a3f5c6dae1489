// Package retrieval indexes a source tree into an embedded vector store and
// serves similarity lookups that ground coding prompts in existing code.
package retrieval

import "context"

// Snippet is one retrieved context fragment.
type Snippet struct {
	// Source is the relative path of the file the fragment came from.
	Source string
	// Content is the fragment text.
	Content string
	// Score is the cosine similarity to the query, in [0, 1].
	Score float32
}

// Retriever answers similarity queries against the indexed corpus.
// Implementations must be safe for concurrent use.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Snippet, error)
}
