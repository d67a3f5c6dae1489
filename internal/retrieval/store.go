package retrieval

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// Store is the embedded vector store. It persists to a local directory, so
// indexing survives restarts without an external database process.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	threshold  float32
	logger     *zap.Logger
}

// NewStore opens (or creates) the store at path. An empty path keeps the
// store in memory, which the tests rely on. Documents added later are
// embedded through embed.
func NewStore(path, collection string, threshold float32, embed chromem.EmbeddingFunc, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("opening vector store at %s: %w", path, err)
		}
	}

	coll, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", collection, err)
	}

	return &Store{
		db:         db,
		collection: coll,
		threshold:  threshold,
		logger:     logger,
	}, nil
}

// IndexDocument splits one file into chunks and stores them, replacing any
// chunks previously stored for the same source path.
func (s *Store) IndexDocument(ctx context.Context, source, content string) (int, error) {
	chunks, err := SplitFile(source, content)
	if err != nil {
		return 0, fmt.Errorf("splitting %s: %w", source, err)
	}

	// Drop stale chunks so a shrinking file does not leave orphans behind.
	if err := s.collection.Delete(ctx, map[string]string{"source": source}, nil); err != nil {
		return 0, fmt.Errorf("removing stale chunks for %s: %w", source, err)
	}

	if len(chunks) == 0 {
		return 0, nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:       fmt.Sprintf("%s#%d", source, i),
			Content:  chunk,
			Metadata: map[string]string{"source": source},
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return 0, fmt.Errorf("adding chunks for %s: %w", source, err)
	}

	s.logger.Debug("indexed document", zap.String("source", source), zap.Int("chunks", len(docs)))
	return len(docs), nil
}

// Retrieve implements Retriever. Results below the similarity threshold are
// dropped rather than padding the prompt with noise.
func (s *Store) Retrieve(ctx context.Context, query string, k int) ([]Snippet, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	snippets := make([]Snippet, 0, len(results))
	for _, r := range results {
		if r.Similarity < s.threshold {
			continue
		}
		snippets = append(snippets, Snippet{
			Source:  r.Metadata["source"],
			Content: r.Content,
			Score:   r.Similarity,
		})
	}
	return snippets, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Chunks returns the stored chunks for one source path, in chunk order.
// It backs the inspect command; retrieval itself goes through Retrieve.
// Chunk IDs are deterministic, so the walk stops at the first gap.
func (s *Store) Chunks(ctx context.Context, source string) ([]Snippet, error) {
	var snippets []Snippet
	for i := 0; ; i++ {
		doc, err := s.collection.GetByID(ctx, fmt.Sprintf("%s#%d", source, i))
		if err != nil {
			return snippets, nil
		}
		snippets = append(snippets, Snippet{Source: source, Content: doc.Content})
	}
}

var _ Retriever = (*Store)(nil)
