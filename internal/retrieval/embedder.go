package retrieval

import (
	"context"
	"fmt"
	"os"

	"github.com/philippgille/chromem-go"
	openai "github.com/sashabaranov/go-openai"
)

// Embedder produces embeddings through an OpenAI-compatible endpoint.
// Pointing base URL at an Ollama host covers fully local deployments.
type Embedder struct {
	client *openai.Client
	model  string
}

// NewEmbedder creates an embedder for the given endpoint and model.
func NewEmbedder(baseURL, apiKey, model string) *Embedder {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
		if apiKey == "" {
			// Local endpoints do not check credentials but the client
			// requires a non-empty token.
			cfg = openai.DefaultConfig("unused")
			cfg.BaseURL = baseURL
		}
	}
	return &Embedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response carried no vectors")
	}
	return resp.Data[0].Embedding, nil
}

// Func adapts the embedder to the vector store's callback shape.
func (e *Embedder) Func() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return e.Embed(ctx, text)
	}
}
