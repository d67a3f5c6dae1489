package agent

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/forgeworks/foreman/internal/config"
)

// OpenAIProvider completes prompts through any OpenAI-compatible chat
// completions API. With a base URL pointing at an Ollama host this serves
// local models; the caller cannot tell the difference.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	mode   string
}

// NewOpenAIProvider creates a provider from a role binding. The API key
// falls back to OPENAI_API_KEY; local endpoints usually accept any value.
func NewOpenAIProvider(pc config.ProviderConfig) (*OpenAIProvider, error) {
	apiKey := pc.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" && pc.BaseURL == "" {
		return nil, fmt.Errorf("openai API key is not set")
	}
	if apiKey == "" {
		// Ollama and other local servers ignore the key but the client requires one.
		apiKey = "unused"
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if pc.BaseURL != "" {
		clientCfg.BaseURL = pc.BaseURL
	}

	model := pc.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		mode:   pc.Mode,
	}, nil
}

// Complete sends one system+user exchange and returns the text reply.
func (p *OpenAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	if p.mode != "" {
		system = system + "\n\nMode hint: " + p.mode
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
