package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/forgeworks/foreman/internal/config"
)

// defaultAnthropicModel is used when a role binding names no model.
const defaultAnthropicModel = anthropic.ModelClaudeSonnet4_20250514

// AnthropicProvider completes prompts through the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  anthropic.Model
	mode   string
}

// NewAnthropicProvider creates a provider from a role binding. The API key
// falls back to ANTHROPIC_API_KEY.
func NewAnthropicProvider(pc config.ProviderConfig) (*AnthropicProvider, error) {
	apiKey := pc.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if pc.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(pc.BaseURL))
	}

	model := anthropic.Model(pc.Model)
	if model == "" {
		model = defaultAnthropicModel
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
		mode:   pc.Mode,
	}, nil
}

// Complete sends one system+user exchange and returns the text reply.
func (p *AnthropicProvider) Complete(ctx context.Context, system, user string) (string, error) {
	if p.mode != "" {
		system = system + "\n\nMode hint: " + p.mode
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 8192,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}
	return result.String(), nil
}
