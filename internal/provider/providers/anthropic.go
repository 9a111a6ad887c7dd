package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/mikeoller82/agentic-core/internal/provider"
	"github.com/mikeoller82/agentic-core/pkg/core"
)

// AnthropicProvider adapts the Anthropic Messages API to the Provider
// Interface (C1). Grounded on the teacher's anthropic.go adapter, trimmed
// to the core's synchronous ask() shape (no streaming: the core consumes
// a single completion text per call).
type AnthropicProvider struct {
	Base
	client       anthropic.Client
	apiKey       string
	defaultModel string
}

// AnthropicConfig configures a new AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string // falls back to ANTHROPIC_API_KEY
	DefaultModel string // falls back to claude-sonnet-4-20250514
}

// NewAnthropicProvider constructs an Anthropic-family provider.
func NewAnthropicProvider(cfg AnthropicConfig) *AnthropicProvider {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		Base:         NewBase(),
		client:       anthropic.NewClient(option.WithAPIKey(key)),
		apiKey:       key,
		defaultModel: model,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) IsAvailable() bool { return p.apiKey != "" }

func (p *AnthropicProvider) ListModels() []core.ModelDescriptor {
	return []core.ModelDescriptor{
		{ID: "claude-opus-4-20250514", Capabilities: []string{"code", "reasoning", "large-context"}},
		{ID: "claude-sonnet-4-20250514", Capabilities: []string{"code", "reasoning", "fast"}},
		{ID: "claude-haiku-4-20250514", Capabilities: []string{"fast"}},
	}
}

func (p *AnthropicProvider) SystemPrompt(objective string) string {
	if objective == "" {
		return "You are a careful, precise coding assistant."
	}
	return "You are a careful, precise coding assistant. Current objective: " + objective
}

func (p *AnthropicProvider) Ask(ctx context.Context, prompt string, history []provider.Message, actx provider.AskContext) (string, error) {
	if !p.IsAvailable() {
		return "", core.NewTaxonomyError(core.KindProviderUnavailable, "anthropic: no API key", nil)
	}
	model := actx.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := actx.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	messages := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, h := range history {
		if h.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(h.Content)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(h.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	return p.Retry(ctx, isRetryableMessage, func() (string, error) {
		resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: int64(maxTokens),
			System:    []anthropic.TextBlockParam{{Text: p.SystemPrompt("")}},
			Messages:  messages,
		})
		if err != nil {
			return "", fmt.Errorf("anthropic: %w", err)
		}
		var out string
		for _, block := range resp.Content {
			if block.Type == "text" {
				out += block.Text
			}
		}
		return out, nil
	})
}
