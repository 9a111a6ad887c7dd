package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/mikeoller82/agentic-core/internal/provider"
	"github.com/mikeoller82/agentic-core/pkg/core"
	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider adapts the OpenAI chat-completions API to the Provider
// Interface (C1), grounded on the teacher's providers/openai.go (message
// conversion and retry-on-retryable-status pattern), trimmed from
// streaming to the core's synchronous ask() shape.
type OpenAIProvider struct {
	Base
	client       *openai.Client
	apiKey       string
	defaultModel string
}

// OpenAIConfig configures a new OpenAIProvider.
type OpenAIConfig struct {
	APIKey       string // falls back to OPENAI_API_KEY
	DefaultModel string // falls back to gpt-4o
}

// NewOpenAIProvider constructs an OpenAI-family provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIProvider{
		Base:         NewBase(),
		client:       openai.NewClient(key),
		apiKey:       key,
		defaultModel: model,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) IsAvailable() bool { return p.apiKey != "" }

func (p *OpenAIProvider) ListModels() []core.ModelDescriptor {
	return []core.ModelDescriptor{
		{ID: "gpt-4o", Capabilities: []string{"code", "reasoning", "large-context"}},
		{ID: "gpt-4-turbo", Capabilities: []string{"code", "reasoning"}},
		{ID: "gpt-3.5-turbo", Capabilities: []string{"fast"}},
	}
}

func (p *OpenAIProvider) SystemPrompt(objective string) string {
	if objective == "" {
		return "You are a careful, precise coding assistant."
	}
	return "You are a careful, precise coding assistant. Current objective: " + objective
}

func (p *OpenAIProvider) Ask(ctx context.Context, prompt string, history []provider.Message, actx provider.AskContext) (string, error) {
	if !p.IsAvailable() {
		return "", core.NewTaxonomyError(core.KindProviderUnavailable, "openai: no API key", nil)
	}
	model := actx.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := actx.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	temp := float32(actx.Temperature)
	if temp <= 0 {
		temp = 0.5
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: p.SystemPrompt(""),
	})
	for _, h := range history {
		role := openai.ChatMessageRoleUser
		if h.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: h.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	return p.Retry(ctx, isRetryableMessage, func() (string, error) {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       model,
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: temp,
		})
		if err != nil {
			return "", fmt.Errorf("openai: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", core.NewTaxonomyError(core.KindProviderMalformed, "openai: empty choices", nil)
		}
		return resp.Choices[0].Message.Content, nil
	})
}
