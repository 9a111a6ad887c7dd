package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/mikeoller82/agentic-core/internal/provider"
	"github.com/mikeoller82/agentic-core/pkg/core"
	"google.golang.org/genai"
)

// GeminiProvider adapts Google's Gemini API to the Provider Interface
// (C1), grounded on the teacher's providers/google.go adapter (retry
// delay/backoff shape, model defaulting), trimmed from its streaming
// iterator design to the core's synchronous ask() shape. This is the
// third provider family exercising the Router's multi-provider
// scoring/failover logic alongside Anthropic and OpenAI.
type GeminiProvider struct {
	Base
	client       *genai.Client
	apiKey       string
	defaultModel string
}

// GeminiConfig configures a new GeminiProvider.
type GeminiConfig struct {
	APIKey       string // falls back to GOOGLE_API_KEY
	DefaultModel string // falls back to gemini-2.0-flash
}

// NewGeminiProvider constructs a Gemini-family provider. The client is
// created lazily-safe: if APIKey is empty, IsAvailable reports false and
// Ask short-circuits before touching the client.
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	p := &GeminiProvider{Base: NewBase(), apiKey: key, defaultModel: model}
	if key != "" {
		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err == nil {
			p.client = client
		}
	}
	return p
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) IsAvailable() bool { return p.apiKey != "" && p.client != nil }

func (p *GeminiProvider) ListModels() []core.ModelDescriptor {
	return []core.ModelDescriptor{
		{ID: "gemini-2.0-flash", Capabilities: []string{"fast", "code"}},
		{ID: "gemini-2.0-pro", Capabilities: []string{"reasoning", "large-context", "code"}},
	}
}

func (p *GeminiProvider) SystemPrompt(objective string) string {
	if objective == "" {
		return "You are a careful, precise coding assistant."
	}
	return "You are a careful, precise coding assistant. Current objective: " + objective
}

func (p *GeminiProvider) Ask(ctx context.Context, prompt string, history []provider.Message, actx provider.AskContext) (string, error) {
	if !p.IsAvailable() {
		return "", core.NewTaxonomyError(core.KindProviderUnavailable, "gemini: no API key", nil)
	}
	model := actx.Model
	if model == "" {
		model = p.defaultModel
	}

	var transcript string
	for _, h := range history {
		transcript += h.Role + ": " + h.Content + "\n"
	}
	full := p.SystemPrompt("") + "\n\n" + transcript + "user: " + prompt

	return p.Retry(ctx, isRetryableMessage, func() (string, error) {
		resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(full), nil)
		if err != nil {
			return "", fmt.Errorf("gemini: %w", err)
		}
		text := resp.Text()
		if text == "" {
			return "", core.NewTaxonomyError(core.KindProviderMalformed, "gemini: empty response", nil)
		}
		return text, nil
	})
}
