// Package provider implements the Provider Interface (C1) and Provider
// Router (C2): a uniform four-method contract over pluggable LLM backends,
// and a capability/performance-scored router with bounded failover.
package provider

import (
	"context"

	"github.com/mikeoller82/agentic-core/pkg/core"
)

// Message is one turn of conversation history passed to Ask.
type Message struct {
	Role    string // "user" | "assistant"
	Content string
}

// AskContext carries routing hints and request shaping for a single Ask
// call: required capabilities, complexity hint, and a model override.
type AskContext struct {
	RequiredCapabilities []string
	Complexity           string // "low" | "" (unset)
	Model                string
	Temperature          float64
	MaxTokens            int
}

// Provider is the uniform contract a concrete LLM backend must satisfy.
// Implementations must be safe for concurrent callers: one in-flight
// request must not block another on the same provider instance.
type Provider interface {
	// Ask sends a prompt with history and returns the completion text.
	// Synchronous from the caller's perspective; may suspend internally on
	// network I/O. Errors are always returned, never thrown.
	Ask(ctx context.Context, prompt string, history []Message, actx AskContext) (string, error)

	// IsAvailable reports whether the provider can currently serve
	// requests (e.g. an API key is configured).
	IsAvailable() bool

	// ListModels returns the models this provider exposes.
	ListModels() []core.ModelDescriptor

	// SystemPrompt returns the identity preamble to use for this
	// provider, optionally shaped by the current objective text.
	SystemPrompt(objective string) string

	// Name returns the provider's registered name.
	Name() string
}
