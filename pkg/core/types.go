// Package core holds the data-model types shared across the agentic
// execution core: requests, iteration records, run results, the durable
// session context, tool results, and provider metadata.
package core

import (
	"context"
	"time"
)

// Request is the immutable per-turn input created by the Orchestrator and
// discarded once the turn completes.
type Request struct {
	Text string
	// MaxIterations: negative means "use the engine's configured
	// default", 0 is the explicit zero-iteration boundary case (spec 8),
	// positive overrides the default for this run.
	MaxIterations  int
	Verbose        bool
	ToolsAllowlist []string
}

// IterationRecord is one append-only entry in a Run's history. Once
// appended it is never mutated.
type IterationRecord struct {
	Index      int
	Thinking   string
	Plan       string
	Result     ToolResult
	Verdict    EvaluationVerdict
	Duration   time.Duration
	OccurredAt time.Time
}

// RunStatus is the terminal classification of a completed agentic run.
type RunStatus string

const (
	StatusSuccess      RunStatus = "success"
	StatusMaxIterations RunStatus = "max_iterations"
	StatusFailed       RunStatus = "failed"
	StatusCancelled    RunStatus = "cancelled"
)

// RunResult is the outcome of one complete agentic invocation, returned by
// the Loop Engine to the Orchestrator.
type RunResult struct {
	RunID       string // unique per Run call, for correlating logs/events/archives
	Task        string
	Status      RunStatus
	Iterations  []IterationRecord
	Duration    time.Duration
	FinalResult *string // present iff Status == StatusSuccess
}

// Success reports whether the run ended successfully. RunResult.Success()
// iff Status == StatusSuccess, and FinalResult is non-nil iff Success().
func (r RunResult) Success() bool { return r.Status == StatusSuccess }

// EvaluationVerdict is the structured outcome of an Evaluate step.
type EvaluationVerdict struct {
	Success    bool
	Confidence float64
	Reasoning  string
	Feedback   string
	// Method records whether the verdict came from the LLM's own
	// SUCCESS:/CONFIDENCE:/REASONING:/FEEDBACK: fields or the heuristic
	// fallback evaluator, for observability only.
	Method string
	// SuccessHits/FailureHits are the heuristic evaluator's raw lexicon hit
	// counts for this step; zero when Method == "llm". Session Memory
	// accumulates these into AgenticContext.SuccessIndicators/
	// FailureIndicators.
	SuccessHits int
	FailureHits int
}

// AgenticContext is the durable per-session state that lets the system
// "remember" across turns. All mutation goes through Session Memory's API;
// nothing else may write to it directly.
type AgenticContext struct {
	SessionID        string
	OriginalTask     string
	CurrentObjective string
	CompletedSteps   []string
	PendingSteps     []string
	IterationCount   int
	LastResult       string
	LastEvaluation   string
	ContextKeywords  map[string]struct{}
	FilesCreated     map[string]struct{}
	FilesModified    map[string]struct{}
	ToolsUsed        map[string]int // multiset: tool name -> invocation count

	// SuccessIndicators/FailureIndicators are additive counters populated
	// by the heuristic evaluator each time it runs during this session's
	// life; pure telemetry, does not affect the continuity invariants.
	SuccessIndicators int
	FailureIndicators int

	StartedAt    time.Time
	LastActivity time.Time
	Paused       bool
	Completed    bool
}

// NewAgenticContext creates a fresh live context for a session at the
// given task and time.
func NewAgenticContext(sessionID, task string, now time.Time) *AgenticContext {
	return &AgenticContext{
		SessionID:        sessionID,
		OriginalTask:     task,
		CurrentObjective: task,
		ContextKeywords:  map[string]struct{}{},
		FilesCreated:     map[string]struct{}{},
		FilesModified:    map[string]struct{}{},
		ToolsUsed:        map[string]int{},
		StartedAt:        now,
		LastActivity:     now,
	}
}

// ToolResult is the uniform return value of any tool execution. It is
// never partially populated: Success iff Error == "".
type ToolResult struct {
	Success       bool
	Output        string
	Data          map[string]any
	Error         string
	FilesCreated  []string
	FilesModified []string
	ToolNames     []string // names of tools invoked, for coordinated results
	Elapsed       time.Duration
}

// ToolContext is the shared value passed into every tool execution.
// Created fresh per turn; never shared across turns.
type ToolContext struct {
	Request  string
	WorkDir  string
	Registry ToolRegistryHandle
	Provider ProviderHandle
	MCP      MCPHandle
	Shared   map[string]any
	Cancel   <-chan struct{}
}

// ToolRegistryHandle, ProviderHandle and MCPHandle are the narrow,
// read-only surfaces a tool or coordinator may use; concrete
// implementations live in internal/tool and internal/provider. Defined
// here (rather than imported) to avoid an import cycle between pkg/core
// and the packages that depend on it.
type ToolRegistryHandle interface {
	Get(name string) (any, bool)
}

type ProviderHandle interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

type MCPHandle interface {
	ListServers() []string
	Query(server, text string) (string, error)
}

// ProviderMetrics are per-provider running counters, mutated under a lock
// owned exclusively by the Provider Router.
type ProviderMetrics struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	TotalResponseTime  time.Duration
	LastRequestAt      time.Time
	UptimeSince        time.Time
}

// AvgResponseTime returns the moving-average response time, or 0 if no
// requests have completed yet.
func (m ProviderMetrics) AvgResponseTime() time.Duration {
	if m.TotalRequests == 0 {
		return 0
	}
	return m.TotalResponseTime / time.Duration(m.TotalRequests)
}

// SuccessRate returns successful/total in [0,1], or 0 if no requests yet.
func (m ProviderMetrics) SuccessRate() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.SuccessfulRequests) / float64(m.TotalRequests)
}

// ErrorRate returns failed/total in [0,1], or 0 if no requests yet.
func (m ProviderMetrics) ErrorRate() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.FailedRequests) / float64(m.TotalRequests)
}

// ProviderDescriptor is static metadata about a registered provider.
type ProviderDescriptor struct {
	Name         string
	Priority     int
	Models       []ModelDescriptor
	Enabled      bool
	HasAPIKey    bool
}

// ModelDescriptor describes one model a provider exposes, with capability
// tags such as "code", "reasoning", "fast", "large-context".
type ModelDescriptor struct {
	ID           string
	Capabilities []string
}

// HasCapability reports whether the model advertises the given tag.
func (m ModelDescriptor) HasCapability(tag string) bool {
	for _, c := range m.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}
