// Package loop implements the Agentic Loop Engine (C7): the
// think/execute/evaluate/refine state machine that drives a task to
// completion across one or more iterations.
package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mikeoller82/agentic-core/internal/provider"
	"github.com/mikeoller82/agentic-core/internal/session"
	"github.com/mikeoller82/agentic-core/internal/tool"
	"github.com/mikeoller82/agentic-core/pkg/core"
)

// Default per-step deadlines, per spec 4.7.
const (
	DefaultThinkDeadline    = 60 * time.Second
	DefaultExecuteDeadline  = 120 * time.Second
	DefaultEvaluateDeadline = 60 * time.Second
	DefaultMaxIterations    = 10
)

// Config configures an Engine.
type Config struct {
	IdentityPreamble string
	ProviderName     string // empty lets the Router pick via capability/priority
	MaxIterations    int    // default DefaultMaxIterations when Run's request omits one
	ThinkDeadline    time.Duration
	ExecuteDeadline  time.Duration
	EvaluateDeadline time.Duration
	DispatchOptions  tool.Options
}

func (c Config) sanitized() Config {
	if c.ThinkDeadline <= 0 {
		c.ThinkDeadline = DefaultThinkDeadline
	}
	if c.ExecuteDeadline <= 0 {
		c.ExecuteDeadline = DefaultExecuteDeadline
	}
	if c.EvaluateDeadline <= 0 {
		c.EvaluateDeadline = DefaultEvaluateDeadline
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	return c
}

// Engine coordinates the Provider Router, Tool Dispatcher, Session Memory
// and Event Sink through one Run per task. Grounded on the teacher's
// AgenticLoop (internal/agent/loop.go) state-machine shape, rewritten
// around this system's think/execute/evaluate/refine steps instead of
// the teacher's stream/tool-call loop.
type Engine struct {
	router     *provider.Router
	dispatcher *tool.Dispatcher
	memory     *session.Memory
	sink       core.EventSink
	cfg        Config
	now        func() time.Time
}

// New creates an Engine. sink may be nil, in which case events are
// discarded.
func New(router *provider.Router, dispatcher *tool.Dispatcher, memory *session.Memory, sink core.EventSink, cfg Config) *Engine {
	if sink == nil {
		sink = nopSink{}
	}
	return &Engine{
		router:     router,
		dispatcher: dispatcher,
		memory:     memory,
		sink:       sink,
		cfg:        cfg.sanitized(),
		now:        time.Now,
	}
}

type nopSink struct{}

func (nopSink) Emit(core.Event) {}

func (e *Engine) emit(ev core.Event) {
	ev.At = e.now()
	e.sink.Emit(ev)
}

// Run executes one task to completion (or cap, failure, cancellation).
// sessionID identifies the AgenticContext to read/update; toolCtx is the
// template ToolContext each iteration's dispatch call is based on (its
// Request field is overwritten per iteration with that iteration's plan).
func (e *Engine) Run(ctx context.Context, sessionID string, req core.Request, toolCtx core.ToolContext) core.RunResult {
	start := e.now()
	runID := uuid.NewString()
	// req.MaxIterations < 0 means "caller did not set one, use the
	// engine's configured default"; req.MaxIterations == 0 is the
	// boundary case spec 8 requires (immediate MaxIterations, empty
	// iteration list); any positive value overrides the default.
	maxIterations := req.MaxIterations
	if maxIterations < 0 {
		maxIterations = e.cfg.MaxIterations
	}

	e.emit(core.Event{Type: core.EventTaskStarted, SessionID: sessionID, Text: req.Text})

	if maxIterations == 0 {
		result := core.RunResult{RunID: runID, Task: req.Text, Status: core.StatusMaxIterations, Duration: e.now().Sub(start)}
		e.emit(core.Event{Type: core.EventTaskMaxIterations, SessionID: sessionID})
		return result
	}

	if _, ok := e.memory.Get(sessionID); !ok {
		if _, err := e.memory.Start(sessionID, req.Text, false); err != nil && err != session.ErrContextAlreadyLive {
			// Start failing (disk error) must not abort the run: memory is
			// an auxiliary write-through, not the source of truth for the
			// in-progress iteration.
			e.emit(core.Event{Type: core.EventTaskFailed, SessionID: sessionID, Err: err})
		}
	}

	runCtx := req.Text
	var records []core.IterationRecord

	for i := 0; i < maxIterations; i++ {
		select {
		case <-ctx.Done():
			return e.cancelled(runID, sessionID, req.Text, records, start)
		default:
		}

		iterStart := e.now()
		e.emit(core.Event{Type: core.EventIterationStarted, SessionID: sessionID, Iteration: i})

		thinking, plan, thinkErr := e.think(ctx, runCtx, i, maxIterations)
		if thinkErr != nil {
			runCtx = refine(runCtx, "the think step timed out; try a simpler, more direct plan", i)
			records = append(records, e.failedIterationRecord(i, thinking, plan, iterStart))
			e.emit(core.Event{Type: core.EventIterationCompleted, SessionID: sessionID, Iteration: i, Duration: e.now().Sub(iterStart)})
			continue
		}
		e.emit(core.Event{Type: core.EventThinking, SessionID: sessionID, Iteration: i, Text: thinking})
		e.emit(core.Event{Type: core.EventPlanning, SessionID: sessionID, Iteration: i, Text: plan})

		select {
		case <-ctx.Done():
			return e.cancelled(runID, sessionID, req.Text, records, start)
		default:
		}

		e.emit(core.Event{Type: core.EventExecutionStarted, SessionID: sessionID, Iteration: i, Text: plan})
		result := e.execute(plan, toolCtx)
		e.emit(core.Event{Type: core.EventExecutionCompleted, SessionID: sessionID, Iteration: i, Result: &result})

		select {
		case <-ctx.Done():
			return e.cancelled(runID, sessionID, req.Text, records, start)
		default:
		}

		verdict := e.evaluate(ctx, req.Text, plan, result)
		e.emit(core.Event{Type: core.EventEvaluationCompleted, SessionID: sessionID, Iteration: i, Verdict: &verdict})

		record := core.IterationRecord{
			Index:      i,
			Thinking:   thinking,
			Plan:       plan,
			Result:     result,
			Verdict:    verdict,
			Duration:   e.now().Sub(iterStart),
			OccurredAt: iterStart,
		}
		records = append(records, record)

		e.updateSession(sessionID, i, plan, result, verdict)

		e.emit(core.Event{Type: core.EventIterationCompleted, SessionID: sessionID, Iteration: i, Duration: record.Duration})

		if verdict.Success {
			final := coalesce(result.Output, verdict.Reasoning)
			_ = e.memory.Complete(sessionID, final)
			e.emit(core.Event{Type: core.EventTaskSucceeded, SessionID: sessionID, FinalResult: final})
			return core.RunResult{
				RunID:       runID,
				Task:        req.Text,
				Status:      core.StatusSuccess,
				Iterations:  records,
				Duration:    e.now().Sub(start),
				FinalResult: &final,
			}
		}

		runCtx = refine(runCtx, verdict.Feedback, i)
	}

	e.emit(core.Event{Type: core.EventTaskMaxIterations, SessionID: sessionID})
	return core.RunResult{
		RunID:      runID,
		Task:       req.Text,
		Status:     core.StatusMaxIterations,
		Iterations: records,
		Duration:   e.now().Sub(start),
	}
}

func (e *Engine) failedIterationRecord(i int, thinking, plan string, start time.Time) core.IterationRecord {
	if thinking == "" {
		thinking = "(think step did not complete in time)"
	}
	if plan == "" {
		plan = "(no plan produced before the step deadline)"
	}
	return core.IterationRecord{
		Index:    i,
		Thinking: thinking,
		Plan:     plan,
		Result:   core.ToolResult{Success: false, Error: "think step timed out"},
		Verdict:  core.EvaluationVerdict{Success: false, Method: "timeout"},
		Duration: e.now().Sub(start),
	}
}

func (e *Engine) cancelled(runID, sessionID, task string, records []core.IterationRecord, start time.Time) core.RunResult {
	e.emit(core.Event{Type: core.EventTaskCancelled, SessionID: sessionID})
	return core.RunResult{
		RunID:      runID,
		Task:       task,
		Status:     core.StatusCancelled,
		Iterations: records,
		Duration:   e.now().Sub(start),
	}
}

func (e *Engine) updateSession(sessionID string, iteration int, plan string, result core.ToolResult, verdict core.EvaluationVerdict) {
	_ = e.memory.Update(sessionID, session.UpdateParams{
		Iteration:             iteration + 1,
		LastResult:            result.Output,
		LastEvaluation:        verdict.Reasoning,
		Succeeded:             verdict.Success,
		Plan:                  plan,
		FilesCreated:          result.FilesCreated,
		FilesModified:         result.FilesModified,
		ToolsUsed:             result.ToolNames,
		SuccessIndicatorDelta: verdict.SuccessHits,
		FailureIndicatorDelta: verdict.FailureHits,
	})
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// think runs one Think step within the engine's think deadline.
func (e *Engine) think(ctx context.Context, runCtx string, iteration, maxIterations int) (thinking, plan string, err error) {
	stepCtx, cancel := context.WithTimeout(ctx, e.cfg.ThinkDeadline)
	defer cancel()

	prompt := buildThinkPrompt(e.cfg.IdentityPreamble, runCtx, iteration, maxIterations)
	response, askErr := e.ask(stepCtx, prompt, nil)
	if askErr != nil {
		return "", "", fmt.Errorf("think step: %w", askErr)
	}
	thinking, plan = parseThinkResponse(response)
	return thinking, plan, nil
}

// execute runs one Execute step via the Tool Dispatcher. The dispatcher's
// own per-tool deadline (e.cfg.DispatchOptions.ToolDeadline, or its
// internal default) bounds the call; the engine does not separately wrap
// it in a context timeout since Tool.Execute does not take a context.
func (e *Engine) execute(plan string, toolCtx core.ToolContext) core.ToolResult {
	tc := toolCtx
	tc.Request = plan
	return e.dispatcher.ProcessRequest(plan, &tc, e.cfg.DispatchOptions)
}

// evaluate runs one Evaluate step, falling back to the heuristic
// evaluator whenever the LLM's response doesn't parse cleanly or the
// step times out.
func (e *Engine) evaluate(ctx context.Context, task, plan string, result core.ToolResult) core.EvaluationVerdict {
	stepCtx, cancel := context.WithTimeout(ctx, e.cfg.EvaluateDeadline)
	defer cancel()

	resultText := result.Output
	if resultText == "" && result.Error != "" {
		resultText = "error: " + result.Error
	}

	prompt := buildEvaluatePrompt(task, plan, resultText)
	response, err := e.ask(stepCtx, prompt, nil)
	if err == nil {
		if fields := parseEvaluateResponse(response); fields.ok {
			return core.EvaluationVerdict{
				Success:    fields.success,
				Confidence: fields.confidence,
				Reasoning:  fields.reasoning,
				Feedback:   fields.feedback,
				Method:     "llm",
			}
		}
	}

	success, confidence, reasoning, feedback, successHits, failureHits := heuristicEvaluate(task, plan, resultText)
	return core.EvaluationVerdict{
		Success:     success,
		Confidence:  confidence,
		Reasoning:   reasoning,
		Feedback:    feedback,
		Method:      "heuristic",
		SuccessHits: successHits,
		FailureHits: failureHits,
	}
}

func (e *Engine) ask(ctx context.Context, prompt string, history []provider.Message) (string, error) {
	name := e.cfg.ProviderName
	if name == "" {
		selected := e.router.Select(provider.AskContext{})
		if selected == nil {
			return "", fmt.Errorf("loop: no provider available")
		}
		name = selected.Name()
	}
	return e.router.AskVia(ctx, name, prompt, history, provider.AskContext{})
}
