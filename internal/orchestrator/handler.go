// Package orchestrator implements the per-turn entry point (C9): deciding
// whether a request continues a live session, warrants the full Loop
// Engine, or can be handled by a single direct Tool Dispatcher call, then
// surfacing the result through the Event Sink.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mikeoller82/agentic-core/internal/loop"
	"github.com/mikeoller82/agentic-core/internal/session"
	"github.com/mikeoller82/agentic-core/internal/tool"
	"github.com/mikeoller82/agentic-core/pkg/core"
)

// Handler is the single per-turn entry point a UI layer calls.
type Handler struct {
	engine     *loop.Engine
	dispatcher *tool.Dispatcher
	memory     *session.Memory
	sink       core.EventSink
}

// New creates a Handler wiring the Loop Engine, Tool Dispatcher, Session
// Memory and Event Sink together.
func New(engine *loop.Engine, dispatcher *tool.Dispatcher, memory *session.Memory, sink core.EventSink) *Handler {
	if sink == nil {
		sink = discardSink{}
	}
	return &Handler{engine: engine, dispatcher: dispatcher, memory: memory, sink: sink}
}

type discardSink struct{}

func (discardSink) Emit(core.Event) {}

// Handle runs one turn for sessionID, per spec 4.9's four-step procedure:
// should_continue check, classification, and dispatch to either the Loop
// Engine or a single direct tool call.
func (h *Handler) Handle(ctx context.Context, sessionID string, req core.Request, toolCtx core.ToolContext) core.RunResult {
	if h.memory.ShouldContinue(sessionID, req.Text) {
		refined := h.refinedObjective(sessionID, req.Text)
		runReq := req
		runReq.Text = refined
		return h.engine.Run(ctx, sessionID, runReq, toolCtx)
	}

	if isAgentic(req.Text) {
		return h.engine.Run(ctx, sessionID, req, toolCtx)
	}

	return h.directDispatch(ctx, sessionID, req, toolCtx)
}

// refinedObjective builds the objective the Loop Engine should pursue
// when continuing a live session: the original context's current
// objective plus the new turn's request, so the engine does not lose
// sight of the task already in progress.
func (h *Handler) refinedObjective(sessionID, request string) string {
	agCtx, ok := h.memory.Get(sessionID)
	if !ok || agCtx.CurrentObjective == "" {
		return request
	}
	if request == "" {
		return agCtx.CurrentObjective
	}
	return fmt.Sprintf("%s | continuing: %s", agCtx.CurrentObjective, request)
}

// directDispatch forwards request straight to the Tool Dispatcher for a
// single-shot handling, bypassing the Loop Engine entirely, and reports
// the outcome through the Event Sink as a single-iteration RunResult.
func (h *Handler) directDispatch(_ context.Context, sessionID string, req core.Request, toolCtx core.ToolContext) core.RunResult {
	h.sink.Emit(core.Event{Type: core.EventTaskStarted, SessionID: sessionID, Text: req.Text})

	tc := toolCtx
	tc.Request = req.Text
	result := h.dispatcher.ProcessRequest(req.Text, &tc, tool.Options{})

	runID := uuid.NewString()

	if result.Success {
		h.sink.Emit(core.Event{Type: core.EventTaskSucceeded, SessionID: sessionID, FinalResult: result.Output})
		final := result.Output
		return core.RunResult{
			RunID:  runID,
			Task:   req.Text,
			Status: core.StatusSuccess,
			Iterations: []core.IterationRecord{{
				Index:    0,
				Thinking: "(direct dispatch: no think step)",
				Plan:     req.Text,
				Result:   result,
				Verdict:  core.EvaluationVerdict{Success: true, Method: "direct"},
			}},
			FinalResult: &final,
		}
	}

	h.sink.Emit(core.Event{Type: core.EventTaskFailed, SessionID: sessionID, Err: fmt.Errorf("%s", result.Error)})
	return core.RunResult{
		RunID:  runID,
		Task:   req.Text,
		Status: core.StatusFailed,
		Iterations: []core.IterationRecord{{
			Index:    0,
			Thinking: "(direct dispatch: no think step)",
			Plan:     req.Text,
			Result:   result,
			Verdict:  core.EvaluationVerdict{Success: false, Method: "direct"},
		}},
	}
}
