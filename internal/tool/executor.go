package tool

import (
	"fmt"
	"time"

	"github.com/mikeoller82/agentic-core/pkg/core"
)

// DefaultToolDeadline is the per-tool execution deadline from spec 4.5,
// configurable per call via Options.ToolDeadline.
const DefaultToolDeadline = 30 * time.Second

// executeOne runs a single tool to completion within deadline, converting
// panics into a failed ToolResult rather than propagating them — failure
// containment per spec 4.5: "one tool's panic/exception MUST NOT abort
// sibling tools". Grounded on the teacher's executeWithTimeout pattern
// (defer/recover around the call, goroutine + channel to enforce the
// deadline since Tool.Execute is not itself context-aware in its
// signature).
func executeOne(parent *core.ToolContext, t Tool, deadline time.Duration) core.ToolResult {
	if deadline <= 0 {
		deadline = DefaultToolDeadline
	}

	done := make(chan core.ToolResult, 1)
	cancel := make(chan struct{})
	tc := *parent
	tc.Cancel = cancel

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- core.ToolResult{Success: false, Error: fmt.Sprintf("tool panic: %v", r), ToolNames: []string{t.Name()}}
			}
		}()
		start := time.Now()
		result, err := t.Execute(&tc)
		result.Elapsed = time.Since(start)
		result.ToolNames = append(result.ToolNames, t.Name())
		if err != nil {
			result.Success = false
			if result.Error == "" {
				result.Error = err.Error()
			}
		}
		done <- result
	}()

	select {
	case result := <-done:
		return result
	case <-time.After(deadline):
		close(cancel)
		return core.ToolResult{
			Success:   false,
			Error:     "Timeout",
			ToolNames: []string{t.Name()},
			Elapsed:   deadline,
		}
	case <-parentDone(parent):
		close(cancel)
		return core.ToolResult{
			Success:   false,
			Error:     "Cancelled",
			ToolNames: []string{t.Name()},
		}
	}
}

func parentDone(ctx *core.ToolContext) <-chan struct{} {
	if ctx == nil || ctx.Cancel == nil {
		// Never fires; keeps the select simple when the caller passed no
		// cancellation signal.
		return make(chan struct{})
	}
	return ctx.Cancel
}
