// Package tool implements the Tool Interface (C3), Tool Registry (C4), and
// Tool Dispatcher (C5): intent-scored routing from a free-form request to
// one or a coordinated set of registered tools, with result coercion and
// failure containment.
package tool

import (
	"github.com/mikeoller82/agentic-core/pkg/core"
)

// Tool is the uniform contract any tool implementation must satisfy.
//
// CanHandle must be pure, fast (sub-millisecond target), and must not
// mutate ctx. Execute may be long-running, may suspend, must respect
// ctx.Cancel, and must return within its caller-provided deadline or
// surface a Timeout in the result.
type Tool interface {
	Name() string
	Description() string
	Category() string
	Capabilities() []string
	// Mutates lists the capability tags this tool's execution mutates
	// (e.g. filesystem state), used by the Dispatcher's parallel-safety
	// partition: two tools are parallel-safe iff neither's Mutates set
	// intersects the other's Capabilities set.
	Mutates() []string
	CanHandle(request string, ctx *core.ToolContext) float64
	Execute(ctx *core.ToolContext) (core.ToolResult, error)
}
