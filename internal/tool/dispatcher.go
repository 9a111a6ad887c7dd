package tool

import (
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/mikeoller82/agentic-core/pkg/core"
	"golang.org/x/sync/errgroup"
)

// ScoreThreshold is the minimum CanHandle confidence for a tool to be
// considered a candidate. Inclusive lower bound per spec 8's boundary
// test: a tool scoring exactly 0.3 IS selected.
const ScoreThreshold = 0.3

// TieBreakMargin is the minimum score gap between the top two candidates
// below which the Dispatcher switches from single-tool to coordinated
// execution.
const TieBreakMargin = 0.25

// DefaultMaxTools is process_request's default max_tools parameter.
const DefaultMaxTools = 3

// Dispatcher is the single entry point for "given a request, run
// something useful and hand me back a result" (C5).
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

type scored struct {
	score float64
	tool  Tool
}

// Options configures a single ProcessRequest call.
type Options struct {
	MaxTools     int           // default DefaultMaxTools
	Coordination bool          // enables the coordinated path; the zero value (false) always runs only the top-scored tool
	ToolDeadline time.Duration // 0 uses DefaultToolDeadline
}

// ProcessRequest scores every registered tool against request, then runs
// either a single tool or a coordinated set, per spec 4.5.
func (d *Dispatcher) ProcessRequest(request string, ctx *core.ToolContext, opts Options) core.ToolResult {
	if opts.MaxTools <= 0 {
		opts.MaxTools = DefaultMaxTools
	}

	candidates := d.scoreCandidates(request, ctx)
	if len(candidates) == 0 {
		return core.ToolResult{Success: false, Error: "no tool matched"}
	}

	if !opts.Coordination || len(candidates) == 1 || topTwoDiffer(candidates) {
		t := pickSingle(candidates)
		return d.runSingle(t, ctx, opts)
	}

	return d.runCoordinated(candidates, opts.MaxTools, ctx, opts)
}

func (d *Dispatcher) scoreCandidates(request string, ctx *core.ToolContext) []scored {
	var out []scored
	for _, t := range d.registry.All() {
		s := t.CanHandle(request, ctx)
		if s >= ScoreThreshold {
			out = append(out, scored{score: s, tool: t})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return lessByTieBreak(out[i].tool, out[j].tool)
	})
	return out
}

// lessByTieBreak implements the deterministic tie-break: shorter
// description length first, then lexicographic name.
func lessByTieBreak(a, b Tool) bool {
	la, lb := len(a.Description()), len(b.Description())
	if la != lb {
		return la < lb
	}
	return a.Name() < b.Name()
}

func topTwoDiffer(candidates []scored) bool {
	if len(candidates) < 2 {
		return true
	}
	return candidates[0].score-candidates[1].score >= TieBreakMargin
}

func pickSingle(candidates []scored) Tool {
	return candidates[0].tool
}

func (d *Dispatcher) runSingle(t Tool, ctx *core.ToolContext, opts Options) core.ToolResult {
	deadline := defaultDeadline(opts.ToolDeadline)
	result := executeOne(ctx, t, deadline)
	result.Output = coerceMessage(result.Output, result.Data)
	return result
}

// runCoordinated selects the top max_tools candidates, partitions them
// into parallel-safe and serial groups by mutates declarations, runs the
// parallel group concurrently (bounded fan-out via errgroup; every
// goroutine returns nil and executeOne turns panics and errors into failed
// ToolResults, so no tool's failure cancels its siblings), then the serial group in
// descending-score order, threading each serial tool's structured data
// into the next one's shared state.
func (d *Dispatcher) runCoordinated(candidates []scored, maxTools int, ctx *core.ToolContext, opts Options) core.ToolResult {
	if maxTools > len(candidates) {
		maxTools = len(candidates)
	}
	top := candidates[:maxTools]

	parallel, serial := partitionByMutates(top)

	results := make(map[string]core.ToolResult, len(top))
	order := make([]string, 0, len(top))

	if len(parallel) > 0 {
		bound := maxInFlight(len(parallel))
		group := &errgroup.Group{}
		group.SetLimit(bound)
		resultsCh := make([]core.ToolResult, len(parallel))
		for i, sc := range parallel {
			i, sc := i, sc
			group.Go(func() error {
				deadline := defaultDeadline(opts.ToolDeadline)
				resultsCh[i] = executeOne(ctx, sc.tool, deadline)
				return nil
			})
		}
		_ = group.Wait()
		for i, sc := range parallel {
			results[sc.tool.Name()] = resultsCh[i]
			order = append(order, sc.tool.Name())
		}
	}

	for _, sc := range serial {
		deadline := defaultDeadline(opts.ToolDeadline)
		res := executeOne(ctx, sc.tool, deadline)
		results[sc.tool.Name()] = res
		order = append(order, sc.tool.Name())

		// Feed this tool's structured data into the next tool's shared
		// state under this tool's name, per spec 4.5.
		if ctx.Shared == nil {
			ctx.Shared = map[string]any{}
		}
		ctx.Shared[sc.tool.Name()] = res.Data
	}

	return mergeCoordinated(order, results)
}

func partitionByMutates(top []scored) (parallel, serial []scored) {
	for i, sc := range top {
		safe := true
		for j, other := range top {
			if i == j {
				continue
			}
			if intersects(sc.tool.Mutates(), other.tool.Capabilities()) ||
				intersects(other.tool.Mutates(), sc.tool.Capabilities()) {
				safe = false
				break
			}
		}
		if safe {
			parallel = append(parallel, sc)
		} else {
			serial = append(serial, sc)
		}
	}
	return parallel, serial
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, x := range a {
		set[x] = struct{}{}
	}
	for _, y := range b {
		if _, ok := set[y]; ok {
			return true
		}
	}
	return false
}

func mergeCoordinated(order []string, results map[string]core.ToolResult) core.ToolResult {
	success := true
	var outputs []string
	var filesCreated, filesModified, toolNames []string
	data := map[string]any{}
	perTool := map[string]core.ToolResult{}

	for _, name := range order {
		res := results[name]
		perTool[name] = res
		if !res.Success {
			success = false
		}
		msg := coerceMessage(res.Output, res.Data)
		outputs = append(outputs, msg)
		filesCreated = append(filesCreated, res.FilesCreated...)
		filesModified = append(filesModified, res.FilesModified...)
		toolNames = append(toolNames, name)
	}
	data["coordination_result"] = map[string]any{"tool_results": perTool}

	combined := core.ToolResult{
		Success:       success,
		Output:        strings.Join(outputs, " "),
		Data:          data,
		FilesCreated:  dedupe(filesCreated),
		FilesModified: dedupe(filesModified),
		ToolNames:     toolNames,
	}
	if !success {
		combined.Error = "one or more tools in the coordinated run failed"
	}
	return combined
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func maxInFlight(requested int) int {
	bound := runtime.NumCPU() * 2
	if requested < bound {
		return requested
	}
	return bound
}

func defaultDeadline(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultToolDeadline
	}
	return d
}
