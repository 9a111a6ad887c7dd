package loop

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mikeoller82/agentic-core/internal/provider"
	"github.com/mikeoller82/agentic-core/internal/session"
	"github.com/mikeoller82/agentic-core/internal/tool"
	"github.com/mikeoller82/agentic-core/pkg/core"
)

// scriptedProvider replays a fixed sequence of responses, one per Ask
// call, cycling back to the start once exhausted.
type scriptedProvider struct {
	name      string
	responses []string
	calls     int32
}

func (p *scriptedProvider) Ask(ctx context.Context, prompt string, history []provider.Message, actx provider.AskContext) (string, error) {
	i := int(atomic.AddInt32(&p.calls, 1)) - 1
	return p.responses[i%len(p.responses)], nil
}
func (p *scriptedProvider) IsAvailable() bool { return true }
func (p *scriptedProvider) ListModels() []core.ModelDescriptor {
	return []core.ModelDescriptor{{ID: "scripted-1"}}
}
func (p *scriptedProvider) SystemPrompt(objective string) string { return "" }
func (p *scriptedProvider) Name() string                         { return p.name }

// echoTool always succeeds, recording files_created the caller supplies
// via its CanHandle-independent fixed response.
type echoTool struct {
	name   string
	result core.ToolResult
	score  float64
}

func (t *echoTool) Name() string                    { return t.name }
func (t *echoTool) Description() string              { return "echo tool for tests" }
func (t *echoTool) Category() string                 { return "test" }
func (t *echoTool) Capabilities() []string           { return nil }
func (t *echoTool) Mutates() []string                { return nil }
func (t *echoTool) CanHandle(string, *core.ToolContext) float64 { return t.score }
func (t *echoTool) Execute(ctx *core.ToolContext) (core.ToolResult, error) {
	return t.result, nil
}

func newTestEngine(t *testing.T, p provider.Provider, tools ...tool.Tool) (*Engine, *session.Memory) {
	t.Helper()
	dir, err := os.MkdirTemp("", "agentic-loop-*")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	router := provider.NewRouter(provider.RouterConfig{})
	router.RegisterProvider(p, 10)

	registry := tool.NewRegistry(nil)
	for _, tl := range tools {
		registry.Register(tl)
	}
	dispatcher := tool.NewDispatcher(registry, nil)

	mem, err := session.New(session.Config{ArchiveDir: dir})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}

	engine := New(router, dispatcher, mem, nil, Config{ProviderName: p.Name()})
	return engine, mem
}

func TestRun_HappyPathSingleIteration(t *testing.T) {
	p := &scriptedProvider{name: "p1", responses: []string{
		"THINKING: I should write the file\nPLAN: write hello.txt",
		"SUCCESS: true\nCONFIDENCE: 0.9\nREASONING: file created\nFEEDBACK:",
	}}
	writer := &echoTool{
		name:  "writer",
		score: 0.9,
		result: core.ToolResult{
			Success:      true,
			Output:       "wrote hello.txt",
			FilesCreated: []string{"hello.txt"},
		},
	}
	engine, _ := newTestEngine(t, p, writer)

	result := engine.Run(context.Background(), "s1", core.Request{Text: "create a file hello.txt with content Hi", MaxIterations: -1}, core.ToolContext{})

	if result.Status != core.StatusSuccess {
		t.Fatalf("expected success, got %v", result.Status)
	}
	if len(result.Iterations) != 1 {
		t.Fatalf("expected 1 iteration, got %d", len(result.Iterations))
	}
	if !result.Success() {
		t.Fatal("expected Success() true")
	}
	if result.FinalResult == nil {
		t.Fatal("expected non-nil FinalResult on success")
	}
	created := result.Iterations[0].Result.FilesCreated
	if len(created) != 1 || created[0] != "hello.txt" {
		t.Fatalf("expected files_created = [hello.txt], got %v", created)
	}
	if result.RunID == "" {
		t.Fatal("expected a non-empty RunID")
	}
}

func TestRun_RefinementTwoIterations(t *testing.T) {
	p := &scriptedProvider{name: "p1", responses: []string{
		"THINKING: try absolute path\nPLAN: write output",
		"SUCCESS: false\nCONFIDENCE: 0.4\nREASONING: permission issue\nFEEDBACK: try relative path",
		"THINKING: use relative path this time\nPLAN: write output relative",
		"SUCCESS: true\nCONFIDENCE: 0.9\nREASONING: wrote file\nFEEDBACK:",
	}}
	var seenPrompts []string
	wrapped := &promptCapturingProvider{inner: p, seen: &seenPrompts}

	writer := &echoTool{name: "writer", score: 0.9}
	// First iteration's tool result simulates failure; second succeeds.
	stateful := &statefulTool{base: writer, results: []core.ToolResult{
		{Success: true, Output: "error: permission denied"},
		{Success: true, Output: "wrote file successfully"},
	}}
	engine, _ := newTestEngine(t, wrapped, stateful)

	result := engine.Run(context.Background(), "s2", core.Request{Text: "write output file", MaxIterations: -1}, core.ToolContext{})

	if result.Status != core.StatusSuccess {
		t.Fatalf("expected success, got %v; iterations=%d", result.Status, len(result.Iterations))
	}
	if len(result.Iterations) != 2 {
		t.Fatalf("expected 2 iterations, got %d", len(result.Iterations))
	}

	found := false
	for _, pr := range seenPrompts {
		if strings.Contains(pr, "Previous feedback: try relative path") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected second think prompt to contain the refinement feedback substring")
	}
}

// promptCapturingProvider records every prompt it is asked, delegating to
// inner for the actual response.
type promptCapturingProvider struct {
	inner provider.Provider
	seen  *[]string
}

func (p *promptCapturingProvider) Ask(ctx context.Context, prompt string, history []provider.Message, actx provider.AskContext) (string, error) {
	*p.seen = append(*p.seen, prompt)
	return p.inner.Ask(ctx, prompt, history, actx)
}
func (p *promptCapturingProvider) IsAvailable() bool                         { return p.inner.IsAvailable() }
func (p *promptCapturingProvider) ListModels() []core.ModelDescriptor        { return p.inner.ListModels() }
func (p *promptCapturingProvider) SystemPrompt(objective string) string      { return p.inner.SystemPrompt(objective) }
func (p *promptCapturingProvider) Name() string                              { return p.inner.Name() }

// statefulTool returns successive results from its list on each Execute
// call, holding on the last entry once exhausted.
type statefulTool struct {
	base    *echoTool
	results []core.ToolResult
	calls   int32
}

func (t *statefulTool) Name() string                    { return t.base.name }
func (t *statefulTool) Description() string              { return t.base.Description() }
func (t *statefulTool) Category() string                 { return t.base.Category() }
func (t *statefulTool) Capabilities() []string           { return t.base.Capabilities() }
func (t *statefulTool) Mutates() []string                { return t.base.Mutates() }
func (t *statefulTool) CanHandle(s string, ctx *core.ToolContext) float64 { return t.base.score }
func (t *statefulTool) Execute(ctx *core.ToolContext) (core.ToolResult, error) {
	i := int(atomic.AddInt32(&t.calls, 1)) - 1
	if i >= len(t.results) {
		i = len(t.results) - 1
	}
	return t.results[i], nil
}

func TestRun_CapReached(t *testing.T) {
	p := &scriptedProvider{name: "p1", responses: []string{
		"THINKING: attempt\nPLAN: do the thing",
		"SUCCESS: false\nCONFIDENCE: 0.2\nREASONING: nope\nFEEDBACK: try again",
	}}
	tl := &echoTool{name: "t", score: 0.9, result: core.ToolResult{Success: true, Output: "no progress"}}
	engine, _ := newTestEngine(t, p, tl)

	result := engine.Run(context.Background(), "s3", core.Request{Text: "do something hard", MaxIterations: 3}, core.ToolContext{})

	if result.Status != core.StatusMaxIterations {
		t.Fatalf("expected MaxIterations, got %v", result.Status)
	}
	if len(result.Iterations) != 3 {
		t.Fatalf("expected 3 iterations, got %d", len(result.Iterations))
	}
	if result.FinalResult != nil {
		t.Fatal("expected nil FinalResult on MaxIterations")
	}
	if result.Success() {
		t.Fatal("expected Success() false")
	}
}

func TestRun_ZeroMaxIterationsImmediateTerminal(t *testing.T) {
	p := &scriptedProvider{name: "p1", responses: []string{"unused"}}
	engine, _ := newTestEngine(t, p)

	result := engine.Run(context.Background(), "s4", core.Request{Text: "anything", MaxIterations: 0}, core.ToolContext{})

	if result.Status != core.StatusMaxIterations {
		t.Fatalf("expected immediate MaxIterations, got %v", result.Status)
	}
	if len(result.Iterations) != 0 {
		t.Fatalf("expected empty iteration list, got %d", len(result.Iterations))
	}
}

func TestRun_InvariantsHold(t *testing.T) {
	p := &scriptedProvider{name: "p1", responses: []string{
		"THINKING: go\nPLAN: act",
		"SUCCESS: true\nCONFIDENCE: 0.8\nREASONING: ok\nFEEDBACK:",
	}}
	tl := &echoTool{name: "t", score: 0.9, result: core.ToolResult{Success: true, Output: "done"}}
	engine, _ := newTestEngine(t, p, tl)

	result := engine.Run(context.Background(), "s5", core.Request{Text: "task", MaxIterations: 5}, core.ToolContext{})

	for _, rec := range result.Iterations {
		if rec.Thinking == "" || rec.Plan == "" {
			t.Fatalf("invariant violated: empty thinking/plan in record %+v", rec)
		}
	}
	if len(result.Iterations) > 5 {
		t.Fatalf("iterations exceeded cap: %d", len(result.Iterations))
	}
	if result.Success() != (result.Status == core.StatusSuccess) {
		t.Fatal("Success() must equal Status == StatusSuccess")
	}
	if (result.FinalResult != nil) != result.Success() {
		t.Fatal("FinalResult must be non-nil iff Success()")
	}
}

func TestHeuristicEvaluate_FallbackLexicons(t *testing.T) {
	success, _, _, _, successHits, failureHits := heuristicEvaluate("create a file", "write it", "successfully created the file")
	if !success {
		t.Fatal("expected success lexicon hit to mark success")
	}
	if successHits == 0 || failureHits != 0 {
		t.Fatalf("expected a success hit and no failure hits, got success=%d failure=%d", successHits, failureHits)
	}

	failure, _, _, _, successHits2, failureHits2 := heuristicEvaluate("create a file", "write it", "error: permission denied")
	if failure {
		t.Fatal("expected failure lexicon hit to mark failure")
	}
	if failureHits2 == 0 || successHits2 != 0 {
		t.Fatalf("expected a failure hit and no success hits, got success=%d failure=%d", successHits2, failureHits2)
	}
}

func TestHeuristicEvaluate_TaskShapeFallback(t *testing.T) {
	success, _, reasoning, _, successHits, _ := heuristicEvaluate("please read the config", "open it", "config loaded into memory")
	if !success {
		t.Fatal("expected read/open task-shape match to succeed")
	}
	if successHits != 0 || !strings.Contains(reasoning, "read/open") {
		t.Fatalf("expected the verdict to come from the read/open task shape, got successHits=%d reasoning=%q", successHits, reasoning)
	}
}

func TestParseThinkResponse_MissingMarkersFallsBackToWholeResponse(t *testing.T) {
	thinking, plan := parseThinkResponse("just do the obvious thing")
	if plan != "just do the obvious thing" {
		t.Fatalf("expected plan to be the whole response, got %q", plan)
	}
	if thinking == "" {
		t.Fatal("expected a placeholder thinking string, got empty")
	}
}

func TestRefine_AppendixAfterFiveIterations(t *testing.T) {
	ctx := refine("task", "feedback", 4)
	if strings.Contains(ctx, "consider alternative approaches") {
		t.Fatal("appendix must not appear before iteration 5 completes")
	}
	ctx = refine("task", "feedback", 5)
	if !strings.Contains(ctx, "consider alternative approaches") {
		t.Fatal("appendix must appear once iteration index reaches 5")
	}
}

func TestRun_Cancellation(t *testing.T) {
	p := &scriptedProvider{name: "p1", responses: []string{
		"THINKING: go\nPLAN: act",
	}}
	tl := &echoTool{name: "t", score: 0.9, result: core.ToolResult{Success: true, Output: "done"}}
	engine, _ := newTestEngine(t, p, tl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.Run(ctx, "s6", core.Request{Text: "task", MaxIterations: 5}, core.ToolContext{})
	if result.Status != core.StatusCancelled {
		t.Fatalf("expected Cancelled, got %v", result.Status)
	}
}

