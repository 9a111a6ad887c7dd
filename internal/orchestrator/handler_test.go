package orchestrator

import (
	"context"
	"os"
	"testing"

	"github.com/mikeoller82/agentic-core/internal/loop"
	"github.com/mikeoller82/agentic-core/internal/provider"
	"github.com/mikeoller82/agentic-core/internal/session"
	"github.com/mikeoller82/agentic-core/internal/tool"
	"github.com/mikeoller82/agentic-core/pkg/core"
)

type fakeProvider struct {
	name      string
	responses []string
	i         int
}

func (p *fakeProvider) Ask(ctx context.Context, prompt string, history []provider.Message, actx provider.AskContext) (string, error) {
	r := p.responses[p.i%len(p.responses)]
	p.i++
	return r, nil
}
func (p *fakeProvider) IsAvailable() bool { return true }
func (p *fakeProvider) ListModels() []core.ModelDescriptor {
	return []core.ModelDescriptor{{ID: "fake-1"}}
}
func (p *fakeProvider) SystemPrompt(string) string { return "" }
func (p *fakeProvider) Name() string               { return p.name }

type fakeTool struct {
	name   string
	result core.ToolResult
	score  float64
}

func (t *fakeTool) Name() string                                         { return t.name }
func (t *fakeTool) Description() string                                  { return "fake tool for orchestrator tests" }
func (t *fakeTool) Category() string                                     { return "test" }
func (t *fakeTool) Capabilities() []string                               { return nil }
func (t *fakeTool) Mutates() []string                                    { return nil }
func (t *fakeTool) CanHandle(string, *core.ToolContext) float64          { return t.score }
func (t *fakeTool) Execute(ctx *core.ToolContext) (core.ToolResult, error) { return t.result, nil }

func newTestHandler(t *testing.T, p provider.Provider, tl tool.Tool) (*Handler, *session.Memory) {
	t.Helper()
	dir, err := os.MkdirTemp("", "agentic-orchestrator-*")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	router := provider.NewRouter(provider.RouterConfig{})
	router.RegisterProvider(p, 10)

	registry := tool.NewRegistry(nil)
	registry.Register(tl)
	dispatcher := tool.NewDispatcher(registry, nil)

	mem, err := session.New(session.Config{ArchiveDir: dir})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}

	engine := loop.New(router, dispatcher, mem, nil, loop.Config{ProviderName: p.Name()})
	return New(engine, dispatcher, mem, nil), mem
}

func TestHandle_DirectLookupBypassesEngine(t *testing.T) {
	p := &fakeProvider{name: "p1", responses: []string{"unused"}}
	tl := &fakeTool{name: "lister", score: 0.9, result: core.ToolResult{Success: true, Output: "a.go\nb.go"}}
	h, _ := newTestHandler(t, p, tl)

	result := h.Handle(context.Background(), "s1", core.Request{Text: "list files", MaxIterations: -1}, core.ToolContext{})

	if result.Status != core.StatusSuccess {
		t.Fatalf("expected success, got %v", result.Status)
	}
	if len(result.Iterations) != 1 || result.Iterations[0].Verdict.Method != "direct" {
		t.Fatalf("expected one direct-dispatch iteration, got %+v", result.Iterations)
	}
}

func TestHandle_AgenticRequestUsesLoopEngine(t *testing.T) {
	p := &fakeProvider{name: "p1", responses: []string{
		"THINKING: investigate\nPLAN: read every file",
		"SUCCESS: true\nCONFIDENCE: 0.9\nREASONING: done\nFEEDBACK:",
	}}
	tl := &fakeTool{name: "reader", score: 0.9, result: core.ToolResult{Success: true, Output: "read 12 files"}}
	h, _ := newTestHandler(t, p, tl)

	result := h.Handle(context.Background(), "s2", core.Request{
		Text:          "please analyze every file in this repository and summarize what each one does",
		MaxIterations: -1,
	}, core.ToolContext{})

	if result.Status != core.StatusSuccess {
		t.Fatalf("expected success via loop engine, got %v", result.Status)
	}
	if result.Iterations[0].Verdict.Method == "direct" {
		t.Fatal("expected this request to go through the loop engine, not direct dispatch")
	}
}

func TestHandle_ShouldContinueUsesRefinedObjective(t *testing.T) {
	p := &fakeProvider{name: "p1", responses: []string{
		"THINKING: keep going\nPLAN: finish the remaining step",
		"SUCCESS: true\nCONFIDENCE: 0.9\nREASONING: done\nFEEDBACK:",
	}}
	tl := &fakeTool{name: "worker", score: 0.9, result: core.ToolResult{Success: true, Output: "finished"}}
	h, mem := newTestHandler(t, p, tl)

	ctx, err := mem.Start("s3", "refactor the auth module", false)
	if err != nil {
		t.Fatalf("session.Start: %v", err)
	}
	ctx.PendingSteps = []string{"update the token validator"}

	result := h.Handle(context.Background(), "s3", core.Request{Text: "now do it", MaxIterations: -1}, core.ToolContext{})

	if result.Status != core.StatusSuccess {
		t.Fatalf("expected success, got %v", result.Status)
	}
	if result.Task != "refactor the auth module | continuing: now do it" {
		t.Fatalf("expected refined objective to combine context + request, got %q", result.Task)
	}
}
