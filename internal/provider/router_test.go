package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikeoller82/agentic-core/pkg/core"
)

// stubProvider is a minimal hand-written Provider fake, in the teacher's
// own no-mocking-framework test idiom.
type stubProvider struct {
	name      string
	available bool
	models    []core.ModelDescriptor
	response  string
	err       error
	calls     int
}

func (p *stubProvider) Ask(ctx context.Context, prompt string, history []Message, actx AskContext) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}
func (p *stubProvider) IsAvailable() bool                   { return p.available }
func (p *stubProvider) ListModels() []core.ModelDescriptor  { return p.models }
func (p *stubProvider) SystemPrompt(objective string) string { return "" }
func (p *stubProvider) Name() string                        { return p.name }

func TestSelect_CapabilityMatchWinsOverPriority(t *testing.T) {
	r := NewRouter(RouterConfig{})
	low := &stubProvider{name: "low", available: true, models: []core.ModelDescriptor{{ID: "m1", Capabilities: []string{"code"}}}}
	high := &stubProvider{name: "high", available: true, models: []core.ModelDescriptor{{ID: "m2"}}}
	r.RegisterProvider(high, 10)
	r.RegisterProvider(low, 1)

	got := r.Select(AskContext{RequiredCapabilities: []string{"code"}})
	if got == nil || got.Name() != "low" {
		t.Fatalf("expected capability match to win despite lower priority, got %v", got)
	}
}

func TestSelect_PriorityFallbackWhenNoCapabilityMatch(t *testing.T) {
	r := NewRouter(RouterConfig{})
	a := &stubProvider{name: "a", available: true}
	b := &stubProvider{name: "b", available: true}
	r.RegisterProvider(a, 1)
	r.RegisterProvider(b, 5)

	got := r.Select(AskContext{})
	if got == nil || got.Name() != "b" {
		t.Fatalf("expected highest-priority provider, got %v", got)
	}
}

func TestSelect_SkipsUnavailableProviders(t *testing.T) {
	r := NewRouter(RouterConfig{})
	dead := &stubProvider{name: "dead", available: false}
	alive := &stubProvider{name: "alive", available: true}
	r.RegisterProvider(dead, 10)
	r.RegisterProvider(alive, 1)

	got := r.Select(AskContext{})
	if got == nil || got.Name() != "alive" {
		t.Fatalf("expected the only available provider, got %v", got)
	}
}

func TestSelect_NoneAvailableReturnsNil(t *testing.T) {
	r := NewRouter(RouterConfig{})
	r.RegisterProvider(&stubProvider{name: "dead", available: false}, 1)
	if got := r.Select(AskContext{}); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestAskVia_ExactlyOneFailoverAttempt(t *testing.T) {
	r := NewRouter(RouterConfig{})
	failing := &stubProvider{name: "primary", available: true, err: errors.New("connection refused")}
	backup := &stubProvider{name: "backup", available: true, response: "ok from backup"}
	r.RegisterProvider(failing, 10)
	r.RegisterProvider(backup, 5)

	text, err := r.AskVia(context.Background(), "primary", "hello", nil, AskContext{})
	if err != nil {
		t.Fatalf("expected failover to succeed, got error: %v", err)
	}
	if text != "ok from backup" {
		t.Fatalf("expected backup's response, got %q", text)
	}
	if failing.calls != 1 {
		t.Fatalf("expected exactly one attempt against the failing provider, got %d", failing.calls)
	}
}

func TestAskVia_NoFailoverTargetPropagatesError(t *testing.T) {
	r := NewRouter(RouterConfig{})
	failing := &stubProvider{name: "only", available: true, err: errors.New("timeout")}
	r.RegisterProvider(failing, 10)

	_, err := r.AskVia(context.Background(), "only", "hello", nil, AskContext{})
	if err == nil {
		t.Fatal("expected an error when no failover target exists")
	}
	var te *core.TaxonomyError
	if !errors.As(err, &te) {
		t.Fatalf("expected a TaxonomyError, got %T: %v", err, err)
	}
	if te.Kind != core.KindProviderTimeout {
		t.Fatalf("expected provider_backend_timeout classification, got %v", te.Kind)
	}
}

func TestAskVia_PinnedUnavailableProviderFailsFast(t *testing.T) {
	r := NewRouter(RouterConfig{})
	r.RegisterProvider(&stubProvider{name: "dead", available: false}, 1)

	_, err := r.AskVia(context.Background(), "dead", "hello", nil, AskContext{})
	if err == nil {
		t.Fatal("expected an error for a pinned but unavailable provider")
	}
}

func TestSwitchProvider_RejectsUnavailableTarget(t *testing.T) {
	r := NewRouter(RouterConfig{})
	r.RegisterProvider(&stubProvider{name: "a", available: true}, 1)
	r.RegisterProvider(&stubProvider{name: "b", available: false}, 1)

	if err := r.SwitchProvider("b"); err == nil {
		t.Fatal("expected SwitchProvider to reject an unavailable target")
	}
	if err := r.SwitchProvider("a"); err != nil {
		t.Fatalf("expected SwitchProvider to accept an available target, got %v", err)
	}
}

func TestSwitchModel_RejectsModelNotOfferedByProvider(t *testing.T) {
	r := NewRouter(RouterConfig{})
	r.RegisterProvider(&stubProvider{name: "a", available: true, models: []core.ModelDescriptor{{ID: "m1"}}}, 1)

	if err := r.SwitchModel("nonexistent", "a"); err == nil {
		t.Fatal("expected SwitchModel to reject a model the provider does not offer")
	}
	if err := r.SwitchModel("m1", "a"); err != nil {
		t.Fatalf("expected SwitchModel to accept an offered model, got %v", err)
	}
}

func TestSwitchModel_RejectsUnavailableProvider(t *testing.T) {
	r := NewRouter(RouterConfig{})
	r.RegisterProvider(&stubProvider{name: "dead", available: false, models: []core.ModelDescriptor{{ID: "m1"}}}, 1)

	if err := r.SwitchModel("m1", "dead"); err == nil {
		t.Fatal("expected SwitchModel to reject an unavailable provider")
	}
}

func TestSwitchModel_DefaultsToCurrentDefaultProvider(t *testing.T) {
	r := NewRouter(RouterConfig{})
	r.RegisterProvider(&stubProvider{name: "a", available: true, models: []core.ModelDescriptor{{ID: "m1"}}}, 1)

	if err := r.SwitchModel("m1", ""); err != nil {
		t.Fatalf("expected SwitchModel with no provider to validate against the default, got %v", err)
	}
}

func TestSwitchModel_BecomesAskViaDefault(t *testing.T) {
	r := NewRouter(RouterConfig{})
	p := &stubProvider{name: "a", available: true, models: []core.ModelDescriptor{{ID: "m1"}}, response: "ok"}
	r.RegisterProvider(p, 1)

	if err := r.SwitchModel("m1", "a"); err != nil {
		t.Fatalf("SwitchModel: %v", err)
	}

	var gotModel string
	wrapped := &modelCapturingProvider{stubProvider: p, captured: &gotModel}
	r2 := NewRouter(RouterConfig{})
	r2.RegisterProvider(wrapped, 1)
	if err := r2.SwitchModel("m1", "a"); err != nil {
		t.Fatalf("SwitchModel: %v", err)
	}
	if _, err := r2.AskVia(context.Background(), "a", "hello", nil, AskContext{}); err != nil {
		t.Fatalf("AskVia: %v", err)
	}
	if gotModel != "m1" {
		t.Fatalf("expected AskVia to apply the active model as the default, got %q", gotModel)
	}
}

// modelCapturingProvider records the AskContext.Model it was called with,
// so a test can assert the router filled in its active-model default.
type modelCapturingProvider struct {
	*stubProvider
	captured *string
}

func (p *modelCapturingProvider) Ask(ctx context.Context, prompt string, history []Message, actx AskContext) (string, error) {
	*p.captured = actx.Model
	return p.stubProvider.Ask(ctx, prompt, history, actx)
}

func TestRecord_UpdatesMetrics(t *testing.T) {
	r := NewRouter(RouterConfig{})
	r.RegisterProvider(&stubProvider{name: "a", available: true}, 1)

	r.Record("a", true, 100*time.Millisecond)
	r.Record("a", false, 200*time.Millisecond)

	m := r.Metrics("a")
	if m.TotalRequests != 2 || m.SuccessfulRequests != 1 || m.FailedRequests != 1 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
	if m.SuccessRate() != 0.5 {
		t.Fatalf("expected 50%% success rate, got %v", m.SuccessRate())
	}
}

func TestClassify_TagsCodeAndQuick(t *testing.T) {
	tags := Classify("please refactor this function")
	if !containsTag(tags, "code") {
		t.Fatalf("expected code tag, got %v", tags)
	}

	tags = Classify("what is the weather")
	if !containsTag(tags, "quick") {
		t.Fatalf("expected quick tag, got %v", tags)
	}
}

func containsTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
