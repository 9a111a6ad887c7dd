package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mikeoller82/agentic-core/pkg/core"
	"github.com/prometheus/client_golang/prometheus"
)

// registeredProvider pairs a Provider with its static descriptor fields
// not already exposed by the Provider interface (priority, enabled).
type registeredProvider struct {
	provider Provider
	priority int
	enabled  bool
}

// Router selects among providers by capability, performance score, and
// explicit override; tracks per-provider metrics under a lock it
// exclusively owns.
type Router struct {
	mu          sync.RWMutex
	providers   map[string]*registeredProvider
	metrics     *metricsStore
	def         string // default provider name, changeable via SwitchProvider
	activeModel string // default model override, changeable via SwitchModel; empty means "provider's own default"
	logger      *slog.Logger
	now         func() time.Time
}

// RouterConfig configures a new Router.
type RouterConfig struct {
	Logger   *slog.Logger
	Registry prometheus.Registerer
}

// NewRouter creates an empty router ready for RegisterProvider calls.
func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		providers: make(map[string]*registeredProvider),
		metrics:   newMetricsStore(cfg.Registry),
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterProvider adds a provider at the given priority (higher wins
// priority fallback ties). The first provider registered becomes the
// default until SwitchProvider is called.
func (r *Router) RegisterProvider(p Provider, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = &registeredProvider{provider: p, priority: priority, enabled: true}
	if r.def == "" {
		r.def = p.Name()
	}
}

// SwitchProvider updates the router's default provider, which SwitchModel
// validates against when no provider is named. Select and AskVia do not
// consult it: a call with no explicit name is routed by Select's rules.
// Fails if the target is unavailable.
func (r *Router) SwitchProvider(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rp, ok := r.providers[name]
	if !ok || !rp.enabled || !rp.provider.IsAvailable() {
		return core.NewTaxonomyError(core.KindProviderUnavailable, "provider unavailable: "+name, nil)
	}
	r.def = name
	return nil
}

// SwitchModel updates the default model override used when an Ask call's
// AskContext leaves Model unset. If provider is given, name is validated
// against that provider's ListModels(); otherwise it is validated against
// the current default provider. Fails if the target provider is
// unavailable or does not advertise the named model, mirroring
// SwitchProvider's validation shape.
func (r *Router) SwitchModel(name string, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	target := provider
	if target == "" {
		target = r.def
	}
	rp, ok := r.providers[target]
	if !ok || !rp.enabled || !rp.provider.IsAvailable() {
		return core.NewTaxonomyError(core.KindProviderUnavailable, "provider unavailable: "+target, nil)
	}

	found := false
	for _, m := range rp.provider.ListModels() {
		if m.ID == name {
			found = true
			break
		}
	}
	if !found {
		return core.NewTaxonomyError(core.KindProviderUnavailable, fmt.Sprintf("model %q not offered by provider %q", name, target), nil)
	}

	r.activeModel = name
	return nil
}

// Select walks routing rules in order and returns the chosen provider, or
// nil if none is available. Rule order: capability match, fast-path
// (complexity=low picks lowest average response time among providers with
// >=3 samples), then priority fallback to the highest-priority available
// provider.
func (r *Router) Select(actx AskContext) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(actx.RequiredCapabilities) > 0 {
		if p := r.capabilityMatchLocked(actx.RequiredCapabilities); p != nil {
			return p
		}
	}

	if actx.Complexity == "low" {
		if p := r.fastPathLocked(); p != nil {
			return p
		}
	}

	return r.priorityFallbackLocked()
}

func (r *Router) capabilityMatchLocked(caps []string) Provider {
	for _, rp := range r.sortedByPriorityLocked() {
		if !rp.enabled || !rp.provider.IsAvailable() {
			continue
		}
		for _, m := range rp.provider.ListModels() {
			if hasAllCapabilities(m, caps) {
				return rp.provider
			}
		}
	}
	return nil
}

func hasAllCapabilities(m core.ModelDescriptor, caps []string) bool {
	for _, c := range caps {
		if !m.HasCapability(c) {
			return false
		}
	}
	return true
}

func (r *Router) fastPathLocked() Provider {
	var best Provider
	var bestAvg time.Duration
	now := r.now()
	for _, rp := range r.providers {
		if !rp.enabled || !rp.provider.IsAvailable() {
			continue
		}
		m := r.metrics.snapshot(rp.provider.Name())
		if m.TotalRequests < 3 {
			continue
		}
		avg := m.AvgResponseTime()
		if best == nil || avg < bestAvg {
			best, bestAvg = rp.provider, avg
		}
	}
	_ = now
	return best
}

func (r *Router) priorityFallbackLocked() Provider {
	candidates := r.sortedByPriorityLocked()
	for _, rp := range candidates {
		if rp.enabled && rp.provider.IsAvailable() {
			return rp.provider
		}
	}
	return nil
}

func (r *Router) sortedByPriorityLocked() []*registeredProvider {
	out := make([]*registeredProvider, 0, len(r.providers))
	for _, rp := range r.providers {
		out = append(out, rp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].priority > out[j].priority })
	return out
}

// AskVia issues an Ask call, either pinned to a named provider (failing if
// it is unavailable) or routed via Select. It performs exactly one
// failover retry on a provider-classified error, never silently retrying
// across an entire run (spec 7: "exactly one retry per call").
func (r *Router) AskVia(ctx context.Context, name, prompt string, history []Message, actx AskContext) (string, error) {
	var primary Provider
	if name != "" {
		r.mu.RLock()
		rp, ok := r.providers[name]
		r.mu.RUnlock()
		if !ok || !rp.enabled || !rp.provider.IsAvailable() {
			return "", core.NewTaxonomyError(core.KindProviderUnavailable, "provider unavailable: "+name, nil)
		}
		primary = rp.provider
	} else {
		primary = r.Select(actx)
		if primary == nil {
			return "", core.NewTaxonomyError(core.KindProviderUnavailable, "no provider available", nil)
		}
	}

	if actx.Model == "" {
		r.mu.RLock()
		actx.Model = r.activeModel
		r.mu.RUnlock()
	}

	text, err := r.tryOnce(ctx, primary, prompt, history, actx)
	if err == nil {
		return text, nil
	}

	// Exactly one failover attempt, and only when another provider exists.
	fallback := r.nextBestExcluding(primary.Name())
	if fallback == nil {
		return "", err
	}
	r.logger.Warn("provider failover", "from", primary.Name(), "to", fallback.Name(), "error", err)
	return r.tryOnce(ctx, fallback, prompt, history, actx)
}

func (r *Router) tryOnce(ctx context.Context, p Provider, prompt string, history []Message, actx AskContext) (string, error) {
	start := r.now()
	text, err := p.Ask(ctx, prompt, history, actx)
	elapsed := r.now().Sub(start)
	r.Record(p.Name(), err == nil, elapsed)
	if err != nil {
		return "", wrapBackendError(p.Name(), err)
	}
	return text, nil
}

func wrapBackendError(providerName string, err error) error {
	kind := core.ClassifyBackendError(err)
	return core.NewTaxonomyError(kind, fmt.Sprintf("%s: %v", providerName, err), err)
}

func (r *Router) nextBestExcluding(exclude string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best Provider
	var bestScore float64
	now := r.now()
	for _, rp := range r.providers {
		if rp.provider.Name() == exclude || !rp.enabled || !rp.provider.IsAvailable() {
			continue
		}
		s := score(r.metrics.snapshot(rp.provider.Name()), now)
		if best == nil || s > bestScore {
			best, bestScore = rp.provider, s
		}
	}
	return best
}

// Record updates the named provider's metrics atomically.
func (r *Router) Record(name string, success bool, elapsed time.Duration) {
	r.metrics.record(name, success, elapsed, r.now())
}

// Metrics returns a copy of the named provider's metrics, taken under the
// metrics store's lock.
func (r *Router) Metrics(name string) core.ProviderMetrics {
	return r.metrics.snapshot(name)
}

// Recommend classifies task text and proposes a provider/model pair.
func (r *Router) Recommend(taskText string) Recommendation {
	tags := Classify(taskText)
	actx := AskContext{RequiredCapabilities: tags}
	p := r.Select(actx)
	if p == nil {
		return Recommendation{}
	}
	models := p.ListModels()
	model := ""
	if len(models) > 0 {
		model = models[0].ID
	}
	confidence := 0.5
	if len(tags) > 0 {
		confidence = 0.8
	}
	return Recommendation{Provider: p.Name(), Model: model, Confidence: confidence}
}

// Descriptor returns the static descriptor for a registered provider.
func (r *Router) Descriptor(name string) (core.ProviderDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rp, ok := r.providers[name]
	if !ok {
		return core.ProviderDescriptor{}, false
	}
	return core.ProviderDescriptor{
		Name:      rp.provider.Name(),
		Priority:  rp.priority,
		Models:    rp.provider.ListModels(),
		Enabled:   rp.enabled,
		HasAPIKey: rp.provider.IsAvailable(),
	}, true
}
