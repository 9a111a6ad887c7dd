package tool

import (
	"log/slog"
	"sync"
)

// Registry discovers and holds tool instances keyed by name, with
// secondary indexes by category and capability tag. Read-only after
// initialisation: once the orchestrator has finished registering tools,
// only Dispatcher reads flow through it.
//
// In a systems language, tool discovery is a static registration list
// rather than runtime reflection, per spec 4.4 — callers populate the
// registry explicitly via Register at startup.
type Registry struct {
	mu           sync.RWMutex
	byName       map[string]Tool
	byCategory   map[string][]Tool
	byCapability map[string][]Tool
	logger       *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byName:       make(map[string]Tool),
		byCategory:   make(map[string][]Tool),
		byCapability: make(map[string][]Tool),
		logger:       logger,
	}
}

// Register adds a tool by name. Names are globally unique: duplicate
// registration replaces the prior entry and logs a warning event, per
// spec 4.4.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[t.Name()]; exists {
		r.logger.Warn("tool registry: duplicate registration replaces existing tool", "name", t.Name())
		r.removeFromIndexesLocked(t.Name())
	}
	r.byName[t.Name()] = t
	r.byCategory[t.Category()] = append(r.byCategory[t.Category()], t)
	for _, tag := range t.Capabilities() {
		r.byCapability[tag] = append(r.byCapability[tag], t)
	}

	if st, ok := t.(SchemaTool); ok {
		if raw := st.ParametersSchema(); raw != "" {
			if _, err := compileSchema(raw); err != nil {
				r.logger.Warn("tool registry: declared parameter schema failed to compile", "name", t.Name(), "error", err)
			}
		}
	}
}

func (r *Registry) removeFromIndexesLocked(name string) {
	for cat, tools := range r.byCategory {
		r.byCategory[cat] = removeByName(tools, name)
	}
	for tag, tools := range r.byCapability {
		r.byCapability[tag] = removeByName(tools, name)
	}
}

func removeByName(tools []Tool, name string) []Tool {
	out := tools[:0]
	for _, t := range tools {
		if t.Name() != name {
			out = append(out, t)
		}
	}
	return out
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// ByCategory returns all tools registered under the given category.
func (r *Registry) ByCategory(cat string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, len(r.byCategory[cat]))
	copy(out, r.byCategory[cat])
	return out
}

// ByCapability returns all tools advertising the given capability tag.
func (r *Registry) ByCapability(tag string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, len(r.byCapability[tag]))
	copy(out, r.byCapability[tag])
	return out
}

// All returns every registered tool.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.byName))
	for _, t := range r.byName {
		out = append(out, t)
	}
	return out
}

// Stats summarizes the registry's current contents.
type Stats struct {
	Count        int
	Categories   []string
	Capabilities []string
}

// Stats returns aggregate counters and the set of known categories and
// capability tags.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Stats{Count: len(r.byName)}
	for cat := range r.byCategory {
		s.Categories = append(s.Categories, cat)
	}
	for tag := range r.byCapability {
		s.Capabilities = append(s.Capabilities, tag)
	}
	return s
}
