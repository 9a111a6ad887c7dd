// Package config loads the small set of values the process needs at
// startup: provider credentials and endpoints, iteration/deadline
// defaults, session staleness, archive location, dispatcher fan-out and
// event-buffer sizes. The dispatcher's score threshold is not configurable
// here. Shaped after the teacher's nested-struct-with-yaml-tags
// convention (internal/config/config.go, config_llm.go), scaled down to
// this system's actual surface.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Providers ProvidersConfig `yaml:"providers"`
	Loop      LoopConfig      `yaml:"loop"`
	Session   SessionConfig   `yaml:"session"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Events    EventsConfig    `yaml:"events"`
}

// ProvidersConfig lists each backend's credentials/endpoint and routing
// priority, keyed by provider name ("anthropic", "openai", "gemini", ...).
type ProvidersConfig struct {
	Default   string                    `yaml:"default"`
	Providers map[string]ProviderConfig `yaml:"entries"`
}

// ProviderConfig is one provider's connection details. APIKey supports
// `${ENV_VAR}`-style expansion via os.ExpandEnv, so secrets never need to
// live in the file itself.
type ProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
	Priority     int    `yaml:"priority"`
	Enabled      bool   `yaml:"enabled"`
}

// LoopConfig configures the Agentic Loop Engine's iteration cap and
// per-step deadlines (spec 4.7).
type LoopConfig struct {
	MaxIterations    int           `yaml:"max_iterations"`
	ThinkDeadline    time.Duration `yaml:"think_deadline"`
	ExecuteDeadline  time.Duration `yaml:"execute_deadline"`
	EvaluateDeadline time.Duration `yaml:"evaluate_deadline"`
	IdentityPreamble string        `yaml:"identity_preamble"`
}

// SessionConfig configures Session Memory's staleness window and
// persistence directories (spec 4.6).
type SessionConfig struct {
	IdleThreshold time.Duration `yaml:"idle_threshold"`
	ArchiveDir    string        `yaml:"archive_dir"`
	SnapshotDir   string        `yaml:"snapshot_dir"`
}

// DispatchConfig configures the Tool Dispatcher's fan-out (spec 4.5).
// Coordination is a pointer so Load can distinguish "absent from the
// file" (keep the default, true) from an explicit "coordination: false".
type DispatchConfig struct {
	MaxTools     int           `yaml:"max_tools"`
	ToolDeadline time.Duration `yaml:"tool_deadline"`
	Coordination *bool         `yaml:"coordination"`
}

// CoordinationEnabled reports the effective coordination setting,
// defaulting to true when unset.
func (d DispatchConfig) CoordinationEnabled() bool {
	return d.Coordination == nil || *d.Coordination
}

// EventsConfig configures the Event Sink's backpressure buffers
// (spec 4.8).
type EventsConfig struct {
	HighPriBuffer int `yaml:"high_pri_buffer"`
	LowPriBuffer  int `yaml:"low_pri_buffer"`
}

// Default returns a Config populated with every component's documented
// defaults, suitable as a base to overlay a loaded file onto.
func Default() Config {
	return Config{
		Loop: LoopConfig{
			MaxIterations:    10,
			ThinkDeadline:    60 * time.Second,
			ExecuteDeadline:  120 * time.Second,
			EvaluateDeadline: 60 * time.Second,
		},
		Session: SessionConfig{
			IdleThreshold: 30 * time.Minute,
		},
		Dispatch: DispatchConfig{
			MaxTools: 3,
		},
		Events: EventsConfig{
			HighPriBuffer: 32,
			LowPriBuffer:  256,
		},
	}
}

// Load reads and parses a YAML config file at path, applying defaults for
// any field the file leaves at its zero value. API keys are expanded
// through os.ExpandEnv before parsing so `${ANTHROPIC_API_KEY}`-style
// references resolve against the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))

	var loaded Config
	if err := yaml.Unmarshal([]byte(expanded), &loaded); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.overlay(loaded)
	return cfg, nil
}

// overlay merges non-zero fields from loaded on top of c's defaults.
func (c *Config) overlay(loaded Config) {
	if loaded.Providers.Default != "" {
		c.Providers.Default = loaded.Providers.Default
	}
	if len(loaded.Providers.Providers) > 0 {
		c.Providers.Providers = loaded.Providers.Providers
	}

	if loaded.Loop.MaxIterations > 0 {
		c.Loop.MaxIterations = loaded.Loop.MaxIterations
	}
	if loaded.Loop.ThinkDeadline > 0 {
		c.Loop.ThinkDeadline = loaded.Loop.ThinkDeadline
	}
	if loaded.Loop.ExecuteDeadline > 0 {
		c.Loop.ExecuteDeadline = loaded.Loop.ExecuteDeadline
	}
	if loaded.Loop.EvaluateDeadline > 0 {
		c.Loop.EvaluateDeadline = loaded.Loop.EvaluateDeadline
	}
	if loaded.Loop.IdentityPreamble != "" {
		c.Loop.IdentityPreamble = loaded.Loop.IdentityPreamble
	}

	if loaded.Session.IdleThreshold > 0 {
		c.Session.IdleThreshold = loaded.Session.IdleThreshold
	}
	if loaded.Session.ArchiveDir != "" {
		c.Session.ArchiveDir = loaded.Session.ArchiveDir
	}
	if loaded.Session.SnapshotDir != "" {
		c.Session.SnapshotDir = loaded.Session.SnapshotDir
	}

	if loaded.Dispatch.MaxTools > 0 {
		c.Dispatch.MaxTools = loaded.Dispatch.MaxTools
	}
	if loaded.Dispatch.ToolDeadline > 0 {
		c.Dispatch.ToolDeadline = loaded.Dispatch.ToolDeadline
	}
	if loaded.Dispatch.Coordination != nil {
		c.Dispatch.Coordination = loaded.Dispatch.Coordination
	}

	if loaded.Events.HighPriBuffer > 0 {
		c.Events.HighPriBuffer = loaded.Events.HighPriBuffer
	}
	if loaded.Events.LowPriBuffer > 0 {
		c.Events.LowPriBuffer = loaded.Events.LowPriBuffer
	}
}

// Validate reports a descriptive error for any configuration that would
// make the system unable to start: no providers at all, or a default
// provider name not present among the configured entries.
func (c Config) Validate() error {
	if len(c.Providers.Providers) == 0 {
		return fmt.Errorf("config: at least one provider must be configured")
	}
	if c.Providers.Default != "" {
		if _, ok := c.Providers.Providers[c.Providers.Default]; !ok {
			return fmt.Errorf("config: default provider %q is not among the configured entries", c.Providers.Default)
		}
	}
	return nil
}
