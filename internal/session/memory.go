// Package session implements Session Memory (C6): durable, cross-turn
// continuity of agentic context, grounded on the original Python
// implementation's SessionMemory/AgenticContext (codexa/session_memory.py)
// and on the teacher's temp-file-plus-rename archival pattern
// (internal/artifacts/local_store.go).
package session

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mikeoller82/agentic-core/pkg/core"
)

// DefaultIdleThreshold is the default staleness window (spec 4.6).
const DefaultIdleThreshold = 30 * time.Minute

// Memory holds at most one live AgenticContext per session and owns all
// mutation of that context.
type Memory struct {
	mu            sync.Mutex
	live          map[string]*core.AgenticContext
	idleThreshold time.Duration
	archive       *Archive
	snapshotDir   string
	logger        *slog.Logger
	now           func() time.Time
}

// Config configures a new Memory.
type Config struct {
	IdleThreshold time.Duration
	ArchiveDir    string
	SnapshotDir   string
	Logger        *slog.Logger
}

// New creates a Memory backed by the given archive/snapshot directories.
func New(cfg Config) (*Memory, error) {
	idle := cfg.IdleThreshold
	if idle <= 0 {
		idle = DefaultIdleThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	archive, err := NewArchive(cfg.ArchiveDir)
	if err != nil {
		return nil, err
	}
	return &Memory{
		live:          make(map[string]*core.AgenticContext),
		idleThreshold: idle,
		archive:       archive,
		snapshotDir:   cfg.SnapshotDir,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// ErrContextAlreadyLive is returned by Start when a context already exists
// for the session and the caller did not request replacement.
var ErrContextAlreadyLive = fmt.Errorf("session: a live context already exists for this session")

// Start creates a fresh context for sessionID. Fails with
// ErrContextAlreadyLive unless replace is true, in which case the prior
// context is archived first.
func (m *Memory) Start(sessionID, task string, replace bool) (*core.AgenticContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.live[sessionID]; ok {
		if !replace {
			return nil, ErrContextAlreadyLive
		}
		if err := m.archiveLocked(existing, "replaced"); err != nil {
			return nil, err
		}
	}

	now := m.now()
	ctx := core.NewAgenticContext(sessionID, task, now)
	ctx.ContextKeywords = extractKeywords(task)
	m.live[sessionID] = ctx
	if err := m.archiveLocked(ctx, "start"); err != nil {
		m.logger.Warn("session: failed to archive start event", "session_id", sessionID, "error", err)
	}
	return ctx, nil
}

// UpdateParams carries the fields Update may merge into a live context.
// Zero values mean "no change" except where noted.
type UpdateParams struct {
	Iteration      int
	LastResult     string
	LastEvaluation string
	Succeeded      bool // whether this iteration's plan should move to completed (true) or stay pending (false)
	Plan           string
	FilesCreated   []string
	FilesModified  []string
	ToolsUsed      []string
	// SuccessIndicatorDelta/FailureIndicatorDelta accumulate into
	// AgenticContext.SuccessIndicators/FailureIndicators; the heuristic
	// evaluator is the only caller that populates these (spec 4.7's LLM
	// parse path leaves them zero).
	SuccessIndicatorDelta int
	FailureIndicatorDelta int
}

// Update performs a monotone merge into the live context for sessionID:
// sets move the plan between pending/completed, keyword/file/tool
// collections union-grow, last_activity advances. Returns an error if no
// live context exists.
func (m *Memory) Update(sessionID string, p UpdateParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.live[sessionID]
	if !ok {
		return core.NewTaxonomyError(core.KindSessionStale, "no live context for session: "+sessionID, nil)
	}

	if p.Iteration != 0 {
		ctx.IterationCount = p.Iteration
	}
	if p.LastResult != "" {
		ctx.LastResult = p.LastResult
	}
	if p.LastEvaluation != "" {
		ctx.LastEvaluation = p.LastEvaluation
	}
	if p.Plan != "" {
		if p.Succeeded {
			ctx.CompletedSteps = append(ctx.CompletedSteps, p.Plan)
			ctx.PendingSteps = removeStep(ctx.PendingSteps, p.Plan)
		} else {
			ctx.PendingSteps = appendUnique(ctx.PendingSteps, ctx.CompletedSteps, p.Plan)
		}
	}
	for k := range extractKeywords(p.LastResult) {
		ctx.ContextKeywords[k] = struct{}{}
	}
	for _, f := range p.FilesCreated {
		ctx.FilesCreated[f] = struct{}{}
	}
	for _, f := range p.FilesModified {
		ctx.FilesModified[f] = struct{}{}
	}
	for _, t := range p.ToolsUsed {
		ctx.ToolsUsed[t]++
	}
	ctx.SuccessIndicators += p.SuccessIndicatorDelta
	ctx.FailureIndicators += p.FailureIndicatorDelta
	ctx.LastActivity = m.now()

	if err := m.archiveLocked(ctx, "update"); err != nil {
		m.logger.Warn("session: failed to archive update event", "session_id", sessionID, "error", err)
	}
	return nil
}

func removeStep(steps []string, step string) []string {
	out := steps[:0]
	for _, s := range steps {
		if s != step {
			out = append(out, s)
		}
	}
	return out
}

// appendUnique adds step to the pending list unless it is already pending
// or already completed, mirroring the original's add_pending_step guard
// (`if step not in self.pending_steps and step not in self.completed_steps`)
// so a retried plan's text can never land in both sets at once (spec 8:
// completed ∩ pending = ∅).
func appendUnique(pending, completed []string, step string) []string {
	for _, s := range pending {
		if s == step {
			return pending
		}
	}
	for _, s := range completed {
		if s == step {
			return pending
		}
	}
	return append(pending, step)
}

// IsRelated decides whether request continues the active context for
// sessionID, per spec 4.6's numbered decision procedure.
func (m *Memory) IsRelated(sessionID, request string) bool {
	m.mu.Lock()
	ctx, ok := m.live[sessionID]
	m.mu.Unlock()
	if !ok {
		return false
	}

	if containsAnyToken(request, continuationTokens) {
		return true
	}

	requestKeywords := extractKeywords(request)
	overlap := intersect(requestKeywords, ctx.ContextKeywords)

	if anyIsSpecific(overlap) {
		return true
	}
	if matchesCreatedFilename(overlap, ctx) {
		return true
	}
	if len(overlap) >= 2 {
		return true
	}
	if len(overlap) == 1 && allGeneric(overlap) {
		if taskContinuationPhrase(request) {
			return true
		}
		// len(overlap) < 2 and only-generic without the phrase: not related.
		return false
	}
	if mentionsFile(request, ctx.FilesCreated) || mentionsFile(request, ctx.FilesModified) {
		return true
	}
	if mentionsTool(request, ctx.ToolsUsed) {
		return true
	}
	return false
}

func matchesCreatedFilename(overlap []string, ctx *core.AgenticContext) bool {
	for _, tok := range overlap {
		for f := range ctx.FilesCreated {
			if strings.Contains(strings.ToLower(f), tok) {
				return true
			}
		}
	}
	return false
}

// ShouldContinue returns true iff IsRelated(request) or the context
// exists, is not stale, is not complete, and has pending steps.
func (m *Memory) ShouldContinue(sessionID, request string) bool {
	if m.IsRelated(sessionID, request) {
		return true
	}
	m.mu.Lock()
	ctx, ok := m.live[sessionID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return !m.isStale(ctx) && !ctx.Completed && len(ctx.PendingSteps) > 0
}

func (m *Memory) isStale(ctx *core.AgenticContext) bool {
	return m.now().Sub(ctx.LastActivity) > m.idleThreshold
}

// IsTaskComplete applies the task-complete heuristic: no pending steps,
// at least one completed step, and the last evaluation mentions "success"
// (case-insensitive).
func IsTaskComplete(ctx *core.AgenticContext) bool {
	return len(ctx.PendingSteps) == 0 &&
		len(ctx.CompletedSteps) > 0 &&
		strings.Contains(strings.ToLower(ctx.LastEvaluation), "success")
}

// Complete marks sessionID's context terminal with an optional final
// result string.
func (m *Memory) Complete(sessionID string, finalResult string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, ok := m.live[sessionID]
	if !ok {
		return core.NewTaxonomyError(core.KindSessionStale, "no live context for session: "+sessionID, nil)
	}
	ctx.Completed = true
	if finalResult != "" {
		ctx.LastResult = finalResult
	}
	return m.archiveLocked(ctx, "complete")
}

// Pause sets the in-memory paused flag without archiving. This only
// records the flag, which IsPaused, GetSummary and GetStats report; the
// Loop Engine does not read it, so pausing does not suspend a run in
// progress.
func (m *Memory) Pause(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx, ok := m.live[sessionID]; ok {
		ctx.Paused = true
	}
}

// Resume clears the paused flag.
func (m *Memory) Resume(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx, ok := m.live[sessionID]; ok {
		ctx.Paused = false
	}
}

// IsPaused reports the session's current paused flag.
func (m *Memory) IsPaused(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx, ok := m.live[sessionID]; ok {
		return ctx.Paused
	}
	return false
}

// End archives the context to durable storage and clears live state.
func (m *Memory) End(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, ok := m.live[sessionID]
	if !ok {
		return nil
	}
	if err := m.archiveLocked(ctx, "end"); err != nil {
		return err
	}
	delete(m.live, sessionID)
	return nil
}

func (m *Memory) archiveLocked(ctx *core.AgenticContext, event string) error {
	return m.archive.Write(ctx, event, m.now())
}

// Get returns the live context for sessionID, if any.
func (m *Memory) Get(sessionID string) (*core.AgenticContext, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, ok := m.live[sessionID]
	return ctx, ok
}
