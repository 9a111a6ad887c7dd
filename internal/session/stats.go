package session

import (
	"time"
)

// Summary is a compact, human-readable snapshot of one session's context,
// supplementing the original's SessionMemory.get_context_summary (not
// present in the distilled specification, reintroduced per SPEC_FULL.md's
// supplemented-features section).
type Summary struct {
	SessionID      string
	Task           string
	IterationCount int
	Completed      int
	Pending        int
	ToolsUsed      []string
	Stale          bool
	Paused         bool
	Done           bool
}

// GetSummary returns a Summary for sessionID, or false if no live context
// exists for it.
func (m *Memory) GetSummary(sessionID string) (Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, ok := m.live[sessionID]
	if !ok {
		return Summary{}, false
	}
	tools := make([]string, 0, len(ctx.ToolsUsed))
	for name := range ctx.ToolsUsed {
		tools = append(tools, name)
	}
	return Summary{
		SessionID:      ctx.SessionID,
		Task:           ctx.OriginalTask,
		IterationCount: ctx.IterationCount,
		Completed:      len(ctx.CompletedSteps),
		Pending:        len(ctx.PendingSteps),
		ToolsUsed:      tools,
		Stale:          m.isStale(ctx),
		Paused:         ctx.Paused,
		Done:           ctx.Completed,
	}, true
}

// Stats aggregates across every currently-live session, supplementing the
// original's get_stats.
type Stats struct {
	LiveSessions   int
	StaleSessions  int
	PausedSessions int
	TotalToolUses  int
}

// GetStats computes process-wide session counters.
func (m *Memory) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Stats
	s.LiveSessions = len(m.live)
	for _, ctx := range m.live {
		if m.isStale(ctx) {
			s.StaleSessions++
		}
		if ctx.Paused {
			s.PausedSessions++
		}
		for _, n := range ctx.ToolsUsed {
			s.TotalToolUses += n
		}
	}
	return s
}

// DefaultArchiveMaxAge is CleanupStale's default sweep age when maxAge<=0.
const DefaultArchiveMaxAge = 7 * 24 * time.Hour

// CleanupStale sweeps archived-but-not-deleted snapshot files older than
// maxAge (default 7 days) from the archive directory, returning the number
// of files removed. This is housekeeping on the archive directory only —
// it never touches live session state, which follows the staleness rules
// in spec 4.6 on its own terms. Grounded on the original's
// cleanup_old_sessions(max_age_days), which globs session_*.json files and
// unlinks the old ones without touching any in-memory session.
func (m *Memory) CleanupStale(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultArchiveMaxAge
	}
	return m.archive.Sweep(maxAge, m.now())
}
