package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mikeoller82/agentic-core/pkg/core"
)

// record is the on-disk JSON schema: spec section 6's fields, with
// tools_used stored as a name-to-count map, plus the archive event name
// and archived_at.
type record struct {
	SessionID        string         `json:"session_id"`
	StartedAt        time.Time      `json:"started_at"`
	LastActivity     time.Time      `json:"last_activity"`
	OriginalTask     string         `json:"original_task"`
	CurrentObjective string         `json:"current_objective"`
	CompletedSteps   []string       `json:"completed_steps"`
	PendingSteps     []string       `json:"pending_steps"`
	IterationCount   int            `json:"iteration_count"`
	LastResult       string         `json:"last_result"`
	LastEvaluation   string         `json:"last_evaluation"`
	ContextKeywords  []string       `json:"context_keywords"`
	FilesCreated     []string       `json:"files_created"`
	FilesModified    []string       `json:"files_modified"`
	ToolsUsed        map[string]int `json:"tools_used"`
	Event            string         `json:"event"`
	ArchivedAt       time.Time      `json:"archived_at"`
}

// Archive persists AgenticContext snapshots to disk, one JSON file per
// archive event, written via write-to-temp-then-rename so a crash mid-write
// never leaves a half-written file behind — grounded on
// internal/artifacts/local_store.go's persistIndexLocked.
type Archive struct {
	dir string
}

// NewArchive creates the archive directory (if it does not already exist)
// and returns an Archive rooted there.
func NewArchive(dir string) (*Archive, error) {
	if dir == "" {
		dir = "./agentic-sessions"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: creating archive dir: %w", err)
	}
	return &Archive{dir: dir}, nil
}

// Write serializes ctx as of now, tagged with event, to
// <dir>/<sessionID>/<unix-nanos>-<event>.json.
func (a *Archive) Write(ctx *core.AgenticContext, event string, now time.Time) error {
	rec := toRecord(ctx, event, now)

	buf, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal archive record: %w", err)
	}

	sessionDir := filepath.Join(a.dir, sanitizeID(ctx.SessionID))
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return fmt.Errorf("session: creating session archive dir: %w", err)
	}

	name := fmt.Sprintf("%020d-%s.json", now.UnixNano(), event)
	final := filepath.Join(sessionDir, name)
	tmp := final + ".tmp"

	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("session: writing archive temp file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("session: renaming archive temp file: %w", err)
	}
	return nil
}

// Load restores the most recently archived record for sessionID, or
// (nil, false, nil) if no archive exists for it.
func (a *Archive) Load(sessionID string) (*core.AgenticContext, bool, error) {
	sessionDir := filepath.Join(a.dir, sanitizeID(sessionID))
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("session: reading archive dir: %w", err)
	}
	if len(entries) == 0 {
		return nil, false, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, false, nil
	}
	latest := names[len(names)-1]

	buf, err := os.ReadFile(filepath.Join(sessionDir, latest))
	if err != nil {
		return nil, false, fmt.Errorf("session: reading archive record: %w", err)
	}
	var rec record
	if err := json.Unmarshal(buf, &rec); err != nil {
		return nil, false, fmt.Errorf("session: unmarshal archive record: %w", err)
	}
	return fromRecord(rec), true, nil
}

// Sweep deletes archived snapshot files across every session directory
// whose timestamp (parsed from the filename's leading unix-nanos prefix,
// not the filesystem's mtime) is older than maxAge relative to now,
// returning the count of files removed. Empty session directories are left
// in place; only the files inside are swept.
func (a *Archive) Sweep(maxAge time.Duration, now time.Time) (int, error) {
	sessionDirs, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("session: reading archive dir: %w", err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	var firstErr error

	for _, sd := range sessionDirs {
		if !sd.IsDir() {
			continue
		}
		sessionDir := filepath.Join(a.dir, sd.Name())
		files, err := os.ReadDir(sessionDir)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("session: reading %s: %w", sessionDir, err)
			}
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			archivedAt, ok := archivedAtFromName(f.Name())
			if !ok || archivedAt.After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(sessionDir, f.Name())); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("session: removing %s: %w", f.Name(), err)
				}
				continue
			}
			removed++
		}
	}
	return removed, firstErr
}

// archivedAtFromName extracts the unix-nanos timestamp from an archive
// filename of the form "<unix-nanos>-<event>.json".
func archivedAtFromName(name string) (time.Time, bool) {
	idx := strings.Index(name, "-")
	if idx <= 0 {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(name[:idx], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}

func toRecord(ctx *core.AgenticContext, event string, now time.Time) record {
	return record{
		SessionID:        ctx.SessionID,
		StartedAt:        ctx.StartedAt,
		LastActivity:     ctx.LastActivity,
		OriginalTask:     ctx.OriginalTask,
		CurrentObjective: ctx.CurrentObjective,
		CompletedSteps:   append([]string(nil), ctx.CompletedSteps...),
		PendingSteps:     append([]string(nil), ctx.PendingSteps...),
		IterationCount:   ctx.IterationCount,
		LastResult:       ctx.LastResult,
		LastEvaluation:   ctx.LastEvaluation,
		ContextKeywords:  setToSlice(ctx.ContextKeywords),
		FilesCreated:     setToSlice(ctx.FilesCreated),
		FilesModified:    setToSlice(ctx.FilesModified),
		ToolsUsed:        copyCounts(ctx.ToolsUsed),
		Event:            event,
		ArchivedAt:       now,
	}
}

func fromRecord(rec record) *core.AgenticContext {
	ctx := &core.AgenticContext{
		SessionID:        rec.SessionID,
		OriginalTask:     rec.OriginalTask,
		CurrentObjective: rec.CurrentObjective,
		CompletedSteps:   rec.CompletedSteps,
		PendingSteps:     rec.PendingSteps,
		IterationCount:   rec.IterationCount,
		LastResult:       rec.LastResult,
		LastEvaluation:   rec.LastEvaluation,
		ContextKeywords:  sliceToSet(rec.ContextKeywords),
		FilesCreated:     sliceToSet(rec.FilesCreated),
		FilesModified:    sliceToSet(rec.FilesModified),
		ToolsUsed:        copyCounts(rec.ToolsUsed),
		StartedAt:        rec.StartedAt,
		LastActivity:     rec.LastActivity,
		Completed:        rec.Event == "complete",
	}
	return ctx
}

func setToSlice(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sliceToSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, v := range in {
		out[v] = struct{}{}
	}
	return out
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sanitizeID(id string) string {
	if id == "" {
		return "unknown"
	}
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
