package loop

import "strings"

// successLexicon and failureLexicon are the exact substring lexicons from
// the original implementation's heuristic evaluator
// (original_source/codexa/agentic_loop.py), used whenever the LLM's
// evaluation response fails to parse a SUCCESS:/CONFIDENCE: pair.
var successLexicon = []string{
	"successfully", "completed", "finished", "done", "created", "generated",
	"written", "updated", "saved", "built", "implemented", "fixed",
}

var failureLexicon = []string{
	"error", "failed", "exception", "not found", "cannot", "unable",
	"denied", "invalid", "missing", "timeout", "refused",
}

func countHits(text string, lexicon []string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, word := range lexicon {
		count += strings.Count(lower, word)
	}
	return count
}

// heuristicEvaluate implements spec 4.7's evaluator fallback: lexicon
// counting, then task-shape matching, then keyword-overlap relevance.
// successHits/failureHits are the raw lexicon hit counts, carried back so
// the caller can accumulate AgenticContext.SuccessIndicators/
// FailureIndicators (SPEC_FULL.md's supplemented per-session telemetry).
func heuristicEvaluate(task, plan, result string) (success bool, confidence float64, reasoning, feedback string, successHits, failureHits int) {
	successHits = countHits(result, successLexicon)
	failureHits = countHits(result, failureLexicon)

	switch {
	case failureHits > 0:
		return false, 0.6, "result text matched the failure lexicon", "result indicates an error occurred; review the tool output and retry with an adjusted approach", successHits, failureHits

	case successHits > 0:
		return true, 0.6, "result text matched the success lexicon", "", successHits, failureHits

	default:
		if ok, verb := taskShapeMatch(task, result); ok {
			return true, 0.55, "result matched the expected shape for a " + verb + " task", "", successHits, failureHits
		}

		overlap := keywordOverlapRatio(task, result)
		if overlap >= 0.4 {
			return true, overlap, "result shares sufficient vocabulary with the task to be considered relevant", "", successHits, failureHits
		}
		return false, overlap, "result does not appear related to the task", "the result text did not resemble the requested task; try a more direct approach", successHits, failureHits
	}
}

type taskShape struct {
	taskWords   []string
	resultWords []string
	label       string
}

var taskShapes = []taskShape{
	{taskWords: []string{"create", "write"}, resultWords: []string{"created", "written"}, label: "create/write"},
	{taskWords: []string{"read", "open"}, resultWords: []string{"read", "loaded"}, label: "read/open"},
	{taskWords: []string{"search", "find"}, resultWords: []string{"found", "results"}, label: "search/find"},
}

func taskShapeMatch(task, result string) (bool, string) {
	lowerTask := strings.ToLower(task)
	lowerResult := strings.ToLower(result)
	for _, shape := range taskShapes {
		if containsAny(lowerTask, shape.taskWords) && containsAny(lowerResult, shape.resultWords) {
			return true, shape.label
		}
	}
	return false, ""
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// keywordOverlapRatio is the fraction of the task's alphanumeric tokens
// (length >= 3) that also appear in the result text.
func keywordOverlapRatio(task, result string) float64 {
	taskTokens := tokenize(task)
	if len(taskTokens) == 0 {
		return 0
	}
	lowerResult := strings.ToLower(result)
	hits := 0
	for _, t := range taskTokens {
		if strings.Contains(lowerResult, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(taskTokens))
}

func tokenize(text string) []string {
	lower := strings.ToLower(text)
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}
