package orchestrator

import "strings"

// AgenticThreshold is the classifier score at or above which a fresh
// request is routed through the Loop Engine instead of straight to the
// Tool Dispatcher (spec 4.9).
const AgenticThreshold = 1.0

// systemicVerbs signal a request shaped like a multi-step investigation
// or change rather than a single lookup.
var systemicVerbs = []string{
	"analyze", "systematically", "comprehensive", "figure out",
	"step by step", "debug", "refactor", "plan",
}

// conjunctions mark a request built from more than one clause.
var conjunctions = []string{" and then ", " after that ", "; ", " but first ", " once "}

// wordCountThreshold is the classifier's long-request heuristic.
const wordCountThreshold = 10

// classify scores a raw request on the agentic-vs-direct axis. Any single
// heuristic firing is sufficient: word count, a systemic verb, or a
// multi-clause conjunction.
func classify(request string) float64 {
	lower := strings.ToLower(request)

	if len(strings.Fields(request)) > wordCountThreshold {
		return AgenticThreshold
	}
	for _, v := range systemicVerbs {
		if strings.Contains(lower, v) {
			return AgenticThreshold
		}
	}
	for _, c := range conjunctions {
		if strings.Contains(lower, c) {
			return AgenticThreshold
		}
	}
	return 0
}

// isAgentic reports whether request scores at or above AgenticThreshold.
func isAgentic(request string) bool {
	return classify(request) >= AgenticThreshold
}
