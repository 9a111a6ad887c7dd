package loop

import (
	"fmt"
	"strconv"
	"strings"
)

// buildThinkPrompt assembles the per-iteration think prompt: an identity
// preamble, the running context string, and the iteration index/cap.
func buildThinkPrompt(identity, contextStr string, iteration, maxIterations int) string {
	var b strings.Builder
	if identity != "" {
		b.WriteString(identity)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Iteration %d of %d.\n\n", iteration+1, maxIterations)
	b.WriteString("Context:\n")
	b.WriteString(contextStr)
	b.WriteString("\n\nRespond with your reasoning under THINKING: and the single next concrete action under PLAN:.")
	return b.String()
}

// parseThinkResponse extracts the thinking/plan pair per spec 4.7: locate
// the literal markers first; fall back to a line-prefix scan; fall back
// further to treating the whole response as the plan. Empty results are
// replaced with placeholders so the non-empty invariant always holds.
func parseThinkResponse(response string) (thinking, plan string) {
	thinking, plan, ok := splitOnMarkers(response, "THINKING:", "PLAN:")
	if !ok {
		thinking, plan, ok = linePrefixScan(response)
	}
	if !ok {
		plan = strings.TrimSpace(response)
		thinking = "(no explicit reasoning provided)"
	}
	if strings.TrimSpace(thinking) == "" {
		thinking = "(no explicit reasoning provided)"
	}
	if strings.TrimSpace(plan) == "" {
		plan = "(no explicit plan provided; proceeding with best-effort action)"
	}
	return thinking, plan
}

// splitOnMarkers finds aMarker and bMarker (in either order) and returns
// the text between/after them.
func splitOnMarkers(text, aMarker, bMarker string) (a, b string, ok bool) {
	ai := strings.Index(text, aMarker)
	bi := strings.Index(text, bMarker)
	if ai < 0 || bi < 0 {
		return "", "", false
	}
	if ai < bi {
		a = strings.TrimSpace(text[ai+len(aMarker) : bi])
		b = strings.TrimSpace(text[bi+len(bMarker):])
	} else {
		b = strings.TrimSpace(text[bi+len(bMarker) : ai])
		a = strings.TrimSpace(text[ai+len(aMarker):])
	}
	return a, b, true
}

// linePrefixScan handles responses where markers appear at the start of a
// line without the exact "THINKING:"/"PLAN:" casing or spacing used above
// having failed to match — scans line by line for a case-insensitive
// prefix match.
func linePrefixScan(text string) (thinking, plan string, ok bool) {
	lines := strings.Split(text, "\n")
	var thinkLines, planLines []string
	var section string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "thinking"):
			section = "thinking"
			rest := trimAfterColon(trimmed)
			if rest != "" {
				thinkLines = append(thinkLines, rest)
			}
			continue
		case strings.HasPrefix(lower, "plan"):
			section = "plan"
			rest := trimAfterColon(trimmed)
			if rest != "" {
				planLines = append(planLines, rest)
			}
			continue
		}
		switch section {
		case "thinking":
			thinkLines = append(thinkLines, line)
		case "plan":
			planLines = append(planLines, line)
		}
	}
	if len(thinkLines) == 0 && len(planLines) == 0 {
		return "", "", false
	}
	return strings.TrimSpace(strings.Join(thinkLines, "\n")), strings.TrimSpace(strings.Join(planLines, "\n")), true
}

func trimAfterColon(line string) string {
	if i := strings.Index(line, ":"); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}

// buildEvaluatePrompt assembles the evaluation prompt: task, plan, result
// text, and the four-field response template.
func buildEvaluatePrompt(task, plan, resultText string) string {
	var b strings.Builder
	b.WriteString("Original task:\n")
	b.WriteString(task)
	b.WriteString("\n\nPlan executed:\n")
	b.WriteString(plan)
	b.WriteString("\n\nExecution result:\n")
	b.WriteString(resultText)
	b.WriteString("\n\nRespond with exactly these four labelled fields:\n")
	b.WriteString("SUCCESS: <true|false>\nCONFIDENCE: <0.0-1.0>\nREASONING: <why>\nFEEDBACK: <what to try next, if not successful>")
	return b.String()
}

// evaluationFields holds the four parsed labelled fields, with ok
// reporting whether both SUCCESS and CONFIDENCE parsed cleanly.
type evaluationFields struct {
	success    bool
	confidence float64
	reasoning  string
	feedback   string
	ok         bool
}

// acceptedSuccessValues are the case-insensitive SUCCESS: variants this
// parser accepts (DESIGN.md open-question decision 1): "true", "yes", "1".
// "y" alone is deliberately excluded.
var acceptedSuccessValues = map[string]bool{
	"true": true, "yes": true, "1": true,
}

var rejectedSuccessValues = map[string]bool{
	"false": true, "no": true, "0": true,
}

func parseEvaluateResponse(response string) evaluationFields {
	fields := scanLabelledFields(response, "SUCCESS:", "CONFIDENCE:", "REASONING:", "FEEDBACK:")

	successRaw, hasSuccess := fields["SUCCESS:"]
	confRaw, hasConf := fields["CONFIDENCE:"]
	if !hasSuccess || !hasConf {
		return evaluationFields{ok: false}
	}

	normalized := strings.ToLower(strings.TrimSpace(successRaw))
	var success bool
	switch {
	case acceptedSuccessValues[normalized]:
		success = true
	case rejectedSuccessValues[normalized]:
		success = false
	default:
		return evaluationFields{ok: false}
	}

	confidence, err := strconv.ParseFloat(strings.TrimSpace(confRaw), 64)
	if err != nil {
		return evaluationFields{ok: false}
	}

	return evaluationFields{
		success:    success,
		confidence: confidence,
		reasoning:  strings.TrimSpace(fields["REASONING:"]),
		feedback:   strings.TrimSpace(fields["FEEDBACK:"]),
		ok:         true,
	}
}

// scanLabelledFields extracts each marker's text up to the next known
// marker (or end of string), regardless of order of appearance.
func scanLabelledFields(text string, markers ...string) map[string]string {
	type hit struct {
		marker string
		pos    int
	}
	var hits []hit
	for _, m := range markers {
		if i := strings.Index(text, m); i >= 0 {
			hits = append(hits, hit{marker: m, pos: i})
		}
	}
	out := make(map[string]string, len(hits))
	for _, h := range hits {
		end := len(text)
		for _, other := range hits {
			if other.pos > h.pos && other.pos < end {
				end = other.pos
			}
		}
		out[h.marker] = strings.TrimSpace(text[h.pos+len(h.marker) : end])
	}
	return out
}
