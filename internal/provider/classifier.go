package provider

import "regexp"

// Recommendation is the result of classifying a task's text: a suggested
// provider/model pair and a confidence in [0,1].
type Recommendation struct {
	Provider   string
	Model      string
	Confidence float64
}

var (
	codeRegex     = regexp.MustCompile(`(?i)\b(function|class|import|def|const|var|package|compile|syntax|refactor)\b`)
	reasonRegex   = regexp.MustCompile(`(?i)\b(why|explain|reason|analy[sz]e|compare|trade-?off)\b`)
	quickRegex    = regexp.MustCompile(`(?i)^(what|who|when|is|are|list|show)\b`)
	markdownCode  = regexp.MustCompile("```")
)

// Classify tags free-form task text as a rough intent, grounded on the
// teacher's HeuristicClassifier: code/reasoning/quick. Used by
// Router.Recommend; the Orchestrator's direct-vs-agentic decision uses its
// own classifier.
func Classify(text string) []string {
	var tags []string
	if codeRegex.MatchString(text) || markdownCode.MatchString(text) {
		tags = append(tags, "code")
	}
	if reasonRegex.MatchString(text) {
		tags = append(tags, "reasoning")
	}
	if quickRegex.MatchString(text) {
		tags = append(tags, "quick")
	}
	return tags
}
