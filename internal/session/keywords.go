package session

import (
	"regexp"
	"strings"
)

// domainVocabulary is the curated set of technology tokens used by the
// session-continuity keyword filter (spec 4.6's "domain vocabulary").
// Generalized from the original Python implementation's narrowly
// calculator-demo-specific word list into a general-purpose
// coding-assistant vocabulary: language/framework names and common
// programming nouns.
var domainVocabulary = buildSet(
	// languages
	"python", "go", "golang", "rust", "java", "javascript", "typescript",
	"ruby", "php", "swift", "kotlin", "scala", "c", "cpp",
	// frameworks / runtimes
	"react", "vue", "angular", "django", "flask", "express", "gin", "echo",
	"fastapi", "spring", "rails", "node", "deno",
	// programming nouns
	"api", "endpoint", "database", "function", "component", "class",
	"module", "package", "interface", "struct", "method", "variable",
	"server", "client", "service", "handler", "middleware", "schema",
	"query", "route", "controller", "repository", "test", "config",
	"script", "library", "cli", "binary", "compiler", "parser", "token",
	"lexer", "grammar", "regex", "thread", "goroutine", "channel", "mutex",
	"pointer", "slice", "array", "map", "struct", "generic", "async",
	// common task nouns (specific subset lives in taskNouns below too)
	"calculator", "scraper", "bot", "app", "application", "website", "game",
	"tool", "cache", "queue", "pipeline", "worker", "dispatcher", "router",
)

// taskNouns is the specific subset of the domain vocabulary: tokens that
// name a concrete artefact a task is "about", strong enough on their own
// to establish continuity (spec 4.6 step 5's "specific token... a
// task-noun like calculator").
var taskNouns = buildSet(
	"calculator", "scraper", "bot", "app", "application", "website", "game",
	"tool", "api", "server", "parser", "compiler", "cli", "database",
	"pipeline", "dispatcher", "router", "service",
)

// genericTokens are overlap tokens too common to establish continuity on
// their own (spec 4.6 step 7).
var genericTokens = buildSet(
	"create", "implement", "function", "next", "step", "simple", "basic",
)

// continuationTokens are explicit phrases that unconditionally mark a
// request as continuing the active context (spec 4.6 step 2).
var continuationTokens = []string{
	"continue", "next", "keep going", "proceed", "finish", "done?",
	"status", "progress",
}

func buildSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

var tokenRegex = regexp.MustCompile(`[A-Za-z]+`)

// extractKeywords tokenises text on non-alphabetic boundaries, lowercases,
// keeps tokens of length >= 2, and retains only tokens that are either in
// the domain vocabulary or were originally capitalised in the source
// (likely proper nouns) — no stemming, per spec 4.6.
func extractKeywords(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range tokenRegex.FindAllString(text, -1) {
		if len(tok) < 2 {
			continue
		}
		lower := strings.ToLower(tok)
		capitalised := tok[0] >= 'A' && tok[0] <= 'Z'
		if capitalised {
			out[lower] = struct{}{}
			continue
		}
		if _, ok := domainVocabulary[lower]; ok {
			out[lower] = struct{}{}
		}
	}
	return out
}

func containsAnyToken(text string, tokens []string) bool {
	lower := strings.ToLower(text)
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

func intersect(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func anyIsSpecific(tokens []string) bool {
	for _, t := range tokens {
		if _, ok := taskNouns[t]; ok {
			return true
		}
	}
	return false
}

func allGeneric(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if _, ok := genericTokens[t]; !ok {
			return false
		}
	}
	return true
}

// fileExtensionRegex matches a bare filename with an extension relevant to
// a coding assistant's output, extending the original's extension list
// with Go-ecosystem extensions (go, mod, sum, rs, java, rb, c/cpp/h).
var fileExtensionRegex = regexp.MustCompile(`\b[\w.-]+\.(go|mod|sum|py|js|jsx|ts|tsx|html|css|scss|json|yaml|yml|md|txt|sql|sh|bat|rs|java|rb|php|c|cpp|h|hpp)\b`)

func mentionsFile(text string, files map[string]struct{}) bool {
	lower := strings.ToLower(text)
	for f := range files {
		if strings.Contains(lower, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

func mentionsTool(text string, tools map[string]int) bool {
	lower := strings.ToLower(text)
	for name := range tools {
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// taskContinuationPhrase reports whether text contains "the <noun>" for any
// task noun — spec 4.6 step 7's alternate qualifying condition.
func taskContinuationPhrase(text string) bool {
	lower := strings.ToLower(text)
	for noun := range taskNouns {
		if strings.Contains(lower, "the "+noun) {
			return true
		}
	}
	return false
}
