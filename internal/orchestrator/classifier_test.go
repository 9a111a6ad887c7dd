package orchestrator

import "testing"

func TestClassify_PureLookupIsDirect(t *testing.T) {
	for _, req := range []string{"list files", "show status"} {
		if isAgentic(req) {
			t.Fatalf("expected %q to classify as direct", req)
		}
	}
}

func TestClassify_LongRequestIsAgentic(t *testing.T) {
	req := "please go through every file in this directory and tell me what each one does"
	if !isAgentic(req) {
		t.Fatalf("expected long request to classify as agentic")
	}
}

func TestClassify_SystemicVerbTriggersAgentic(t *testing.T) {
	for _, req := range []string{"debug this", "refactor auth.go", "plan the migration"} {
		if !isAgentic(req) {
			t.Fatalf("expected %q to classify as agentic", req)
		}
	}
}

func TestClassify_ConjunctionTriggersAgentic(t *testing.T) {
	req := "build it and then ship it"
	if !isAgentic(req) {
		t.Fatal("expected multi-clause conjunction to classify as agentic")
	}
}
