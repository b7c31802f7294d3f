package acp

import (
	"encoding/json"
	"testing"
)

func TestPolicyPassThroughWhenEmpty(t *testing.T) {
	t.Parallel()

	p, err := NewPolicy("")
	if err != nil {
		t.Fatalf("NewPolicy() error: %v", err)
	}
	allow, reason := p.Evaluate("session/prompt", json.RawMessage(`{"sessionId":"s1"}`))
	if !allow || reason != "" {
		t.Fatalf("Evaluate() = %v, %q, want true, \"\"", allow, reason)
	}
}

func TestPolicyDeniesByMethod(t *testing.T) {
	t.Parallel()

	p, err := NewPolicy(`method != "terminal/create"`)
	if err != nil {
		t.Fatalf("NewPolicy() error: %v", err)
	}

	allow, _ := p.Evaluate("session/prompt", nil)
	if !allow {
		t.Fatal("Evaluate(session/prompt) = false, want true")
	}

	allow, reason := p.Evaluate("terminal/create", json.RawMessage(`{"sessionId":"s1","command":"rm"}`))
	if allow {
		t.Fatal("Evaluate(terminal/create) = true, want false")
	}
	if reason == "" {
		t.Fatal("Evaluate() denial carried no reason")
	}
}

func TestPolicyCachesDecision(t *testing.T) {
	t.Parallel()

	p, err := NewPolicy(`method == "session/prompt"`)
	if err != nil {
		t.Fatalf("NewPolicy() error: %v", err)
	}
	params := json.RawMessage(`{"sessionId":"s1"}`)

	allow1, _ := p.Evaluate("session/prompt", params)
	key := p.cacheKey("session/prompt", "s1", params)
	entry, ok := p.lookupCache(key)
	if !ok {
		t.Fatal("decision not cached after Evaluate()")
	}
	if entry.allow != allow1 {
		t.Fatalf("cached allow = %v, want %v", entry.allow, allow1)
	}
}

func TestPolicyInvalidExpressionFailsToCompile(t *testing.T) {
	t.Parallel()
	if _, err := NewPolicy("method +++ nonsense((("); err == nil {
		t.Fatal("NewPolicy() on invalid expression: want error, got nil")
	}
}
