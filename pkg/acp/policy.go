package acp

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types/ref"
)

// Policy evaluates a CEL expression against every inbound request and
// notification before it reaches the dispatcher (§4.9). Construction
// compiles the expression once; Evaluate is the hot path and is safe for
// concurrent use.
//
// A Policy with no expression configured is a pass-through: NewPolicy
// with an empty expr string returns a Policy whose Evaluate always
// allows, skipping CEL evaluation entirely rather than running a trivial
// "true" program on every message.
type Policy struct {
	program cel.Program // nil means pass-through

	cacheMu  sync.Mutex
	cache    map[uint64]cacheEntry
	cacheCap int
	cacheTTL time.Duration
}

type cacheEntry struct {
	allow   bool
	reason  string
	expires time.Time
}

const defaultPolicyCacheCapacity = 4096
const defaultPolicyCacheTTL = 60 * time.Second

// NewPolicy compiles expr, a CEL expression over variables `method`
// (string), `session_id` (string), and `params` (a dynamic map decoded
// from the request/notification params), expected to evaluate to a bool.
// An empty expr builds a pass-through Policy.
func NewPolicy(expr string) (*Policy, error) {
	p := &Policy{
		cache:    make(map[uint64]cacheEntry),
		cacheCap: defaultPolicyCacheCapacity,
		cacheTTL: defaultPolicyCacheTTL,
	}
	if expr == "" {
		return p, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("method", cel.StringType),
		cel.Variable("session_id", cel.StringType),
		cel.Variable("params", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("acp: building policy environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("acp: compiling policy expression: %w", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("acp: building policy program: %w", err)
	}
	p.program = prg
	return p, nil
}

// Evaluate reports whether method/params should be allowed through to the
// dispatcher, and a human-readable reason when it is denied. Decisions
// are cached by the xxhash of (method, session_id, params) with an
// implicit TTL, so a Policy guarding a high-traffic method does not
// re-evaluate the (once-compiled) CEL program on every call.
func (p *Policy) Evaluate(method string, params json.RawMessage) (bool, string) {
	if p == nil || p.program == nil {
		return true, ""
	}

	sessionID := peekSessionID(params)
	key := p.cacheKey(method, sessionID, params)

	if entry, ok := p.lookupCache(key); ok {
		return entry.allow, entry.reason
	}

	var paramsVal any
	if len(params) > 0 {
		_ = json.Unmarshal(params, &paramsVal)
	}

	out, _, err := p.program.Eval(map[string]any{
		"method":     method,
		"session_id": sessionID,
		"params":     paramsVal,
	})
	allow, reason := interpretPolicyResult(out, err)
	p.storeCache(key, allow, reason)
	return allow, reason
}

func interpretPolicyResult(out ref.Val, err error) (bool, string) {
	if err != nil {
		return false, fmt.Sprintf("policy evaluation error: %s", err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, "policy expression did not evaluate to a bool"
	}
	if !b {
		return false, "denied by policy expression"
	}
	return true, ""
}

func (p *Policy) cacheKey(method, sessionID string, params json.RawMessage) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(method)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(sessionID)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(params)
	return h.Sum64()
}

func (p *Policy) lookupCache(key uint64) (cacheEntry, bool) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	entry, ok := p.cache[key]
	if !ok || time.Now().After(entry.expires) {
		return cacheEntry{}, false
	}
	return entry, true
}

func (p *Policy) storeCache(key uint64, allow bool, reason string) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if len(p.cache) >= p.cacheCap {
		p.evictOneLocked()
	}
	p.cache[key] = cacheEntry{allow: allow, reason: reason, expires: time.Now().Add(p.cacheTTL)}
}

// evictOneLocked drops an arbitrary entry when the cache is at capacity.
// Go map iteration order is randomized, which gives this the effect of
// random eviction without tracking recency explicitly; callers hold
// cacheMu.
func (p *Policy) evictOneLocked() {
	for k := range p.cache {
		delete(p.cache, k)
		return
	}
}

// peekSessionID extracts a top-level "sessionId" string from params
// without committing to any one params type, since the policy evaluator
// runs ahead of the dispatcher's method-specific decoding.
func peekSessionID(params json.RawMessage) string {
	if len(params) == 0 {
		return ""
	}
	var v struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(params, &v); err != nil {
		return ""
	}
	return v.SessionID
}
