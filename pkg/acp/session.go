package acp

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// sessionState tracks whether a session currently has a prompt turn in
// flight, enforcing the at-most-one-in-flight-prompt-per-session
// invariant (§4.8) and giving session/cancel a cancel function to call.
type sessionState struct {
	mu       sync.Mutex
	prompt   bool
	cancelFn context.CancelFunc
}

// sessionRecord is what the registry keeps per session id.
type sessionRecord struct {
	id    string
	state *sessionState
}

// sessionRegistry maps session ids to records. The connection controller
// dispatches every inbound message on its own goroutine, so create, get,
// and delete can run concurrently and the map is guarded by mu.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionRecord
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*sessionRecord)}
}

// newID generates a fresh session id for "session/new".
func (r *sessionRegistry) newID() string {
	return uuid.NewString()
}

// create registers a session under id, generated by newID or supplied by
// "session/load".
func (r *sessionRegistry) create(id string) *sessionRecord {
	rec := &sessionRecord{id: id, state: &sessionState{}}
	r.mu.Lock()
	r.sessions[id] = rec
	r.mu.Unlock()
	return rec
}

// get looks up a session record by id.
func (r *sessionRegistry) get(id string) (*sessionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.sessions[id]
	return rec, ok
}

// delete drops a session from the registry. cancelAll uses it to drop
// every session at connection shutdown (the engine keeps no history beyond
// the in-flight flag, per the no-persistence Non-goal).
func (r *sessionRegistry) delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// count reports how many sessions are registered, for the sessions
// metrics gauge.
func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// cancelAll cancels every session's in-flight prompt, if any, and drops
// every session from the registry. The connection controller calls this
// as part of shutdown: a session/prompt handler that only returns once its
// context is cancelled would otherwise never be signalled once the
// transport has closed, and Run's wg.Wait() would block forever waiting
// for it.
func (r *sessionRegistry) cancelAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	recs := make([]*sessionRecord, 0, len(r.sessions))
	for id, rec := range r.sessions {
		ids = append(ids, id)
		recs = append(recs, rec)
	}
	r.mu.Unlock()

	for _, rec := range recs {
		rec.cancel()
	}
	for _, id := range ids {
		r.delete(id)
	}
}

// beginPrompt marks rec busy and returns a cancellable context for the
// prompt handler to run under. It reports ErrSessionBusy if a prompt was
// already in flight.
func (rec *sessionRecord) beginPrompt(parent context.Context) (context.Context, error) {
	rec.state.mu.Lock()
	defer rec.state.mu.Unlock()
	if rec.state.prompt {
		return nil, ErrSessionBusy
	}
	ctx, cancel := context.WithCancel(parent)
	rec.state.prompt = true
	rec.state.cancelFn = cancel
	return ctx, nil
}

// endPrompt clears the in-flight flag once the prompt handler returns.
func (rec *sessionRecord) endPrompt() {
	rec.state.mu.Lock()
	defer rec.state.mu.Unlock()
	rec.state.prompt = false
	rec.state.cancelFn = nil
}

// cancel requests cancellation of the in-flight prompt, if any. A
// session/cancel notification for an idle session is a silent no-op,
// matching the protocol's cooperative-cancellation design (§4.4).
func (rec *sessionRecord) cancel() {
	rec.state.mu.Lock()
	defer rec.state.mu.Unlock()
	if rec.state.cancelFn != nil {
		rec.state.cancelFn()
	}
}
