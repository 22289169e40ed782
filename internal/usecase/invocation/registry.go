// Package invocation tracks in-flight search invocations per session so that
// a newer invocation supersedes (cancels) the older one.
package invocation

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vecdemo/internal/domain"
)

type ctxKey struct{}

// ContextWithID stores an invocation id in the context.
func ContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the invocation id stored by Begin or ContextWithID.
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Registry holds the latest invocation of each session.
type Registry struct {
	mu       sync.Mutex
	inflight map[string]*Ticket
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{inflight: make(map[string]*Ticket)}
}

// Ticket identifies one invocation.
type Ticket struct {
	id         string
	session    string
	cancel     context.CancelCauseFunc
	superseded atomic.Bool
	reg        *Registry
}

// Begin starts an invocation. The previous in-flight invocation of the same session,
// if any, is cancelled with cause domain.ErrSuperseded. An empty session is not tracked.
func (r *Registry) Begin(ctx context.Context, session string) (context.Context, *Ticket) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancelCause(ctx)
	ctx = ContextWithID(ctx, id)

	t := &Ticket{id: id, session: session, cancel: cancel, reg: r}
	if session == "" {
		return ctx, t
	}

	r.mu.Lock()
	if prev, ok := r.inflight[session]; ok {
		prev.superseded.Store(true)
		prev.cancel(domain.ErrSuperseded)
	}
	r.inflight[session] = t
	r.mu.Unlock()

	return ctx, t
}

// InFlight returns the number of tracked sessions with an unfinished invocation.
func (r *Registry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// ID returns the invocation id.
func (t *Ticket) ID() string { return t.id }

// Session returns the session key the invocation was started under.
func (t *Ticket) Session() string { return t.session }

// Current reports whether no newer invocation of the same session has begun.
func (t *Ticket) Current() bool { return !t.superseded.Load() }

// Done releases the invocation context. Safe to call more than once.
func (t *Ticket) Done() {
	t.cancel(nil)
	if t.session == "" {
		return
	}
	t.reg.mu.Lock()
	if t.reg.inflight[t.session] == t {
		delete(t.reg.inflight, t.session)
	}
	t.reg.mu.Unlock()
}
