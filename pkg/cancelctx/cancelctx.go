// Package cancelctx implements hierarchical, one-shot, idempotent
// cancellation tokens that link a client connection's lifetime through
// the dispatcher down to a single in-flight request.
//
// A Token wraps a context.Context/context.CancelFunc pair: Go's context
// tree already gives hierarchical, one-shot, idempotent cancellation
// with an atomic done-channel, the same shape as a shared flag plus a
// broadcast mechanism where children register with parents at
// construction. Token.Child registers the parent/child relation at
// construction time by deriving from the parent's own context.
package cancelctx

import (
	"context"
	"sync"
)

type ctxKey struct{}

// Token is one node in the root -> connection -> request hierarchy.
// Cancelling a Token cancels every Token derived from it via Child;
// cancelling a child never affects its parent.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRoot creates the top-level token, the ancestor of every connection
// and request token in the process.
func NewRoot() *Token {
	ctx, cancel := context.WithCancel(context.Background())
	return &Token{ctx: ctx, cancel: cancel}
}

// Child derives a token whose cancellation is implied by t's, but which
// can itself be cancelled independently without affecting t.
func (t *Token) Child() *Token {
	ctx, cancel := context.WithCancel(t.ctx)
	return &Token{ctx: ctx, cancel: cancel}
}

// Cancel fires the token. Safe to call more than once or concurrently;
// only the first call has any effect.
func (t *Token) Cancel() {
	t.cancel()
}

// Done returns a channel closed when the token (or any ancestor) is
// cancelled.
func (t *Token) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Context returns a context.Context that carries this token, retrievable
// later with FromContext, and whose Done channel matches t.Done().
func (t *Token) Context() context.Context {
	return context.WithValue(t.ctx, ctxKey{}, t)
}

// FromContext retrieves the Token embedded by a prior call to
// Token.Context, or nil if none is present.
func FromContext(ctx context.Context) *Token {
	tok, _ := ctx.Value(ctxKey{}).(*Token)
	return tok
}

// Guard is an owning handle that fires its token's cancellation exactly
// once, whichever of its call sites reaches Release first. Go has no
// destructor to hook resource release to, so callers are expected to
// invoke Release from a defer at the point where ownership of the
// underlying resource (a connection, a response body) ends, including
// on early-return and panic-unwind paths.
type Guard struct {
	once  sync.Once
	token *Token
}

// NewGuard creates a Guard over t. Constructing more than one Guard for
// the same token is legal — each fires independently, but the
// underlying token still only cancels once, per Token.Cancel.
func (t *Token) NewGuard() *Guard {
	return &Guard{token: t}
}

// Release cancels the guarded token. Idempotent; reports whether this
// call was the one that actually fired the cancellation, so a caller
// racing another Release site (client-disconnect vs. end-of-stream)
// can tell which source won without the token itself knowing about
// metrics or logging.
func (g *Guard) Release() bool {
	fired := false
	g.once.Do(func() {
		g.token.cancel()
		fired = true
	})
	return fired
}
