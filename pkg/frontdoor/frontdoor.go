package frontdoor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/edgerunner/pkg/cancelctx"
	"github.com/cuemby/edgerunner/pkg/log"
)

// shutdownGrace bounds how long an in-flight request gets to drain
// once the accept loop has been asked to stop.
const shutdownGrace = 10 * time.Second

// FrontDoor owns the data-port accept loop: it binds a listener, serves
// a connection service per accepted socket, and attaches a
// cancelctx.Token to every live connection so the connection service
// can derive per-request cancellation from it.
//
// Signal handling lives one level up, in cmd/edgerunnerd: a front door
// only reacts to context cancellation, it never calls signal.Notify
// itself, so an admin-port server running alongside it is not left
// orphaned when the front door alone decided to shut down.
type FrontDoor struct {
	addr    string
	handler http.Handler
	logger  zerolog.Logger

	root   *cancelctx.Token
	tokens sync.Map // net.Conn -> *cancelctx.Guard
}

// New returns a FrontDoor that serves handler on addr once Serve is
// called.
func New(addr string, handler http.Handler) *FrontDoor {
	return &FrontDoor{
		addr:    addr,
		handler: handler,
		logger:  log.WithComponent("frontdoor"),
		root:    cancelctx.NewRoot(),
	}
}

// Serve binds the data-port listener and serves until ctx is
// cancelled, then drains in-flight connections within shutdownGrace
// before returning. It never forcibly aborts a connection; a request
// still streaming when the grace period expires is left to finish on
// its own token.
func (f *FrontDoor) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", f.addr)
	if err != nil {
		return fmt.Errorf("front door: failed to listen on %s: %w", f.addr, err)
	}

	server := &http.Server{
		Handler:     f.handler,
		ConnContext: f.connContext,
		ConnState:   f.connState,
	}

	serveErr := make(chan error, 1)
	go func() {
		f.logger.Info().Str("addr", f.addr).Msg("front door listening")
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("front door: serve failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	f.logger.Info().Msg("front door shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("front door: graceful shutdown failed: %w", err)
	}
	f.root.Cancel()
	return nil
}

// connContext attaches a fresh per-connection cancellation token,
// child of the front door's root, to every accepted connection's
// context.
func (f *FrontDoor) connContext(ctx context.Context, c net.Conn) context.Context {
	token := f.root.Child()
	guard := token.NewGuard()
	f.tokens.Store(c, guard)
	return token.Context()
}

// connState releases a connection's token the moment net/http reports
// it closed or hijacked, the substitute for an owned per-connection
// scope with a destructor.
func (f *FrontDoor) connState(c net.Conn, state http.ConnState) {
	switch state {
	case http.StateClosed, http.StateHijacked:
		if v, ok := f.tokens.LoadAndDelete(c); ok {
			v.(*cancelctx.Guard).Release()
		}
	}
}
