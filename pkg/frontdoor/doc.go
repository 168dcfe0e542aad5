/*
Package frontdoor implements the data-port accept loop: bind a
listener, serve a connection service per accepted socket, and graceful-
shutdown on context cancellation.

# Connection token lifecycle

	accept ──▶ ConnContext(ctx, conn) ──▶ token := root.Child()
	                                        guard := token.NewGuard()
	                                        tokens[conn] = guard
	                                        ctx carries token
	            …request(s) served using conn's token…
	close/hijack ──▶ ConnState(conn, StateClosed) ──▶ guard.Release()

Go's net/http has no first-class "per-connection context with a
destructor", so FrontDoor reconstructs one with http.Server's
ConnContext and ConnState hooks plus a sync.Map keyed by net.Conn.

Serve does not install its own signal handler; it reacts only to ctx
cancellation, driven by whatever owns process-level signal handling
(cmd/edgerunnerd). This keeps a sibling admin-port server's lifecycle
independent of the data port's.
*/
package frontdoor
