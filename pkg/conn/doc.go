/*
Package conn implements the connection service: the per-request HTTP
handler that turns an inbound request into a pool.RequestMsg, awaits
the worker's reply, and streams it back to the client.

# Request lifecycle

	accept (frontdoor) ──▶ ServeHTTP
	                          │
	                          ├─ reqToken := connToken.Child()
	                          ├─ watch := connwatch.New()
	                          ├─ mainWorker.Send(RequestMsg{...})
	                          │
	                          ├─ responseReturn ◀── worker replies
	                          │        │
	                          │        ▼
	                          │   wrapBody(resp.Body, guard)
	                          │        │
	                          ▼        ▼
	                       io.Copy(w, body) ──▶ client
	                          │
	                          └─ body.Close() ──▶ guard.Release() ──▶ reqToken cancelled

A linkage goroutine watches reqToken.Done() and flips the connwatch to
Recv the moment the request token fires, for any reason: the client
disconnected, or the response finished streaming and the end-of-stream
notifier released its guard. Either way the worker, if it is still
checking the watch, learns there is nothing further to deliver to.

Service holds only a pool.RequestSender — the narrow "forward a
request message" capability — never a *pool.Controller, so it cannot
itself pick which user worker ultimately serves a request. That
decision belongs to whatever is listening on the other end of the main
worker's inbox.
*/
package conn
