/*
Package admin implements the auxiliary, read-only JSON admin API: a
gin.Engine bound to its own port and http.Server, entirely independent
of pkg/frontdoor's data-port hot path.

# Endpoints

	GET /health   - aggregate component health (200 or 503)
	GET /ready    - readiness, gated on "pool" and "frontdoor" components
	GET /live     - liveness, always 200 once the process is running
	GET /workers  - pool snapshot: key, created_at, last_dispatch, healthy
	GET /metrics  - Prometheus exposition format

# Isolation

The admin server and the data-port front door share nothing but the
Snapshotter capability (itself routed through the pool
controller's inbox like any other operation); a slow admin-port client
cannot backpressure dispatch, and an admin-port panic recovered by
gin.Recovery() cannot take down request serving.
*/
package admin
