/*
Package metrics provides Prometheus metrics collection and exposition for the
edge function runtime.

The metrics package defines and registers runtime metrics using the
Prometheus client library, providing observability into pool size, worker
creation latency, dispatch outcomes, and request handling. Metrics are
exposed via an HTTP endpoint on the admin port for scraping by Prometheus
servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Metric Categories               │          │
	│  │                                              │          │
	│  │  Pool: worker count, create/shutdown totals │          │
	│  │  Dispatch: outcome counts (ok/unavailable)  │          │
	│  │  Connection service: request count, latency │          │
	│  │  Cancellation: tokens fired, by source      │          │
	│  └────────────────────────────────────────────┘          │
	└────────────────────────────────────────────────────────┘

# Usage

Call metrics.Handler() to obtain an http.Handler for the admin mux, and
metrics.NewTimer() around an operation to observe its duration:

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.WorkerCreateDuration)

# Readiness and liveness

The health.go file in this package also exposes a small component health
registry (RegisterComponent, GetHealth, GetReadiness) used by the admin
server's /health, /ready, and /live endpoints. Components are registered
by name ("pool", "frontdoor") as each subsystem finishes starting up.
*/
package metrics
