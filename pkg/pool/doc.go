/*
Package pool implements the worker pool controller: the single
actor responsible for creating, addressing, dispatching to, and
retiring the in-process workers that back a running service path.

# Architecture

	┌────────────────────────── POOL CONTROLLER ──────────────────────────┐
	│                                                                       │
	│  inbox (chan controlMsg, buffered)                                  │
	│     Create   → derive key, dedup hit or spawn createWorker task     │
	│     Created  → first-wins install into the profile map              │
	│     Dispatch → forward into the worker's own inbox, never blocking  │
	│     Shutdown → delete profile, call WorkerHandle.Stop               │
	│     Idle     → evaluate EvictionPolicy, shutdown on true            │
	│     Snapshot → read-only copy of every WorkerInfo                   │
	│                                                                       │
	│  profiles: map[Key]*Profile — owned exclusively by the run loop     │
	└───────────────────────────────────────────────────────────────────────┘

The controller owns its worker map exclusively: every read and every
mutation flows through the single goroutine started by Start, consuming
one message at a time off inbox. Callers never touch the map directly;
Create, Dispatch, Shutdown, Idle, and Snapshot all round-trip through a
message and (where a reply is expected) a buffered reply channel.

# Key derivation

DeriveKey hashes a service path with xxhash to produce the content-
addressed Key that identifies a worker. A force-create salts the input
with the current time in milliseconds, so force-creates for the same
path made in different milliseconds get different keys; two made within
the same millisecond derive the same key.

# Worker lifecycle

A StartupFunc is the pluggable boundary to whatever actually runs a
worker; LoopbackStartup is the in-process reference implementation that
invokes a plain http.Handler per dispatch. WorkerHandle.Stop is called
by the controller on Shutdown to signal the worker to exit, since Go
channels carry no implicit "last sender dropped" signal the way an
mpsc channel would.

# Eviction

EvictionPolicy is a pluggable predicate evaluated against a Profile on
an Idle advisory. NeverEvict is the default; IdleAfter evicts once a
profile has gone longer than a threshold since its last dispatch.
*/
package pool
