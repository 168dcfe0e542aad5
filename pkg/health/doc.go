/*
Package health provides the health/idle tracking shape used by worker
profiles in the pool.

A worker profile may optionally carry an aggregated health/idle state.
This package provides that shape independently of the pool so it can be
reused by any eviction policy without importing the pool package
itself.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│                     Checker Interface                       │
	│  • Check(ctx) Result                                         │
	│  • Type() CheckType                                          │
	└────────┬─────────────────────────────────────────────────────┘
	         │
	         ▼
	┌────────────────┐
	│  Idle Checker   │   compares a worker's last-dispatch timestamp
	│                 │   against its idle threshold
	└────────┬────────┘
	         ▼
	┌─────────────────────────────────────────────────────────────┐
	│  Status: ConsecutiveFailures/Successes, Healthy, StartedAt   │
	└─────────────────────────────────────────────────────────────┘

Status.Update folds a Result into the running consecutive-failure count,
flipping Healthy only after Config.Retries consecutive unhealthy results
— avoiding eviction flapping on a single slow request.
*/
package health
