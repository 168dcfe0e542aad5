package pool

import "errors"

// ErrWorkerUnavailable is returned by Dispatch when the target key is
// absent from the pool map ("user worker not available") or when that
// worker's dispatch backlog is full.
var ErrWorkerUnavailable = errors.New("user worker not available")

// ErrControllerStopped is returned by Create/Dispatch/Snapshot once the
// controller's run loop has exited.
var ErrControllerStopped = errors.New("pool controller stopped")
