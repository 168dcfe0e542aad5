package pool

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/cuemby/edgerunner/pkg/connwatch"
	"github.com/cuemby/edgerunner/pkg/health"
)

// Key is a 64-bit content hash uniquely identifying a worker instance in
// the pool. Equality implies "same worker".
type Key uint64

// String renders the key the way it is logged and shown in the admin
// pool snapshot.
func (k Key) String() string {
	return fmt.Sprintf("%016x", uint64(k))
}

// DeriveKey computes the pool key for a service path: a
// non-cryptographic 64-bit digest of the path, salted with a
// millisecond timestamp when forceCreate is set so that a force-created
// worker gets a fresh, distinct key. It returns both the key and the
// exact string that was hashed, since Create stores the latter as the
// worker's effective ServicePath.
func DeriveKey(servicePath string, forceCreate bool) (Key, string) {
	input := servicePath
	if forceCreate {
		input = fmt.Sprintf("%s-%d", servicePath, time.Now().UnixMilli())
	}
	return Key(xxhash.Sum64String(input)), input
}

// WorkerInitOptions is the Create request payload. The
// unexported fields are populated by the controller itself before a
// creation task is spawned; callers only ever set the exported ones.
type WorkerInitOptions struct {
	ServicePath string
	ForceCreate bool
	ExecutionID string

	key       Key
	poolInbox chan controlMsg
}

// Key returns the pool key the controller derived for this create
// request. Only meaningful once the StartupFunc has received it.
func (o WorkerInitOptions) Key() Key { return o.key }

// WorkerHandle is the addressable endpoint of a single worker: an
// inbox for request messages, and an optional Stop callback. Go
// channels aren't reference-counted the way an mpsc sender is, so "drop
// the last inbox sender to signal exit" is realized here as an explicit
// Stop call from the controller on Shutdown, the idiomatic substitute.
type WorkerHandle struct {
	Inbox chan<- RequestMsg
	Stop  func()
}

// RequestSender is the narrow capability the connection service
// depends on: a sender of request messages. WorkerHandle satisfies it;
// the connection service holds one for the main worker and never sees
// the rest of WorkerHandle's surface.
type RequestSender interface {
	Send(ctx context.Context, msg RequestMsg) error
}

// Send forwards msg to the worker's inbox, the capability the
// connection service depends on to hand off a request.
func (h WorkerHandle) Send(ctx context.Context, msg RequestMsg) error {
	if h.Inbox == nil {
		return ErrWorkerUnavailable
	}
	select {
	case h.Inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestMsg is what the pool controller forwards into a worker's inbox
// for each dispatched HTTP request.
type RequestMsg struct {
	Request        *http.Request
	ResponseReturn chan<- ResponseResult
	ConnWatch      *connwatch.Watch
}

// ResponseResult is the single reply a worker sends on RequestMsg's
// ResponseReturn channel, exactly once, per the worker contract.
type ResponseResult struct {
	Response *http.Response
	Err      error
}

// StartupFunc is the external worker-startup routine (the script
// execution engine is out of scope here): given the augmented init
// options, it starts a worker and returns its handle.
type StartupFunc func(ctx context.Context, opts WorkerInitOptions) (WorkerHandle, error)

// dispatchBacklog bounds how many dispatches can be queued ahead of a
// single worker's inbox send. The controller enqueues into this instead
// of sending to the worker's inbox itself, so one slow worker can never
// block the controller loop; a full backlog means the worker is falling
// behind badly enough that queuing further would only make ordering
// worse, so the newest dispatch is failed instead of queued.
const dispatchBacklog = 64

// dispatchJob is one request queued for a worker's forwarder goroutine,
// carrying the context the original Dispatch call was bound to so a
// client cancellation still unblocks the inbox send while queued.
type dispatchJob struct {
	ctx context.Context
	msg RequestMsg
}

// Profile is the pool map's value type: the worker's handle, its
// aggregated health/idle state, and the dispatch queue that gives it a
// single forwarder so concurrent dispatches to the same key reach its
// inbox in the order the controller received them.
type Profile struct {
	Handle       WorkerHandle
	Health       *health.Status
	CreatedAt    time.Time
	LastDispatch time.Time

	queue chan dispatchJob
}

func newProfile(handle WorkerHandle, now time.Time) *Profile {
	p := &Profile{
		Handle:       handle,
		Health:       health.NewStatus(),
		CreatedAt:    now,
		LastDispatch: now,
		queue:        make(chan dispatchJob, dispatchBacklog),
	}
	go p.forward()
	return p
}

// forward drains the profile's dispatch queue one job at a time, so two
// dispatches the controller accepted back-to-back for this key reach
// WorkerHandle.Send in that same order, preserving FIFO-per-worker even
// though Dispatch calls arrive from multiple connections concurrently.
// Returns once the controller closes the queue on Shutdown.
func (p *Profile) forward() {
	for job := range p.queue {
		if err := p.Handle.Send(job.ctx, job.msg); err != nil {
			job.msg.ResponseReturn <- ResponseResult{Err: err}
		}
	}
}

// enqueue offers job to the profile's forwarder without blocking the
// controller loop. false means the backlog is full.
func (p *Profile) enqueue(job dispatchJob) bool {
	select {
	case p.queue <- job:
		return true
	default:
		return false
	}
}

func (p *Profile) touch(now time.Time) {
	p.LastDispatch = now
}

// EvictionPolicy decides, on an Idle advisory, whether a profile should
// be evicted from the pool: a pluggable predicate rather than a fixed
// policy, since idle-eviction thresholds vary by deployment.
type EvictionPolicy func(p *Profile, now time.Time) bool

// NeverEvict is the default policy: Idle advisories never trigger
// removal.
func NeverEvict(*Profile, time.Time) bool { return false }

// IdleAfter returns a policy that evicts a profile once a
// health.CheckTypeIdle check against its last dispatch time reports
// unhealthy. A single-retry health.Config is used so one Idle advisory
// past the threshold is sufficient to trigger eviction. InStartPeriod
// is consulted first, but the config's StartPeriod is zero, so it never
// holds eviction back: a worker that has not yet served a request is
// evicted like any other once it is past the threshold.
func IdleAfter(d time.Duration) EvictionPolicy {
	cfg := health.DefaultConfig()
	cfg.Retries = 1
	return func(p *Profile, now time.Time) bool {
		if p.Health.InStartPeriod(cfg) {
			return false
		}
		checker := health.NewIdleChecker(d,
			func() time.Time { return p.LastDispatch },
			func() time.Time { return now },
		)
		p.Health.Update(checker.Check(context.Background()), cfg)
		return !p.Health.Healthy
	}
}

// WorkerInfo is the read-only projection of a Profile returned by
// Snapshot, for the admin API (admin port).
type WorkerInfo struct {
	Key          Key
	CreatedAt    time.Time
	LastDispatch time.Time
	Healthy      bool
}
