package pool

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/edgerunner/pkg/connwatch"
	"github.com/cuemby/edgerunner/pkg/events"
	"github.com/cuemby/edgerunner/pkg/log"
	"github.com/cuemby/edgerunner/pkg/metrics"
)

// inboxCapacity bounds the controller's control-message channel. The
// inbox is logically unbounded since control-plane traffic is modest
// relative to data-plane; Go channels need a concrete size, so this is
// a generous buffer rather than an admission policy.
const inboxCapacity = 4096

// Dispatcher is the narrow capability DispatchSender depends on: route
// a request to a worker by key and await its reply, without knowing
// anything about pool internals. *Controller implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, key Key, req *http.Request, watch *connwatch.Watch) (*http.Response, error)
}

// Controller is the pool controller: the single task that owns the
// worker-pool map and serializes every state transition by consuming a
// totally-ordered stream of control messages, the same actor-loop shape
// as the events broker, generalized from pub/sub fan-out to
// create/dispatch/shutdown request-response semantics.
type Controller struct {
	inbox   chan controlMsg
	startup StartupFunc
	policy  EvictionPolicy
	logger  zerolog.Logger
	broker  *events.Broker

	profiles map[Key]*Profile

	done chan struct{}
}

// New creates a Controller. It does nothing until Start is called.
func New(startup StartupFunc, policy EvictionPolicy) *Controller {
	if policy == nil {
		policy = NeverEvict
	}
	return &Controller{
		inbox:    make(chan controlMsg, inboxCapacity),
		startup:  startup,
		policy:   policy,
		logger:   log.WithComponent("pool"),
		profiles: make(map[Key]*Profile),
		done:     make(chan struct{}),
	}
}

// SetEventBroker wires an events.Broker that the controller publishes
// worker lifecycle events to as it processes control messages. Events
// are consumed by the (out-of-scope) events-worker sidecar bridge;
// publishing is best-effort and never blocks a control message on a
// slow subscriber. Must be called before Start.
func (c *Controller) SetEventBroker(b *events.Broker) {
	c.broker = b
}

func (c *Controller) publish(eventType events.EventType, key Key, message string) {
	if c.broker == nil {
		return
	}
	c.broker.Publish(&events.Event{
		Type:     eventType,
		Message:  message,
		Metadata: map[string]string{"key": key.String()},
	})
}

// Start spawns the controller's run loop. It returns immediately; the
// loop exits when ctx is cancelled.
func (c *Controller) Start(ctx context.Context) {
	go c.run(ctx)
}

// Done returns a channel closed once the run loop has exited, so
// callers blocked sending to or receiving from the inbox can bail out
// instead of hanging forever against a dead controller.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.inbox:
			c.handle(ctx, msg)
		}
	}
}

func (c *Controller) handle(ctx context.Context, msg controlMsg) {
	switch m := msg.(type) {
	case createMsg:
		c.handleCreate(ctx, m)
	case createdMsg:
		c.handleCreated(m)
	case dispatchMsg:
		c.handleDispatch(m)
	case shutdownMsg:
		c.handleShutdown(m)
	case idleMsg:
		c.handleIdle(m)
	case snapshotMsg:
		c.handleSnapshot(m)
	}
}

// handleCreate implements idempotent-hit semantics: a non-force create
// for a key already present in the pool returns immediately, otherwise
// a creation task is spawned.
func (c *Controller) handleCreate(ctx context.Context, m createMsg) {
	key, keyInput := DeriveKey(m.opts.ServicePath, m.opts.ForceCreate)
	c.publish(events.EventWorkerCreateRequested, key, m.opts.ServicePath)

	if !m.opts.ForceCreate {
		if _, ok := c.profiles[key]; ok {
			metrics.WorkerCreatesTotal.WithLabelValues("hit").Inc()
			m.reply <- CreateResult{Key: key}
			return
		}
	}

	opts := m.opts
	opts.key = key
	opts.ServicePath = keyInput
	if opts.ExecutionID == "" {
		opts.ExecutionID = uuid.NewString()
	}
	opts.poolInbox = c.inbox

	go c.createWorker(ctx, key, opts, m.reply)
}

func (c *Controller) createWorker(ctx context.Context, key Key, opts WorkerInitOptions, reply chan<- CreateResult) {
	timer := metrics.NewTimer()
	handle, err := c.startup(ctx, opts)
	timer.ObserveDuration(metrics.WorkerCreateDuration)

	if err != nil {
		metrics.WorkerCreatesTotal.WithLabelValues("error").Inc()
		c.logger.Error().Err(err).Str("service_path", opts.ServicePath).Msg("worker startup failed")
		c.publish(events.EventWorkerCreateFailed, key, err.Error())
		reply <- CreateResult{Err: err}
		return
	}

	select {
	case c.inbox <- createdMsg{key: key, handle: handle}:
	case <-ctx.Done():
		return
	}

	metrics.WorkerCreatesTotal.WithLabelValues("created").Inc()
	reply <- CreateResult{Key: key}
}

// handleCreated applies first-wins dedup on a race between two creation
// tasks for the same key.
func (c *Controller) handleCreated(m createdMsg) {
	if _, exists := c.profiles[m.key]; exists {
		c.logger.Debug().Str("key", m.key.String()).Msg("dropping duplicate worker for already-present key")
		if m.handle.Stop != nil {
			m.handle.Stop()
		}
		return
	}

	c.profiles[m.key] = newProfile(m.handle, time.Now())
	metrics.WorkersTotal.Set(float64(len(c.profiles)))
	c.publish(events.EventWorkerCreated, m.key, "worker is now addressable")
}

// handleDispatch replies "unavailable" for an absent key, otherwise
// queues the request on the profile's own forwarder so the controller
// is never blocked on a worker inbox, while still handing work to that
// worker in the order the controller accepted it (see Profile.forward).
func (c *Controller) handleDispatch(m dispatchMsg) {
	profile, ok := c.profiles[m.key]
	if !ok {
		metrics.DispatchesTotal.WithLabelValues("unavailable").Inc()
		c.logger.Error().Str("key", m.key.String()).Msg("user worker not available")
		m.responseReturn <- ResponseResult{Err: ErrWorkerUnavailable}
		return
	}

	profile.touch(time.Now())
	c.publish(events.EventWorkerDispatched, m.key, "request dispatched")

	job := dispatchJob{
		ctx: m.req.Context(),
		msg: RequestMsg{
			Request:        m.req,
			ResponseReturn: m.responseReturn,
			ConnWatch:      m.watch,
		},
	}

	if !profile.enqueue(job) {
		metrics.DispatchesTotal.WithLabelValues("backlogged").Inc()
		c.logger.Error().Str("key", m.key.String()).Msg("worker dispatch backlog full")
		m.responseReturn <- ResponseResult{Err: ErrWorkerUnavailable}
		return
	}

	metrics.DispatchesTotal.WithLabelValues("ok").Inc()
}

// handleShutdown removes a profile and signals the worker to exit via
// Stop (see WorkerHandle's doc comment).
func (c *Controller) handleShutdown(m shutdownMsg) {
	profile, ok := c.profiles[m.key]
	if !ok {
		return
	}

	delete(c.profiles, m.key)
	metrics.WorkerShutdownsTotal.Inc()
	metrics.WorkersTotal.Set(float64(len(c.profiles)))
	c.publish(events.EventWorkerShutdown, m.key, "worker profile removed")

	close(profile.queue)
	if profile.Handle.Stop != nil {
		profile.Handle.Stop()
	}
}

// handleIdle evaluates the eviction policy against the profile's
// current state.
func (c *Controller) handleIdle(m idleMsg) {
	profile, ok := c.profiles[m.key]
	if !ok {
		return
	}
	c.publish(events.EventWorkerIdle, m.key, "idle advisory received")
	if c.policy(profile, time.Now()) {
		c.handleShutdown(shutdownMsg{key: m.key})
	}
}

func (c *Controller) handleSnapshot(m snapshotMsg) {
	infos := make([]WorkerInfo, 0, len(c.profiles))
	for key, profile := range c.profiles {
		healthy := true
		if profile.Health != nil {
			healthy = profile.Health.Healthy
		}
		infos = append(infos, WorkerInfo{
			Key:          key,
			CreatedAt:    profile.CreatedAt,
			LastDispatch: profile.LastDispatch,
			Healthy:      healthy,
		})
	}
	m.reply <- infos
}

// Create ensures a worker exists for opts.ServicePath, returning its
// key.
func (c *Controller) Create(ctx context.Context, opts WorkerInitOptions) (Key, error) {
	reply := make(chan CreateResult, 1)
	select {
	case c.inbox <- createMsg{opts: opts, reply: reply}:
	case <-c.done:
		return 0, ErrControllerStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.Key, res.Err
	case <-c.done:
		return 0, ErrControllerStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Dispatch routes req to the worker identified by key and awaits its
// reply. watch may be nil if the caller has no connection-liveness
// signal to propagate.
func (c *Controller) Dispatch(ctx context.Context, key Key, req *http.Request, watch *connwatch.Watch) (*http.Response, error) {
	responseReturn := make(chan ResponseResult, 1)
	msg := dispatchMsg{key: key, req: req, responseReturn: responseReturn, watch: watch}

	select {
	case c.inbox <- msg:
	case <-c.done:
		return nil, ErrControllerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-responseReturn:
		return res.Response, res.Err
	case <-c.done:
		return nil, ErrControllerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown drops the profile for key. Best-effort: if the controller
// has already stopped, it is a no-op.
func (c *Controller) Shutdown(key Key) {
	select {
	case c.inbox <- shutdownMsg{key: key}:
	case <-c.done:
	}
}

// Idle sends an eviction advisory for key.
func (c *Controller) Idle(key Key) {
	select {
	case c.inbox <- idleMsg{key: key}:
	case <-c.done:
	}
}

// Snapshot returns a point-in-time read of every profile in the pool,
// for the admin API. It goes through the controller's inbox like any
// other operation, since the controller holds exclusive ownership of
// the pool map and even a read-only listing must be serialized through
// it rather than peeking at shared state.
func (c *Controller) Snapshot(ctx context.Context) ([]WorkerInfo, error) {
	reply := make(chan []WorkerInfo, 1)
	select {
	case c.inbox <- snapshotMsg{reply: reply}:
	case <-c.done:
		return nil, ErrControllerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case infos := <-reply:
		return infos, nil
	case <-c.done:
		return nil, ErrControllerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
