/*
Package events provides an in-memory event broker used to surface worker
lifecycle events to the (out-of-scope) events-worker sidecar.

The events package implements a lightweight pub/sub bus: the pool
controller publishes a worker lifecycle event for every Create control
message, for a failed worker startup, and for Created, Dispatch, Idle,
and Shutdown messages that install or find a profile, and any
number of subscribers (metrics, the events-worker sidecar bridge) can
observe them without coupling to the controller itself.

# Architecture

	┌──────────────────── EVENT BROKER ────────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              Event Broker                   │          │
	│  │  - In-memory message bus                    │          │
	│  │  - Non-blocking publish (buffer: 100)       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Event Distribution                 │          │
	│  │  Publisher → Event Channel → Broadcast Loop │          │
	│  │       → Subscriber Channels (buffer: 50)    │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Event Types                       │          │
	│  │  worker.create_requested / .created         │          │
	│  │  worker.create_failed / .dispatched         │          │
	│  │  worker.idle / worker.shutdown              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("%s: %s\n", event.Type, event.Message)
		}
	}()

	broker.Publish(&events.Event{
		Type:    events.EventWorkerCreated,
		Message: "worker for key 9f2a... is now addressable",
	})

# Design notes

Publish hands the event to the broker's 100-event buffer and returns; it
waits only while that buffer is full (and returns at once after Stop).
Delivery is best-effort: a full subscriber buffer skips that subscriber
rather than blocking the broadcast loop or the pool controller. This mirrors
the pool controller's own never-block-on-a-peer policy —
an events-worker sidecar that falls behind loses events, it never stalls
dispatch.
*/
package events
