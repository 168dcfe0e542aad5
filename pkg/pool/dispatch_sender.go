package pool

import "context"

// DispatchSender adapts a Dispatcher plus a fixed Key into the
// RequestSender capability the connection service depends on. The
// controller's pool map is private to its own goroutine, so a caller
// holding only a Key (as cmd/edgerunnerd does for the main worker)
// reaches it through the same serialized Dispatch path every sub-worker
// dispatch already goes through, rather than exposing the raw
// WorkerHandle.Inbox outside the controller.
type DispatchSender struct {
	Dispatcher Dispatcher
	Key        Key
}

// NewDispatchSender returns a RequestSender that routes every message
// to key via d.
func NewDispatchSender(d Dispatcher, key Key) DispatchSender {
	return DispatchSender{Dispatcher: d, Key: key}
}

// Send implements RequestSender by calling Dispatch and relaying its
// result onto msg.ResponseReturn, the shape the connection service
// expects regardless of whether a sender talks to an inbox directly or
// through the controller's Dispatch control message.
func (s DispatchSender) Send(ctx context.Context, msg RequestMsg) error {
	resp, err := s.Dispatcher.Dispatch(ctx, s.Key, msg.Request, msg.ConnWatch)
	select {
	case msg.ResponseReturn <- ResponseResult{Response: resp, Err: err}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
