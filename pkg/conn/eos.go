package conn

import (
	"io"
	"net/http"

	"github.com/cuemby/edgerunner/pkg/cancelctx"
	"github.com/cuemby/edgerunner/pkg/metrics"
)

// endOfStreamBody wraps a response body so that closing it, for any
// reason, releases the request's cancellation guard exactly once:
// whether the body was read to completion, aborted mid-stream by the
// client, or never polled at all because the handler returned early.
type endOfStreamBody struct {
	inner io.ReadCloser
	guard *cancelctx.Guard
}

// wrapBody returns body wrapped with guard, or a no-op empty body with
// guard wired to Close if body is nil (the error-path case where a
// worker failure leaves no response body to stream).
func wrapBody(body io.ReadCloser, guard *cancelctx.Guard) io.ReadCloser {
	if body == nil {
		body = http.NoBody
	}
	return &endOfStreamBody{inner: body, guard: guard}
}

func (b *endOfStreamBody) Read(p []byte) (int, error) {
	return b.inner.Read(p)
}

func (b *endOfStreamBody) Close() error {
	err := b.inner.Close()
	if b.guard.Release() {
		metrics.CancellationsTotal.WithLabelValues("eos").Inc()
	}
	return err
}
