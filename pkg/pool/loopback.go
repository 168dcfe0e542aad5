package pool

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
)

// LoopbackStartup returns a StartupFunc that runs every worker as an
// in-process goroutine invoking handler directly, rather than spawning
// an external process or container ("script execution engine"
// is explicitly out of scope; this is the reference implementation used
// by cmd/edgerunnerd and by the test suite). Each worker gets its own
// buffered inbox and drains it until Stop is called.
func LoopbackStartup(handler http.Handler) StartupFunc {
	return func(ctx context.Context, opts WorkerInitOptions) (WorkerHandle, error) {
		inbox := make(chan RequestMsg, 32)
		stopCtx, stop := context.WithCancel(ctx)

		w := &loopbackWorker{handler: handler, inbox: inbox, ctx: stopCtx}
		go w.run()

		var once sync.Once
		return WorkerHandle{
			Inbox: inbox,
			Stop:  func() { once.Do(stop) },
		}, nil
	}
}

type loopbackWorker struct {
	handler http.Handler
	inbox   chan RequestMsg
	ctx     context.Context
}

func (w *loopbackWorker) run() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case msg := <-w.inbox:
			w.serve(msg)
		}
	}
}

func (w *loopbackWorker) serve(msg RequestMsg) {
	rec := newRecorder()
	w.handler.ServeHTTP(rec, msg.Request)

	resp := rec.result(msg.Request)
	select {
	case msg.ResponseReturn <- ResponseResult{Response: resp}:
	case <-w.ctx.Done():
	}
}

// recorder is a minimal http.ResponseWriter that buffers a response in
// memory and renders it back into an *http.Response. Kept deliberately
// small rather than pulling net/http/httptest (a test-only package)
// into a non-test code path.
type recorder struct {
	header     http.Header
	statusCode int
	body       bytes.Buffer
	wroteHead  bool
}

func newRecorder() *recorder {
	return &recorder{header: make(http.Header), statusCode: http.StatusOK}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHead {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(b)
}

func (r *recorder) WriteHeader(statusCode int) {
	if r.wroteHead {
		return
	}
	r.wroteHead = true
	r.statusCode = statusCode
}

func (r *recorder) result(req *http.Request) *http.Response {
	resp := &http.Response{
		Status:        http.StatusText(r.statusCode),
		StatusCode:    r.statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        r.header,
		Body:          io.NopCloser(bytes.NewReader(r.body.Bytes())),
		ContentLength: int64(r.body.Len()),
		Request:       req,
	}
	return resp
}
