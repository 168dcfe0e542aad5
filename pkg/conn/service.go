package conn

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cuemby/edgerunner/pkg/cancelctx"
	"github.com/cuemby/edgerunner/pkg/connwatch"
	"github.com/cuemby/edgerunner/pkg/log"
	"github.com/cuemby/edgerunner/pkg/metrics"
	"github.com/cuemby/edgerunner/pkg/pool"
)

// Service is the per-connection request handler: it accepts an HTTP
// request, hands it to the main worker's inbox, and streams the
// worker's reply back to the client, wiring client-disconnect and
// end-of-stream cancellation through the request's lifetime. It is
// agnostic to how the main worker routes a request onward to any
// user worker.
type Service struct {
	mainWorker pool.RequestSender
	logger     zerolog.Logger
}

// New returns a Service that dispatches every request to mainWorker.
func New(mainWorker pool.RequestSender) *Service {
	return &Service{mainWorker: mainWorker, logger: log.WithComponent("conn")}
}

var _ http.Handler = (*Service)(nil)

// ServeHTTP implements http.Handler. Go's net/http server already
// multiplexes HTTP/1.1 keep-alive and HTTP/2 streams onto the same
// Handler, one call per request, so no extra protocol handling is
// needed here.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timer := metrics.NewTimer()

	connToken := cancelctx.FromContext(r.Context())
	if connToken == nil {
		connToken = cancelctx.NewRoot()
	}
	reqToken := connToken.Child()
	guard := reqToken.NewGuard()

	// Flip conn-watch whenever req_cancel fires, whether that is a real
	// client disconnect or the end-of-stream notifier's own release on
	// normal completion; the worker has nothing left to read the watch
	// for once it has already replied, so this is harmless either way.
	watch := connwatch.New()
	go func() {
		select {
		case <-reqToken.Done():
			watch.Flip()
		case <-watch.Recv():
		}
	}()

	responseReturn := make(chan pool.ResponseResult, 1)
	msg := pool.RequestMsg{
		Request:        r,
		ResponseReturn: responseReturn,
		ConnWatch:      watch,
	}

	if err := s.mainWorker.Send(reqToken.Context(), msg); err != nil {
		guard.Release()
		s.logger.Error().Err(err).Msg("failed to dispatch request to main worker")
		metrics.RequestsTotal.WithLabelValues("500").Inc()
		http.Error(w, "internal server error", http.StatusInternalServerError)
		timer.ObserveDuration(metrics.RequestDuration)
		return
	}

	select {
	case result := <-responseReturn:
		s.writeResponse(w, result, guard)
	case <-reqToken.Done():
		// The connection token was cancelled (connection closed) before
		// the worker replied; nothing left to write back.
		if guard.Release() {
			metrics.CancellationsTotal.WithLabelValues("client-disconnect").Inc()
		}
		metrics.RequestsTotal.WithLabelValues("499").Inc()
	case <-r.Context().Done():
		// net/http cancels the request context the moment it detects
		// the client is gone mid-request, ahead of any connection-level
		// teardown frontdoor performs.
		if guard.Release() {
			metrics.CancellationsTotal.WithLabelValues("client-disconnect").Inc()
		}
		metrics.RequestsTotal.WithLabelValues("499").Inc()
	}

	timer.ObserveDuration(metrics.RequestDuration)
}

func (s *Service) writeResponse(w http.ResponseWriter, result pool.ResponseResult, guard *cancelctx.Guard) {
	if result.Err != nil || result.Response == nil {
		body := wrapBody(nil, guard)
		defer body.Close()
		if result.Err != nil && !errors.Is(result.Err, pool.ErrWorkerUnavailable) {
			s.logger.Error().Err(result.Err).Msg("worker reported an error")
		} else {
			s.logger.Error().Msg("user worker not available")
		}
		metrics.RequestsTotal.WithLabelValues("500").Inc()
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	resp := result.Response
	body := wrapBody(resp.Body, guard)
	defer body.Close()

	header := w.Header()
	for k, values := range resp.Header {
		for _, v := range values {
			header.Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	metrics.RequestsTotal.WithLabelValues(statusClass(resp.StatusCode)).Inc()
	if _, err := io.Copy(w, body); err != nil {
		s.logger.Debug().Err(err).Msg("client disconnected mid-stream")
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "500"
	case code >= 400:
		return "400"
	case code >= 300:
		return "300"
	default:
		return "200"
	}
}
