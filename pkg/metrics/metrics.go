package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pool metrics
	WorkersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "edgerunner_workers_total",
			Help: "Total number of worker profiles currently held in the pool",
		},
	)

	WorkerCreatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgerunner_worker_creates_total",
			Help: "Total number of worker create attempts by outcome",
		},
		[]string{"outcome"}, // hit, created, error
	)

	WorkerCreateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edgerunner_worker_create_duration_seconds",
			Help:    "Time taken to start a new worker in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	WorkerShutdownsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edgerunner_worker_shutdowns_total",
			Help: "Total number of worker profiles removed from the pool",
		},
	)

	// Dispatch metrics
	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgerunner_dispatches_total",
			Help: "Total number of dispatch attempts by outcome",
		},
		[]string{"outcome"}, // ok, unavailable, backlogged
	)

	// Connection-service metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgerunner_requests_total",
			Help: "Total number of HTTP requests handled by the connection service by status",
		},
		[]string{"status"},
	)

	RequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edgerunner_request_duration_seconds",
			Help:    "Request duration in seconds, from dispatch to end-of-stream",
			Buckets: prometheus.DefBuckets,
		},
	)

	CancellationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgerunner_cancellations_total",
			Help: "Total number of cancellation tokens fired, by source",
		},
		[]string{"source"}, // client-disconnect, eos
	)
)

func init() {
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(WorkerCreatesTotal)
	prometheus.MustRegister(WorkerCreateDuration)
	prometheus.MustRegister(WorkerShutdownsTotal)
	prometheus.MustRegister(DispatchesTotal)
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(CancellationsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
