package metrics

import (
	"sync"

	"fleetplan/internal/opt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
	// RateLimited counts requests rejected by the per-client limiter
	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_rate_limited_total", Help: "Requests rejected with 429."},
		[]string{"path"},
	)

	// SolverRuns counts solver executions by algorithm and outcome (ok, timed_out, error)
	SolverRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_runs_total", Help: "Solver runs by algorithm and outcome."},
		[]string{"algorithm", "outcome"},
	)
	// SolverDuration tracks solver wall time in milliseconds
	SolverDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solver_duration_ms", Help: "Solver execution time in ms.", Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000}},
		[]string{"algorithm"},
	)
	// SolverCompleted records completed deliveries per run
	SolverCompleted = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "solver_completed_deliveries", Help: "Completed deliveries per solver run.", Buckets: []float64{0, 1, 5, 10, 20, 30, 50, 100}},
		[]string{"algorithm"},
	)
	// RunEvents counts run events published to subscribers
	RunEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "run_events_published_total", Help: "Run events published by type."},
		[]string{"type"},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(RateLimited)
		Registry.MustRegister(SolverRuns)
		Registry.MustRegister(SolverDuration)
		Registry.MustRegister(SolverCompleted)
		Registry.MustRegister(RunEvents)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// ObserveSolve records one solver run. err takes precedence over the result.
func ObserveSolve(algorithm string, r opt.Result, err error) {
	switch {
	case err != nil:
		SolverRuns.WithLabelValues(algorithm, "error").Inc()
		return
	case r.TimedOut:
		SolverRuns.WithLabelValues(algorithm, "timed_out").Inc()
	default:
		SolverRuns.WithLabelValues(algorithm, "ok").Inc()
	}
	SolverDuration.WithLabelValues(algorithm).Observe(r.ExecutionTimeMs)
	SolverCompleted.WithLabelValues(algorithm).Observe(float64(r.CompletedDeliveries))
}
