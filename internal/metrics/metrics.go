package metrics

import (
    "sync"
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

    // WebhookDeliveries counts webhook delivery outcomes by event type and status
    WebhookDeliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
        []string{"event_type", "status"},
    )
    // WebhookLatency tracks webhook delivery latencies in milliseconds
    WebhookLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
        []string{"event_type", "status"},
    )

    // OptimizeRuns counts solver invocations by feasibility outcome
    OptimizeRuns = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "optimize_runs_total", Help: "Solver runs by feasibility outcome."},
        []string{"feasible"},
    )
    // OptimizeIterations tracks ALNS iterations spent per run
    OptimizeIterations = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "optimize_iterations", Help: "ALNS iterations per solver run.", Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000}},
        []string{"tenant"},
    )
    // OptimizeFinalCost tracks the ALNS run's final objective value (opt.Metrics.FinalCost)
    OptimizeFinalCost = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "optimize_final_cost", Help: "Final solution cost per solver run.", Buckets: prometheus.ExponentialBuckets(10, 2, 12)},
        []string{"tenant"},
    )
    // LocalSearchMoves counts ALNS iterations in which internal/vrp local search found an improving move
    LocalSearchMoves = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "local_search_moves_total", Help: "Improving local-search passes applied during optimization."},
        []string{"tenant"},
    )
)

// RegisterDefault registers the collectors on the package's dedicated Registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(WebhookDeliveries)
        Registry.MustRegister(WebhookLatency)
        Registry.MustRegister(OptimizeRuns)
        Registry.MustRegister(OptimizeIterations)
        Registry.MustRegister(OptimizeFinalCost)
        Registry.MustRegister(LocalSearchMoves)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
