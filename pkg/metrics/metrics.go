package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Object store metrics
	GPUsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aga_gpus_total",
			Help: "Total number of GPU objects currently in the store",
		},
	)

	GPUWatchesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aga_gpu_watches_total",
			Help: "Total number of GPU-watch objects currently in the store",
		},
	)

	StoreOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aga_store_ops_total",
			Help: "Total object store operations by kind, op and result",
		},
		[]string{"kind", "op", "result"},
	)

	// Engine metrics
	EngineQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aga_engine_queue_depth",
			Help: "Number of requests currently queued for the API engine",
		},
	)

	EngineOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aga_engine_op_duration_seconds",
			Help:    "Time taken to apply an engine operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "op"},
	)

	ReaperPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aga_reaper_pending",
			Help: "Number of objects awaiting delayed destruction",
		},
	)

	// Discovery metrics
	DiscoveredGPUsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aga_discovered_gpus_total",
			Help: "Total number of GPUs found at the most recent discovery run",
		},
	)

	DiscoveryErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aga_discovery_errors_total",
			Help: "Total number of per-GPU discovery failures (logged and skipped)",
		},
	)

	// Watcher metrics
	WatchTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aga_watch_tick_duration_seconds",
			Help:    "Time taken to sample all GPUs in a single watcher tick",
			Buckets: prometheus.DefBuckets,
		},
	)

	WatchFanoutDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aga_watch_fanout_duration_seconds",
			Help:    "Time taken to fan out GPU-watch snapshots to subscribers",
			Buckets: prometheus.DefBuckets,
		},
	)

	WatchSubscribersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aga_watch_subscribers_total",
			Help: "Total number of active GPU-watch subscribers",
		},
	)

	// Event monitor metrics
	EventTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aga_event_tick_duration_seconds",
			Help:    "Time taken to poll and dispatch one batch of hardware events",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aga_events_total",
			Help: "Total number of hardware events observed by kind",
		},
		[]string{"kind"},
	)

	SubscribersReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "aga_subscribers_reaped_total",
			Help: "Total number of subscribers removed after a failed callback",
		},
	)

	// RPC metrics
	RPCRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aga_rpc_requests_total",
			Help: "Total number of RPC requests by method and status",
		},
		[]string{"method", "status"},
	)

	RPCRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aga_rpc_request_duration_seconds",
			Help:    "RPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(GPUsTotal)
	prometheus.MustRegister(GPUWatchesTotal)
	prometheus.MustRegister(StoreOpsTotal)
	prometheus.MustRegister(EngineQueueDepth)
	prometheus.MustRegister(EngineOpDuration)
	prometheus.MustRegister(ReaperPending)
	prometheus.MustRegister(DiscoveredGPUsTotal)
	prometheus.MustRegister(DiscoveryErrorsTotal)
	prometheus.MustRegister(WatchTickDuration)
	prometheus.MustRegister(WatchFanoutDuration)
	prometheus.MustRegister(WatchSubscribersTotal)
	prometheus.MustRegister(EventTickDuration)
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(SubscribersReapedTotal)
	prometheus.MustRegister(RPCRequestsTotal)
	prometheus.MustRegister(RPCRequestDuration)
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
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
