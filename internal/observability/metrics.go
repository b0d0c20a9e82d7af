package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planbridge_calls_total",
			Help: "Total number of bridge calls by operation and result code.",
		},
		[]string{"op", "code"},
	)

	callDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planbridge_call_duration_seconds",
			Help:    "Bridge call latency by operation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	liveHandles = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "planbridge_live_handles",
			Help: "Number of plan and table handles currently held by callers.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(callsTotal, callDurationSeconds, liveHandles)
}

// ObserveCall records one finished bridge call.
func ObserveCall(op, code string, elapsed time.Duration) {
	callsTotal.WithLabelValues(op, code).Inc()
	callDurationSeconds.WithLabelValues(op).Observe(elapsed.Seconds())
}

// HandleOpened counts a newly issued handle of kind.
func HandleOpened(kind string) {
	liveHandles.WithLabelValues(kind).Inc()
}

// HandlesClosed counts n released handles of kind.
func HandlesClosed(kind string, n int) {
	liveHandles.WithLabelValues(kind).Sub(float64(n))
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
