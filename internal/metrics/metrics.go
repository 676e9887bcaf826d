package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfbatch",
			Name:      "tasks_total",
			Help:      "Total dispatched tasks by kind and result",
		},
		[]string{"kind", "result"},
	)

	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdfbatch",
			Name:      "task_duration_seconds",
			Help:      "Task execution duration by kind",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	outputUnits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfbatch",
			Name:      "output_units_total",
			Help:      "Output units by outcome (written, skipped, aborted)",
		},
		[]string{"outcome"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pdfbatch",
			Name:      "queue_depth",
			Help:      "Queue depth gauges for stream and dlq",
		},
		[]string{"type"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(tasksTotal, taskDuration, outputUnits, queueDepth)
}

// Handler returns the http.Handler for /metrics.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveTask records one finished dispatch.
func ObserveTask(kind, result string, dur time.Duration) {
	tasksTotal.WithLabelValues(kind, result).Inc()
	taskDuration.WithLabelValues(kind).Observe(dur.Seconds())
}

// IncUnit counts one output unit outcome.
func IncUnit(outcome string) { outputUnits.WithLabelValues(outcome).Inc() }

// SetQueueDepth publishes an approximate queue length.
func SetQueueDepth(kind string, v int64) { queueDepth.WithLabelValues(kind).Set(float64(v)) }
