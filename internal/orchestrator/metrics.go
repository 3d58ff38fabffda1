package orchestrator

import "github.com/prometheus/client_golang/prometheus"

// Prometheus orchestration metrics.
var (
	dispatchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "modelmux_dispatches_total",
			Help: "Total number of orchestration runs.",
		},
	)
	adapterErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelmux_adapter_errors_total",
			Help: "Adapter invocation failures by model and error kind.",
		},
		[]string{"model", "kind"},
	)
	adapterLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelmux_adapter_latency_seconds",
			Help:    "Adapter invocation latency in seconds.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"model"},
	)
	selectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelmux_selections_total",
			Help: "Winning responses by model.",
		},
		[]string{"model"},
	)
)

func init() {
	prometheus.MustRegister(dispatchesTotal)
	prometheus.MustRegister(adapterErrorsTotal)
	prometheus.MustRegister(adapterLatency)
	prometheus.MustRegister(selectionsTotal)
}
