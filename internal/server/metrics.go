package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demobox",
			Subsystem: "server",
			Name:      "renders_total",
			Help:      "Total number of documents rendered, by source and result.",
		},
		[]string{"source", "result"},
	)
	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "demobox",
			Subsystem: "server",
			Name:      "render_duration_seconds",
			Help:      "The duration of document renders, including async highlighting.",
		},
		[]string{"source"},
	)
	demoCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "demobox",
			Subsystem: "server",
			Name:      "demos_total",
			Help:      "Total number of demos compiled and diagnostics reported.",
		},
		[]string{"kind"},
	)
	reloadCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "demobox",
			Subsystem: "server",
			Name:      "reloads_total",
			Help:      "Total number of reloads triggered by file changes.",
		},
	)
)

const (
	sourcePage       = "page"
	sourcePlayground = "playground"
)

func observeDemos(demos, diagnostics int) {
	demoCounter.WithLabelValues("compiled").Add(float64(demos))
	demoCounter.WithLabelValues("diagnostic").Add(float64(diagnostics))
}
