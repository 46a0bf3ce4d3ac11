package dev

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsPath serves the dev server's Prometheus metrics.
const MetricsPath = "/_sitepack/metrics"

type metrics struct {
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	reloads       prometheus.Counter
	changes       prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, clients func() float64) *metrics {
	factory := promauto.With(reg)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "sitepack",
		Subsystem: "dev",
		Name:      "reload_clients",
		Help:      "Browsers connected for live reload.",
	}, clients)

	return &metrics{
		builds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sitepack",
			Subsystem: "dev",
			Name:      "builds_total",
			Help:      "Compilations by result.",
		}, []string{"result"}),
		buildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sitepack",
			Subsystem: "dev",
			Name:      "build_duration_seconds",
			Help:      "Compilation wall time.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		reloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sitepack",
			Subsystem: "dev",
			Name:      "reloads_total",
			Help:      "Reload broadcasts sent to browsers.",
		}),
		changes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sitepack",
			Subsystem: "dev",
			Name:      "template_changes_total",
			Help:      "Watched template changes that triggered a rebuild.",
		}),
	}
}
