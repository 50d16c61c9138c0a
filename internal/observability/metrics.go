package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for an analysis run.
type Metrics struct {
	RunsTotal         prometheus.Counter
	RunErrors         *prometheus.CounterVec // labels: stage={read,build,assemble,reconcile,aggregate,publish}
	RowsIngested      *prometheus.CounterVec // labels: kind={streamflow,precipitation,station}
	StationsAssembled prometheus.Gauge
	RecordsPublished  *prometheus.CounterVec // labels: sink
	RunDuration       prometheus.Histogram
	PipelineRunning   prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total analysis runs started.",
		}),
		RunErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_errors_total",
			Help:      "Analysis run failures by pipeline stage.",
		}, []string{"stage"}),
		RowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_ingested_total",
			Help:      "Raw rows turned into canonical series, by data source kind.",
		}, []string{"kind"}),
		StationsAssembled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_assembled",
			Help:      "Number of stations in the most recent station matrices.",
		}),
		RecordsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Anomaly records written, by sink.",
		}, []string{"sink"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete read-aggregate-publish run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunErrors,
		m.RowsIngested,
		m.StationsAssembled,
		m.RecordsPublished,
		m.RunDuration,
		m.PipelineRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
