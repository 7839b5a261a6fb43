package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fsoi"

// Metrics holds the Prometheus counters, histograms, and gauges for the aggregation pipeline.
type Metrics struct {
	RecordsParsed   prometheus.Counter
	ParseErrors     prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Per-center processing.
	CentersProcessed    *prometheus.CounterVec   // labels: outcome={success,error,empty}
	AggregationDuration *prometheus.HistogramVec // labels: stage={load,bulk,accum,group,tavg,summary,publish}
	SummaryRows         *prometheus.GaugeVec     // labels: center

	// Loader cache.
	LoaderCache *prometheus.CounterVec // labels: result={hit,miss}
}

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Total observation records read from impact files.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_errors_total",
			Help:      "Total impact files rejected as malformed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a run is in progress, 0 otherwise.",
		}),
		CentersProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "centers_processed_total",
			Help:      "Centers processed by outcome.",
		}, []string{"outcome"}),
		AggregationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Duration of each aggregation stage.",
			Buckets:   durationBuckets,
		}, []string{"stage"}),
		SummaryRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "summary_rows",
			Help:      "Rows in the latest summary table per center.",
		}, []string{"center"}),
		LoaderCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loader_cache_total",
			Help:      "Impact table cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.RecordsParsed,
		m.ParseErrors,
		m.PipelineRunning,
		m.CentersProcessed,
		m.AggregationDuration,
		m.SummaryRows,
		m.LoaderCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RecordsParsed:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "records_parsed_total"}),
		ParseErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "parse_errors_total"}),
		PipelineRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		CentersProcessed:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "centers_processed_total"}, []string{"outcome"}),
		AggregationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "aggregation_duration_seconds"}, []string{"stage"}),
		SummaryRows:         prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "summary_rows"}, []string{"center"}),
		LoaderCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "loader_cache_total"}, []string{"result"}),
	}
}
