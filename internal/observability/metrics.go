package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cimt"

// Metrics holds the Prometheus counters, histograms, and gauges for a run.
type Metrics struct {
	FilesResolved   prometheus.Counter
	FieldsLoaded    *prometheus.CounterVec // labels: role={base,future}
	RunFailures     prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Stage timing.
	StageDuration *prometheus.HistogramVec // labels: stage={load_modify,temporal_mean,spatial_mean,ensemble_mean,subtract,save}

	// Source data cache.
	SourceCache *prometheus.CounterVec // labels: result={hit,miss}

	// Output artifacts.
	ArtifactsWritten *prometheus.CounterVec // labels: kind={map,map_data}, outcome={written,skipped,error}
	Notifications    *prometheus.CounterVec // labels: outcome={success,error}
}

var stageBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60}

func newMetrics(help bool) *Metrics {
	h := func(s string) string {
		if help {
			return s
		}
		return ""
	}
	return &Metrics{
		FilesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_resolved_total",
			Help:      h("Total source files resolved for loading."),
		}),
		FieldsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_loaded_total",
			Help:      h("Per-job Fields loaded by run role."),
		}, []string{"role"}),
		RunFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      h("Runs aborted by an error."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      h("1 while a run is in progress, 0 otherwise."),
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      h("Duration of each pipeline stage."),
			Buckets:   stageBuckets,
		}, []string{"stage"}),
		SourceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_cache_total",
			Help:      h("Source data cache lookups by result."),
		}, []string{"result"}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_total",
			Help:      h("Output artifacts by kind and outcome."),
		}, []string{"kind", "outcome"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      h("Artifact notifications published by outcome."),
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FilesResolved,
		m.FieldsLoaded,
		m.RunFailures,
		m.PipelineRunning,
		m.StageDuration,
		m.SourceCache,
		m.ArtifactsWritten,
		m.Notifications,
	}
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics(false)
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
