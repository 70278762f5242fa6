package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eonet_report"

// Metrics holds the Prometheus counters, histograms, and gauges for a report run.
type Metrics struct {
	EventsFetched   *prometheus.CounterVec // labels: category
	RowsRetained    prometheus.Counter
	RecordsRejected *prometheus.CounterVec // labels: reason={missing_field,malformed_record}
	RowsStored      prometheus.Counter
	RowsPublished   prometheus.Counter
	ReportsSent     prometheus.Counter

	StageDuration *prometheus.HistogramVec // labels: stage
	StageFailures *prometheus.CounterVec   // labels: stage

	LastSuccess prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		EventsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_fetched_total",
			Help:      "Raw events returned by the EONET API per category.",
		}, []string{"category"}),
		RowsRetained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_retained_total",
			Help:      "Normalized rows that matched the target month.",
		}),
		RecordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_rejected_total",
			Help:      "Raw events that could not be normalized, by reason.",
		}, []string{"reason"}),
		RowsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_stored_total",
			Help:      "Rows written to the eonet_data table.",
		}),
		RowsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_published_total",
			Help:      "Rows published to the Kafka topic.",
		}),
		ReportsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_sent_total",
			Help:      "Report emails handed to the SMTP server.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Runs that failed, by the stage that failed.",
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that completed every stage.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EventsFetched,
		m.RowsRetained,
		m.RecordsRejected,
		m.RowsStored,
		m.RowsPublished,
		m.ReportsSent,
		m.StageDuration,
		m.StageFailures,
		m.LastSuccess,
	}
}

// NewMetrics creates and registers all run metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
