package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_stats"

// Metrics holds the Prometheus counters, histograms, and gauges for the batch pipeline.
type Metrics struct {
	RecordsParsed      prometheus.Counter
	RecordsMalformed   prometheus.Counter
	RecordsQualityDrop prometheus.Counter
	RecordsUnmatched   prometheus.Counter
	RowsJoined         prometheus.Counter
	StationsLoaded     prometheus.Gauge
	PipelineRunning    prometheus.Gauge

	// Per-year metrics.
	YearsProcessed *prometheus.CounterVec // labels: outcome={success,error}
	YearDuration   prometheus.Histogram
	AggregateMean  *prometheus.GaugeVec // labels: year, kind

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,open}
	GeocodeAPIDuration prometheus.Histogram
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Observation lines parsed into records.",
		}),
		RecordsMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_malformed_total",
			Help:      "Observation lines skipped because they could not be parsed.",
		}),
		RecordsQualityDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_quality_dropped_total",
			Help:      "Observations dropped because of a non-empty quality flag.",
		}),
		RecordsUnmatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_unmatched_total",
			Help:      "Observations whose station identifier has no station record.",
		}),
		RowsJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_joined_total",
			Help:      "Observation and station pairs produced by the join.",
		}),
		StationsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stations_loaded",
			Help:      "Station records in the shared station index.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while the yearly loop is running, 0 otherwise.",
		}),
		YearsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "years_processed_total",
			Help:      "Years aggregated, by outcome.",
		}, []string{"outcome"}),
		YearDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "year_duration_seconds",
			Help:      "Wall time to compute all aggregates of one year.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		AggregateMean: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "aggregate_mean",
			Help:      "Most recent mean value per year and measurement kind.",
		}, []string{"year", "kind"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RecordsParsed,
		m.RecordsMalformed,
		m.RecordsQualityDrop,
		m.RecordsUnmatched,
		m.RowsJoined,
		m.StationsLoaded,
		m.PipelineRunning,
		m.YearsProcessed,
		m.YearDuration,
		m.AggregateMean,
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
