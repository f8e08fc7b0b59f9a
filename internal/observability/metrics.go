package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// retrieval pipeline.
type Metrics struct {
	ProductsProcessed prometheus.Counter
	ProductsFailed    prometheus.Counter
	ProductsSkipped   prometheus.Counter
	LandOnlyProducts  prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
	InferenceDuration       prometheus.Histogram

	// Hindcast collocation metrics.
	HindcastRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	HindcastCache    *prometheus.CounterVec // labels: result={hit,miss}
	HindcastDuration prometheus.Histogram
	HindcastEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ProductsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "asar_l2",
			Name:      "products_processed_total",
			Help:      "Total Level-2P products successfully written.",
		}),
		ProductsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "asar_l2",
			Name:      "products_failed_total",
			Help:      "Total retrieval failures.",
		}),
		ProductsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "asar_l2",
			Name:      "products_skipped_total",
			Help:      "Total inputs skipped because the output already exists.",
		}),
		LandOnlyProducts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "asar_l2",
			Name:      "land_only_products_total",
			Help:      "Total products built from the land reference template.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "asar_l2",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "asar_l2",
			Name:      "batch_size",
			Help:      "Number of jobs per extracted batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "asar_l2",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		InferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "asar_l2",
			Name:      "inference_duration_seconds",
			Help:      "Duration of model inference per product.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		HindcastRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asar_l2",
			Name:      "hindcast_requests_total",
			Help:      "Hindcast collocation requests by outcome.",
		}, []string{"outcome"}),
		HindcastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asar_l2",
			Name:      "hindcast_cache_total",
			Help:      "Hindcast collocation cache lookups by result.",
		}, []string{"result"}),
		HindcastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "asar_l2",
			Name:      "hindcast_request_duration_seconds",
			Help:      "Collocation service request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		HindcastEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "asar_l2",
			Name:      "hindcast_enabled",
			Help:      "1 when hindcast correction is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.ProductsProcessed,
		m.ProductsFailed,
		m.ProductsSkipped,
		m.LandOnlyProducts,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.InferenceDuration,
		m.HindcastRequests,
		m.HindcastCache,
		m.HindcastDuration,
		m.HindcastEnabled,
	)

	return m
}

// NewUnregisteredMetrics creates Metrics without touching the default
// registry. Batch runs and tests use it so repeated construction never hits
// "already registered" panics.
func NewUnregisteredMetrics() *Metrics {
	return &Metrics{
		ProductsProcessed:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "asar_l2", Name: "products_processed_total"}),
		ProductsFailed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "asar_l2", Name: "products_failed_total"}),
		ProductsSkipped:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "asar_l2", Name: "products_skipped_total"}),
		LandOnlyProducts:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "asar_l2", Name: "land_only_products_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "asar_l2", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "asar_l2", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "asar_l2", Name: "batch_processing_duration_seconds"}),
		InferenceDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "asar_l2", Name: "inference_duration_seconds"}),
		HindcastRequests:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "asar_l2", Name: "hindcast_requests_total"}, []string{"outcome"}),
		HindcastCache:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "asar_l2", Name: "hindcast_cache_total"}, []string{"result"}),
		HindcastDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "asar_l2", Name: "hindcast_request_duration_seconds"}),
		HindcastEnabled:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "asar_l2", Name: "hindcast_enabled"}),
	}
}

// NewMetricsForTesting is an alias for NewUnregisteredMetrics kept for test
// readability.
func NewMetricsForTesting() *Metrics {
	return NewUnregisteredMetrics()
}
