package wall

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricRankPassesTotal      = "wall_rank_passes_total"
	MetricRankPassDuration     = "wall_rank_pass_duration_seconds"
	MetricProductsScoredTotal  = "wall_products_scored_total"
	MetricOverrideImportsTotal = "wall_override_imports_total"
)

// Status constants for pass completion.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics contains Prometheus metrics for ranking passes.
// All operations are thread-safe.
type Metrics struct {
	rankPasses      *prometheus.CounterVec
	rankDuration    *prometheus.HistogramVec
	productsScored  prometheus.Counter
	overrideImports *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		rankPasses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankPassesTotal,
				Help: "Total number of ranking passes by scoring mode and status",
			},
			[]string{"mode", "status"},
		),
		rankDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricRankPassDuration,
				Help:    "Histogram of ranking pass duration in seconds by scoring mode",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
			},
			[]string{"mode"},
		),
		productsScored: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricProductsScoredTotal,
				Help: "Total number of products scored across all ranking passes",
			},
		),
		overrideImports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricOverrideImportsTotal,
				Help: "Total number of override CSV imports by status",
			},
			[]string{"status"},
		),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.rankPasses,
		m.rankDuration,
		m.productsScored,
		m.overrideImports,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRankPass records one completed pass.
func (m *Metrics) ObserveRankPass(mode, status string, seconds float64, scored int) {
	m.rankPasses.WithLabelValues(mode, status).Inc()
	if status == StatusSuccess {
		m.rankDuration.WithLabelValues(mode).Observe(seconds)
		m.productsScored.Add(float64(scored))
	}
}

// IncOverrideImports increments the override import counter.
func (m *Metrics) IncOverrideImports(status string) {
	m.overrideImports.WithLabelValues(status).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rankPasses,
		m.rankDuration,
		m.productsScored,
		m.overrideImports,
	}
}
