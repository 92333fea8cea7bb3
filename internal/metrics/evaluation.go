package metrics

import "github.com/prometheus/client_golang/prometheus"

// Facet evaluation Prometheus metrics.
var (
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "facetset",
			Name:      "evaluations_total",
			Help:      "Total number of filter set evaluations",
		},
		[]string{"collection", "status"},
	)

	EvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "facetset",
			Name:      "evaluation_duration_seconds",
			Help:      "Filter set evaluation duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"collection"},
	)

	DatasetRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "facetset",
			Name:      "dataset_records",
			Help:      "Number of records in the loaded dataset",
		},
		[]string{"collection"},
	)
)

var evalMetricsRegistered bool

// RegisterEvaluationMetrics registers evaluation metrics. Must be called once from main.
func RegisterEvaluationMetrics() {
	if evalMetricsRegistered {
		return
	}
	prometheus.MustRegister(EvaluationsTotal)
	prometheus.MustRegister(EvaluationDuration)
	prometheus.MustRegister(DatasetRecords)
	evalMetricsRegistered = true
}
