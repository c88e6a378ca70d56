package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PassesTotal counts scoring passes.
	// Labels: result (success, error)
	PassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wbs",
			Subsystem: "scoring",
			Name:      "passes_total",
			Help:      "Total number of full scoring passes",
		},
		[]string{"result"},
	)

	// PassDuration tracks how long a full pass takes.
	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "wbs",
			Subsystem: "scoring",
			Name:      "pass_duration_seconds",
			Help:      "Duration of full scoring passes in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// TasksScored is the node count of the most recent pass.
	TasksScored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wbs",
			Subsystem: "scoring",
			Name:      "tasks_scored",
			Help:      "Number of tasks scored in the most recent pass",
		},
	)

	// FeatureScoredLeaves counts leaves whose own scores were derived from features.
	FeatureScoredLeaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wbs",
			Subsystem: "scoring",
			Name:      "feature_scored_leaves_total",
			Help:      "Total number of leaves scored from raw features",
		},
	)
)

// recordPass updates metrics for a finished pass.
func recordPass(result string, seconds float64, tasks, featureLeaves int) {
	PassesTotal.WithLabelValues(result).Inc()
	PassDuration.Observe(seconds)
	if result == "success" {
		TasksScored.Set(float64(tasks))
		FeatureScoredLeaves.Add(float64(featureLeaves))
	}
}
