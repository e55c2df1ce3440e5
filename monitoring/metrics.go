package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsClaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mmm_jobs_claimed_total",
			Help: "Total number of training jobs claimed by this worker",
		},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mmm_jobs_completed_total",
			Help: "Total number of training jobs finished, by outcome",
		},
		[]string{"success"}, // "true" or "false"
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mmm_queue_depth",
			Help: "Current number of queued training jobs",
		},
	)

	TrainingDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mmm_training_duration_seconds",
			Help:    "Training duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~13min
		},
	)
)
