package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type engineMetrics struct {
	scoresCompleted         *prometheus.CounterVec
	scoringDuration         prometheus.Histogram
	credentialsRejected     prometheus.Counter
	credentialsDeduplicated prometheus.Counter
	resultsSuperseded       prometheus.Counter
}

// init creates the engine metrics. With a nil registerer the metrics are
// still usable but never exported.
func (m *engineMetrics) init(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	m.scoresCompleted = promautoFactory.NewCounterVec(prometheus.CounterOpts{
		Name: "scorer_scores_completed_total",
		Help: "scoring jobs that reached a terminal status",
	}, []string{"status"})
	m.scoringDuration = promautoFactory.NewHistogram(prometheus.HistogramOpts{
		Name:    "scorer_scoring_duration_seconds",
		Help:    "time spent scoring a passport, including the upstream fetch",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	})
	m.credentialsRejected = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "scorer_credentials_rejected_total",
		Help: "credentials that failed validation",
	})
	m.credentialsDeduplicated = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "scorer_credentials_deduplicated_total",
		Help: "valid credentials excluded because another address owns the claim",
	})
	m.resultsSuperseded = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "scorer_results_superseded_total",
		Help: "scoring results dropped because a newer submission replaced them",
	})
}
