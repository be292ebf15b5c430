package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// PipelineRunsTotal counts valuation pipeline runs by terminal status.
	PipelineRunsTotal *prometheus.CounterVec

	// StageDuration observes how long each pipeline stage takes.
	StageDuration *prometheus.HistogramVec

	// DiscoveryRequestsTotal counts outbound marketplace search calls.
	DiscoveryRequestsTotal *prometheus.CounterVec

	// CandidatesScoredTotal counts scored candidates by outcome.
	CandidatesScoredTotal *prometheus.CounterVec

	// CandidateConfidence observes the bucketed confidence of each
	// successfully scored candidate.
	CandidateConfidence prometheus.Histogram

	// ComparablesRetained observes how many candidates survive filtering.
	ComparablesRetained prometheus.Histogram
)

// Register initializes all collectors exactly once.
func Register() {
	once.Do(func() {
		PipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vintdex",
			Name:      "pipeline_runs_total",
			Help:      "Valuation pipeline runs by terminal status.",
		}, []string{"status"})

		StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vintdex",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"stage"})

		DiscoveryRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vintdex",
			Name:      "discovery_requests_total",
			Help:      "Outbound sold-listing search calls by result.",
		}, []string{"result"})

		CandidatesScoredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vintdex",
			Name:      "candidates_scored_total",
			Help:      "Candidates scored by outcome (scored or degraded).",
		}, []string{"outcome"})

		CandidateConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vintdex",
			Name:      "candidate_confidence",
			Help:      "Bucketed confidence of successfully scored candidates.",
			Buckets:   []float64{0, 0.6, 0.8, 1},
		})

		ComparablesRetained = promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vintdex",
			Name:      "comparables_retained",
			Help:      "Candidates surviving the similarity filter per run.",
			Buckets:   prometheus.LinearBuckets(0, 5, 13),
		})
	})
}
