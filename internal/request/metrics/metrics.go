package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_request_submissions_total",
		Help: "Citizen submissions by the status they settle at synchronously",
	}, []string{"department", "status"})

	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_request_decisions_total",
		Help: "Officer decisions by outcome",
	}, []string{"department", "decision"})

	SubmissionDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexus_request_submission_duration_ms",
		Help:    "End-to-end submission latency including delegation in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 15000},
	})
)
