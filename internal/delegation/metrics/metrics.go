package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DelegationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_delegations_total",
		Help: "Outbound submissions to departments by outcome",
	}, []string{"department", "outcome"})

	DelegationDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexus_delegation_duration_ms",
		Help:    "Latency of outbound department calls in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"department"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_department_notifications_total",
		Help: "Decision notifications to departments by result",
	}, []string{"department", "result"})

	BreakerTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexus_delegation_breaker_transitions_total",
		Help: "Circuit breaker transitions per department",
	}, []string{"department", "transition"})
)
