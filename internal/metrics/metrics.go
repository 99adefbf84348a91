package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officebuddy_turns_total",
			Help: "Conversation turns by outcome",
		},
		[]string{"outcome"}, // specialist, multi, general, clarify, error
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "officebuddy_turn_duration_seconds",
			Help:    "End-to-end turn latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
	)

	RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officebuddy_routing_decisions_total",
			Help: "Routing decisions by source and specialist",
		},
		[]string{"source", "specialist"},
	)

	SpecialistActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officebuddy_specialist_actions_total",
			Help: "Actions decided by specialists",
		},
		[]string{"specialist", "action"},
	)

	BackendCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "officebuddy_backend_calls_total",
			Help: "Backend calls by operation and success",
		},
		[]string{"operation", "success"},
	)

	LLMFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "officebuddy_llm_fallbacks_total",
			Help: "Retries on the secondary completion credential after a rate limit",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "officebuddy_active_sessions",
			Help: "Number of live sessions cached by this instance",
		},
	)

	AuditDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "officebuddy_audit_dropped_total",
			Help: "Audit records dropped because the write-behind buffer was full or the sink failed",
		},
	)
)
