// Package metrics registers the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sahayak_match_requests_total",
		Help: "Match requests by outcome.",
	}, []string{"outcome"})

	MatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sahayak_match_duration_seconds",
		Help:    "End-to-end match latency.",
		Buckets: prometheus.DefBuckets,
	})

	InterpreterCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sahayak_interpreter_cache_hits_total",
		Help: "Interpreter cache hits.",
	})

	InterpreterCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sahayak_interpreter_cache_misses_total",
		Help: "Interpreter cache misses.",
	})

	RetrievalFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sahayak_retrieval_fallbacks_total",
		Help: "Matches served from the cached catalog snapshot because the retrieval backend was unavailable.",
	})

	SweepProfilesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sahayak_sweep_profiles_evaluated_total",
		Help: "Profiles re-evaluated by background sweeps.",
	})

	NewlyEligibleEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sahayak_newly_eligible_events_total",
		Help: "NewlyEligible events emitted by sweeps.",
	})
)
