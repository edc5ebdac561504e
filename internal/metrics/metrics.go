// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog Metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelshelf_catalog_requests_total",
			Help: "Catalog requests by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "failed", "canceled", "skipped"
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelshelf_catalog_request_duration_seconds",
			Help:    "Catalog request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reelshelf_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelshelf_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Collection Metrics
	CollectionSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelshelf_collection_movies",
			Help: "Number of movies in the collection",
		},
	)

	CollectionMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelshelf_collection_mutations_total",
			Help: "Collection mutations by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: "applied", "noop", "persist_failed"
	)

	// Quiz Metrics
	QuizSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelshelf_quiz_sessions_active",
			Help: "Open recommendation quiz sessions",
		},
	)

	QuizRecommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelshelf_quiz_recommendations_total",
			Help: "Finished quizzes by outcome",
		},
		[]string{"outcome"}, // outcome: "result", "no_result", "stale"
	)
)

// ObserveCatalogRequest records the outcome and latency of one catalog call.
func ObserveCatalogRequest(operation string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	case err != nil:
		outcome = "failed"
	}
	CatalogRequests.WithLabelValues(operation, outcome).Inc()
	CatalogRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
