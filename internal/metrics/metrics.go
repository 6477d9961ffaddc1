// Package metrics exposes Prometheus instrumentation for the round pipeline
// and its third-party gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whereami_gateway_requests_total",
			Help: "Total number of content gateway requests by outcome",
		},
		[]string{"outcome"}, // "ok", "error", "rejected", "cancelled"
	)

	RoundAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whereami_round_attempts_total",
			Help: "Total number of round pipeline attempts by outcome",
		},
		[]string{"outcome"}, // "ok", "insufficient", "malformed", "gateway"
	)

	GamesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whereami_games_generated_total",
			Help: "Total number of game generation requests by outcome",
		},
		[]string{"outcome"},
	)

	GameGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "whereami_game_generation_duration_seconds",
			Help:    "Wall-clock time to assemble and persist a game",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
	)

	CatalogAdditions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "whereami_catalog_additions_total",
			Help: "Total number of locations appended to the catalog",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "whereami_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
