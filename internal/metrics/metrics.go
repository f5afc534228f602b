// Package metrics exposes Prometheus collectors for the assistant server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sora_turns_total",
			Help: "Total number of reply turns by final status",
		},
		[]string{"status"},
	)

	ProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sora_provider_failures_total",
			Help: "Total number of failed third-party provider calls",
		},
		[]string{"provider"},
	)

	EnrichmentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sora_enrichment_duration_seconds",
			Help:    "Duration of enrichment sub-pipelines in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
		[]string{"pipeline", "outcome"},
	)

	FirstTokenLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "sora_first_token_latency_seconds",
			Help: "Time from request to first streamed token in seconds",
		},
	)

	SearchDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sora_search_decisions_total",
			Help: "Search display decisions by outcome",
		},
		[]string{"decision"},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sora_ws_connections",
			Help: "Number of open WebSocket connections",
		},
	)
)
