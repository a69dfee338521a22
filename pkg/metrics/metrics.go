// Package metrics exposes the Prometheus collectors scraped from the
// /metrics endpoint: queue depth, proof latency, settlement transitions,
// and subscriber counts.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector registered against a single registry.
type Metrics struct {
	OrdersSubmitted prometheus.Counter
	MatchesFormed   prometheus.Counter
	MatchQueueDepth prometheus.Gauge
	ProofDuration   prometheus.Histogram
	ProofFailures   *prometheus.CounterVec
	SettlementState *prometheus.CounterVec
	SubscriberCount prometheus.Gauge
	OnChainRetries  prometheus.Counter
}

// New registers every collector against its own registry and returns it
// alongside the bundle, so the API server can mount a dedicated /metrics
// handler without touching the global default registry.
func New() (*Metrics, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		OrdersSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "duskpool_orders_submitted_total",
			Help: "Total number of orders accepted by the ingest actor.",
		}),
		MatchesFormed: factory.NewCounter(prometheus.CounterOpts{
			Name: "duskpool_matches_formed_total",
			Help: "Total number of matches formed by the order book matcher.",
		}),
		MatchQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "duskpool_match_queue_depth",
			Help: "Current number of matches awaiting proof generation.",
		}),
		ProofDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "duskpool_proof_duration_seconds",
			Help:    "Time spent generating a Groth16 proof for one match.",
			Buckets: prometheus.DefBuckets,
		}),
		ProofFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "duskpool_proof_failures_total",
			Help: "Total proof generation failures by reason.",
		}, []string{"reason"}),
		SettlementState: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "duskpool_settlement_transitions_total",
			Help: "Total settlement state transitions by destination state.",
		}, []string{"state"}),
		SubscriberCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "duskpool_eventbus_subscribers",
			Help: "Current number of connected event bus subscribers.",
		}),
		OnChainRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "duskpool_onchain_retries_total",
			Help: "Total number of on-chain settlement submission retries.",
		}),
	}, registry
}
