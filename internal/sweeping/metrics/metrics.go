package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PendingSeen tracks pending transaction notifications received
	PendingSeen = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeper_pending_seen_total",
			Help: "Total number of pending transaction notifications received",
		},
		[]string{"chain"},
	)

	// PendingResolved tracks how notifications were resolved (matched, unmatched, exhausted)
	PendingResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeper_pending_resolved_total",
			Help: "Pending transaction notifications by resolution",
		},
		[]string{"chain", "result"},
	)

	// DepositsConfirmed tracks deposits that reached the confirmation depth
	DepositsConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeper_deposits_confirmed_total",
			Help: "Total number of deposits confirmed",
		},
		[]string{"chain"},
	)

	// SweepsTotal tracks sweep attempts by outcome
	SweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeper_sweeps_total",
			Help: "Sweep attempts by outcome",
		},
		[]string{"chain", "outcome"},
	)

	// SweptWei tracks the total value moved to the vault
	SweptWei = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeper_swept_wei_total",
			Help: "Total value sent to the vault in wei",
		},
		[]string{"chain"},
	)

	// Rotations tracks endpoint rotations
	Rotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeper_endpoint_rotations_total",
			Help: "Total number of endpoint rotations",
		},
		[]string{"chain"},
	)

	// ConnectionState is 1 for the current state label and 0 otherwise
	ConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sweeper_connection_state",
			Help: "Current connection state of the supervisor",
		},
		[]string{"chain", "state"},
	)

	// RPCLatency tracks query latency per endpoint
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sweeper_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain", "provider", "method"},
	)

	// RPCErrorsTotal tracks RPC errors per endpoint
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweeper_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"chain", "provider", "method"},
	)
)
