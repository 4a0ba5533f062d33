package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	// RecommendationsTotal tracks recommendation lookups per band
	// ("out_of_range" when no band matched).
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total number of recommendation lookups by band",
		},
		[]string{"band"},
	)

	// PaymentsInitiatedTotal tracks payment initiations by method and outcome
	PaymentsInitiatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_initiated_total",
			Help: "Total number of payment initiations",
		},
		[]string{"method", "outcome"},
	)

	// PaymentsReconciledTotal tracks verify/callback reconciliations by outcome
	PaymentsReconciledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_reconciled_total",
			Help: "Total number of payment reconciliations",
		},
		[]string{"source", "outcome"},
	)

	// GatewayBreakerState tracks the gateway circuit breaker state
	// (0=closed, 1=open, 2=half-open).
	GatewayBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_circuit_breaker_state",
			Help: "Payment gateway circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)

	// OrdersTotal tracks created orders by payment method
	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Total number of orders created",
		},
		[]string{"method"},
	)
)
