package lib

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsInitiated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "falcontour_payments_initiated_total",
			Help: "Checkout sessions created",
		},
		[]string{"purpose"},
	)

	PaymentsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "falcontour_payments_reconciled_total",
			Help: "Transactions moved to a terminal status",
		},
		[]string{"status"},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "falcontour_webhook_events_total",
			Help: "Stripe webhook deliveries by type and result",
		},
		[]string{"type", "result"},
	)

	InviteRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "falcontour_invite_redemptions_total",
			Help: "Invite token redemptions by result",
		},
		[]string{"result"},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "falcontour_gateway_request_duration_seconds",
			Help:    "Latency of payment gateway calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ExpiryTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "falcontour_expiry_transitions_total",
			Help: "Events moved out of PENDING by expiry reconciliation",
		},
		[]string{"to"},
	)
)
