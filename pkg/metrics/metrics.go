package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operational counters for the booking orchestration pipeline.
var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safar_bookings_created_total",
		Help: "Bookings created.",
	})

	BookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safar_booking_transitions_total",
		Help: "Booking state transitions by target state.",
	}, []string{"state"})

	RecoveryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safar_recovery_attempts_total",
		Help: "Recovery pipeline assignment attempts.",
	})

	Escalations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safar_manual_escalations_total",
		Help: "Bookings escalated to manual intervention.",
	})

	CreditsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safar_compensation_credits_total",
		Help: "Compensation credits issued.",
	})

	QuotesServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safar_quotes_served_total",
		Help: "Quote sessions generated.",
	})

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "safar_websocket_clients",
		Help: "Currently connected realtime clients.",
	})
)
