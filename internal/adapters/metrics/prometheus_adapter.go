package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxn_events_received_total",
			Help: "Review events received from NATS, by event type.",
		},
		[]string{"event_type"},
	)

	EventsDuplicateTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rxn_events_duplicate_total",
			Help: "Review events skipped because they were already handled.",
		},
	)

	NotificationsSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxn_notifications_suppressed_total",
			Help: "Events that produced no notification because of a visibility gate.",
		},
		[]string{"event_type", "reason"},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxn_deliveries_total",
			Help: "Per-recipient delivery attempts, by event type and outcome.",
		},
		[]string{"event_type", "outcome"},
	)

	DeliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rxn_delivery_failures_total",
			Help: "Failed deliveries by error kind (config, address, transport, auth).",
		},
		[]string{"kind"},
	)

	XMPPSessionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rxn_xmpp_session_duration_seconds",
			Help:    "Wall time of one XMPP session, from dial to disconnect.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"final_state"},
	)
)

// IncrementEventsReceived counts an incoming event.
func IncrementEventsReceived(eventType string) {
	EventsReceivedTotal.WithLabelValues(eventType).Inc()
}

// IncrementEventsDuplicate counts a redelivered event that was skipped.
func IncrementEventsDuplicate() {
	EventsDuplicateTotal.Inc()
}

// IncrementSuppressed counts an event dropped by a visibility gate.
func IncrementSuppressed(eventType, reason string) {
	NotificationsSuppressedTotal.WithLabelValues(eventType, reason).Inc()
}

// IncrementDelivery counts one delivery attempt with outcome "sent" or "failed".
func IncrementDelivery(eventType, outcome string) {
	DeliveriesTotal.WithLabelValues(eventType, outcome).Inc()
}

// IncrementDeliveryFailure counts a failed delivery by error kind.
func IncrementDeliveryFailure(kind string) {
	DeliveryFailuresTotal.WithLabelValues(kind).Inc()
}

// ObserveXMPPSession records how long a session took and how it ended.
func ObserveXMPPSession(finalState string, d time.Duration) {
	XMPPSessionDuration.WithLabelValues(finalState).Observe(d.Seconds())
}
