package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Signaling metrics for monitoring connections, dispatch, and call lifecycle
var (
	// Connection metrics
	WebSocketConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_websocket_connections_active",
		Help: "Current number of open WebSocket connections",
	})

	WebSocketConnectionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_websocket_connections_rejected_total",
		Help: "Total number of rejected WebSocket connection attempts",
	}, []string{"reason"}) // "auth", "capacity", "origin"

	// Event dispatch metrics
	EventsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_events_dispatched_total",
		Help: "Total number of client events processed by the coordinator",
	}, []string{"event", "status"}) // status: "ok", "error"

	CoordinatorInboxLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_coordinator_inbox_length",
		Help: "Current length of the coordinator event loop inbox",
	})

	// Call lifecycle metrics
	CallsInitiatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_calls_initiated_total",
		Help: "Total number of calls that entered the ringing state",
	}, []string{"call_type"})

	CallsTerminatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_calls_terminated_total",
		Help: "Total number of calls reaching a terminal state",
	}, []string{"outcome"}) // "ended", "rejected", "timed_out"

	CallsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_calls_active",
		Help: "Current number of calls in ringing or accepted state",
	})

	CallDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signaling_call_duration_seconds",
		Help:    "Duration of accepted calls from creation to end",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	})

	CallFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_call_failures_total",
		Help: "Total number of rejected call actions",
	}, []string{"reason"}) // "unauthorized", "busy", "unreachable", "not-found", "forbidden"

	// Call history collaborator metrics
	CallHistoryPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_call_history_published_total",
		Help: "Total number of terminal call records published to the history store",
	}, []string{"status"}) // "ok", "error"

	// HTTP surface metrics (health, metrics, WS upgrade requests)
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_http_requests_total",
		Help: "Total number of HTTP requests handled",
	}, []string{"method", "path", "status"})

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "signaling_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
