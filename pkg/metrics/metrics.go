// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ConversationsTotal tracks conversations created, by tenant and type.
	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
		[]string{"tenant_id", "type"},
	)

	// MessagesTotal tracks messages sent, by tenant and message type.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages sent",
		},
		[]string{"tenant_id", "type"},
	)

	// TypingSignalsTotal tracks ephemeral typing signals published.
	TypingSignalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "typing_signals_total",
			Help: "Total typing signals published",
		},
		[]string{"tenant_id"},
	)

	// BroadcastFailuresTotal tracks dropped fan-out deliveries. These are
	// logged and swallowed; the persisted row is the source of truth.
	BroadcastFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_failures_total",
			Help: "Total broadcast publish failures",
		},
		[]string{"channel_kind", "event"},
	)

	// NavigationResolutionsTotal tracks navigation resolutions by the scope
	// level that won (user, role, tenant, empty).
	NavigationResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigation_resolutions_total",
			Help: "Total navigation resolutions by winning scope",
		},
		[]string{"scope"},
	)

	// SSEConnectionsActive tracks active SSE event-stream connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
