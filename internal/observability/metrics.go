package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartcity_redis_error_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// RequestTransitions counts lifecycle status transitions.
	RequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartcity_request_transitions_total",
		Help: "Total number of request status transitions",
	}, []string{"to"})

	// NotificationsCreated counts notifications by type and delivery kind.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartcity_notifications_created_total",
		Help: "Total number of notifications created",
	}, []string{"type", "kind"})

	// DocumentsStored counts documents written to the blob store.
	DocumentsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartcity_documents_stored_total",
		Help: "Total number of documents written to the blob store",
	})

	// DocumentStoreFailures counts skipped files during multi-file uploads.
	DocumentStoreFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartcity_document_store_failures_total",
		Help: "Total number of files skipped because the blob store failed",
	})

	// ActiveWebSockets is the gauge of total WebSocket connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "smartcity_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartcity_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// EventPublishFailures counts pub/sub publish failures by channel class.
	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartcity_event_publish_failures_total",
		Help: "Total number of event publish failures (delivery is best-effort)",
	}, []string{"channel"})
)
