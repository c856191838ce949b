package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway metric set. Names are part of the operational contract; dashboards
// and alerts reference them verbatim.
var (
	// Connection metrics.

	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nexis_connections_active",
		Help: "Number of active WebSocket connections",
	})
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexis_connections_total",
		Help: "Total number of connections established",
	})
	ConnectionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexis_connection_errors",
		Help: "Connection errors by type",
	}, []string{"error_type"})

	// Message metrics.

	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexis_messages_received_total",
		Help: "Total messages received",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexis_messages_sent_total",
		Help: "Total messages sent",
	})
	MessageLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexis_message_latency_seconds",
		Help:    "Message processing latency in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	})
	MessagesByType = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexis_messages_by_type",
		Help: "Messages by type",
	}, []string{"type"})
	MessageSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nexis_message_size_bytes",
		Help:    "Message size in bytes",
		Buckets: []float64{64, 256, 1024, 4096, 16384, 65536, 262144},
	})

	// AI provider metrics.

	AIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexis_ai_requests_total",
		Help: "Total AI provider requests",
	}, []string{"provider"})
	AIErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexis_ai_errors_total",
		Help: "AI provider errors",
	}, []string{"provider", "error_type"})
	AILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexis_ai_latency_seconds",
		Help:    "AI request latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
	}, []string{"provider"})
	AITokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexis_ai_tokens_total",
		Help: "Total AI tokens used",
	}, []string{"provider", "type"})

	// Room metrics.

	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nexis_rooms_active",
		Help: "Number of active rooms",
	})
	RoomMembers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nexis_room_members",
		Help: "Number of members per room",
	}, []string{"room_id"})

	// HTTP metrics.

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexis_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path"})
	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexis_http_latency_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
	HTTPResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexis_http_responses_total",
		Help: "HTTP responses by status code",
	}, []string{"method", "path", "status"})

	// Build info.

	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "nexis_build_info",
		Help: "Build information",
	}, []string{"version", "commit"})
)

// SetBuildInfo publishes the running build's version labels.
func SetBuildInfo(version, commit string) {
	if version == "" {
		version = "unknown"
	}
	if commit == "" {
		commit = "unknown"
	}
	BuildInfo.WithLabelValues(version, commit).Set(1)
}
