// Package metrics exposes Prometheus collectors for the messaging client.
//
// Collectors are registered once on first use against the default registry.
// The read-side health surface is Client.HealthMetrics; these counters are
// the export side, labeled by logical service where that distinction matters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Package-level metrics (registered once).
var (
	metricsOnce sync.Once

	connectAttempts    *prometheus.CounterVec
	reconnectAttempts  *prometheus.CounterVec
	reconnectExhausted *prometheus.CounterVec
	messagesSent       *prometheus.CounterVec
	messagesQueued     *prometheus.CounterVec
	messagesFlushed    *prometheus.CounterVec
	messagesDropped    *prometheus.CounterVec
	heartbeatMisses    prometheus.Counter
	heartbeatTimeouts  prometheus.Counter
	parseErrors        *prometheus.CounterVec
)

// Drop reasons for the streamline_messages_dropped_total counter.
const (
	DropEvicted    = "evicted"
	DropExhausted  = "retry_exhausted"
	DropDisconnect = "manual_disconnect"
)

func initMetrics() {
	metricsOnce.Do(func() {
		connectAttempts = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamline_connect_attempts_total",
				Help: "Total number of connection attempts",
			},
			[]string{"service"},
		)

		reconnectAttempts = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamline_reconnect_attempts_total",
				Help: "Total number of scheduled reconnect attempts",
			},
			[]string{"service"},
		)

		reconnectExhausted = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamline_reconnect_exhausted_total",
				Help: "Times the reconnect attempt budget was exhausted",
			},
			[]string{"service"},
		)

		messagesSent = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamline_messages_sent_total",
				Help: "Messages written directly to an open transport",
			},
			[]string{"service"},
		)

		messagesQueued = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamline_messages_queued_total",
				Help: "Messages buffered while the transport was unavailable",
			},
			[]string{"service"},
		)

		messagesFlushed = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamline_messages_flushed_total",
				Help: "Queued messages delivered after reconnect",
			},
			[]string{"service"},
		)

		messagesDropped = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamline_messages_dropped_total",
				Help: "Messages permanently dropped, by reason",
			},
			[]string{"reason"},
		)

		heartbeatMisses = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "streamline_heartbeat_misses_total",
				Help: "Heartbeat probes that were not acknowledged in time",
			},
		)

		heartbeatTimeouts = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "streamline_heartbeat_timeouts_total",
				Help: "Times the missed-beat threshold forced a reconnect",
			},
		)

		parseErrors = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "streamline_parse_errors_total",
				Help: "Inbound frames dropped as malformed",
			},
			[]string{"service"},
		)
	})
}

// ConnectAttempt records a connection attempt for a service.
func ConnectAttempt(service string) {
	initMetrics()
	connectAttempts.WithLabelValues(service).Inc()
}

// ReconnectAttempt records a scheduled reconnect attempt for a service.
func ReconnectAttempt(service string) {
	initMetrics()
	reconnectAttempts.WithLabelValues(service).Inc()
}

// ReconnectExhausted records an exhausted reconnect budget for a service.
func ReconnectExhausted(service string) {
	initMetrics()
	reconnectExhausted.WithLabelValues(service).Inc()
}

// MessageSent records a direct send for a service.
func MessageSent(service string) {
	initMetrics()
	messagesSent.WithLabelValues(service).Inc()
}

// MessageQueued records a buffered send for a service.
func MessageQueued(service string) {
	initMetrics()
	messagesQueued.WithLabelValues(service).Inc()
}

// MessageFlushed records a queued message delivered after reconnect.
func MessageFlushed(service string) {
	initMetrics()
	messagesFlushed.WithLabelValues(service).Inc()
}

// MessageDropped records a permanently dropped message with a reason.
func MessageDropped(reason string) {
	initMetrics()
	messagesDropped.WithLabelValues(reason).Inc()
}

// HeartbeatMiss records an unacknowledged liveness probe.
func HeartbeatMiss() {
	initMetrics()
	heartbeatMisses.Inc()
}

// HeartbeatTimeout records a missed-beat threshold breach.
func HeartbeatTimeout() {
	initMetrics()
	heartbeatTimeouts.Inc()
}

// ParseError records a malformed inbound frame for a service.
func ParseError(service string) {
	initMetrics()
	parseErrors.WithLabelValues(service).Inc()
}
