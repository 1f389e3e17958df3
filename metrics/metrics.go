package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connections_active",
		Help: "The current number of active WebSocket connections.",
	})
	ConnectionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_connections_opened_total",
		Help: "The total number of WebSocket connections opened.",
	})
	ConnectionsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_connections_closed_total",
		Help: "The total number of WebSocket connections closed.",
	})

	// Message metrics
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_messages_received_total",
		Help: "The total number of messages received from clients.",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_messages_sent_total",
		Help: "The total number of messages sent to clients.",
	})

	// Error metrics
	Errors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_errors_total",
		Help: "The total number of connection processing errors.",
	})

	// Session metrics
	SessionsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_sessions_tracked",
		Help: "The number of sessions currently bound to a live connection.",
	})
	ConnectionMessages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_connection_messages",
		Help:    "Messages handled per connection.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	// Shutdown metrics
	ShutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_shutdown_duration_seconds",
		Help:    "Duration of graceful shutdown in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 4, 5},
	})

	// Broker metrics
	BrokerMessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_broker_messages_published_total",
		Help: "The total number of messages published to the message broker.",
	}, []string{"broker_type"})
	BrokerPublishRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_broker_publish_retries_total",
		Help: "The total number of retries when publishing to the message broker.",
	}, []string{"broker_type"})
)
