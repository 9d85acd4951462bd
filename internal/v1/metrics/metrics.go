package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the trivia room coordinator.
//
// Naming convention: namespace_subsystem_name
// - namespace: buzzboard (application-level grouping)
// - subsystem: websocket, room, buzzer (feature-level grouping)

var (
	// ActiveConnections tracks the current number of live WebSocket connections
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "buzzboard",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of live rooms
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "buzzboard",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomParticipants tracks the number of participants bound to each room
	RoomParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "buzzboard",
		Subsystem: "room",
		Name:      "participants_count",
		Help:      "Number of participants in each room",
	}, []string{"room_code"})

	// FramesProcessed counts inbound frames by type and outcome
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzboard",
		Subsystem: "websocket",
		Name:      "frames_total",
		Help:      "Total inbound WebSocket frames processed",
	}, []string{"frame_type", "status"})

	// DroppedSnapshots counts snapshots dropped from slow consumer buffers
	DroppedSnapshots = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "buzzboard",
		Subsystem: "websocket",
		Name:      "snapshots_dropped_total",
		Help:      "Snapshots dropped from full per-connection buffers",
	})

	// BuzzesReceived counts accepted buzz events
	BuzzesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "buzzboard",
		Subsystem: "buzzer",
		Name:      "buzzes_total",
		Help:      "Total buzz events accepted into the buzz log",
	})

	// TiesResolved counts buzzer races that required the tie-window procedure
	TiesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzboard",
		Subsystem: "buzzer",
		Name:      "ties_resolved_total",
		Help:      "Tie windows resolved, labelled by whether fairness overrode raw order",
	}, []string{"fairness_applied"})

	// RateLimitExceeded counts rejected requests by endpoint and key type
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzboard",
		Subsystem: "ratelimit",
		Name:      "exceeded_total",
		Help:      "Requests rejected by the rate limiter",
	}, []string{"endpoint", "key_type"})

	// RateLimitRequests counts requests that passed through the rate limiter
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzboard",
		Subsystem: "ratelimit",
		Name:      "requests_total",
		Help:      "Requests checked by the rate limiter",
	}, []string{"endpoint"})

	// CircuitBreakerState reports breaker state per dependency (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "buzzboard",
		Subsystem: "dependency",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state per external dependency (0=closed, 1=open, 2=half-open)",
	}, []string{"dependency"})

	// CircuitBreakerRejections counts calls short-circuited by an open breaker
	CircuitBreakerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzboard",
		Subsystem: "dependency",
		Name:      "circuit_breaker_rejections_total",
		Help:      "Calls rejected because the circuit breaker was open",
	}, []string{"dependency"})
)

func IncConnection() {
	ActiveConnections.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
