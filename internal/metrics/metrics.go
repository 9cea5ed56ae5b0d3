// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the chat engine:
// - WebSocket connection lifecycle
// - Room population and churn
// - Message throughput and retention pruning
// - API endpoint latency and throughput

var (
	// WebSocket Metrics
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSConnectionsPeak = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_peak",
			Help: "Highest simultaneous unique-user count observed",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSSendsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_sends_dropped_total",
			Help: "Total number of outbound messages dropped due to full or dead peers",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"}, // "read", "write", "upgrade", "decode"
	)

	// Room Metrics
	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_rooms_active",
			Help: "Current number of rooms in the registry",
		},
	)

	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rooms_created_total",
			Help: "Total number of user-created rooms",
		},
	)

	RoomsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rooms_deleted_total",
			Help: "Total number of ephemeral rooms removed after expiry",
		},
	)

	// Message Metrics
	MessagesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total number of chat messages accepted",
		},
	)

	MessagesPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_pruned_total",
			Help: "Total number of messages dropped by retention pruning",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordAPIRequest records API endpoint performance metrics.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordWSError increments the error counter for a connection failure class.
func RecordWSError(errorType string) {
	WSErrors.WithLabelValues(errorType).Inc()
}
