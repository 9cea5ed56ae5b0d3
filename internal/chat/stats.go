// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

import (
	"github.com/athletetime/relay/internal/metrics"
	"github.com/athletetime/relay/internal/models"
)

// Stats keeps process-wide counters and mirrors them into Prometheus.
type Stats struct {
	connections   int
	peak          int
	totalMessages int64
	roomsCreated  int64
}

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{}
}

// OnConnect bumps the concurrent-connection count and the peak.
func (s *Stats) OnConnect() {
	s.connections++
	metrics.WSConnectionsActive.Inc()
	if s.connections > s.peak {
		s.peak = s.connections
		metrics.WSConnectionsPeak.Set(float64(s.peak))
	}
}

// OnDisconnect drops the concurrent-connection count.
func (s *Stats) OnDisconnect() {
	if s.connections > 0 {
		s.connections--
	}
	metrics.WSConnectionsActive.Dec()
}

// OnMessage counts an accepted chat message.
func (s *Stats) OnMessage() {
	s.totalMessages++
	metrics.MessagesStored.Inc()
}

// OnRoomCreated counts a user-created room.
func (s *Stats) OnRoomCreated() {
	s.roomsCreated++
	metrics.RoomsCreated.Inc()
}

// TotalMessages returns the accepted-message counter.
func (s *Stats) TotalMessages() int64 {
	return s.totalMessages
}

// Connections returns the current concurrent-connection count.
func (s *Stats) Connections() int {
	return s.connections
}

// Snapshot returns the full counter set. totalRooms comes from the
// room registry, so the caller supplies it.
func (s *Stats) Snapshot(totalRooms int) models.StatsSnapshot {
	return models.StatsSnapshot{
		OnlineUsers:   s.connections,
		TotalRooms:    totalRooms,
		TotalMessages: s.totalMessages,
		PeakUsers:     s.peak,
		RoomsCreated:  s.roomsCreated,
	}
}

// Summary returns the trimmed block broadcast in stats_update frames.
func (s *Stats) Summary(totalRooms int) models.StatsSummary {
	return models.StatsSummary{
		OnlineUsers:   s.connections,
		TotalRooms:    totalRooms,
		TotalMessages: s.totalMessages,
	}
}
