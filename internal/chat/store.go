// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

import (
	"time"

	"github.com/athletetime/relay/internal/metrics"
	"github.com/athletetime/relay/internal/models"
)

// Store is the per-room bounded, time-windowed message log. Messages
// older than the retention window are pruned on append and by the
// periodic sweep; a hard count cap bounds memory in busy rooms.
type Store struct {
	logs        map[string][]models.Message
	window      time.Duration
	maxRetained int
}

// NewStore returns an empty store with the given retention window and
// per-room count cap.
func NewStore(window time.Duration, maxRetained int) *Store {
	return &Store{
		logs:        make(map[string][]models.Message),
		window:      window,
		maxRetained: maxRetained,
	}
}

// Append adds a message to a room's log, then prunes by age and count.
func (s *Store) Append(roomID string, msg models.Message, now time.Time) {
	log := append(s.logs[roomID], msg)
	log = s.prune(log, now)
	s.logs[roomID] = log
}

// Snapshot returns a room's messages within the retention window,
// oldest first. The returned slice is a copy.
func (s *Store) Snapshot(roomID string, now time.Time) []models.Message {
	cutoff := now.Add(-s.window)
	log := s.logs[roomID]
	out := make([]models.Message, 0, len(log))
	for _, msg := range log {
		if msg.Timestamp.After(cutoff) {
			out = append(out, msg)
		}
	}
	return out
}

// Sweep prunes every room's log. Append-triggered pruning alone would
// leave stale data in silent rooms indefinitely; a periodic service
// calls this hourly. Returns the number of messages removed.
func (s *Store) Sweep(now time.Time) int {
	removed := 0
	for roomID, log := range s.logs {
		pruned := s.prune(log, now)
		removed += len(log) - len(pruned)
		if len(pruned) == 0 {
			delete(s.logs, roomID)
		} else {
			s.logs[roomID] = pruned
		}
	}
	return removed
}

// Drop discards a room's log entirely.
func (s *Store) Drop(roomID string) {
	delete(s.logs, roomID)
}

// Count returns the number of retained messages for a room.
func (s *Store) Count(roomID string) int {
	return len(s.logs[roomID])
}

// prune removes messages outside the retention window, then drops the
// oldest until the count cap holds. Logs are append-ordered so the
// window boundary is a prefix cut.
func (s *Store) prune(log []models.Message, now time.Time) []models.Message {
	cutoff := now.Add(-s.window)
	start := 0
	for start < len(log) && !log[start].Timestamp.After(cutoff) {
		start++
	}
	if over := len(log) - start - s.maxRetained; over > 0 {
		start += over
	}
	if start == 0 {
		return log
	}
	metrics.MessagesPruned.Add(float64(start))
	return append([]models.Message(nil), log[start:]...)
}
