// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

import (
	"time"
)

// Lifecycle schedules deletion timers for empty ephemeral rooms:
// Active (members) ⇄ Draining (empty, timer armed) → Deleted. Arm always
// cancels any prior timer first so at most one timer exists per room.
//
// The expire callback runs on the timer's goroutine after the deadline;
// it must re-check room state itself, because a Stop can race an
// in-flight fire. Firing on a repopulated or deleted room must be a
// no-op in the callback.
type Lifecycle struct {
	timeout time.Duration
	timers  map[string]*time.Timer
	expire  func(roomID string)
}

// NewLifecycle returns a manager that calls expire after a room has
// been empty for timeout.
func NewLifecycle(timeout time.Duration, expire func(roomID string)) *Lifecycle {
	return &Lifecycle{
		timeout: timeout,
		timers:  make(map[string]*time.Timer),
		expire:  expire,
	}
}

// Arm starts (or restarts) the deletion timer for a room.
func (l *Lifecycle) Arm(roomID string) {
	if timer, ok := l.timers[roomID]; ok {
		timer.Stop()
	}
	l.timers[roomID] = time.AfterFunc(l.timeout, func() {
		l.expire(roomID)
	})
}

// Cancel stops and clears a room's timer, if any.
func (l *Lifecycle) Cancel(roomID string) {
	if timer, ok := l.timers[roomID]; ok {
		timer.Stop()
		delete(l.timers, roomID)
	}
}

// Armed reports whether a room currently has a pending timer.
func (l *Lifecycle) Armed(roomID string) bool {
	_, ok := l.timers[roomID]
	return ok
}

// StopAll cancels every pending timer, for shutdown.
func (l *Lifecycle) StopAll() {
	for roomID, timer := range l.timers {
		timer.Stop()
		delete(l.timers, roomID)
	}
}
