// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

// Package chat implements the room and presence engine: connection
// registry, room registry, unique-identity presence, bounded message
// retention, ephemeral-room lifecycle, fan-out, and the wire protocol
// handler.
//
// The component types (Registry, Rooms, Presence, Store, Lifecycle,
// Stats) are not individually synchronized; the Engine serializes all
// access to them under a single mutex. Room count and event rate are
// small enough that one lock is the simplest correct model.
package chat

import (
	"time"

	"github.com/athletetime/relay/internal/models"
)

// ConnState is the engine-side state of one live connection. Identity
// stays nil until the first join.
type ConnState struct {
	ID            string
	Identity      *models.Identity
	Room          string
	ConnectedAt   time.Time
	LastHeartbeat time.Time
}

// Registry owns the set of live connections.
type Registry struct {
	conns map[string]*ConnState
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*ConnState)}
}

// Register adds a connection under the given id.
func (r *Registry) Register(id string, now time.Time) *ConnState {
	state := &ConnState{
		ID:            id,
		ConnectedAt:   now,
		LastHeartbeat: now,
	}
	r.conns[id] = state
	return state
}

// Unregister removes a connection. The caller must run room-leave logic
// first so presence never observes a dangling member.
func (r *Registry) Unregister(id string) {
	delete(r.conns, id)
}

// Get returns the connection state, or false if the id is unknown.
func (r *Registry) Get(id string) (*ConnState, bool) {
	state, ok := r.conns[id]
	return state, ok
}

// SetIdentity binds or replaces the identity on a connection.
func (r *Registry) SetIdentity(id string, identity models.Identity) {
	if state, ok := r.conns[id]; ok {
		state.Identity = &identity
	}
}

// SetRoom records the connection's current room; empty string clears it.
func (r *Registry) SetRoom(id, roomID string) {
	if state, ok := r.conns[id]; ok {
		state.Room = roomID
	}
}

// MarkHeartbeat records a liveness acknowledgement.
func (r *Registry) MarkHeartbeat(id string, now time.Time) {
	if state, ok := r.conns[id]; ok {
		state.LastHeartbeat = now
	}
}

// SweepDead reports connections with no heartbeat within timeout. The
// caller must unregister each, which runs the same path as an explicit
// disconnect.
func (r *Registry) SweepDead(now time.Time, timeout time.Duration) []string {
	var dead []string
	cutoff := now.Add(-timeout)
	for id, state := range r.conns {
		if state.LastHeartbeat.Before(cutoff) {
			dead = append(dead, id)
		}
	}
	return dead
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	return len(r.conns)
}

// IDs returns a snapshot of all connection ids.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}
