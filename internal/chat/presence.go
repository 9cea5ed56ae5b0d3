// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package chat

// Presence tracks, per room, which connections each identity holds
// open. A user with two tabs is one presence: join/leave notices fire
// only on the first connection in and the last connection out, and
// unique counts never double-count an identity.
type Presence struct {
	// roomID -> userID -> set of connection ids
	rooms map[string]map[string]map[string]struct{}
}

// NewPresence returns an empty presence tracker.
func NewPresence() *Presence {
	return &Presence{rooms: make(map[string]map[string]map[string]struct{})}
}

// Join records a connection under an identity in a room. isNewIdentity
// is true only when the identity had no open connections in the room
// before this call; uniqueCount is the distinct-identity count after.
func (p *Presence) Join(roomID, connID, userID string) (isNewIdentity bool, uniqueCount int) {
	room, ok := p.rooms[roomID]
	if !ok {
		room = make(map[string]map[string]struct{})
		p.rooms[roomID] = room
	}
	conns, ok := room[userID]
	if !ok {
		conns = make(map[string]struct{})
		room[userID] = conns
		isNewIdentity = true
	}
	conns[connID] = struct{}{}
	return isNewIdentity, len(room)
}

// Leave removes a connection from an identity's set in a room.
// isLastConnection is true only when this drops the identity's
// connection count in the room to zero.
func (p *Presence) Leave(roomID, connID, userID string) (isLastConnection bool, uniqueCount int) {
	room, ok := p.rooms[roomID]
	if !ok {
		return false, 0
	}
	conns, ok := room[userID]
	if !ok {
		return false, len(room)
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(room, userID)
		isLastConnection = true
	}
	if len(room) == 0 {
		delete(p.rooms, roomID)
		return isLastConnection, 0
	}
	return isLastConnection, len(room)
}

// UniqueCount returns the number of distinct identities present.
func (p *Presence) UniqueCount(roomID string) int {
	return len(p.rooms[roomID])
}

// Connections returns the connection ids of every member of a room,
// the fan-out target set for room broadcasts.
func (p *Presence) Connections(roomID string) []string {
	room, ok := p.rooms[roomID]
	if !ok {
		return nil
	}
	var out []string
	for _, conns := range room {
		for connID := range conns {
			out = append(out, connID)
		}
	}
	return out
}

// Drop discards all presence state for a room.
func (p *Presence) Drop(roomID string) {
	delete(p.rooms, roomID)
}
