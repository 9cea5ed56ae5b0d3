// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

// Package models defines the wire-level event envelope and payloads
// exchanged with chat clients, plus the engine's core value types.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Inbound event types.
const (
	EventJoin          = "join"
	EventLeave         = "leave"
	EventMessage       = "message"
	EventCreateRoom    = "create_room"
	EventProfileUpdate = "profile_update"
	EventTyping        = "typing"
	EventGetStats      = "get_stats"
)

// Outbound event types.
const (
	EventConnected      = "connected"
	EventRoomJoined     = "room_joined"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventRoomCreated    = "room_created"
	EventRoomDeleted    = "room_deleted"
	EventRoomUpdate     = "room_update"
	EventUserTyping     = "user_typing"
	EventStats          = "stats"
	EventStatsUpdate    = "stats_update"
	EventError          = "error"
	EventServerShutdown = "server_shutdown"
)

// Event is the envelope for every frame in both directions. Inbound
// frames keep Data raw so each handler decodes only its own payload.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals payload into an outbound envelope. Marshal failures
// are programming errors (all payloads are plain structs), so they are
// returned for the caller to log and drop the frame.
func NewEvent(eventType string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{Type: eventType, Data: raw}, nil
}

// Identity is a logical user: a stable client-supplied token plus
// mutable display fields. Two connections carrying the same UserID are
// the same person in presence terms.
type Identity struct {
	UserID    string    `json:"userId"`
	Nickname  string    `json:"nickname"`
	Anonymous bool      `json:"anonymous,omitempty"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Message is one chat message. Immutable once appended; removed only by
// retention pruning.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Nickname  string    `json:"nickname"`
	Avatar    string    `json:"avatar"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	Room      string    `json:"room"`
}

// RoomInfo is the room-list entry carried by connected and /api/rooms.
type RoomInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Desc         string    `json:"desc"`
	Icon         string    `json:"icon"`
	UserCount    int       `json:"userCount"`
	Permanent    bool      `json:"permanent"`
	Private      bool      `json:"private"`
	LastActivity time.Time `json:"lastActivity"`
}

// --- Inbound payloads ---

// JoinRequest asks to enter a room. An unknown room id falls back to
// the default permanent room rather than failing.
type JoinRequest struct {
	Room     string `json:"room"`
	Nickname string `json:"nickname"`
	UserID   string `json:"userId"`
}

// LeaveRequest leaves a room explicitly.
type LeaveRequest struct {
	Room string `json:"room"`
}

// ChatMessageRequest carries one outgoing chat line.
type ChatMessageRequest struct {
	Text     string `json:"text" validate:"required"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// CreateRoomRequest asks for a new ephemeral room.
type CreateRoomRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Private     bool   `json:"private"`
}

// ProfileUpdateRequest changes display fields on the caller's identity.
type ProfileUpdateRequest struct {
	UserID    string `json:"userId"`
	Nickname  string `json:"nickname"`
	Anonymous bool   `json:"anonymous"`
}

// TypingRequest toggles the caller's typing indicator.
type TypingRequest struct {
	IsTyping bool `json:"isTyping"`
}

// --- Outbound payloads ---

// StatsSummary is the trimmed stats block sent in connected and
// stats_update frames.
type StatsSummary struct {
	OnlineUsers   int   `json:"onlineUsers"`
	TotalRooms    int   `json:"totalRooms"`
	TotalMessages int64 `json:"totalMessages"`
}

// StatsSnapshot is the full counter set, sent in reply to get_stats and
// on /api/stats.
type StatsSnapshot struct {
	OnlineUsers   int   `json:"onlineUsers"`
	TotalRooms    int   `json:"totalRooms"`
	TotalMessages int64 `json:"totalMessages"`
	PeakUsers     int   `json:"peakUsers"`
	RoomsCreated  int64 `json:"roomsCreated"`
}

// ConnectedPayload is sent once to every new connection.
type ConnectedPayload struct {
	Rooms []RoomInfo   `json:"rooms"`
	Stats StatsSummary `json:"stats"`
}

// RoomJoinedPayload is sent only to the joining connection and carries
// the retained message history.
type RoomJoinedPayload struct {
	Room      string    `json:"room"`
	RoomName  string    `json:"roomName"`
	Messages  []Message `json:"messages"`
	UserCount int       `json:"userCount"`
}

// PresencePayload announces user_joined and user_left. Count is the
// room's unique-identity count after the change.
type PresencePayload struct {
	Room      string    `json:"room"`
	Nickname  string    `json:"nickname"`
	UserID    string    `json:"userId"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomCreatedPayload announces a new room to all connections.
type RoomCreatedPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Desc      string `json:"desc"`
	Icon      string `json:"icon"`
	Owner     string `json:"owner"`
	Private   bool   `json:"private"`
	UserCount int    `json:"userCount"`
}

// RoomDeletedPayload announces an expired room to all connections.
type RoomDeletedPayload struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

// RoomUpdatePayload announces a population change to all connections.
type RoomUpdatePayload struct {
	ID           string    `json:"id"`
	UserCount    int       `json:"userCount"`
	LastActivity time.Time `json:"lastActivity"`
}

// UserTypingPayload relays a typing indicator to the room.
type UserTypingPayload struct {
	Nickname string `json:"nickname"`
	IsTyping bool   `json:"isTyping"`
}

// ErrorPayload is sent only to the offending connection.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ServerShutdownPayload is broadcast before the process exits.
type ServerShutdownPayload struct {
	Message string `json:"message"`
}
